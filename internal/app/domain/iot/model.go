package iot

import "time"

// Device is a tracker or sensor reporting telemetry.
type Device struct {
	ID                   int64      `json:"id" db:"id"`
	DeviceID             string     `json:"device_id" db:"device_id"`
	DeviceType           string     `json:"device_type" db:"device_type"`
	Manufacturer         string     `json:"manufacturer" db:"manufacturer"`
	Model                string     `json:"model" db:"model"`
	FirmwareVersion      string     `json:"firmware_version" db:"firmware_version"`
	SIMICCID             string     `json:"sim_iccid" db:"sim_iccid"`
	AssetID              *int64     `json:"asset_id" db:"asset_id"`
	VesselID             *int64     `json:"vessel_id" db:"vessel_id"`
	ShipmentID           *int64     `json:"shipment_id" db:"shipment_id"`
	InstallationLocation string     `json:"installation_location" db:"installation_location"`
	Status               string     `json:"status" db:"status"`
	BatteryLevel         *float64   `json:"battery_level" db:"battery_level"`
	SignalStrength       *float64   `json:"signal_strength" db:"signal_strength"`
	LastSeen             *time.Time `json:"last_seen" db:"last_seen"`
	LastLat              *float64   `json:"last_lat" db:"last_lat"`
	LastLng              *float64   `json:"last_lng" db:"last_lng"`
	ReportingIntervalSec int        `json:"reporting_interval_sec" db:"reporting_interval_sec"`
	AlertThresholds      string     `json:"alert_thresholds" db:"alert_thresholds"`
	FieldMap             string     `json:"field_map" db:"field_map"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// Reading is one telemetry sample.
type Reading struct {
	ID           int64     `json:"id" db:"id"`
	DeviceID     int64     `json:"device_id" db:"device_id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	Latitude     *float64  `json:"latitude" db:"latitude"`
	Longitude    *float64  `json:"longitude" db:"longitude"`
	Altitude     *float64  `json:"altitude" db:"altitude"`
	Speed        *float64  `json:"speed" db:"speed"`
	Heading      *float64  `json:"heading" db:"heading"`
	Temperature  *float64  `json:"temperature" db:"temperature"`
	Humidity     *float64  `json:"humidity" db:"humidity"`
	Weight       *float64  `json:"weight" db:"weight"`
	FuelLevel    *float64  `json:"fuel_level" db:"fuel_level"`
	BatteryLevel *float64  `json:"battery_level" db:"battery_level"`
	Vibration    *float64  `json:"vibration" db:"vibration"`
	SealIntact   *bool     `json:"seal_intact" db:"seal_intact"`
	RawPayload   string    `json:"raw_payload" db:"raw_payload"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Filter narrows device listings.
type Filter struct {
	DeviceType string
	Status     string
	ShipmentID int64
	Offset     int
	Limit      int
}

// ReadingFilter narrows telemetry listings. Readings come back oldest first;
// Limit keeps the most recent ones.
type ReadingFilter struct {
	DeviceID int64
	Since    *time.Time
	Limit    int
}

func ValidStatus(s string) bool {
	switch s {
	case "active", "offline", "maintenance", "decommissioned":
		return true
	}
	return false
}
