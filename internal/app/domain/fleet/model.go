package fleet

import "time"

const (
	AssetAvailable   = "available"
	AssetInTransit   = "in_transit"
	AssetMaintenance = "maintenance"
	AssetIdle        = "idle"
)

// Asset is a truck, wagon, barge or handling equipment.
type Asset struct {
	ID                 int64      `json:"id" db:"id"`
	AssetCode          string     `json:"asset_code" db:"asset_code"`
	Name               string     `json:"name" db:"name"`
	AssetType          string     `json:"asset_type" db:"asset_type"`
	SubType            string     `json:"sub_type" db:"sub_type"`
	Owner              string     `json:"owner" db:"owner"`
	Operator           string     `json:"operator" db:"operator"`
	Capacity           *float64   `json:"capacity" db:"capacity"`
	MaxPayload         *float64   `json:"max_payload" db:"max_payload"`
	FuelType           string     `json:"fuel_type" db:"fuel_type"`
	YearManufactured   *int       `json:"year_manufactured" db:"year_manufactured"`
	Registration       string     `json:"registration" db:"registration"`
	Status             string     `json:"status" db:"status"`
	CurrentLocation    string     `json:"current_location" db:"current_location"`
	CurrentLat         *float64   `json:"current_lat" db:"current_lat"`
	CurrentLng         *float64   `json:"current_lng" db:"current_lng"`
	CurrentSpeed       *float64   `json:"current_speed" db:"current_speed"`
	AssignedCorridorID *int64     `json:"assigned_corridor_id" db:"assigned_corridor_id"`
	AssignedShipmentID *int64     `json:"assigned_shipment_id" db:"assigned_shipment_id"`
	UtilizationPct     float64    `json:"utilization_pct" db:"utilization_pct"`
	TotalTrips         int        `json:"total_trips" db:"total_trips"`
	TotalDistanceKm    float64    `json:"total_distance_km" db:"total_distance_km"`
	LastTripEnd        *time.Time `json:"last_trip_end" db:"last_trip_end"`
	NextMaintenance    *time.Time `json:"next_maintenance" db:"next_maintenance"`
	MaintenanceStatus  string     `json:"maintenance_status" db:"maintenance_status"`
	OdometerKm         float64    `json:"odometer_km" db:"odometer_km"`
	IoTDeviceID        string     `json:"iot_device_id" db:"iot_device_id"`
	LastTelemetryAt    *time.Time `json:"last_telemetry_at" db:"last_telemetry_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// Maintenance is a scheduled or reactive maintenance job.
type Maintenance struct {
	ID              int64      `json:"id" db:"id"`
	AssetID         *int64     `json:"asset_id" db:"asset_id"`
	VesselID        *int64     `json:"vessel_id" db:"vessel_id"`
	MaintenanceType string     `json:"maintenance_type" db:"maintenance_type"`
	Description     string     `json:"description" db:"description"`
	ScheduledDate   *time.Time `json:"scheduled_date" db:"scheduled_date"`
	StartedAt       *time.Time `json:"started_at" db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at" db:"completed_at"`
	Cost            float64    `json:"cost" db:"cost"`
	Vendor          string     `json:"vendor" db:"vendor"`
	Status          string     `json:"status" db:"status"`
	Notes           string     `json:"notes" db:"notes"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Dispatch assigns an asset to a trip.
type Dispatch struct {
	ID               int64      `json:"id" db:"id"`
	AssetID          int64      `json:"asset_id" db:"asset_id"`
	ShipmentID       *int64     `json:"shipment_id" db:"shipment_id"`
	Origin           string     `json:"origin" db:"origin"`
	Destination      string     `json:"destination" db:"destination"`
	DispatchedAt     *time.Time `json:"dispatched_at" db:"dispatched_at"`
	EstimatedArrival *time.Time `json:"estimated_arrival" db:"estimated_arrival"`
	ActualArrival    *time.Time `json:"actual_arrival" db:"actual_arrival"`
	CargoType        string     `json:"cargo_type" db:"cargo_type"`
	CargoVolume      *float64   `json:"cargo_volume" db:"cargo_volume"`
	Status           string     `json:"status" db:"status"`
	DriverName       string     `json:"driver_name" db:"driver_name"`
	DriverContact    string     `json:"driver_contact" db:"driver_contact"`
	Notes            string     `json:"notes" db:"notes"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Filter narrows asset listings.
type Filter struct {
	AssetType  string
	Status     string
	CorridorID int64
	Offset     int
	Limit      int
}

// DispatchFilter narrows dispatch listings.
type DispatchFilter struct {
	AssetID    int64
	ShipmentID int64
	Status     string
	Offset     int
	Limit      int
}

// MaintenanceFilter narrows maintenance listings.
type MaintenanceFilter struct {
	AssetID  int64
	VesselID int64
	Status   string
	Offset   int
	Limit    int
}

func ValidAssetStatus(s string) bool {
	switch s {
	case "available", "in_transit", "loading", "unloading", "maintenance", "breakdown", "idle":
		return true
	}
	return false
}

func ValidDispatchStatus(s string) bool {
	switch s {
	case "dispatched", "in_transit", "arrived", "completed", "cancelled":
		return true
	}
	return false
}

func ValidMaintenanceStatus(s string) bool {
	switch s {
	case "scheduled", "in_progress", "completed", "cancelled":
		return true
	}
	return false
}
