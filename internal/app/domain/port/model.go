package port

import "time"

// Port is a sea or river port.
type Port struct {
	ID                int64     `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Code              string    `json:"code" db:"code"`
	Country           string    `json:"country" db:"country"`
	Region            string    `json:"region" db:"region"`
	Latitude          *float64  `json:"latitude" db:"latitude"`
	Longitude         *float64  `json:"longitude" db:"longitude"`
	PortType          string    `json:"port_type" db:"port_type"`
	MaxDraft          *float64  `json:"max_draft" db:"max_draft"`
	MaxLOA            *float64  `json:"max_loa" db:"max_loa"`
	AnchorageCapacity *int      `json:"anchorage_capacity" db:"anchorage_capacity"`
	Status            string    `json:"status" db:"status"`
	CurrentQueue      int       `json:"current_queue" db:"current_queue"`
	AvgWaitDays       float64   `json:"avg_wait_days" db:"avg_wait_days"`
	AvgDwellDays      float64   `json:"avg_dwell_days" db:"avg_dwell_days"`
	Authority         string    `json:"authority" db:"authority"`
	Timezone          string    `json:"timezone" db:"timezone"`
	Notes             string    `json:"notes" db:"notes"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Berth is a loading position inside a port.
type Berth struct {
	ID          int64     `json:"id" db:"id"`
	PortID      int64     `json:"port_id" db:"port_id"`
	Name        string    `json:"name" db:"name"`
	BerthType   string    `json:"berth_type" db:"berth_type"`
	MaxDraft    *float64  `json:"max_draft" db:"max_draft"`
	MaxLOA      *float64  `json:"max_loa" db:"max_loa"`
	MaxBeam     *float64  `json:"max_beam" db:"max_beam"`
	CargoTypes  string    `json:"cargo_types" db:"cargo_types"`
	Equipment   string    `json:"equipment" db:"equipment"`
	LoadingRate *float64  `json:"loading_rate" db:"loading_rate"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Booking reserves a berth for a vessel call.
type Booking struct {
	ID                 int64      `json:"id" db:"id"`
	BerthID            int64      `json:"berth_id" db:"berth_id"`
	VesselID           *int64     `json:"vessel_id" db:"vessel_id"`
	ShipmentID         *int64     `json:"shipment_id" db:"shipment_id"`
	ScheduledArrival   time.Time  `json:"scheduled_arrival" db:"scheduled_arrival"`
	ScheduledDeparture time.Time  `json:"scheduled_departure" db:"scheduled_departure"`
	ActualArrival      *time.Time `json:"actual_arrival" db:"actual_arrival"`
	ActualDeparture    *time.Time `json:"actual_departure" db:"actual_departure"`
	Status             string     `json:"status" db:"status"`
	CargoType          string     `json:"cargo_type" db:"cargo_type"`
	CargoVolume        *float64   `json:"cargo_volume" db:"cargo_volume"`
	Priority           int        `json:"priority" db:"priority"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// CongestionEntry summarizes berth usage for one port.
type CongestionEntry struct {
	PortID          int64   `json:"port_id"`
	PortName        string  `json:"port_name"`
	PortCode        string  `json:"port_code"`
	Status          string  `json:"status"`
	CurrentQueue    int     `json:"current_queue"`
	AvgWaitDays     float64 `json:"avg_wait_days"`
	AvgDwellDays    float64 `json:"avg_dwell_days"`
	TotalBerths     int     `json:"total_berths"`
	AvailableBerths int     `json:"available_berths"`
	ActiveBookings  int     `json:"active_bookings"`
	UtilizationPct  float64 `json:"utilization_pct"`
}

// Filter narrows port listings.
type Filter struct {
	Country string
	Status  string
	Offset  int
	Limit   int
}

// BookingFilter narrows berth booking listings.
type BookingFilter struct {
	PortID   int64
	BerthID  int64
	Statuses []string
}

func ValidStatus(s string) bool {
	switch s {
	case "operational", "congested", "closed", "restricted":
		return true
	}
	return false
}

func ValidBerthStatus(s string) bool {
	switch s {
	case "available", "occupied", "maintenance", "reserved":
		return true
	}
	return false
}

func ValidBookingStatus(s string) bool {
	switch s {
	case "scheduled", "confirmed", "active", "completed", "cancelled":
		return true
	}
	return false
}
