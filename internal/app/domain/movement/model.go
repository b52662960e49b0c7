package movement

import "time"

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusDelayed   = "delayed"
)

// Event types.
const (
	EventPlanned     = "planned"
	EventActual      = "actual"
	EventSecurity    = "security"
	EventOperational = "operational"
)

// Event severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Movement is a tracked cargo transit.
type Movement struct {
	ID              int64     `json:"id" db:"id"`
	Cargo           string    `json:"cargo" db:"cargo"`
	Route           string    `json:"route" db:"route"`
	Assets          string    `json:"assets" db:"assets"`
	Stakeholders    string    `json:"stakeholders" db:"stakeholders"`
	LaycanStart     time.Time `json:"laycan_start" db:"laycan_start"`
	LaycanEnd       time.Time `json:"laycan_end" db:"laycan_end"`
	Status          string    `json:"status" db:"status"`
	CurrentLocation string    `json:"current_location" db:"current_location"`
	CurrentLat      *float64  `json:"current_lat" db:"current_lat"`
	CurrentLng      *float64  `json:"current_lng" db:"current_lng"`
	RiskScore       float64   `json:"risk_score" db:"risk_score"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Event is an observation recorded against a movement.
type Event struct {
	ID            int64     `json:"id" db:"id"`
	MovementID    int64     `json:"movement_id" db:"movement_id"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
	Location      string    `json:"location" db:"location"`
	Latitude      *float64  `json:"latitude" db:"latitude"`
	Longitude     *float64  `json:"longitude" db:"longitude"`
	Actor         string    `json:"actor" db:"actor"`
	Evidence      string    `json:"evidence" db:"evidence"`
	EventType     string    `json:"event_type" db:"event_type"`
	Severity      string    `json:"severity" db:"severity"`
	Description   string    `json:"description" db:"description"`
	EventMetadata string    `json:"event_metadata" db:"event_metadata"`
	Source        string    `json:"source" db:"source"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Filter narrows movement listings.
type Filter struct {
	Status string
	Offset int
	Limit  int
}

// EventFilter narrows event listings.
type EventFilter struct {
	MovementID int64
	EventType  string
	Severity   string
	Since      *time.Time
	Offset     int
	Limit      int
}

func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled, StatusDelayed:
		return true
	}
	return false
}

func ValidEventType(s string) bool {
	switch s {
	case EventPlanned, EventActual, EventSecurity, EventOperational:
		return true
	}
	return false
}

func ValidSeverity(s string) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}
