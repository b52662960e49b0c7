package corridor

import (
	"encoding/json"
	"time"
)

// Corridor is a logistics route between an origin and destination port.
type Corridor struct {
	ID                int64     `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Code              string    `json:"code" db:"code"`
	CorridorType      string    `json:"corridor_type" db:"corridor_type"`
	Country           string    `json:"country" db:"country"`
	Region            string    `json:"region" db:"region"`
	Description       string    `json:"description" db:"description"`
	OriginPortID      *int64    `json:"origin_port_id" db:"origin_port_id"`
	DestinationPortID *int64    `json:"destination_port_id" db:"destination_port_id"`
	Waypoints         string    `json:"waypoints" db:"waypoints"`
	TotalDistanceKm   *float64  `json:"total_distance_km" db:"total_distance_km"`
	Modes             string    `json:"modes" db:"modes"`
	PrimaryCommodity  string    `json:"primary_commodity" db:"primary_commodity"`
	AnnualVolumeMt    *float64  `json:"annual_volume_mt" db:"annual_volume_mt"`
	Status            string    `json:"status" db:"status"`
	AvgTransitDays    *float64  `json:"avg_transit_days" db:"avg_transit_days"`
	AvgDemurrageDays  *float64  `json:"avg_demurrage_days" db:"avg_demurrage_days"`
	AvgCostPerTonne   *float64  `json:"avg_cost_per_tonne" db:"avg_cost_per_tonne"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Waypoint is one point of a corridor route.
type Waypoint struct {
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Type string  `json:"type,omitempty"`
}

// Route decodes the waypoint list. An empty field yields no waypoints.
func (c Corridor) Route() ([]Waypoint, error) {
	if c.Waypoints == "" {
		return nil, nil
	}
	var out []Waypoint
	if err := json.Unmarshal([]byte(c.Waypoints), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Geofence is a monitored area attached to a corridor.
type Geofence struct {
	ID              int64     `json:"id" db:"id"`
	CorridorID      *int64    `json:"corridor_id" db:"corridor_id"`
	Name            string    `json:"name" db:"name"`
	FenceType       string    `json:"fence_type" db:"fence_type"`
	Geometry        string    `json:"geometry" db:"geometry"`
	AlertOnEnter    bool      `json:"alert_on_enter" db:"alert_on_enter"`
	AlertOnExit     bool      `json:"alert_on_exit" db:"alert_on_exit"`
	AlertOnDwell    bool      `json:"alert_on_dwell" db:"alert_on_dwell"`
	MaxDwellMinutes *int      `json:"max_dwell_minutes" db:"max_dwell_minutes"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Filter narrows corridor listings.
type Filter struct {
	Status string
	Offset int
	Limit  int
}

func ValidStatus(s string) bool {
	switch s {
	case "active", "seasonal", "disrupted", "closed":
		return true
	}
	return false
}
