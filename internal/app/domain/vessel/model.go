package vessel

import "time"

// Vessel is an ocean-going or inland vessel with its last known position.
type Vessel struct {
	ID                 int64      `json:"id" db:"id"`
	Name               string     `json:"name" db:"name"`
	IMONumber          *string    `json:"imo_number" db:"imo_number"`
	MMSI               string     `json:"mmsi" db:"mmsi"`
	VesselType         string     `json:"vessel_type" db:"vessel_type"`
	Flag               string     `json:"flag" db:"flag"`
	DWT                *float64   `json:"dwt" db:"dwt"`
	LOA                *float64   `json:"loa" db:"loa"`
	Beam               *float64   `json:"beam" db:"beam"`
	Draft              *float64   `json:"draft" db:"draft"`
	YearBuilt          *int       `json:"year_built" db:"year_built"`
	Owner              string     `json:"owner" db:"owner"`
	Operator           string     `json:"operator" db:"operator"`
	ClassSociety       string     `json:"class_society" db:"class_society"`
	CurrentLat         *float64   `json:"current_lat" db:"current_lat"`
	CurrentLng         *float64   `json:"current_lng" db:"current_lng"`
	CurrentSpeed       *float64   `json:"current_speed" db:"current_speed"`
	CurrentHeading     *float64   `json:"current_heading" db:"current_heading"`
	CurrentDestination string     `json:"current_destination" db:"current_destination"`
	PositionUpdatedAt  *time.Time `json:"position_updated_at" db:"position_updated_at"`
	Status             string     `json:"status" db:"status"`
	AISStatus          string     `json:"ais_status" db:"ais_status"`
	CharterType        string     `json:"charter_type" db:"charter_type"`
	CharterRate        *float64   `json:"charter_rate" db:"charter_rate"`
	CharterStart       *time.Time `json:"charter_start" db:"charter_start"`
	CharterEnd         *time.Time `json:"charter_end" db:"charter_end"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// HasPosition reports whether a latitude and longitude are known.
func (v Vessel) HasPosition() bool {
	return v.CurrentLat != nil && v.CurrentLng != nil
}

// Position is the payload of a position report.
type Position struct {
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Speed       *float64 `json:"speed"`
	Heading     *float64 `json:"heading"`
	Destination string   `json:"destination"`
	AISStatus   string   `json:"ais_status"`
}

// Filter narrows vessel listings.
type Filter struct {
	Status       string
	VesselType   string
	WithPosition bool
	Offset       int
	Limit        int
}

func ValidStatus(s string) bool {
	switch s {
	case "active", "idle", "maintenance", "drydock", "decommissioned":
		return true
	}
	return false
}
