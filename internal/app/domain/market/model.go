package market

import "time"

// FreightRate is a quoted price for a lane and mode.
type FreightRate struct {
	ID               int64      `json:"id" db:"id"`
	CorridorID       *int64     `json:"corridor_id" db:"corridor_id"`
	Lane             string     `json:"lane" db:"lane"`
	Mode             string     `json:"mode" db:"mode"`
	CargoType        string     `json:"cargo_type" db:"cargo_type"`
	RateUSD          float64    `json:"rate_usd" db:"rate_usd"`
	RateUnit         string     `json:"rate_unit" db:"rate_unit"`
	Currency         string     `json:"currency" db:"currency"`
	RateType         string     `json:"rate_type" db:"rate_type"`
	Source           string     `json:"source" db:"source"`
	EffectiveDate    time.Time  `json:"effective_date" db:"effective_date"`
	ExpiryDate       *time.Time `json:"expiry_date" db:"expiry_date"`
	VesselClass      string     `json:"vessel_class" db:"vessel_class"`
	VesselSizeDWTMin *float64   `json:"vessel_size_dwt_min" db:"vessel_size_dwt_min"`
	VesselSizeDWTMax *float64   `json:"vessel_size_dwt_max" db:"vessel_size_dwt_max"`
	FuelSurcharge    *float64   `json:"fuel_surcharge" db:"fuel_surcharge"`
	PortCharges      *float64   `json:"port_charges" db:"port_charges"`
	TotalCost        *float64   `json:"total_cost" db:"total_cost"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Index is one observation of a market index.
type Index struct {
	ID         int64     `json:"id" db:"id"`
	IndexName  string    `json:"index_name" db:"index_name"`
	IndexType  string    `json:"index_type" db:"index_type"`
	Value      float64   `json:"value" db:"value"`
	Unit       string    `json:"unit" db:"unit"`
	ChangePct  *float64  `json:"change_pct" db:"change_pct"`
	ChangeAbs  *float64  `json:"change_abs" db:"change_abs"`
	Period     string    `json:"period" db:"period"`
	Source     string    `json:"source" db:"source"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DemurrageRecord tracks laytime and demurrage for a vessel call.
type DemurrageRecord struct {
	ID                  int64      `json:"id" db:"id"`
	ShipmentID          *int64     `json:"shipment_id" db:"shipment_id"`
	VesselID            *int64     `json:"vessel_id" db:"vessel_id"`
	PortID              *int64     `json:"port_id" db:"port_id"`
	LaycanStart         *time.Time `json:"laycan_start" db:"laycan_start"`
	LaycanEnd           *time.Time `json:"laycan_end" db:"laycan_end"`
	NORTendered         *time.Time `json:"nor_tendered" db:"nor_tendered"`
	LaytimeStart        *time.Time `json:"laytime_start" db:"laytime_start"`
	LaytimeEnd          *time.Time `json:"laytime_end" db:"laytime_end"`
	LaytimeAllowedHours *float64   `json:"laytime_allowed_hours" db:"laytime_allowed_hours"`
	LaytimeUsedHours    *float64   `json:"laytime_used_hours" db:"laytime_used_hours"`
	DemurrageStart      *time.Time `json:"demurrage_start" db:"demurrage_start"`
	DemurrageEnd        *time.Time `json:"demurrage_end" db:"demurrage_end"`
	DemurrageDays       *float64   `json:"demurrage_days" db:"demurrage_days"`
	DemurrageRateUSD    *float64   `json:"demurrage_rate_usd" db:"demurrage_rate_usd"`
	DemurrageAmountUSD  *float64   `json:"demurrage_amount_usd" db:"demurrage_amount_usd"`
	DespatchDays        *float64   `json:"despatch_days" db:"despatch_days"`
	DespatchAmountUSD   *float64   `json:"despatch_amount_usd" db:"despatch_amount_usd"`
	Status              string     `json:"status" db:"status"`
	Notes               string     `json:"notes" db:"notes"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// RateFilter narrows freight rate listings. LaneLike is a case-insensitive
// substring match.
type RateFilter struct {
	LaneLike   string
	Mode       string
	CorridorID int64
	RateType   string
	Since      *time.Time
	Offset     int
	Limit      int
}

// IndexFilter narrows index listings.
type IndexFilter struct {
	NameLike  string
	IndexType string
	Since     *time.Time
	Offset    int
	Limit     int
}

// DemurrageFilter narrows demurrage listings.
type DemurrageFilter struct {
	ShipmentID int64
	Status     string
	Since      *time.Time
	Offset     int
	Limit      int
}

// Benchmark aggregates the rates quoted for one lane and mode over a period.
type Benchmark struct {
	Lane        string  `json:"lane"`
	Mode        string  `json:"mode"`
	AvgRate     float64 `json:"avg_rate"`
	MinRate     float64 `json:"min_rate"`
	MaxRate     float64 `json:"max_rate"`
	SampleCount int     `json:"sample_count"`
	PeriodDays  int     `json:"period_days"`
}

// Exposure is the demurrage position across active shipments.
type Exposure struct {
	TotalExposureUSD   float64 `json:"total_exposure_usd"`
	TotalDemurrageDays float64 `json:"total_demurrage_days"`
	ActiveShipments    int     `json:"active_shipments"`
	HighRiskShipments  int     `json:"high_risk_shipments"`
	AvgRiskScore       float64 `json:"avg_risk_score"`
}

func ValidDemurrageStatus(s string) bool {
	switch s {
	case "accruing", "calculated", "disputed", "settled":
		return true
	}
	return false
}
