package shipment

import "time"

const (
	StatusPlanned     = "planned"
	StatusLoading     = "loading"
	StatusInTransit   = "in_transit"
	StatusAtPort      = "at_port"
	StatusDischarging = "discharging"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
)

// Shipment is a multimodal cargo movement along a corridor.
type Shipment struct {
	ID                   int64      `json:"id" db:"id"`
	ShipmentRef          string     `json:"shipment_ref" db:"shipment_ref"`
	CorridorID           *int64     `json:"corridor_id" db:"corridor_id"`
	VesselID             *int64     `json:"vessel_id" db:"vessel_id"`
	CargoType            string     `json:"cargo_type" db:"cargo_type"`
	CargoGrade           string     `json:"cargo_grade" db:"cargo_grade"`
	VolumeTonnes         *float64   `json:"volume_tonnes" db:"volume_tonnes"`
	BillOfLading         string     `json:"bill_of_lading" db:"bill_of_lading"`
	Origin               string     `json:"origin" db:"origin"`
	Destination          string     `json:"destination" db:"destination"`
	OriginPortID         *int64     `json:"origin_port_id" db:"origin_port_id"`
	DestinationPortID    *int64     `json:"destination_port_id" db:"destination_port_id"`
	LaycanStart          *time.Time `json:"laycan_start" db:"laycan_start"`
	LaycanEnd            *time.Time `json:"laycan_end" db:"laycan_end"`
	Status               string     `json:"status" db:"status"`
	CurrentLeg           string     `json:"current_leg" db:"current_leg"`
	CurrentMode          string     `json:"current_mode" db:"current_mode"`
	ETADestination       *time.Time `json:"eta_destination" db:"eta_destination"`
	ETAConfidence        *float64   `json:"eta_confidence" db:"eta_confidence"`
	ETAUpdatedAt         *time.Time `json:"eta_updated_at" db:"eta_updated_at"`
	DemurrageRiskScore   float64    `json:"demurrage_risk_score" db:"demurrage_risk_score"`
	DemurrageExposureUSD float64    `json:"demurrage_exposure_usd" db:"demurrage_exposure_usd"`
	DemurrageRateUSD     *float64   `json:"demurrage_rate_usd" db:"demurrage_rate_usd"`
	DemurrageDays        float64    `json:"demurrage_days" db:"demurrage_days"`
	LoadingStarted       *time.Time `json:"loading_started" db:"loading_started"`
	LoadingCompleted     *time.Time `json:"loading_completed" db:"loading_completed"`
	DepartedOrigin       *time.Time `json:"departed_origin" db:"departed_origin"`
	ArrivedDestination   *time.Time `json:"arrived_destination" db:"arrived_destination"`
	DischargeStarted     *time.Time `json:"discharge_started" db:"discharge_started"`
	DischargeCompleted   *time.Time `json:"discharge_completed" db:"discharge_completed"`
	Shipper              string     `json:"shipper" db:"shipper"`
	Receiver             string     `json:"receiver" db:"receiver"`
	FreightForwarder     string     `json:"freight_forwarder" db:"freight_forwarder"`
	InsuranceRef         string     `json:"insurance_ref" db:"insurance_ref"`
	CustodySealID        string     `json:"custody_seal_id" db:"custody_seal_id"`
	CustodyStatus        string     `json:"custody_status" db:"custody_status"`
	FreightCost          *float64   `json:"freight_cost" db:"freight_cost"`
	InsuranceCost        *float64   `json:"insurance_cost" db:"insurance_cost"`
	TotalCost            *float64   `json:"total_cost" db:"total_cost"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// Active reports whether the shipment is neither completed nor cancelled.
func (s Shipment) Active() bool {
	return s.Status != StatusCompleted && s.Status != StatusCancelled
}

// Milestone is a planned or reached checkpoint of a shipment.
type Milestone struct {
	ID            int64      `json:"id" db:"id"`
	ShipmentID    int64      `json:"shipment_id" db:"shipment_id"`
	MilestoneType string     `json:"milestone_type" db:"milestone_type"`
	Description   string     `json:"description" db:"description"`
	Location      string     `json:"location" db:"location"`
	Mode          string     `json:"mode" db:"mode"`
	PlannedTime   *time.Time `json:"planned_time" db:"planned_time"`
	ActualTime    *time.Time `json:"actual_time" db:"actual_time"`
	VarianceHours *float64   `json:"variance_hours" db:"variance_hours"`
	Status        string     `json:"status" db:"status"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// CustodyEvent records a handover, seal operation or weighing.
type CustodyEvent struct {
	ID                int64     `json:"id" db:"id"`
	ShipmentID        int64     `json:"shipment_id" db:"shipment_id"`
	EventType         string    `json:"event_type" db:"event_type"`
	Timestamp         time.Time `json:"timestamp" db:"timestamp"`
	Location          string    `json:"location" db:"location"`
	Latitude          *float64  `json:"latitude" db:"latitude"`
	Longitude         *float64  `json:"longitude" db:"longitude"`
	FromParty         string    `json:"from_party" db:"from_party"`
	ToParty           string    `json:"to_party" db:"to_party"`
	WitnessedBy       string    `json:"witnessed_by" db:"witnessed_by"`
	SealNumber        string    `json:"seal_number" db:"seal_number"`
	SealStatus        string    `json:"seal_status" db:"seal_status"`
	MeasuredVolume    *float64  `json:"measured_volume" db:"measured_volume"`
	ExpectedVolume    *float64  `json:"expected_volume" db:"expected_volume"`
	VolumeVariancePct *float64  `json:"volume_variance_pct" db:"volume_variance_pct"`
	PhotoRef          string    `json:"photo_ref" db:"photo_ref"`
	DocumentRef       string    `json:"document_ref" db:"document_ref"`
	DigitalSignature  string    `json:"digital_signature" db:"digital_signature"`
	BlockchainTx      string    `json:"blockchain_tx" db:"blockchain_tx"`
	Notes             string    `json:"notes" db:"notes"`
	CreatedBy         *int64    `json:"created_by" db:"created_by"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// Document is a trade document attached to a shipment.
type Document struct {
	ID           int64      `json:"id" db:"id"`
	ShipmentID   int64      `json:"shipment_id" db:"shipment_id"`
	DocumentType string     `json:"document_type" db:"document_type"`
	Title        string     `json:"title" db:"title"`
	FileRef      string     `json:"file_ref" db:"file_ref"`
	FileHash     string     `json:"file_hash" db:"file_hash"`
	Status       string     `json:"status" db:"status"`
	IssuedBy     string     `json:"issued_by" db:"issued_by"`
	IssuedAt     *time.Time `json:"issued_at" db:"issued_at"`
	VerifiedBy   *int64     `json:"verified_by" db:"verified_by"`
	VerifiedAt   *time.Time `json:"verified_at" db:"verified_at"`
	Notes        string     `json:"notes" db:"notes"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Exception is an operational disruption affecting a shipment.
type Exception struct {
	ID                  int64      `json:"id" db:"id"`
	ShipmentID          int64      `json:"shipment_id" db:"shipment_id"`
	ExceptionType       string     `json:"exception_type" db:"exception_type"`
	Severity            string     `json:"severity" db:"severity"`
	Description         string     `json:"description" db:"description"`
	ImpactDescription   string     `json:"impact_description" db:"impact_description"`
	EstimatedDelayHours *float64   `json:"estimated_delay_hours" db:"estimated_delay_hours"`
	EstimatedCostUSD    *float64   `json:"estimated_cost_usd" db:"estimated_cost_usd"`
	Status              string     `json:"status" db:"status"`
	Resolution          string     `json:"resolution" db:"resolution"`
	ResolvedAt          *time.Time `json:"resolved_at" db:"resolved_at"`
	ResolvedBy          *int64     `json:"resolved_by" db:"resolved_by"`
	AIRecommendation    string     `json:"ai_recommendation" db:"ai_recommendation"`
	AIConfidence        *float64   `json:"ai_confidence" db:"ai_confidence"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// Detail is a shipment with its children.
type Detail struct {
	Shipment
	Milestones    []Milestone    `json:"milestones"`
	CustodyEvents []CustodyEvent `json:"custody_events"`
	Documents     []Document     `json:"documents"`
	Exceptions    []Exception    `json:"exceptions"`
}

// Filter narrows shipment listings.
type Filter struct {
	Status       string
	CorridorID   int64
	VesselID     int64
	CargoType    string
	ActiveOnly   bool
	MinRiskScore *float64
	Offset       int
	Limit        int
}

// ExceptionFilter narrows exception listings across shipments.
type ExceptionFilter struct {
	ShipmentID int64
	Statuses   []string
	Severity   string
	Since      *time.Time
	Limit      int
}

func ValidStatus(s string) bool {
	switch s {
	case StatusPlanned, StatusLoading, StatusInTransit, StatusAtPort, StatusDischarging, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func ValidMilestoneStatus(s string) bool {
	switch s {
	case "pending", "completed", "skipped", "delayed":
		return true
	}
	return false
}

func ValidDocumentStatus(s string) bool {
	switch s {
	case "pending", "verified", "rejected", "expired":
		return true
	}
	return false
}

func ValidExceptionSeverity(s string) bool {
	switch s {
	case "critical", "high", "medium", "low":
		return true
	}
	return false
}

func ValidExceptionStatus(s string) bool {
	switch s {
	case "open", "acknowledged", "mitigating", "resolved":
		return true
	}
	return false
}
