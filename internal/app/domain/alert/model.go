package alert

import "time"

const (
	SeverityCritical = "Critical"
	SeverityHigh     = "High"
	SeverityMedium   = "Medium"
	SeverityLow      = "Low"
)

const (
	StatusOpen          = "open"
	StatusAcknowledged  = "acknowledged"
	StatusAssigned      = "assigned"
	StatusInvestigating = "investigating"
	StatusClosed        = "closed"
)

// Alert is a risk signal raised manually or by the rule engine.
type Alert struct {
	ID              int64      `json:"id" db:"id"`
	Severity        string     `json:"severity" db:"severity"`
	Confidence      float64    `json:"confidence" db:"confidence"`
	SLATimer        int        `json:"sla_timer" db:"sla_timer"`
	SLABreached     bool       `json:"sla_breached" db:"sla_breached"`
	Domain          string     `json:"domain" db:"domain"`
	SiteZone        string     `json:"site_zone" db:"site_zone"`
	MovementID      *int64     `json:"movement_id" db:"movement_id"`
	EventID         *int64     `json:"event_id" db:"event_id"`
	Status          string     `json:"status" db:"status"`
	CaseID          *int64     `json:"case_id" db:"case_id"`
	Description     string     `json:"description" db:"description"`
	RuleID          string     `json:"rule_id" db:"rule_id"`
	RuleName        string     `json:"rule_name" db:"rule_name"`
	AssignedTo      *int64     `json:"assigned_to" db:"assigned_to"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at" db:"acknowledged_at"`
	AcknowledgedBy  *int64     `json:"acknowledged_by" db:"acknowledged_by"`
	ResolvedAt      *time.Time `json:"resolved_at" db:"resolved_at"`
	ResolvedBy      *int64     `json:"resolved_by" db:"resolved_by"`
	ResolutionNotes string     `json:"resolution_notes" db:"resolution_notes"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// SLADeadline is the moment the alert breaches its SLA.
func (a Alert) SLADeadline() time.Time {
	return a.CreatedAt.Add(time.Duration(a.SLATimer) * time.Minute)
}

// Filter narrows alert listings. Empty fields match everything.
type Filter struct {
	Domain      string
	Status      string
	Statuses    []string
	Severity    string
	SLABreached *bool
	CaseID      int64
	EventID     int64
	RuleID      string
	Since       *time.Time
	Until       *time.Time
	Offset      int
	Limit       int
}

// Stats aggregates alert counts.
type Stats struct {
	Total       int `json:"total"`
	Open        int `json:"open"`
	Critical    int `json:"critical"`
	High        int `json:"high"`
	Medium      int `json:"medium"`
	Low         int `json:"low"`
	SLABreached int `json:"sla_breached"`
}

func ValidSeverity(s string) bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusAcknowledged, StatusAssigned, StatusInvestigating, StatusClosed:
		return true
	}
	return false
}
