package playbook

import "time"

// Playbook is a response procedure for an incident type.
type Playbook struct {
	ID                int64     `json:"id" db:"id"`
	IncidentType      string    `json:"incident_type" db:"incident_type"`
	Domain            string    `json:"domain" db:"domain"`
	Title             string    `json:"title" db:"title"`
	Description       string    `json:"description" db:"description"`
	Steps             string    `json:"steps" db:"steps"`
	EstimatedDuration *int      `json:"estimated_duration" db:"estimated_duration"`
	RequiredRoles     string    `json:"required_roles" db:"required_roles"`
	EscalationRules   string    `json:"escalation_rules" db:"escalation_rules"`
	IsActive          bool      `json:"is_active" db:"is_active"`
	Version           int       `json:"version" db:"version"`
	CreatedBy         *int64    `json:"created_by" db:"created_by"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Filter narrows playbook listings. IncidentTypeLike is a case-insensitive
// substring match.
type Filter struct {
	Active           *bool
	IncidentType     string
	IncidentTypeLike string
	Domain           string
	Offset           int
	Limit            int
}
