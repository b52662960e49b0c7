// Package casefile models investigation cases and their evidence.
package casefile

import "time"

const (
	StatusOpen          = "open"
	StatusInvestigating = "investigating"
	StatusPending       = "pending"
	StatusClosed        = "closed"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Verification states of evidence.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// Case is a security incident investigation.
type Case struct {
	ID           int64      `json:"id" db:"id"`
	CaseNumber   string     `json:"case_number" db:"case_number"`
	Title        string     `json:"title" db:"title"`
	Overview     string     `json:"overview" db:"overview"`
	Timeline     string     `json:"timeline" db:"timeline"`
	Actions      string     `json:"actions" db:"actions"`
	EvidenceRefs string     `json:"evidence_refs" db:"evidence_refs"`
	Costs        float64    `json:"costs" db:"costs"`
	Parties      string     `json:"parties" db:"parties"`
	Audit        string     `json:"audit" db:"audit"`
	Status       string     `json:"status" db:"status"`
	ClosureCode  string     `json:"closure_code" db:"closure_code"`
	Priority     string     `json:"priority" db:"priority"`
	Category     string     `json:"category" db:"category"`
	AssignedTo   *int64     `json:"assigned_to" db:"assigned_to"`
	CreatedBy    *int64     `json:"created_by" db:"created_by"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	ClosedAt     *time.Time `json:"closed_at" db:"closed_at"`
}

// Evidence is a file or record attached to a case.
type Evidence struct {
	ID                 int64      `json:"id" db:"id"`
	CaseID             int64      `json:"case_id" db:"case_id"`
	EvidenceType       string     `json:"evidence_type" db:"evidence_type"`
	FileRef            string     `json:"file_ref" db:"file_ref"`
	OriginalFilename   string     `json:"original_filename" db:"original_filename"`
	FileSize           int64      `json:"file_size" db:"file_size"`
	MimeType           string     `json:"mime_type" db:"mime_type"`
	EvidenceMetadata   string     `json:"evidence_metadata" db:"evidence_metadata"`
	VerificationStatus string     `json:"verification_status" db:"verification_status"`
	FileHash           string     `json:"file_hash" db:"file_hash"`
	BlockchainHash     string     `json:"blockchain_hash" db:"blockchain_hash"`
	UploadedBy         *int64     `json:"uploaded_by" db:"uploaded_by"`
	VerifiedBy         *int64     `json:"verified_by" db:"verified_by"`
	VerifiedAt         *time.Time `json:"verified_at" db:"verified_at"`
	Notes              string     `json:"notes" db:"notes"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// Filter narrows case listings.
type Filter struct {
	Status   string
	Priority string
	Category string
	Since    *time.Time
	Until    *time.Time
	Offset   int
	Limit    int
}

// Stats aggregates case counts.
type Stats struct {
	Total         int            `json:"total"`
	Open          int            `json:"open"`
	Investigating int            `json:"investigating"`
	Closed        int            `json:"closed"`
	ByPriority    map[string]int `json:"by_priority"`
}

func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusPending, StatusClosed:
		return true
	}
	return false
}

func ValidPriority(s string) bool {
	switch s {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ValidEvidenceType reports whether t is one of IoT, photo, video, document, audio, log.
func ValidEvidenceType(t string) bool {
	switch t {
	case "IoT", "photo", "video", "document", "audio", "log":
		return true
	}
	return false
}
