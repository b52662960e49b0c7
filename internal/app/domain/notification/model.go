package notification

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	TypeAlert      = "alert"
	TypeCaseUpdate = "case_update"
	TypeSystem     = "system"
	TypeReminder   = "reminder"
)

const (
	ChannelWebSocket = "websocket"
	ChannelEmail     = "email"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Notification is a delivered message kept for the user's inbox.
type Notification struct {
	ID               int64      `json:"id" db:"id"`
	UserID           int64      `json:"user_id" db:"user_id"`
	NotificationType string     `json:"notification_type" db:"notification_type"`
	Channel          string     `json:"channel" db:"channel"`
	Title            string     `json:"title" db:"title"`
	Message          string     `json:"message" db:"message"`
	Data             string     `json:"data" db:"data"`
	Priority         string     `json:"priority" db:"priority"`
	IsRead           bool       `json:"is_read" db:"is_read"`
	ReadAt           *time.Time `json:"read_at" db:"read_at"`
	IsDelivered      bool       `json:"is_delivered" db:"is_delivered"`
	DeliveredAt      *time.Time `json:"delivered_at" db:"delivered_at"`
	DeliveryError    string     `json:"delivery_error" db:"delivery_error"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// Preference holds a user's delivery settings.
type Preference struct {
	ID                  int64     `json:"id" db:"id"`
	UserID              int64     `json:"user_id" db:"user_id"`
	EmailEnabled        bool      `json:"email_enabled" db:"email_enabled"`
	EmailCriticalAlerts bool      `json:"email_critical_alerts" db:"email_critical_alerts"`
	EmailHighAlerts     bool      `json:"email_high_alerts" db:"email_high_alerts"`
	EmailMediumAlerts   bool      `json:"email_medium_alerts" db:"email_medium_alerts"`
	EmailLowAlerts      bool      `json:"email_low_alerts" db:"email_low_alerts"`
	EmailCaseUpdates    bool      `json:"email_case_updates" db:"email_case_updates"`
	EmailDailyDigest    bool      `json:"email_daily_digest" db:"email_daily_digest"`
	WebSocketEnabled    bool      `json:"websocket_enabled" db:"websocket_enabled"`
	WebSocketSound      bool      `json:"websocket_sound" db:"websocket_sound"`
	QuietHoursEnabled   bool      `json:"quiet_hours_enabled" db:"quiet_hours_enabled"`
	QuietHoursStart     string    `json:"quiet_hours_start" db:"quiet_hours_start"`
	QuietHoursEnd       string    `json:"quiet_hours_end" db:"quiet_hours_end"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreference returns the settings applied to users without a row.
func DefaultPreference(userID int64) Preference {
	return Preference{
		UserID:              userID,
		EmailEnabled:        true,
		EmailCriticalAlerts: true,
		EmailHighAlerts:     true,
		EmailCaseUpdates:    true,
		EmailDailyDigest:    true,
		WebSocketEnabled:    true,
		WebSocketSound:      true,
	}
}

// PriorityForSeverity maps an alert severity to a notification priority.
func PriorityForSeverity(severity string) string {
	switch severity {
	case "Critical":
		return PriorityUrgent
	case "High":
		return PriorityHigh
	case "Low":
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// ValidClock reports whether s is an HH:MM time of day.
func ValidClock(s string) bool {
	_, err := ParseClock(s)
	return err == nil
}

// ParseClock converts HH:MM (hour may be one digit) into minutes after midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[1]) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// Filter narrows a user's notification listing.
type Filter struct {
	UserID     int64
	UnreadOnly bool
	Limit      int
}
