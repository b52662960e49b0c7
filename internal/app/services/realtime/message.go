// Package realtime pushes notifications to connected WebSocket clients,
// grouped by user and by room.
package realtime

import (
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
)

// Rooms joined automatically according to role.
const (
	RoomAllUsers       = "all_users"
	RoomSecurityAlerts = "security_alerts"
	RoomCases          = "cases"
	RoomSupervisors    = "supervisors"
	RoomMovements      = "movements"
)

// Message types.
const (
	TypeAlert     = "alert"
	TypeCase      = "case"
	TypeMovement  = "movement"
	TypeSLABreach = "sla_breach"
	TypeSystem    = "system"
	TypePong      = "pong"
	TypeError     = "error"
)

// CloseInvalidToken is the close code sent when authentication fails.
const CloseInvalidToken = 4001

// Message is the JSON frame sent to clients.
type Message struct {
	Type      string `json:"type"`
	Action    string `json:"action,omitempty"`
	Priority  string `json:"priority,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Message   string `json:"message,omitempty"`
	Room      string `json:"room,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// NewMessage stamps a message with the current UTC time.
func NewMessage(typ, action string, data any) Message {
	return Message{Type: typ, Action: action, Timestamp: time.Now().UTC().Format(time.RFC3339), Data: data}
}

// Delivery addresses a message. Exactly one of UserID, Room or All is used.
type Delivery struct {
	UserID  int64   `json:"user_id,omitempty"`
	Room    string  `json:"room,omitempty"`
	All     bool    `json:"all,omitempty"`
	Message Message `json:"message"`
}

var roomGroups = map[string]roles.Group{
	RoomSecurityAlerts: roles.Security,
	RoomCases:          roles.Security,
	RoomSupervisors:    roles.Supervisors,
	RoomMovements:      roles.Operations,
}

// DefaultRooms lists the rooms a user with role joins on connect.
func DefaultRooms(role string) []string {
	out := []string{RoomAllUsers}
	for _, room := range []string{RoomSecurityAlerts, RoomCases, RoomSupervisors, RoomMovements} {
		if roomGroups[room].Contains(role) {
			out = append(out, room)
		}
	}
	return out
}

// CanJoin reports whether role may subscribe to room. Rooms outside the
// role-gated set are open to everyone.
func CanJoin(role, room string) bool {
	g, gated := roomGroups[room]
	return !gated || g.Contains(role)
}
