// Package notifications delivers alert, case and SLA notices over WebSocket
// and email, and keeps each user's inbox.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/casefile"
	"github.com/R3E-Network/sira_platform/internal/app/domain/notification"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/realtime"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// Pusher sends realtime messages.
type Pusher interface {
	SendToUser(ctx context.Context, userID int64, msg realtime.Message)
	SendToRoom(ctx context.Context, room string, msg realtime.Message)
	Broadcast(ctx context.Context, msg realtime.Message)
}

// Service fans notifications out to users.
type Service struct {
	store  storage.NotificationStore
	users  storage.UserStore
	push   Pusher
	mailer Mailer
	appURL string
	log    *logger.Logger
	now    func() time.Time
}

// New constructs a notification service. push and mailer may be nil.
func New(store storage.NotificationStore, users storage.UserStore, push Pusher, mailer Mailer, appURL string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("notifications")
	}
	return &Service{
		store:  store,
		users:  users,
		push:   push,
		mailer: mailer,
		appURL: appURL,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() service.Descriptor {
	d := service.Descriptor{Name: "notifications", Domain: "notifications", Layer: service.LayerRealtime, Capabilities: []string{"inbox", "websocket"}}
	if s.mailer != nil && s.mailer.Configured() {
		d = d.WithCapabilities("email")
	}
	return d
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, f notification.Filter) ([]notification.Notification, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	return s.store.ListNotifications(ctx, f)
}

// UnreadCount returns the number of unread notifications for userID.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkRead marks one of userID's notifications read.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	return service.Translate(s.store.MarkNotificationRead(ctx, userID, id, s.now()), "Notification")
}

// MarkAllRead marks every unread notification of userID and returns the count.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	return s.store.MarkAllNotificationsRead(ctx, userID, s.now())
}

// Preferences returns userID's settings, creating the defaults on first use.
func (s *Service) Preferences(ctx context.Context, userID int64) (notification.Preference, error) {
	p, err := s.store.GetPreference(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return s.store.SavePreference(ctx, notification.DefaultPreference(userID))
	}
	return p, err
}

// PreferenceUpdate is a partial preference change.
type PreferenceUpdate struct {
	EmailEnabled        *bool   `json:"email_enabled"`
	EmailCriticalAlerts *bool   `json:"email_critical_alerts"`
	EmailHighAlerts     *bool   `json:"email_high_alerts"`
	EmailMediumAlerts   *bool   `json:"email_medium_alerts"`
	EmailLowAlerts      *bool   `json:"email_low_alerts"`
	EmailCaseUpdates    *bool   `json:"email_case_updates"`
	EmailDailyDigest    *bool   `json:"email_daily_digest"`
	WebSocketEnabled    *bool   `json:"websocket_enabled"`
	WebSocketSound      *bool   `json:"websocket_sound"`
	QuietHoursEnabled   *bool   `json:"quiet_hours_enabled"`
	QuietHoursStart     *string `json:"quiet_hours_start"`
	QuietHoursEnd       *string `json:"quiet_hours_end"`
}

// UpdatePreferences applies upd to userID's settings.
func (s *Service) UpdatePreferences(ctx context.Context, userID int64, upd PreferenceUpdate) (notification.Preference, error) {
	for _, clock := range []*string{upd.QuietHoursStart, upd.QuietHoursEnd} {
		if clock != nil && *clock != "" && !notification.ValidClock(*clock) {
			return notification.Preference{}, apperrors.Validation(fmt.Sprintf("invalid time %q, expected HH:MM", *clock))
		}
	}

	p, err := s.Preferences(ctx, userID)
	if err != nil {
		return notification.Preference{}, err
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setBool(&p.EmailEnabled, upd.EmailEnabled)
	setBool(&p.EmailCriticalAlerts, upd.EmailCriticalAlerts)
	setBool(&p.EmailHighAlerts, upd.EmailHighAlerts)
	setBool(&p.EmailMediumAlerts, upd.EmailMediumAlerts)
	setBool(&p.EmailLowAlerts, upd.EmailLowAlerts)
	setBool(&p.EmailCaseUpdates, upd.EmailCaseUpdates)
	setBool(&p.EmailDailyDigest, upd.EmailDailyDigest)
	setBool(&p.WebSocketEnabled, upd.WebSocketEnabled)
	setBool(&p.WebSocketSound, upd.WebSocketSound)
	setBool(&p.QuietHoursEnabled, upd.QuietHoursEnabled)
	if upd.QuietHoursStart != nil {
		p.QuietHoursStart = *upd.QuietHoursStart
	}
	if upd.QuietHoursEnd != nil {
		p.QuietHoursEnd = *upd.QuietHoursEnd
	}
	return s.store.SavePreference(ctx, p)
}

// ShouldEmail decides email delivery. A nil preference means the user never
// saved settings; only Critical and High alerts are emailed then.
func ShouldEmail(p *notification.Preference, kind, severity string, now time.Time) bool {
	if p == nil {
		return severity == alert.SeverityCritical || severity == alert.SeverityHigh
	}
	if !p.EmailEnabled {
		return false
	}
	if InQuietHours(*p, now) {
		return severity == alert.SeverityCritical
	}
	switch kind {
	case notification.TypeAlert:
		switch severity {
		case alert.SeverityCritical:
			return p.EmailCriticalAlerts
		case alert.SeverityHigh:
			return p.EmailHighAlerts
		case alert.SeverityMedium:
			return p.EmailMediumAlerts
		case alert.SeverityLow:
			return p.EmailLowAlerts
		}
	case notification.TypeCaseUpdate:
		return p.EmailCaseUpdates
	}
	return false
}

// InQuietHours reports whether now (UTC) falls inside p's quiet window. A
// window whose end is before its start spans midnight.
func InQuietHours(p notification.Preference, now time.Time) bool {
	if !p.QuietHoursEnabled {
		return false
	}
	start, err1 := notification.ParseClock(p.QuietHoursStart)
	end, err2 := notification.ParseClock(p.QuietHoursEnd)
	if err1 != nil || err2 != nil {
		return false
	}
	now = now.UTC()
	m := now.Hour()*60 + now.Minute()
	if start <= end {
		return start <= m && m <= end
	}
	return m >= start || m <= end
}

// recipients loads the active users among ids, or the active members of
// group when ids is empty.
func (s *Service) recipients(ctx context.Context, ids []int64, group roles.Group) ([]user.User, error) {
	if len(ids) == 0 {
		return s.users.ListUsers(ctx, user.Filter{Roles: group, ActiveOnly: true})
	}
	out := make([]user.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.users.GetUser(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Service) preference(ctx context.Context, userID int64) *notification.Preference {
	p, err := s.store.GetPreference(ctx, userID)
	if err != nil {
		return nil
	}
	return &p
}

func (s *Service) record(ctx context.Context, n notification.Notification, deliveryErr error) {
	now := s.now()
	if deliveryErr == nil {
		n.IsDelivered = true
		n.DeliveredAt = &now
	} else {
		n.DeliveryError = deliveryErr.Error()
	}
	if _, err := s.store.CreateNotification(ctx, n); err != nil {
		s.log.WithError(err).WithField("user_id", n.UserID).Error("record notification")
	}
}

func (s *Service) pushUser(ctx context.Context, userID int64, msg realtime.Message) {
	if s.push != nil {
		s.push.SendToUser(ctx, userID, msg)
	}
}

func (s *Service) sendEmail(ctx context.Context, to string, build func() (Email, error)) error {
	if s.mailer == nil || !s.mailer.Configured() {
		return fmt.Errorf("email delivery failed: smtp not configured")
	}
	e, err := build()
	if err != nil {
		return err
	}
	e.To = []string{to}
	if err := s.mailer.Send(ctx, e); err != nil {
		return fmt.Errorf("email delivery failed: %w", err)
	}
	return nil
}

// payload flattens v into a JSON object and adds idKey.
func payload(v any, idKey string, id int64) (map[string]any, string) {
	raw, _ := json.Marshal(v)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	out[idKey] = id
	data, _ := json.Marshal(out)
	return out, string(data)
}

// NotifyAlert delivers a to targets, or to active security staff when targets
// is empty.
func (s *Service) NotifyAlert(ctx context.Context, a alert.Alert, targets []int64) error {
	users, err := s.recipients(ctx, targets, roles.Security)
	if err != nil {
		return err
	}
	data, encoded := payload(a, "alert_id", a.ID)
	priority := notification.PriorityForSeverity(a.Severity)
	title := "Alert: " + a.Severity
	message := orDefault(a.Description, "New alert")
	now := s.now()

	for _, u := range users {
		pref := s.preference(ctx, u.ID)
		base := notification.Notification{
			UserID:           u.ID,
			NotificationType: notification.TypeAlert,
			Title:            title,
			Message:          message,
			Data:             encoded,
			Priority:         priority,
		}
		if pref == nil || pref.WebSocketEnabled {
			msg := realtime.NewMessage(realtime.TypeAlert, "created", data)
			msg.Priority = priority
			s.pushUser(ctx, u.ID, msg)
			n := base
			n.Channel = notification.ChannelWebSocket
			s.record(ctx, n, nil)
		}
		if ShouldEmail(pref, notification.TypeAlert, a.Severity, now) {
			err := s.sendEmail(ctx, u.Email, func() (Email, error) { return alertEmail(a, s.appURL) })
			n := base
			n.Channel = notification.ChannelEmail
			s.record(ctx, n, err)
		}
	}
	s.log.WithField("alert_id", a.ID).Infof("alert notified to %d users", len(users))
	return nil
}

// NotifyCase delivers a case update to targets, or to security staff.
func (s *Service) NotifyCase(ctx context.Context, c casefile.Case, updateType string, targets []int64) error {
	users, err := s.recipients(ctx, targets, roles.Security)
	if err != nil {
		return err
	}
	data, encoded := payload(c, "case_id", c.ID)
	title := fmt.Sprintf("Case %s: %s", updateType, c.CaseNumber)
	message := orDefault(c.Title, "Case Update")
	now := s.now()

	for _, u := range users {
		pref := s.preference(ctx, u.ID)
		base := notification.Notification{
			UserID:           u.ID,
			NotificationType: notification.TypeCaseUpdate,
			Title:            title,
			Message:          message,
			Data:             encoded,
			Priority:         notification.PriorityNormal,
		}
		if pref == nil || pref.WebSocketEnabled {
			s.pushUser(ctx, u.ID, realtime.NewMessage(realtime.TypeCase, updateType, data))
			n := base
			n.Channel = notification.ChannelWebSocket
			s.record(ctx, n, nil)
		}
		if ShouldEmail(pref, notification.TypeCaseUpdate, "", now) {
			err := s.sendEmail(ctx, u.Email, func() (Email, error) { return caseEmail(c, updateType, s.appURL) })
			n := base
			n.Channel = notification.ChannelEmail
			s.record(ctx, n, err)
		}
	}
	return nil
}

// NotifySLABreach broadcasts the breach once to the supervisors room and
// emails every active supervisor and administrator.
func (s *Service) NotifySLABreach(ctx context.Context, a alert.Alert) error {
	users, err := s.recipients(ctx, nil, roles.Supervisors)
	if err != nil {
		return err
	}
	data, encoded := payload(a, "alert_id", a.ID)
	if s.push != nil {
		msg := realtime.NewMessage(realtime.TypeSLABreach, "breached", data)
		msg.Priority = notification.PriorityUrgent
		s.push.SendToRoom(ctx, realtime.RoomSupervisors, msg)
	}

	for _, u := range users {
		err := s.sendEmail(ctx, u.Email, func() (Email, error) { return slaEmail(a, s.appURL) })
		if err != nil {
			s.log.WithError(err).WithField("user_id", u.ID).Warn("sla breach email not delivered")
		}
		s.record(ctx, notification.Notification{
			UserID:           u.ID,
			NotificationType: "sla_breach",
			Channel:          notification.ChannelEmail,
			Title:            fmt.Sprintf("SLA BREACH: Alert %d", a.ID),
			Message:          orDefault(a.Description, "SLA Breach"),
			Data:             encoded,
			Priority:         notification.PriorityUrgent,
		}, err)
	}
	s.log.WithField("alert_id", a.ID).Warnf("sla breach notified to %d supervisors", len(users))
	return nil
}

// Broadcast sends a system announcement to every connected user.
func (s *Service) Broadcast(ctx context.Context, title, message, priority string) {
	if priority == "" {
		priority = notification.PriorityNormal
	}
	if s.push == nil {
		return
	}
	msg := realtime.NewMessage(realtime.TypeSystem, "notification", map[string]string{"title": title, "message": message})
	msg.Priority = priority
	s.push.Broadcast(ctx, msg)
}

// PushRoom forwards msg to a room. Movement updates use it.
func (s *Service) PushRoom(ctx context.Context, room string, msg realtime.Message) {
	if s.push != nil {
		s.push.SendToRoom(ctx, room, msg)
	}
}
