// Package alerts manages risk alerts: manual creation, triage, rule-based
// derivation from movement events and SLA breach monitoring.
package alerts

import (
	"context"
	"strings"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/movement"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
	"github.com/R3E-Network/sira_platform/internal/app/services/realtime"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// Notifier delivers alert notices to users.
type Notifier interface {
	NotifyAlert(ctx context.Context, a alert.Alert, targets []int64) error
	NotifySLABreach(ctx context.Context, a alert.Alert) error
	PushRoom(ctx context.Context, room string, msg realtime.Message)
}

// Stores groups the repositories the service reads.
type Stores struct {
	Alerts    storage.AlertStore
	Movements storage.MovementStore
	Users     storage.UserStore
	Cases     storage.CaseStore
}

// Service manages alerts.
type Service struct {
	stores Stores
	engine *Engine
	notify Notifier
	bus    eventbus.Publisher
	log    *logger.Logger
	now    func() time.Time
}

// New constructs the alerts service. notify and bus may be nil.
func New(stores Stores, engine *Engine, notify Notifier, bus eventbus.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("alerts")
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{
		stores: stores,
		engine: engine,
		notify: notify,
		bus:    bus,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "alerts",
		Domain:       "alerts",
		Layer:        service.LayerCore,
		Capabilities: []string{"triage", "rule-engine", "sla-monitor"},
	}
}

// Engine exposes the rule engine.
func (s *Service) Engine() *Engine { return s.engine }

// CreateRequest is a manually raised alert.
type CreateRequest struct {
	Severity    string   `json:"severity"`
	Confidence  *float64 `json:"confidence"`
	SLATimer    *int     `json:"sla_timer"`
	Domain      string   `json:"domain"`
	SiteZone    string   `json:"site_zone"`
	MovementID  *int64   `json:"movement_id"`
	EventID     *int64   `json:"event_id"`
	Description string   `json:"description"`
	RuleID      string   `json:"rule_id"`
	RuleName    string   `json:"rule_name"`
}

// Update is a partial alert update. Nil fields are left unchanged.
type Update struct {
	Status          *string `json:"status"`
	AssignedTo      *int64  `json:"assigned_to"`
	CaseID          *int64  `json:"case_id"`
	ResolutionNotes *string `json:"resolution_notes"`
}

// List returns alerts newest first.
func (s *Service) List(ctx context.Context, f alert.Filter) ([]alert.Alert, error) {
	return s.stores.Alerts.ListAlerts(ctx, f)
}

// Get returns one alert.
func (s *Service) Get(ctx context.Context, id int64) (alert.Alert, error) {
	a, err := s.stores.Alerts.GetAlert(ctx, id)
	return a, service.Translate(err, "Alert")
}

// Stats aggregates counts across all alerts.
func (s *Service) Stats(ctx context.Context) (alert.Stats, error) {
	return s.stores.Alerts.AlertStats(ctx, alert.Filter{})
}

// RuleStats reports per-rule totals.
func (s *Service) RuleStats(ctx context.Context) (map[string]RuleStat, error) {
	return s.engine.RuleStats(ctx)
}

// Create raises an alert by hand and notifies security staff.
func (s *Service) Create(ctx context.Context, actor user.User, req CreateRequest) (alert.Alert, error) {
	if !alert.ValidSeverity(req.Severity) {
		return alert.Alert{}, apperrors.Validation("severity must be one of Critical, High, Medium, Low")
	}
	if req.Confidence == nil {
		return alert.Alert{}, apperrors.Validation("confidence is required")
	}
	if *req.Confidence < 0 || *req.Confidence > 1 {
		return alert.Alert{}, apperrors.Validation("confidence must be between 0 and 1")
	}
	if req.SLATimer != nil && *req.SLATimer <= 0 {
		return alert.Alert{}, apperrors.Validation("sla_timer must be greater than 0")
	}
	if len(req.Domain) > 100 || len(req.SiteZone) > 100 {
		return alert.Alert{}, apperrors.Validation("domain and site_zone are limited to 100 characters")
	}
	if req.MovementID != nil {
		if _, err := s.stores.Movements.GetMovement(ctx, *req.MovementID); err != nil {
			return alert.Alert{}, service.Translate(err, "Movement")
		}
	}

	now := s.now()
	a := alert.Alert{
		Severity:    req.Severity,
		Confidence:  *req.Confidence,
		Domain:      req.Domain,
		SiteZone:    req.SiteZone,
		MovementID:  req.MovementID,
		EventID:     req.EventID,
		Status:      alert.StatusOpen,
		Description: req.Description,
		RuleID:      req.RuleID,
		RuleName:    req.RuleName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.SLATimer != nil {
		a.SLATimer = *req.SLATimer
	}
	created, err := s.stores.Alerts.CreateAlert(ctx, a)
	if err != nil {
		return alert.Alert{}, service.Translate(err, "Alert")
	}
	s.log.WithField("alert_id", created.ID).Infof("alert created manually by %s", actor.Username)
	s.announce(ctx, created, nil)
	return created, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, actor user.User, id int64, upd Update) (alert.Alert, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return alert.Alert{}, err
	}
	if upd.Status != nil {
		if !alert.ValidStatus(*upd.Status) {
			return alert.Alert{}, apperrors.Validation("status must be one of open, acknowledged, assigned, investigating, closed")
		}
		a.Status = *upd.Status
	}
	if upd.AssignedTo != nil {
		a.AssignedTo = upd.AssignedTo
	}
	if upd.CaseID != nil {
		a.CaseID = upd.CaseID
	}
	if upd.ResolutionNotes != nil {
		a.ResolutionNotes = *upd.ResolutionNotes
	}
	return s.save(ctx, a, "updated", actor)
}

// Acknowledge moves an open alert to acknowledged.
func (s *Service) Acknowledge(ctx context.Context, actor user.User, id int64) (alert.Alert, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return alert.Alert{}, err
	}
	if a.Status != alert.StatusOpen {
		return alert.Alert{}, apperrors.BadRequest("Alert is not in open status")
	}
	now := s.now()
	a.Status = alert.StatusAcknowledged
	a.AcknowledgedAt = &now
	a.AcknowledgedBy = &actor.ID
	return s.save(ctx, a, "acknowledged", actor)
}

// Assign hands the alert to userID and notifies them.
func (s *Service) Assign(ctx context.Context, actor user.User, id, userID int64) (alert.Alert, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return alert.Alert{}, err
	}
	if _, err := s.stores.Users.GetUser(ctx, userID); err != nil {
		return alert.Alert{}, service.Translate(err, "User")
	}
	a.Status = alert.StatusAssigned
	a.AssignedTo = &userID
	saved, err := s.save(ctx, a, "assigned", actor)
	if err != nil {
		return alert.Alert{}, err
	}
	if s.notify != nil {
		notice := saved
		notice.Description = "Alert assigned to you: " + saved.Description
		if err := s.notify.NotifyAlert(ctx, notice, []int64{userID}); err != nil {
			s.log.WithError(err).WithField("alert_id", id).Warn("notify assignee failed")
		}
	}
	return saved, nil
}

// Resolve closes the alert with notes.
func (s *Service) Resolve(ctx context.Context, actor user.User, id int64, notes string) (alert.Alert, error) {
	if strings.TrimSpace(notes) == "" {
		return alert.Alert{}, apperrors.Validation("resolution_notes is required")
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return alert.Alert{}, err
	}
	now := s.now()
	a.Status = alert.StatusClosed
	a.ResolvedAt = &now
	a.ResolvedBy = &actor.ID
	a.ResolutionNotes = notes
	return s.save(ctx, a, "closed", actor)
}

// LinkCase attaches the alert to a case.
func (s *Service) LinkCase(ctx context.Context, actor user.User, id, caseID int64) (alert.Alert, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return alert.Alert{}, err
	}
	if _, err := s.stores.Cases.GetCase(ctx, caseID); err != nil {
		return alert.Alert{}, service.Translate(err, "Case")
	}
	a.CaseID = &caseID
	return s.save(ctx, a, "linked", actor)
}

func (s *Service) save(ctx context.Context, a alert.Alert, action string, actor user.User) (alert.Alert, error) {
	a.UpdatedAt = s.now()
	saved, err := s.stores.Alerts.UpdateAlert(ctx, a)
	if err != nil {
		return alert.Alert{}, service.Translate(err, "Alert")
	}
	s.log.WithField("alert_id", a.ID).Infof("alert %s by %s", action, actor.Username)
	if s.notify != nil {
		s.notify.PushRoom(ctx, realtime.RoomSecurityAlerts, realtime.NewMessage(realtime.TypeAlert, action, alertData(saved)))
	}
	s.publish(ctx, eventbus.AlertUpdated, saved)
	return saved, nil
}

// HandleEvent runs the rule engine over a freshly recorded event and
// notifies security staff of each derived alert.
func (s *Service) HandleEvent(ctx context.Context, ev movement.Event) []alert.Alert {
	created, err := s.engine.Process(ctx, ev)
	if err != nil {
		s.log.WithError(err).WithField("event_id", ev.ID).Error("alert derivation failed")
	}
	for _, a := range created {
		s.announce(ctx, a, nil)
	}
	return created
}

// CheckSLABreaches flags overdue alerts, tells supervisors once per alert and
// publishes each breach.
func (s *Service) CheckSLABreaches(ctx context.Context) ([]alert.Alert, error) {
	breached, err := s.engine.BreachedAlerts(ctx)
	for _, a := range breached {
		if s.notify != nil {
			if nerr := s.notify.NotifySLABreach(ctx, a); nerr != nil {
				s.log.WithError(nerr).WithField("alert_id", a.ID).Warn("SLA breach notification failed")
			}
		}
		s.publish(ctx, eventbus.AlertSLABreached, a)
	}
	if len(breached) > 0 {
		s.log.Warnf("%d alerts breached their SLA", len(breached))
	}
	return breached, err
}

func (s *Service) announce(ctx context.Context, a alert.Alert, targets []int64) {
	if s.notify != nil {
		if err := s.notify.NotifyAlert(ctx, a, targets); err != nil {
			s.log.WithError(err).WithField("alert_id", a.ID).Warn("alert notification failed")
		}
	}
	s.publish(ctx, eventbus.AlertCreated, a)
}

func (s *Service) publish(ctx context.Context, key string, a alert.Alert) {
	if err := s.bus.Publish(ctx, key, a); err != nil {
		s.log.WithError(err).WithField("routing_key", key).Warn("publish failed")
	}
}

func alertData(a alert.Alert) map[string]any {
	return map[string]any{
		"alert_id":    a.ID,
		"severity":    a.Severity,
		"status":      a.Status,
		"domain":      a.Domain,
		"description": a.Description,
		"assigned_to": a.AssignedTo,
		"case_id":     a.CaseID,
	}
}
