// Package movements tracks cargo movements and the events observed along
// them. Every recorded event is handed to the alert engine.
package movements

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

// EventHandler derives alerts from a new event.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev movement.Event) []alert.Alert
}

// RoomPusher broadcasts to a realtime room.
type RoomPusher interface {
	PushRoom(ctx context.Context, room string, msg realtime.Message)
}

// Service manages movements and events.
type Service struct {
	store  storage.MovementStore
	alerts EventHandler
	push   RoomPusher
	bus    eventbus.Publisher
	log    *logger.Logger
}

// New constructs the service. alerts, push and bus may be nil.
func New(store storage.MovementStore, alerts EventHandler, push RoomPusher, bus eventbus.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("movements")
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{store: store, alerts: alerts, push: push, bus: bus, log: log}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "movements", Domain: "movements", Layer: service.LayerCore, Capabilities: []string{"movements", "events"}}
}

// CreateRequest describes a new movement.
type CreateRequest struct {
	Cargo        string    `json:"cargo"`
	Route        string    `json:"route"`
	Assets       string    `json:"assets"`
	Stakeholders string    `json:"stakeholders"`
	LaycanStart  time.Time `json:"laycan_start"`
	LaycanEnd    time.Time `json:"laycan_end"`
}

// Update is a partial movement update.
type Update struct {
	Cargo           *string  `json:"cargo"`
	Route           *string  `json:"route"`
	Assets          *string  `json:"assets"`
	Stakeholders    *string  `json:"stakeholders"`
	Status          *string  `json:"status"`
	CurrentLocation *string  `json:"current_location"`
	CurrentLat      *float64 `json:"current_lat"`
	CurrentLng      *float64 `json:"current_lng"`
	RiskScore       *float64 `json:"risk_score"`
}

func (s *Service) List(ctx context.Context, f movement.Filter) ([]movement.Movement, error) {
	return s.store.ListMovements(ctx, f)
}

func (s *Service) Get(ctx context.Context, id int64) (movement.Movement, error) {
	m, err := s.store.GetMovement(ctx, id)
	return m, service.Translate(err, "Movement")
}

// Create records a movement in active status.
func (s *Service) Create(ctx context.Context, actor user.User, req CreateRequest) (movement.Movement, error) {
	cargo := strings.TrimSpace(req.Cargo)
	if cargo == "" || len(cargo) > 255 {
		return movement.Movement{}, apperrors.Validation("cargo must be 1-255 characters")
	}
	if strings.TrimSpace(req.Route) == "" {
		return movement.Movement{}, apperrors.Validation("route is required")
	}
	if req.LaycanStart.IsZero() || req.LaycanEnd.IsZero() {
		return movement.Movement{}, apperrors.Validation("laycan_start and laycan_end are required")
	}
	if !req.LaycanStart.Before(req.LaycanEnd) {
		return movement.Movement{}, apperrors.BadRequest("laycan_start must be before laycan_end")
	}
	m, err := s.store.CreateMovement(ctx, movement.Movement{
		Cargo:        cargo,
		Route:        req.Route,
		Assets:       req.Assets,
		Stakeholders: req.Stakeholders,
		LaycanStart:  req.LaycanStart.UTC(),
		LaycanEnd:    req.LaycanEnd.UTC(),
		Status:       movement.StatusActive,
	})
	if err != nil {
		return movement.Movement{}, service.Translate(err, "Movement")
	}
	s.log.WithField("movement_id", m.ID).Infof("movement created by %s", actor.Username)
	s.announce(ctx, m, "created")
	return m, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, actor user.User, id int64, upd Update) (movement.Movement, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return movement.Movement{}, err
	}
	if upd.Cargo != nil {
		c := strings.TrimSpace(*upd.Cargo)
		if c == "" || len(c) > 255 {
			return movement.Movement{}, apperrors.Validation("cargo must be 1-255 characters")
		}
		m.Cargo = c
	}
	if upd.Route != nil {
		m.Route = *upd.Route
	}
	if upd.Assets != nil {
		m.Assets = *upd.Assets
	}
	if upd.Stakeholders != nil {
		m.Stakeholders = *upd.Stakeholders
	}
	if upd.Status != nil {
		if !movement.ValidStatus(*upd.Status) {
			return movement.Movement{}, apperrors.Validation("status must be one of active, completed, cancelled, delayed")
		}
		m.Status = *upd.Status
	}
	if upd.CurrentLocation != nil {
		m.CurrentLocation = *upd.CurrentLocation
	}
	if err := validCoords(upd.CurrentLat, upd.CurrentLng); err != nil {
		return movement.Movement{}, err
	}
	if upd.CurrentLat != nil {
		m.CurrentLat = upd.CurrentLat
	}
	if upd.CurrentLng != nil {
		m.CurrentLng = upd.CurrentLng
	}
	if upd.RiskScore != nil {
		if *upd.RiskScore < 0 || *upd.RiskScore > 100 {
			return movement.Movement{}, apperrors.Validation("risk_score must be between 0 and 100")
		}
		m.RiskScore = *upd.RiskScore
	}
	saved, err := s.store.UpdateMovement(ctx, m)
	if err != nil {
		return movement.Movement{}, service.Translate(err, "Movement")
	}
	s.log.WithField("movement_id", id).Infof("movement updated by %s", actor.Username)
	s.announce(ctx, saved, "updated")
	return saved, nil
}

// UpdateLocation sets the current position. Coordinates are optional.
func (s *Service) UpdateLocation(ctx context.Context, actor user.User, id int64, location string, lat, lng *float64) (movement.Movement, error) {
	if strings.TrimSpace(location) == "" {
		return movement.Movement{}, apperrors.Validation("location is required")
	}
	return s.Update(ctx, actor, id, Update{CurrentLocation: &location, CurrentLat: lat, CurrentLng: lng})
}

// Delete removes a movement.
func (s *Service) Delete(ctx context.Context, actor user.User, id int64) error {
	if err := s.store.DeleteMovement(ctx, id); err != nil {
		return service.Translate(err, "Movement")
	}
	s.log.WithField("movement_id", id).Infof("movement deleted by %s", actor.Username)
	if s.push != nil {
		s.push.PushRoom(ctx, realtime.RoomMovements, realtime.NewMessage(realtime.TypeMovement, "deleted", map[string]any{"movement_id": id}))
	}
	return nil
}

func (s *Service) announce(ctx context.Context, m movement.Movement, action string) {
	if s.push != nil {
		s.push.PushRoom(ctx, realtime.RoomMovements, realtime.NewMessage(realtime.TypeMovement, action, map[string]any{
			"movement_id":      m.ID,
			"status":           m.Status,
			"current_location": m.CurrentLocation,
			"current_lat":      m.CurrentLat,
			"current_lng":      m.CurrentLng,
			"risk_score":       m.RiskScore,
		}))
	}
	if err := s.bus.Publish(ctx, eventbus.MovementUpdated, m); err != nil {
		s.log.WithError(err).Warn("publish movement update failed")
	}
}

func validCoords(lat, lng *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return apperrors.Validation("latitude must be between -90 and 90")
	}
	if lng != nil && (*lng < -180 || *lng > 180) {
		return apperrors.Validation("longitude must be between -180 and 180")
	}
	return nil
}
