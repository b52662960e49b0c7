package movements

import (
	"context"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/movement"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

// EventRequest records an observation against a movement.
type EventRequest struct {
	MovementID  int64     `json:"movement_id"`
	Timestamp   time.Time `json:"timestamp"`
	Location    string    `json:"location"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Actor       string    `json:"actor"`
	Evidence    string    `json:"evidence"`
	EventType   string    `json:"event_type"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	Metadata    string    `json:"metadata"`
	Source      string    `json:"source"`
}

func (s *Service) ListEvents(ctx context.Context, f movement.EventFilter) ([]movement.Event, error) {
	return s.store.ListEvents(ctx, f)
}

func (s *Service) GetEvent(ctx context.Context, id int64) (movement.Event, error) {
	ev, err := s.store.GetEvent(ctx, id)
	return ev, service.Translate(err, "Event")
}

// RecordEvent stores an event and runs the alert engine over it. The
// derived alerts are returned alongside the event.
func (s *Service) RecordEvent(ctx context.Context, actor user.User, req EventRequest) (movement.Event, []alert.Alert, error) {
	if req.MovementID <= 0 {
		return movement.Event{}, nil, apperrors.Validation("movement_id must be greater than 0")
	}
	if !movement.ValidEventType(req.EventType) {
		return movement.Event{}, nil, apperrors.Validation("event_type must be one of planned, actual, security, operational")
	}
	if req.Severity == "" {
		req.Severity = movement.SeverityInfo
	}
	if !movement.ValidSeverity(req.Severity) {
		return movement.Event{}, nil, apperrors.Validation("severity must be one of info, warning, critical")
	}
	if len(req.Location) > 255 || len(req.Actor) > 255 || len(req.Source) > 100 {
		return movement.Event{}, nil, apperrors.Validation("location, actor or source too long")
	}
	if err := validCoords(req.Latitude, req.Longitude); err != nil {
		return movement.Event{}, nil, err
	}
	if _, err := s.store.GetMovement(ctx, req.MovementID); err != nil {
		return movement.Event{}, nil, service.Translate(err, "Movement")
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	ev, err := s.store.CreateEvent(ctx, movement.Event{
		MovementID:    req.MovementID,
		Timestamp:     req.Timestamp.UTC(),
		Location:      req.Location,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Actor:         req.Actor,
		Evidence:      req.Evidence,
		EventType:     req.EventType,
		Severity:      req.Severity,
		Description:   req.Description,
		EventMetadata: req.Metadata,
		Source:        req.Source,
	})
	if err != nil {
		return movement.Event{}, nil, service.Translate(err, "Event")
	}
	s.log.WithField("event_id", ev.ID).WithField("movement_id", ev.MovementID).Infof("event recorded by %s", actor.Username)

	var derived []alert.Alert
	if s.alerts != nil {
		derived = s.alerts.HandleEvent(ctx, ev)
		if len(derived) > 0 {
			s.log.WithField("event_id", ev.ID).Infof("created %d alerts from event", len(derived))
		}
	}
	return ev, derived, nil
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, actor user.User, id int64) error {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return service.Translate(err, "Event")
	}
	s.log.WithField("event_id", id).Infof("event deleted by %s", actor.Username)
	return nil
}
