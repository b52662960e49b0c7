package postgres

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/movement"
)

var (
	movementsTable = newWriteSet("movements", movement.Movement{})
	eventsTable    = newWriteSet("events", movement.Event{})
)

func (s *Store) CreateMovement(ctx context.Context, m movement.Movement) (movement.Movement, error) {
	stamp(&m.CreatedAt, &m.UpdatedAt)
	id, err := s.insert(ctx, movementsTable, m)
	if err != nil {
		return movement.Movement{}, err
	}
	m.ID = id
	return m, nil
}

func (s *Store) UpdateMovement(ctx context.Context, m movement.Movement) (movement.Movement, error) {
	refresh(&m.UpdatedAt)
	if err := s.update(ctx, movementsTable, m.ID, m); err != nil {
		return movement.Movement{}, err
	}
	return s.GetMovement(ctx, m.ID)
}

func (s *Store) GetMovement(ctx context.Context, id int64) (movement.Movement, error) {
	var m movement.Movement
	err := s.getByID(ctx, &m, "movements", id)
	return m, err
}

func (s *Store) ListMovements(ctx context.Context, f movement.Filter) ([]movement.Movement, error) {
	w := &where{}
	w.eq("status", f.Status)
	out := []movement.Movement{}
	err := s.list(ctx, &out, "movements", w, "created_at DESC, id DESC", f.Offset, f.Limit)
	return out, err
}

// DeleteMovement relies on the events foreign key cascading.
func (s *Store) DeleteMovement(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "movements", id)
}

func (s *Store) CreateEvent(ctx context.Context, e movement.Event) (movement.Event, error) {
	stamp(&e.CreatedAt, nil)
	if e.Timestamp.IsZero() {
		e.Timestamp = e.CreatedAt
	}
	id, err := s.insert(ctx, eventsTable, e)
	if err != nil {
		return movement.Event{}, err
	}
	e.ID = id
	return e, nil
}

func (s *Store) GetEvent(ctx context.Context, id int64) (movement.Event, error) {
	var e movement.Event
	err := s.getByID(ctx, &e, "events", id)
	return e, err
}

func (s *Store) ListEvents(ctx context.Context, f movement.EventFilter) ([]movement.Event, error) {
	w := &where{}
	w.id("movement_id", f.MovementID)
	w.eq("event_type", f.EventType)
	w.eq("severity", f.Severity)
	w.since(`"timestamp"`, f.Since)
	out := []movement.Event{}
	err := s.list(ctx, &out, "events", w, `"timestamp" DESC, id DESC`, f.Offset, f.Limit)
	return out, err
}

func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "events", id)
}
