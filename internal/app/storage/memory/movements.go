package memory

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/movement"
)

func (s *Store) CreateMovement(_ context.Context, m movement.Movement) (movement.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(&m.CreatedAt)
	touch(&m.UpdatedAt)
	s.movements.insert(&m, &m.ID)
	return m, nil
}

func (s *Store) UpdateMovement(_ context.Context, m movement.Movement) (movement.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.movements.get(m.ID)
	if !ok {
		return movement.Movement{}, notFound("movement", m.ID)
	}
	m.CreatedAt = original.CreatedAt
	refresh(&m.UpdatedAt)
	s.movements.put(m.ID, m)
	return m, nil
}

func (s *Store) GetMovement(_ context.Context, id int64) (movement.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.movements.get(id)
	if !ok {
		return movement.Movement{}, notFound("movement", id)
	}
	return m, nil
}

func (s *Store) ListMovements(_ context.Context, f movement.Filter) ([]movement.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.movements.filter(func(m movement.Movement) bool {
		return f.Status == "" || m.Status == f.Status
	}, func(a, b movement.Movement) bool { return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}

// DeleteMovement removes the movement together with its events.
func (s *Store) DeleteMovement(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.movements.remove(id) {
		return notFound("movement", id)
	}
	for eid, e := range s.events.rows {
		if e.MovementID == id {
			delete(s.events.rows, eid)
		}
	}
	return nil
}

func (s *Store) CreateEvent(_ context.Context, e movement.Event) (movement.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movements.get(e.MovementID); !ok {
		return movement.Event{}, notFound("movement", e.MovementID)
	}
	stamp(&e.CreatedAt)
	if e.Timestamp.IsZero() {
		e.Timestamp = e.CreatedAt
	}
	s.events.insert(&e, &e.ID)
	return e, nil
}

func (s *Store) GetEvent(_ context.Context, id int64) (movement.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events.get(id)
	if !ok {
		return movement.Event{}, notFound("event", id)
	}
	return e, nil
}

func (s *Store) ListEvents(_ context.Context, f movement.EventFilter) ([]movement.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.events.filter(func(e movement.Event) bool {
		if f.MovementID != 0 && e.MovementID != f.MovementID {
			return false
		}
		if f.EventType != "" && e.EventType != f.EventType {
			return false
		}
		if f.Severity != "" && e.Severity != f.Severity {
			return false
		}
		return timeInRange(e.Timestamp, f.Since, nil)
	}, func(a, b movement.Event) bool { return newerFirst(a.Timestamp, b.Timestamp, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) DeleteEvent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.events.remove(id) {
		return notFound("event", id)
	}
	return nil
}
