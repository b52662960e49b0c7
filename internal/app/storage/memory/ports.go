package memory

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/port"
)

func (s *Store) CreatePort(_ context.Context, p port.Port) (port.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ports.exists(func(x port.Port) bool { return x.Code == p.Code }) {
		return port.Port{}, conflict("port", "code", p.Code)
	}
	stamp(&p.CreatedAt)
	touch(&p.UpdatedAt)
	s.ports.insert(&p, &p.ID)
	return p, nil
}

func (s *Store) UpdatePort(_ context.Context, p port.Port) (port.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.ports.get(p.ID)
	if !ok {
		return port.Port{}, notFound("port", p.ID)
	}
	if s.ports.exists(func(x port.Port) bool { return x.ID != p.ID && x.Code == p.Code }) {
		return port.Port{}, conflict("port", "code", p.Code)
	}
	p.CreatedAt = original.CreatedAt
	refresh(&p.UpdatedAt)
	s.ports.put(p.ID, p)
	return p, nil
}

func (s *Store) GetPort(_ context.Context, id int64) (port.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.ports.get(id)
	if !ok {
		return port.Port{}, notFound("port", id)
	}
	return p, nil
}

func (s *Store) GetPortByCode(_ context.Context, code string) (port.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.ports.find(func(x port.Port) bool { return x.Code == code })
	if !ok {
		return port.Port{}, notFoundKey("port", code)
	}
	return p, nil
}

func (s *Store) ListPorts(_ context.Context, f port.Filter) ([]port.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.ports.filter(func(p port.Port) bool {
		if f.Country != "" && p.Country != f.Country {
			return false
		}
		return f.Status == "" || p.Status == f.Status
	}, func(a, b port.Port) bool { return byName(a.Name, b.Name, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) CreateBerth(_ context.Context, b port.Berth) (port.Berth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ports.get(b.PortID); !ok {
		return port.Berth{}, notFound("port", b.PortID)
	}
	stamp(&b.CreatedAt)
	touch(&b.UpdatedAt)
	s.berths.insert(&b, &b.ID)
	return b, nil
}

func (s *Store) UpdateBerth(_ context.Context, b port.Berth) (port.Berth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.berths.get(b.ID)
	if !ok {
		return port.Berth{}, notFound("berth", b.ID)
	}
	b.CreatedAt = original.CreatedAt
	b.PortID = original.PortID
	refresh(&b.UpdatedAt)
	s.berths.put(b.ID, b)
	return b, nil
}

func (s *Store) GetBerth(_ context.Context, id int64) (port.Berth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.berths.get(id)
	if !ok {
		return port.Berth{}, notFound("berth", id)
	}
	return b, nil
}

func (s *Store) ListBerths(_ context.Context, portID int64) ([]port.Berth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.berths.filter(func(b port.Berth) bool { return portID == 0 || b.PortID == portID },
		func(a, b port.Berth) bool { return byName(a.Name, b.Name, a.ID, b.ID) }), nil
}

func (s *Store) CreateBooking(_ context.Context, b port.Booking) (port.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.berths.get(b.BerthID); !ok {
		return port.Booking{}, notFound("berth", b.BerthID)
	}
	stamp(&b.CreatedAt)
	touch(&b.UpdatedAt)
	s.bookings.insert(&b, &b.ID)
	return b, nil
}

func (s *Store) UpdateBooking(_ context.Context, b port.Booking) (port.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.bookings.get(b.ID)
	if !ok {
		return port.Booking{}, notFound("booking", b.ID)
	}
	b.CreatedAt = original.CreatedAt
	b.BerthID = original.BerthID
	refresh(&b.UpdatedAt)
	s.bookings.put(b.ID, b)
	return b, nil
}

func (s *Store) GetBooking(_ context.Context, id int64) (port.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings.get(id)
	if !ok {
		return port.Booking{}, notFound("booking", id)
	}
	return b, nil
}

// ListBookings orders bookings by scheduled arrival.
func (s *Store) ListBookings(_ context.Context, f port.BookingFilter) ([]port.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bookings.filter(func(b port.Booking) bool {
		if f.BerthID != 0 && b.BerthID != f.BerthID {
			return false
		}
		if f.PortID != 0 {
			berth, ok := s.berths.get(b.BerthID)
			if !ok || berth.PortID != f.PortID {
				return false
			}
		}
		return inSet(b.Status, f.Statuses)
	}, func(a, b port.Booking) bool { return olderFirst(a.ScheduledArrival, b.ScheduledArrival, a.ID, b.ID) }), nil
}
