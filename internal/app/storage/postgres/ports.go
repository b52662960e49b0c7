package postgres

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/port"
)

var (
	portsTable    = newWriteSet("ports", port.Port{})
	berthsTable   = newWriteSet("berths", port.Berth{}, "port_id")
	bookingsTable = newWriteSet("berth_bookings", port.Booking{}, "berth_id")
)

func (s *Store) CreatePort(ctx context.Context, p port.Port) (port.Port, error) {
	stamp(&p.CreatedAt, &p.UpdatedAt)
	id, err := s.insert(ctx, portsTable, p)
	if err != nil {
		return port.Port{}, err
	}
	p.ID = id
	return p, nil
}

func (s *Store) UpdatePort(ctx context.Context, p port.Port) (port.Port, error) {
	refresh(&p.UpdatedAt)
	if err := s.update(ctx, portsTable, p.ID, p); err != nil {
		return port.Port{}, err
	}
	return s.GetPort(ctx, p.ID)
}

func (s *Store) GetPort(ctx context.Context, id int64) (port.Port, error) {
	var p port.Port
	err := s.getByID(ctx, &p, "ports", id)
	return p, err
}

func (s *Store) GetPortByCode(ctx context.Context, code string) (port.Port, error) {
	var p port.Port
	err := s.getBy(ctx, &p, "ports", "code", code)
	return p, err
}

func (s *Store) ListPorts(ctx context.Context, f port.Filter) ([]port.Port, error) {
	w := &where{}
	w.eq("country", f.Country)
	w.eq("status", f.Status)
	out := []port.Port{}
	err := s.list(ctx, &out, "ports", w, "name, id", f.Offset, f.Limit)
	return out, err
}

func (s *Store) CreateBerth(ctx context.Context, b port.Berth) (port.Berth, error) {
	stamp(&b.CreatedAt, &b.UpdatedAt)
	id, err := s.insert(ctx, berthsTable, b)
	if err != nil {
		return port.Berth{}, err
	}
	b.ID = id
	return b, nil
}

func (s *Store) UpdateBerth(ctx context.Context, b port.Berth) (port.Berth, error) {
	refresh(&b.UpdatedAt)
	if err := s.update(ctx, berthsTable, b.ID, b); err != nil {
		return port.Berth{}, err
	}
	return s.GetBerth(ctx, b.ID)
}

func (s *Store) GetBerth(ctx context.Context, id int64) (port.Berth, error) {
	var b port.Berth
	err := s.getByID(ctx, &b, "berths", id)
	return b, err
}

func (s *Store) ListBerths(ctx context.Context, portID int64) ([]port.Berth, error) {
	w := &where{}
	w.id("port_id", portID)
	out := []port.Berth{}
	err := s.list(ctx, &out, "berths", w, "name, id", 0, 0)
	return out, err
}

func (s *Store) CreateBooking(ctx context.Context, b port.Booking) (port.Booking, error) {
	stamp(&b.CreatedAt, &b.UpdatedAt)
	id, err := s.insert(ctx, bookingsTable, b)
	if err != nil {
		return port.Booking{}, err
	}
	b.ID = id
	return b, nil
}

func (s *Store) UpdateBooking(ctx context.Context, b port.Booking) (port.Booking, error) {
	refresh(&b.UpdatedAt)
	if err := s.update(ctx, bookingsTable, b.ID, b); err != nil {
		return port.Booking{}, err
	}
	return s.GetBooking(ctx, b.ID)
}

func (s *Store) GetBooking(ctx context.Context, id int64) (port.Booking, error) {
	var b port.Booking
	err := s.getByID(ctx, &b, "berth_bookings", id)
	return b, err
}

func (s *Store) ListBookings(ctx context.Context, f port.BookingFilter) ([]port.Booking, error) {
	w := &where{}
	w.id("b.berth_id", f.BerthID)
	w.id("br.port_id", f.PortID)
	w.in("b.status", f.Statuses)
	q := "SELECT b.* FROM berth_bookings b JOIN berths br ON br.id = b.berth_id" + w.String() +
		" ORDER BY b.scheduled_arrival, b.id"
	out := []port.Booking{}
	err := s.db.SelectContext(ctx, &out, q, w.args...)
	return out, err
}
