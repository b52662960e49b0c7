package ports

import (
	"context"
	"strings"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/port"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

type BerthRequest struct {
	PortID      int64    `json:"port_id"`
	Name        string   `json:"name"`
	BerthType   string   `json:"berth_type"`
	MaxDraft    *float64 `json:"max_draft"`
	MaxLOA      *float64 `json:"max_loa"`
	MaxBeam     *float64 `json:"max_beam"`
	CargoTypes  string   `json:"cargo_types"`
	Equipment   string   `json:"equipment"`
	LoadingRate *float64 `json:"loading_rate"`
}

type BerthUpdate struct {
	Name        *string  `json:"name"`
	Status      *string  `json:"status"`
	LoadingRate *float64 `json:"loading_rate"`
	Equipment   *string  `json:"equipment"`
}

// Berths lists the berths of a port by name.
func (s *Service) Berths(ctx context.Context, portID int64) ([]port.Berth, error) {
	if _, err := s.Get(ctx, portID); err != nil {
		return nil, err
	}
	return s.store.ListBerths(ctx, portID)
}

func (s *Service) CreateBerth(ctx context.Context, actor user.User, req BerthRequest) (port.Berth, error) {
	if strings.TrimSpace(req.Name) == "" || len(req.Name) > 255 {
		return port.Berth{}, apperrors.Validation("name must be 1-255 characters")
	}
	if _, err := s.Get(ctx, req.PortID); err != nil {
		return port.Berth{}, err
	}
	now := s.now()
	b, err := s.store.CreateBerth(ctx, port.Berth{
		PortID:      req.PortID,
		Name:        strings.TrimSpace(req.Name),
		BerthType:   req.BerthType,
		MaxDraft:    req.MaxDraft,
		MaxLOA:      req.MaxLOA,
		MaxBeam:     req.MaxBeam,
		CargoTypes:  req.CargoTypes,
		Equipment:   req.Equipment,
		LoadingRate: req.LoadingRate,
		Status:      "available",
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return port.Berth{}, service.Translate(err, "Port")
	}
	s.log.WithField("port_id", b.PortID).Infof("berth %s created by %s", b.Name, actor.Username)
	return b, nil
}

func (s *Service) UpdateBerth(ctx context.Context, id int64, upd BerthUpdate) (port.Berth, error) {
	b, err := s.store.GetBerth(ctx, id)
	if err != nil {
		return port.Berth{}, service.Translate(err, "Berth")
	}
	if upd.Name != nil && (strings.TrimSpace(*upd.Name) == "" || len(*upd.Name) > 255) {
		return port.Berth{}, apperrors.Validation("name must be 1-255 characters")
	}
	if upd.Status != nil && !port.ValidBerthStatus(*upd.Status) {
		return port.Berth{}, apperrors.Validation("invalid berth status")
	}
	service.Set(&b.Name, upd.Name)
	service.Set(&b.Status, upd.Status)
	service.SetPtr(&b.LoadingRate, upd.LoadingRate)
	service.Set(&b.Equipment, upd.Equipment)
	b.UpdatedAt = s.now()
	saved, err := s.store.UpdateBerth(ctx, b)
	return saved, service.Translate(err, "Berth")
}

type BookingRequest struct {
	BerthID            int64     `json:"berth_id"`
	VesselID           *int64    `json:"vessel_id"`
	ShipmentID         *int64    `json:"shipment_id"`
	ScheduledArrival   time.Time `json:"scheduled_arrival"`
	ScheduledDeparture time.Time `json:"scheduled_departure"`
	CargoType          string    `json:"cargo_type"`
	CargoVolume        *float64  `json:"cargo_volume"`
	Priority           *int      `json:"priority"`
}

type BookingUpdate struct {
	ScheduledArrival   *time.Time `json:"scheduled_arrival"`
	ScheduledDeparture *time.Time `json:"scheduled_departure"`
	ActualArrival      *time.Time `json:"actual_arrival"`
	ActualDeparture    *time.Time `json:"actual_departure"`
	Status             *string    `json:"status"`
	Priority           *int       `json:"priority"`
}

// Bookings lists the bookings at a port in arrival order. An empty status
// returns every booking.
func (s *Service) Bookings(ctx context.Context, portID int64, status string) ([]port.Booking, error) {
	if _, err := s.Get(ctx, portID); err != nil {
		return nil, err
	}
	f := port.BookingFilter{PortID: portID}
	if status != "" {
		f.Statuses = []string{status}
	}
	return s.store.ListBookings(ctx, f)
}

func (s *Service) CreateBooking(ctx context.Context, actor user.User, req BookingRequest) (port.Booking, error) {
	if req.VesselID == nil {
		return port.Booking{}, apperrors.Validation("vessel_id is required")
	}
	if req.ScheduledArrival.IsZero() || req.ScheduledDeparture.IsZero() {
		return port.Booking{}, apperrors.Validation("scheduled_arrival and scheduled_departure are required")
	}
	if !req.ScheduledArrival.Before(req.ScheduledDeparture) {
		return port.Booking{}, apperrors.BadRequest("Arrival must be before departure")
	}
	priority := 5
	service.Set(&priority, req.Priority)

	now := s.now()
	b, err := s.store.CreateBooking(ctx, port.Booking{
		BerthID:            req.BerthID,
		VesselID:           req.VesselID,
		ShipmentID:         req.ShipmentID,
		ScheduledArrival:   req.ScheduledArrival.UTC(),
		ScheduledDeparture: req.ScheduledDeparture.UTC(),
		CargoType:          req.CargoType,
		CargoVolume:        req.CargoVolume,
		Priority:           priority,
		Status:             "scheduled",
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return port.Booking{}, service.Translate(err, "Berth")
	}
	s.log.WithField("berth_id", b.BerthID).WithField("vessel_id", *b.VesselID).
		Infof("berth booking created by %s", actor.Username)
	return b, nil
}

func (s *Service) UpdateBooking(ctx context.Context, id int64, upd BookingUpdate) (port.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return port.Booking{}, service.Translate(err, "Booking")
	}
	if upd.Status != nil && !port.ValidBookingStatus(*upd.Status) {
		return port.Booking{}, apperrors.Validation("invalid booking status")
	}
	if upd.ScheduledArrival != nil {
		b.ScheduledArrival = upd.ScheduledArrival.UTC()
	}
	if upd.ScheduledDeparture != nil {
		b.ScheduledDeparture = upd.ScheduledDeparture.UTC()
	}
	if !b.ScheduledArrival.Before(b.ScheduledDeparture) {
		return port.Booking{}, apperrors.BadRequest("Arrival must be before departure")
	}
	service.SetTime(&b.ActualArrival, upd.ActualArrival)
	service.SetTime(&b.ActualDeparture, upd.ActualDeparture)
	service.Set(&b.Status, upd.Status)
	service.Set(&b.Priority, upd.Priority)
	b.UpdatedAt = s.now()
	saved, err := s.store.UpdateBooking(ctx, b)
	return saved, service.Translate(err, "Booking")
}
