// Package ports manages ports, their berths and berth bookings, and reports
// berth congestion.
package ports

import (
	"context"
	"strings"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/port"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/analytics"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// Bookings in these states hold a berth.
var activeBookingStatuses = []string{"scheduled", "confirmed", "active"}

type Service struct {
	store storage.PortStore
	log   *logger.Logger
	now   func() time.Time
}

func New(store storage.PortStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ports")
	}
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "ports",
		Domain:       "logistics",
		Layer:        service.LayerCore,
		Capabilities: []string{"ports", "berths", "bookings", "congestion"},
	}
}

// CreateRequest registers a port.
type CreateRequest struct {
	Name              string   `json:"name"`
	Code              string   `json:"code"`
	Country           string   `json:"country"`
	Region            string   `json:"region"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	PortType          string   `json:"port_type"`
	MaxDraft          *float64 `json:"max_draft"`
	MaxLOA            *float64 `json:"max_loa"`
	AnchorageCapacity *int     `json:"anchorage_capacity"`
	Authority         string   `json:"authority"`
	Timezone          string   `json:"timezone"`
	Notes             string   `json:"notes"`
}

// Update is a partial port update.
type Update struct {
	Name         *string  `json:"name"`
	Status       *string  `json:"status"`
	CurrentQueue *int     `json:"current_queue"`
	AvgWaitDays  *float64 `json:"avg_wait_days"`
	AvgDwellDays *float64 `json:"avg_dwell_days"`
	Notes        *string  `json:"notes"`
}

func (s *Service) List(ctx context.Context, f port.Filter) ([]port.Port, error) {
	return s.store.ListPorts(ctx, f)
}

func (s *Service) Get(ctx context.Context, id int64) (port.Port, error) {
	p, err := s.store.GetPort(ctx, id)
	return p, service.Translate(err, "Port")
}

func (s *Service) Create(ctx context.Context, actor user.User, req CreateRequest) (port.Port, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	switch {
	case strings.TrimSpace(req.Name) == "" || len(req.Name) > 255:
		return port.Port{}, apperrors.Validation("name must be 1-255 characters")
	case code == "" || len(code) > 20:
		return port.Port{}, apperrors.Validation("code must be 1-20 characters")
	case strings.TrimSpace(req.Country) == "" || len(req.Country) > 100:
		return port.Port{}, apperrors.Validation("country must be 1-100 characters")
	case req.Latitude == nil || req.Longitude == nil:
		return port.Port{}, apperrors.Validation("latitude and longitude are required")
	case *req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180:
		return port.Port{}, apperrors.Validation("coordinates out of range")
	}

	now := s.now()
	p, err := s.store.CreatePort(ctx, port.Port{
		Name:              strings.TrimSpace(req.Name),
		Code:              code,
		Country:           req.Country,
		Region:            req.Region,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		PortType:          req.PortType,
		MaxDraft:          req.MaxDraft,
		MaxLOA:            req.MaxLOA,
		AnchorageCapacity: req.AnchorageCapacity,
		Authority:         req.Authority,
		Timezone:          req.Timezone,
		Notes:             req.Notes,
		Status:            "operational",
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		if err = service.Translate(err, "Port"); apperrors.Is(err, apperrors.CodeConflict) {
			return port.Port{}, apperrors.Conflict("Port with this code already exists")
		}
		return port.Port{}, err
	}
	s.log.WithField("port", p.Code).Infof("port created by %s", actor.Username)
	return p, nil
}

func (s *Service) Update(ctx context.Context, actor user.User, id int64, upd Update) (port.Port, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return port.Port{}, err
	}
	if upd.Name != nil && (strings.TrimSpace(*upd.Name) == "" || len(*upd.Name) > 255) {
		return port.Port{}, apperrors.Validation("name must be 1-255 characters")
	}
	if upd.Status != nil && !port.ValidStatus(*upd.Status) {
		return port.Port{}, apperrors.Validation("invalid port status")
	}
	if upd.CurrentQueue != nil && *upd.CurrentQueue < 0 {
		return port.Port{}, apperrors.Validation("current_queue must not be negative")
	}
	service.Set(&p.Name, upd.Name)
	service.Set(&p.Status, upd.Status)
	service.Set(&p.CurrentQueue, upd.CurrentQueue)
	service.Set(&p.AvgWaitDays, upd.AvgWaitDays)
	service.Set(&p.AvgDwellDays, upd.AvgDwellDays)
	service.Set(&p.Notes, upd.Notes)
	p.UpdatedAt = s.now()

	saved, err := s.store.UpdatePort(ctx, p)
	if err != nil {
		return port.Port{}, service.Translate(err, "Port")
	}
	s.log.WithField("port", saved.Code).WithField("status", saved.Status).Infof("port updated by %s", actor.Username)
	return saved, nil
}

// CongestionSummary reports berth usage for every port that is not closed.
// Utilization is the share of berths that are not available; ports without
// berths report zero.
func (s *Service) CongestionSummary(ctx context.Context) ([]port.CongestionEntry, error) {
	ports, err := s.store.ListPorts(ctx, port.Filter{})
	if err != nil {
		return nil, err
	}
	out := make([]port.CongestionEntry, 0, len(ports))
	for _, p := range ports {
		if p.Status == "closed" {
			continue
		}
		berths, err := s.store.ListBerths(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		bookings, err := s.store.ListBookings(ctx, port.BookingFilter{PortID: p.ID, Statuses: activeBookingStatuses})
		if err != nil {
			return nil, err
		}
		available := 0
		for _, b := range berths {
			if b.Status == "available" {
				available++
			}
		}
		entry := port.CongestionEntry{
			PortID:          p.ID,
			PortName:        p.Name,
			PortCode:        p.Code,
			Status:          p.Status,
			CurrentQueue:    p.CurrentQueue,
			AvgWaitDays:     p.AvgWaitDays,
			AvgDwellDays:    p.AvgDwellDays,
			TotalBerths:     len(berths),
			AvailableBerths: available,
			ActiveBookings:  len(bookings),
		}
		if len(berths) > 0 {
			entry.UtilizationPct = analytics.Round((1-float64(available)/float64(len(berths)))*100, 1)
		}
		out = append(out, entry)
	}
	return out, nil
}
