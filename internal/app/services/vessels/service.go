// Package vessels keeps the vessel register and last known AIS positions.
package vessels

import (
	"context"
	"strings"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/domain/vessel"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

const errIMOTaken = "Vessel with this IMO number already exists"

// Service manages vessels.
type Service struct {
	store storage.VesselStore
	bus   eventbus.Publisher
	log   *logger.Logger
	now   func() time.Time
}

func New(store storage.VesselStore, bus eventbus.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("vessels")
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{store: store, bus: bus, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "vessels",
		Domain:       "logistics",
		Layer:        service.LayerCore,
		Capabilities: []string{"vessels", "positions"},
	}
}

// CreateRequest registers a vessel.
type CreateRequest struct {
	Name         string     `json:"name"`
	IMONumber    string     `json:"imo_number"`
	MMSI         string     `json:"mmsi"`
	VesselType   string     `json:"vessel_type"`
	Flag         string     `json:"flag"`
	DWT          *float64   `json:"dwt"`
	LOA          *float64   `json:"loa"`
	Beam         *float64   `json:"beam"`
	Draft        *float64   `json:"draft"`
	YearBuilt    *int       `json:"year_built"`
	Owner        string     `json:"owner"`
	Operator     string     `json:"operator"`
	ClassSociety string     `json:"class_society"`
	CharterType  string     `json:"charter_type"`
	CharterRate  *float64   `json:"charter_rate"`
	CharterStart *time.Time `json:"charter_start"`
	CharterEnd   *time.Time `json:"charter_end"`
}

// Update is a partial vessel update.
type Update struct {
	Name               *string    `json:"name"`
	VesselType         *string    `json:"vessel_type"`
	Flag               *string    `json:"flag"`
	DWT                *float64   `json:"dwt"`
	Draft              *float64   `json:"draft"`
	Owner              *string    `json:"owner"`
	Operator           *string    `json:"operator"`
	Status             *string    `json:"status"`
	CurrentLat         *float64   `json:"current_lat"`
	CurrentLng         *float64   `json:"current_lng"`
	CurrentSpeed       *float64   `json:"current_speed"`
	CurrentHeading     *float64   `json:"current_heading"`
	CurrentDestination *string    `json:"current_destination"`
	CharterType        *string    `json:"charter_type"`
	CharterRate        *float64   `json:"charter_rate"`
	CharterStart       *time.Time `json:"charter_start"`
	CharterEnd         *time.Time `json:"charter_end"`
}

func (s *Service) List(ctx context.Context, f vessel.Filter) ([]vessel.Vessel, error) {
	return s.store.ListVessels(ctx, f)
}

// Positions lists every vessel with a known position, for the map.
func (s *Service) Positions(ctx context.Context) ([]vessel.Vessel, error) {
	return s.store.ListVessels(ctx, vessel.Filter{WithPosition: true})
}

func (s *Service) Get(ctx context.Context, id int64) (vessel.Vessel, error) {
	v, err := s.store.GetVessel(ctx, id)
	return v, service.Translate(err, "Vessel")
}

func (s *Service) Create(ctx context.Context, actor user.User, req CreateRequest) (vessel.Vessel, error) {
	name := strings.TrimSpace(req.Name)
	imo := strings.TrimSpace(req.IMONumber)
	switch {
	case name == "" || len(name) > 255:
		return vessel.Vessel{}, apperrors.Validation("name must be 1-255 characters")
	case imo == "" || len(imo) > 20:
		return vessel.Vessel{}, apperrors.Validation("imo_number must be 1-20 characters")
	case strings.TrimSpace(req.VesselType) == "" || len(req.VesselType) > 100:
		return vessel.Vessel{}, apperrors.Validation("vessel_type must be 1-100 characters")
	case len(req.MMSI) > 20:
		return vessel.Vessel{}, apperrors.Validation("mmsi must be at most 20 characters")
	}
	if _, err := s.store.GetVesselByIMO(ctx, imo); err == nil {
		return vessel.Vessel{}, apperrors.Conflict(errIMOTaken)
	}

	now := s.now()
	v := vessel.Vessel{
		Name:         name,
		IMONumber:    &imo,
		MMSI:         req.MMSI,
		VesselType:   req.VesselType,
		Flag:         req.Flag,
		DWT:          req.DWT,
		LOA:          req.LOA,
		Beam:         req.Beam,
		Draft:        req.Draft,
		YearBuilt:    req.YearBuilt,
		Owner:        req.Owner,
		Operator:     req.Operator,
		ClassSociety: req.ClassSociety,
		CharterType:  req.CharterType,
		CharterRate:  req.CharterRate,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	service.SetTime(&v.CharterStart, req.CharterStart)
	service.SetTime(&v.CharterEnd, req.CharterEnd)

	created, err := s.store.CreateVessel(ctx, v)
	if err != nil {
		return vessel.Vessel{}, conflictAsIMO(err)
	}
	s.log.WithField("vessel", created.Name).Infof("vessel registered by %s", actor.Username)
	return created, nil
}

func (s *Service) Update(ctx context.Context, actor user.User, id int64, upd Update) (vessel.Vessel, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return vessel.Vessel{}, err
	}
	if upd.Name != nil && (strings.TrimSpace(*upd.Name) == "" || len(*upd.Name) > 255) {
		return vessel.Vessel{}, apperrors.Validation("name must be 1-255 characters")
	}
	if upd.Status != nil && !vessel.ValidStatus(*upd.Status) {
		return vessel.Vessel{}, apperrors.Validation("invalid vessel status")
	}
	if err := checkCoords(upd.CurrentLat, upd.CurrentLng); err != nil {
		return vessel.Vessel{}, err
	}

	service.Set(&v.Name, upd.Name)
	service.Set(&v.VesselType, upd.VesselType)
	service.Set(&v.Flag, upd.Flag)
	service.SetPtr(&v.DWT, upd.DWT)
	service.SetPtr(&v.Draft, upd.Draft)
	service.Set(&v.Owner, upd.Owner)
	service.Set(&v.Operator, upd.Operator)
	service.Set(&v.Status, upd.Status)
	service.SetPtr(&v.CurrentLat, upd.CurrentLat)
	service.SetPtr(&v.CurrentLng, upd.CurrentLng)
	service.SetPtr(&v.CurrentSpeed, upd.CurrentSpeed)
	service.SetPtr(&v.CurrentHeading, upd.CurrentHeading)
	service.Set(&v.CurrentDestination, upd.CurrentDestination)
	service.Set(&v.CharterType, upd.CharterType)
	service.SetPtr(&v.CharterRate, upd.CharterRate)
	service.SetTime(&v.CharterStart, upd.CharterStart)
	service.SetTime(&v.CharterEnd, upd.CharterEnd)
	v.UpdatedAt = s.now()

	saved, err := s.store.UpdateVessel(ctx, v)
	if err != nil {
		return vessel.Vessel{}, conflictAsIMO(err)
	}
	s.log.WithField("vessel", saved.Name).Infof("vessel updated by %s", actor.Username)
	return saved, nil
}

// UpdatePosition records an AIS position report and publishes it for the
// live map.
func (s *Service) UpdatePosition(ctx context.Context, id int64, pos vessel.Position) (vessel.Vessel, error) {
	if err := checkCoords(&pos.Lat, &pos.Lng); err != nil {
		return vessel.Vessel{}, err
	}
	v, err := s.Get(ctx, id)
	if err != nil {
		return vessel.Vessel{}, err
	}
	now := s.now()
	lat, lng := pos.Lat, pos.Lng
	v.CurrentLat, v.CurrentLng = &lat, &lng
	service.SetPtr(&v.CurrentSpeed, pos.Speed)
	service.SetPtr(&v.CurrentHeading, pos.Heading)
	if pos.Destination != "" {
		v.CurrentDestination = pos.Destination
	}
	if pos.AISStatus != "" {
		v.AISStatus = pos.AISStatus
	}
	v.PositionUpdatedAt = &now
	v.UpdatedAt = now

	saved, err := s.store.UpdateVessel(ctx, v)
	if err != nil {
		return vessel.Vessel{}, service.Translate(err, "Vessel")
	}
	if err := s.bus.Publish(ctx, eventbus.VesselPosition, saved); err != nil {
		s.log.WithError(err).Warn("publish vessel position failed")
	}
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, actor user.User, id int64) error {
	if err := s.store.DeleteVessel(ctx, id); err != nil {
		return service.Translate(err, "Vessel")
	}
	s.log.WithField("vessel_id", id).Infof("vessel deleted by %s", actor.Username)
	return nil
}

func conflictAsIMO(err error) error {
	err = service.Translate(err, "Vessel")
	if apperrors.Is(err, apperrors.CodeConflict) {
		return apperrors.Conflict(errIMOTaken)
	}
	return err
}

func checkCoords(lat, lng *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return apperrors.Validation("latitude must be between -90 and 90")
	}
	if lng != nil && (*lng < -180 || *lng > 180) {
		return apperrors.Validation("longitude must be between -180 and 180")
	}
	return nil
}
