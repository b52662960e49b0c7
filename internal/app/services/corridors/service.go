// Package corridors manages logistics corridors and the geofences monitored
// along them.
package corridors

import (
	"context"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/corridor"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

type Service struct {
	store storage.CorridorStore
	log   *logger.Logger
	now   func() time.Time
}

func New(store storage.CorridorStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("corridors")
	}
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "corridors",
		Domain:       "logistics",
		Layer:        service.LayerCore,
		Capabilities: []string{"corridors", "geofences"},
	}
}

type CreateRequest struct {
	Name              string   `json:"name"`
	Code              string   `json:"code"`
	CorridorType      string   `json:"corridor_type"`
	Country           string   `json:"country"`
	Region            string   `json:"region"`
	Description       string   `json:"description"`
	OriginPortID      *int64   `json:"origin_port_id"`
	DestinationPortID *int64   `json:"destination_port_id"`
	Waypoints         string   `json:"waypoints"`
	TotalDistanceKm   *float64 `json:"total_distance_km"`
	Modes             string   `json:"modes"`
	PrimaryCommodity  string   `json:"primary_commodity"`
	AnnualVolumeMt    *float64 `json:"annual_volume_mt"`
}

type Update struct {
	Name             *string  `json:"name"`
	Status           *string  `json:"status"`
	Description      *string  `json:"description"`
	Waypoints        *string  `json:"waypoints"`
	AvgTransitDays   *float64 `json:"avg_transit_days"`
	AvgDemurrageDays *float64 `json:"avg_demurrage_days"`
	AvgCostPerTonne  *float64 `json:"avg_cost_per_tonne"`
}

func (s *Service) List(ctx context.Context, f corridor.Filter) ([]corridor.Corridor, error) {
	return s.store.ListCorridors(ctx, f)
}

func (s *Service) Get(ctx context.Context, id int64) (corridor.Corridor, error) {
	c, err := s.store.GetCorridor(ctx, id)
	return c, service.Translate(err, "Corridor")
}

func (s *Service) Create(ctx context.Context, actor user.User, req CreateRequest) (corridor.Corridor, error) {
	code := strings.TrimSpace(req.Code)
	switch {
	case strings.TrimSpace(req.Name) == "" || len(req.Name) > 255:
		return corridor.Corridor{}, apperrors.Validation("name must be 1-255 characters")
	case code == "" || len(code) > 50:
		return corridor.Corridor{}, apperrors.Validation("code must be 1-50 characters")
	}
	if err := checkWaypoints(req.Waypoints); err != nil {
		return corridor.Corridor{}, err
	}
	now := s.now()
	c, err := s.store.CreateCorridor(ctx, corridor.Corridor{
		Name:              strings.TrimSpace(req.Name),
		Code:              code,
		CorridorType:      req.CorridorType,
		Country:           req.Country,
		Region:            req.Region,
		Description:       req.Description,
		OriginPortID:      req.OriginPortID,
		DestinationPortID: req.DestinationPortID,
		Waypoints:         req.Waypoints,
		TotalDistanceKm:   req.TotalDistanceKm,
		Modes:             req.Modes,
		PrimaryCommodity:  req.PrimaryCommodity,
		AnnualVolumeMt:    req.AnnualVolumeMt,
		Status:            "active",
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		if err = service.Translate(err, "Corridor"); apperrors.Is(err, apperrors.CodeConflict) {
			return corridor.Corridor{}, apperrors.Conflict("Corridor code already exists")
		}
		return corridor.Corridor{}, err
	}
	s.log.WithField("corridor", c.Code).Infof("corridor created by %s", actor.Username)
	return c, nil
}

func (s *Service) Update(ctx context.Context, actor user.User, id int64, upd Update) (corridor.Corridor, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return corridor.Corridor{}, err
	}
	if upd.Name != nil && (strings.TrimSpace(*upd.Name) == "" || len(*upd.Name) > 255) {
		return corridor.Corridor{}, apperrors.Validation("name must be 1-255 characters")
	}
	if upd.Status != nil && !corridor.ValidStatus(*upd.Status) {
		return corridor.Corridor{}, apperrors.Validation("invalid corridor status")
	}
	if upd.Waypoints != nil {
		if err := checkWaypoints(*upd.Waypoints); err != nil {
			return corridor.Corridor{}, err
		}
	}
	service.Set(&c.Name, upd.Name)
	service.Set(&c.Status, upd.Status)
	service.Set(&c.Description, upd.Description)
	service.Set(&c.Waypoints, upd.Waypoints)
	service.SetPtr(&c.AvgTransitDays, upd.AvgTransitDays)
	service.SetPtr(&c.AvgDemurrageDays, upd.AvgDemurrageDays)
	service.SetPtr(&c.AvgCostPerTonne, upd.AvgCostPerTonne)
	c.UpdatedAt = s.now()

	saved, err := s.store.UpdateCorridor(ctx, c)
	if err != nil {
		return corridor.Corridor{}, service.Translate(err, "Corridor")
	}
	s.log.WithField("corridor", saved.Code).WithField("status", saved.Status).Infof("corridor updated by %s", actor.Username)
	return saved, nil
}

// checkWaypoints accepts an empty route or a JSON array of {lat, lng}
// points.
func checkWaypoints(raw string) error {
	if raw == "" {
		return nil
	}
	if _, err := (corridor.Corridor{Waypoints: raw}).Route(); err != nil {
		return apperrors.Validation("waypoints must be a JSON array of {lat, lng} points")
	}
	return nil
}

type GeofenceRequest struct {
	CorridorID      *int64 `json:"corridor_id"`
	Name            string `json:"name"`
	FenceType       string `json:"fence_type"`
	Geometry        string `json:"geometry"`
	AlertOnEnter    *bool  `json:"alert_on_enter"`
	AlertOnExit     *bool  `json:"alert_on_exit"`
	AlertOnDwell    *bool  `json:"alert_on_dwell"`
	MaxDwellMinutes *int   `json:"max_dwell_minutes"`
}

type GeofenceUpdate struct {
	Name            *string `json:"name"`
	Geometry        *string `json:"geometry"`
	IsActive        *bool   `json:"is_active"`
	AlertOnEnter    *bool   `json:"alert_on_enter"`
	AlertOnExit     *bool   `json:"alert_on_exit"`
	AlertOnDwell    *bool   `json:"alert_on_dwell"`
	MaxDwellMinutes *int    `json:"max_dwell_minutes"`
}

func (s *Service) Geofences(ctx context.Context, corridorID int64) ([]corridor.Geofence, error) {
	if _, err := s.Get(ctx, corridorID); err != nil {
		return nil, err
	}
	return s.store.ListGeofences(ctx, corridorID)
}

// CreateGeofence stores a fence. Enter and exit alerts default to on, dwell
// alerts to off.
func (s *Service) CreateGeofence(ctx context.Context, actor user.User, req GeofenceRequest) (corridor.Geofence, error) {
	if strings.TrimSpace(req.Name) == "" || len(req.Name) > 255 {
		return corridor.Geofence{}, apperrors.Validation("name must be 1-255 characters")
	}
	if err := checkGeometry(req.Geometry); err != nil {
		return corridor.Geofence{}, err
	}
	now := s.now()
	g := corridor.Geofence{
		CorridorID:      req.CorridorID,
		Name:            strings.TrimSpace(req.Name),
		FenceType:       req.FenceType,
		Geometry:        req.Geometry,
		AlertOnEnter:    true,
		AlertOnExit:     true,
		MaxDwellMinutes: req.MaxDwellMinutes,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	service.Set(&g.AlertOnEnter, req.AlertOnEnter)
	service.Set(&g.AlertOnExit, req.AlertOnExit)
	service.Set(&g.AlertOnDwell, req.AlertOnDwell)
	created, err := s.store.CreateGeofence(ctx, g)
	if err != nil {
		return corridor.Geofence{}, service.Translate(err, "Corridor")
	}
	s.log.WithField("geofence", created.Name).Infof("geofence created by %s", actor.Username)
	return created, nil
}

func (s *Service) UpdateGeofence(ctx context.Context, id int64, upd GeofenceUpdate) (corridor.Geofence, error) {
	g, err := s.store.GetGeofence(ctx, id)
	if err != nil {
		return corridor.Geofence{}, service.Translate(err, "Geofence")
	}
	if upd.Geometry != nil {
		if err := checkGeometry(*upd.Geometry); err != nil {
			return corridor.Geofence{}, err
		}
	}
	service.Set(&g.Name, upd.Name)
	service.Set(&g.Geometry, upd.Geometry)
	service.Set(&g.IsActive, upd.IsActive)
	service.Set(&g.AlertOnEnter, upd.AlertOnEnter)
	service.Set(&g.AlertOnExit, upd.AlertOnExit)
	service.Set(&g.AlertOnDwell, upd.AlertOnDwell)
	service.SetPtr(&g.MaxDwellMinutes, upd.MaxDwellMinutes)
	g.UpdatedAt = s.now()
	saved, err := s.store.UpdateGeofence(ctx, g)
	return saved, service.Translate(err, "Geofence")
}

// checkGeometry requires a JSON geometry, GeoJSON or a bare coordinate list.
func checkGeometry(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return apperrors.Validation("geometry is required")
	}
	if !gjson.Valid(raw) {
		return apperrors.Validation("geometry must be valid JSON")
	}
	return nil
}
