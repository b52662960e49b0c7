// Package fleet manages land and inland-water assets: the asset register,
// trip dispatches and maintenance jobs.
package fleet

import (
	"context"
	"strings"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/fleet"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/analytics"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

type Service struct {
	store storage.FleetStore
	log   *logger.Logger
	now   func() time.Time
}

func New(store storage.FleetStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("fleet")
	}
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "fleet",
		Domain:       "logistics",
		Layer:        service.LayerCore,
		Capabilities: []string{"assets", "dispatch", "maintenance", "utilization"},
	}
}

type AssetRequest struct {
	AssetCode        string   `json:"asset_code"`
	Name             string   `json:"name"`
	AssetType        string   `json:"asset_type"`
	SubType          string   `json:"sub_type"`
	Owner            string   `json:"owner"`
	Operator         string   `json:"operator"`
	Capacity         *float64 `json:"capacity"`
	MaxPayload       *float64 `json:"max_payload"`
	FuelType         string   `json:"fuel_type"`
	YearManufactured *int     `json:"year_manufactured"`
	Registration     string   `json:"registration"`
	IoTDeviceID      string   `json:"iot_device_id"`
}

type AssetUpdate struct {
	Name               *string    `json:"name"`
	Status             *string    `json:"status"`
	CurrentLocation    *string    `json:"current_location"`
	CurrentLat         *float64   `json:"current_lat"`
	CurrentLng         *float64   `json:"current_lng"`
	AssignedCorridorID *int64     `json:"assigned_corridor_id"`
	AssignedShipmentID *int64     `json:"assigned_shipment_id"`
	MaintenanceStatus  *string    `json:"maintenance_status"`
	NextMaintenance    *time.Time `json:"next_maintenance"`
}

// TypeAvailability counts the assets of one type per status.
type TypeAvailability struct {
	Total    int            `json:"total"`
	Statuses map[string]int `json:"statuses"`
}

// TypeUtilization aggregates one asset type.
type TypeUtilization struct {
	Count          int     `json:"count"`
	InTransit      int     `json:"in_transit"`
	Idle           int     `json:"idle"`
	AvgUtilization float64 `json:"avg_utilization"`
}

// Utilization summarises the whole fleet.
type Utilization struct {
	TotalAssets    int                        `json:"total_assets"`
	AvgUtilization float64                    `json:"avg_utilization"`
	ByType         map[string]TypeUtilization `json:"by_type"`
}

func (s *Service) Assets(ctx context.Context, f fleet.Filter) ([]fleet.Asset, error) {
	return s.store.ListAssets(ctx, f)
}

func (s *Service) Asset(ctx context.Context, id int64) (fleet.Asset, error) {
	a, err := s.store.GetAsset(ctx, id)
	return a, service.Translate(err, "Asset")
}

func (s *Service) CreateAsset(ctx context.Context, actor user.User, req AssetRequest) (fleet.Asset, error) {
	code := strings.TrimSpace(req.AssetCode)
	switch {
	case code == "" || len(code) > 50:
		return fleet.Asset{}, apperrors.Validation("asset_code must be 1-50 characters")
	case strings.TrimSpace(req.Name) == "" || len(req.Name) > 255:
		return fleet.Asset{}, apperrors.Validation("name must be 1-255 characters")
	case strings.TrimSpace(req.AssetType) == "" || len(req.AssetType) > 50:
		return fleet.Asset{}, apperrors.Validation("asset_type must be 1-50 characters")
	}
	now := s.now()
	a, err := s.store.CreateAsset(ctx, fleet.Asset{
		AssetCode:         code,
		Name:              strings.TrimSpace(req.Name),
		AssetType:         req.AssetType,
		SubType:           req.SubType,
		Owner:             req.Owner,
		Operator:          req.Operator,
		Capacity:          req.Capacity,
		MaxPayload:        req.MaxPayload,
		FuelType:          req.FuelType,
		YearManufactured:  req.YearManufactured,
		Registration:      req.Registration,
		IoTDeviceID:       req.IoTDeviceID,
		Status:            fleet.AssetAvailable,
		MaintenanceStatus: "ok",
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		if err = service.Translate(err, "Asset"); apperrors.Is(err, apperrors.CodeConflict) {
			return fleet.Asset{}, apperrors.Conflict("Asset code already exists")
		}
		return fleet.Asset{}, err
	}
	s.log.WithField("asset_code", a.AssetCode).Infof("asset registered by %s", actor.Username)
	return a, nil
}

func (s *Service) UpdateAsset(ctx context.Context, actor user.User, id int64, upd AssetUpdate) (fleet.Asset, error) {
	a, err := s.Asset(ctx, id)
	if err != nil {
		return fleet.Asset{}, err
	}
	if upd.Status != nil && !fleet.ValidAssetStatus(*upd.Status) {
		return fleet.Asset{}, apperrors.Validation("invalid asset status")
	}
	if upd.CurrentLat != nil && (*upd.CurrentLat < -90 || *upd.CurrentLat > 90) {
		return fleet.Asset{}, apperrors.Validation("current_lat must be between -90 and 90")
	}
	if upd.CurrentLng != nil && (*upd.CurrentLng < -180 || *upd.CurrentLng > 180) {
		return fleet.Asset{}, apperrors.Validation("current_lng must be between -180 and 180")
	}
	service.Set(&a.Name, upd.Name)
	service.Set(&a.Status, upd.Status)
	service.Set(&a.CurrentLocation, upd.CurrentLocation)
	service.SetPtr(&a.CurrentLat, upd.CurrentLat)
	service.SetPtr(&a.CurrentLng, upd.CurrentLng)
	service.SetPtr(&a.AssignedCorridorID, upd.AssignedCorridorID)
	service.SetPtr(&a.AssignedShipmentID, upd.AssignedShipmentID)
	service.Set(&a.MaintenanceStatus, upd.MaintenanceStatus)
	service.SetTime(&a.NextMaintenance, upd.NextMaintenance)
	a.UpdatedAt = s.now()

	saved, err := s.store.UpdateAsset(ctx, a)
	if err != nil {
		return fleet.Asset{}, service.Translate(err, "Asset")
	}
	s.log.WithField("asset_code", saved.AssetCode).Infof("asset updated by %s", actor.Username)
	return saved, nil
}

// Availability is the asset board: per type, the number of assets in each
// status.
func (s *Service) Availability(ctx context.Context) (map[string]TypeAvailability, error) {
	assets, err := s.store.ListAssets(ctx, fleet.Filter{})
	if err != nil {
		return nil, err
	}
	out := map[string]TypeAvailability{}
	for _, a := range assets {
		entry, ok := out[a.AssetType]
		if !ok {
			entry = TypeAvailability{Statuses: map[string]int{}}
		}
		entry.Statuses[a.Status]++
		entry.Total++
		out[a.AssetType] = entry
	}
	return out, nil
}

// Utilization averages utilization_pct across the fleet and per type.
func (s *Service) Utilization(ctx context.Context) (Utilization, error) {
	assets, err := s.store.ListAssets(ctx, fleet.Filter{})
	if err != nil {
		return Utilization{}, err
	}
	out := Utilization{TotalAssets: len(assets), ByType: map[string]TypeUtilization{}}
	if len(assets) == 0 {
		return out, nil
	}
	sums := map[string]float64{}
	total := 0.0
	for _, a := range assets {
		t := out.ByType[a.AssetType]
		t.Count++
		switch a.Status {
		case fleet.AssetInTransit:
			t.InTransit++
		case fleet.AssetIdle, fleet.AssetAvailable:
			t.Idle++
		}
		out.ByType[a.AssetType] = t
		sums[a.AssetType] += a.UtilizationPct
		total += a.UtilizationPct
	}
	for k, t := range out.ByType {
		t.AvgUtilization = analytics.Round(sums[k]/float64(t.Count), 1)
		out.ByType[k] = t
	}
	out.AvgUtilization = analytics.Round(total/float64(len(assets)), 1)
	return out, nil
}
