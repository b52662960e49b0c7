package fleet

import (
	"context"
	"strings"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/fleet"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

type DispatchRequest struct {
	AssetID          int64      `json:"asset_id"`
	ShipmentID       *int64     `json:"shipment_id"`
	Origin           string     `json:"origin"`
	Destination      string     `json:"destination"`
	DispatchedAt     *time.Time `json:"dispatched_at"`
	EstimatedArrival *time.Time `json:"estimated_arrival"`
	CargoType        string     `json:"cargo_type"`
	CargoVolume      *float64   `json:"cargo_volume"`
	DriverName       string     `json:"driver_name"`
	DriverContact    string     `json:"driver_contact"`
	Notes            string     `json:"notes"`
}

type DispatchUpdate struct {
	Status        *string    `json:"status"`
	ActualArrival *time.Time `json:"actual_arrival"`
	Notes         *string    `json:"notes"`
}

func (s *Service) Dispatches(ctx context.Context, f fleet.DispatchFilter) ([]fleet.Dispatch, error) {
	return s.store.ListDispatches(ctx, f)
}

// Dispatch sends an asset on a trip. The asset moves to in_transit and is
// assigned to the shipment.
func (s *Service) Dispatch(ctx context.Context, actor user.User, req DispatchRequest) (fleet.Dispatch, error) {
	if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
		return fleet.Dispatch{}, apperrors.Validation("origin and destination are required")
	}
	asset, err := s.Asset(ctx, req.AssetID)
	if err != nil {
		return fleet.Dispatch{}, err
	}

	now := s.now()
	d := fleet.Dispatch{
		AssetID:       asset.ID,
		ShipmentID:    req.ShipmentID,
		Origin:        req.Origin,
		Destination:   req.Destination,
		CargoType:     req.CargoType,
		CargoVolume:   req.CargoVolume,
		DriverName:    req.DriverName,
		DriverContact: req.DriverContact,
		Notes:         req.Notes,
		Status:        "dispatched",
		DispatchedAt:  &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	service.SetTime(&d.DispatchedAt, req.DispatchedAt)
	service.SetTime(&d.EstimatedArrival, req.EstimatedArrival)
	created, err := s.store.CreateDispatch(ctx, d)
	if err != nil {
		return fleet.Dispatch{}, service.Translate(err, "Asset")
	}

	asset.Status = fleet.AssetInTransit
	asset.AssignedShipmentID = req.ShipmentID
	asset.UpdatedAt = now
	if _, err := s.store.UpdateAsset(ctx, asset); err != nil {
		return fleet.Dispatch{}, service.Translate(err, "Asset")
	}
	s.log.WithField("asset_code", asset.AssetCode).WithField("dispatch_id", created.ID).
		Infof("dispatch created by %s", actor.Username)
	return created, nil
}

// UpdateDispatch applies a status change. Completing a dispatch releases the
// asset and counts the trip.
func (s *Service) UpdateDispatch(ctx context.Context, actor user.User, id int64, upd DispatchUpdate) (fleet.Dispatch, error) {
	d, err := s.store.GetDispatch(ctx, id)
	if err != nil {
		return fleet.Dispatch{}, service.Translate(err, "Dispatch")
	}
	if upd.Status != nil && !fleet.ValidDispatchStatus(*upd.Status) {
		return fleet.Dispatch{}, apperrors.Validation("invalid dispatch status")
	}
	completing := upd.Status != nil && *upd.Status == "completed" && d.Status != "completed"

	service.Set(&d.Status, upd.Status)
	service.SetTime(&d.ActualArrival, upd.ActualArrival)
	service.Set(&d.Notes, upd.Notes)
	now := s.now()
	d.UpdatedAt = now
	saved, err := s.store.UpdateDispatch(ctx, d)
	if err != nil {
		return fleet.Dispatch{}, service.Translate(err, "Dispatch")
	}

	if completing {
		asset, err := s.store.GetAsset(ctx, d.AssetID)
		if err != nil {
			s.log.WithError(err).WithField("asset_id", d.AssetID).Warn("dispatch asset missing")
		} else {
			asset.Status = fleet.AssetAvailable
			asset.AssignedShipmentID = nil
			asset.TotalTrips++
			end := now
			if d.ActualArrival != nil {
				end = *d.ActualArrival
			}
			asset.LastTripEnd = &end
			asset.UpdatedAt = now
			if _, err := s.store.UpdateAsset(ctx, asset); err != nil {
				return fleet.Dispatch{}, service.Translate(err, "Asset")
			}
		}
	}
	s.log.WithField("dispatch_id", saved.ID).WithField("status", saved.Status).
		Infof("dispatch updated by %s", actor.Username)
	return saved, nil
}

type MaintenanceRequest struct {
	AssetID         *int64     `json:"asset_id"`
	VesselID        *int64     `json:"vessel_id"`
	MaintenanceType string     `json:"maintenance_type"`
	Description     string     `json:"description"`
	ScheduledDate   *time.Time `json:"scheduled_date"`
	Cost            *float64   `json:"cost"`
	Vendor          string     `json:"vendor"`
}

type MaintenanceUpdate struct {
	Status      *string    `json:"status"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Cost        *float64   `json:"cost"`
	Notes       *string    `json:"notes"`
}

func (s *Service) Maintenance(ctx context.Context, f fleet.MaintenanceFilter) ([]fleet.Maintenance, error) {
	return s.store.ListMaintenance(ctx, f)
}

func (s *Service) ScheduleMaintenance(ctx context.Context, actor user.User, req MaintenanceRequest) (fleet.Maintenance, error) {
	if strings.TrimSpace(req.MaintenanceType) == "" {
		return fleet.Maintenance{}, apperrors.Validation("maintenance_type is required")
	}
	if req.AssetID == nil && req.VesselID == nil {
		return fleet.Maintenance{}, apperrors.Validation("asset_id or vessel_id is required")
	}
	if req.AssetID != nil {
		if _, err := s.Asset(ctx, *req.AssetID); err != nil {
			return fleet.Maintenance{}, err
		}
	}
	now := s.now()
	m := fleet.Maintenance{
		AssetID:         req.AssetID,
		VesselID:        req.VesselID,
		MaintenanceType: req.MaintenanceType,
		Description:     req.Description,
		Vendor:          req.Vendor,
		Status:          "scheduled",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	service.SetTime(&m.ScheduledDate, req.ScheduledDate)
	service.Set(&m.Cost, req.Cost)
	created, err := s.store.CreateMaintenance(ctx, m)
	if err != nil {
		return fleet.Maintenance{}, err
	}
	s.log.WithField("maintenance_id", created.ID).
		Infof("maintenance scheduled: %s by %s", created.MaintenanceType, actor.Username)
	return created, nil
}

func (s *Service) UpdateMaintenance(ctx context.Context, id int64, upd MaintenanceUpdate) (fleet.Maintenance, error) {
	m, err := s.store.GetMaintenance(ctx, id)
	if err != nil {
		return fleet.Maintenance{}, service.Translate(err, "Maintenance record")
	}
	if upd.Status != nil && !fleet.ValidMaintenanceStatus(*upd.Status) {
		return fleet.Maintenance{}, apperrors.Validation("invalid maintenance status")
	}
	service.Set(&m.Status, upd.Status)
	service.SetTime(&m.StartedAt, upd.StartedAt)
	service.SetTime(&m.CompletedAt, upd.CompletedAt)
	service.Set(&m.Cost, upd.Cost)
	service.Set(&m.Notes, upd.Notes)
	m.UpdatedAt = s.now()
	saved, err := s.store.UpdateMaintenance(ctx, m)
	return saved, service.Translate(err, "Maintenance record")
}
