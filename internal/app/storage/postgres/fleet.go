package postgres

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/fleet"
)

var (
	assetsTable      = newWriteSet("assets", fleet.Asset{})
	dispatchesTable  = newWriteSet("dispatches", fleet.Dispatch{}, "asset_id")
	maintenanceTable = newWriteSet("maintenance_records", fleet.Maintenance{})
)

func (s *Store) CreateAsset(ctx context.Context, a fleet.Asset) (fleet.Asset, error) {
	stamp(&a.CreatedAt, &a.UpdatedAt)
	id, err := s.insert(ctx, assetsTable, a)
	if err != nil {
		return fleet.Asset{}, err
	}
	a.ID = id
	return a, nil
}

func (s *Store) UpdateAsset(ctx context.Context, a fleet.Asset) (fleet.Asset, error) {
	refresh(&a.UpdatedAt)
	if err := s.update(ctx, assetsTable, a.ID, a); err != nil {
		return fleet.Asset{}, err
	}
	return s.GetAsset(ctx, a.ID)
}

func (s *Store) GetAsset(ctx context.Context, id int64) (fleet.Asset, error) {
	var a fleet.Asset
	err := s.getByID(ctx, &a, "assets", id)
	return a, err
}

func (s *Store) GetAssetByCode(ctx context.Context, code string) (fleet.Asset, error) {
	var a fleet.Asset
	err := s.getBy(ctx, &a, "assets", "asset_code", code)
	return a, err
}

func (s *Store) ListAssets(ctx context.Context, f fleet.Filter) ([]fleet.Asset, error) {
	w := &where{}
	w.eq("asset_type", f.AssetType)
	w.eq("status", f.Status)
	w.id("assigned_corridor_id", f.CorridorID)
	out := []fleet.Asset{}
	err := s.list(ctx, &out, "assets", w, "asset_code, id", f.Offset, f.Limit)
	return out, err
}

func (s *Store) CreateDispatch(ctx context.Context, d fleet.Dispatch) (fleet.Dispatch, error) {
	stamp(&d.CreatedAt, &d.UpdatedAt)
	id, err := s.insert(ctx, dispatchesTable, d)
	if err != nil {
		return fleet.Dispatch{}, err
	}
	d.ID = id
	return d, nil
}

func (s *Store) UpdateDispatch(ctx context.Context, d fleet.Dispatch) (fleet.Dispatch, error) {
	refresh(&d.UpdatedAt)
	if err := s.update(ctx, dispatchesTable, d.ID, d); err != nil {
		return fleet.Dispatch{}, err
	}
	return s.GetDispatch(ctx, d.ID)
}

func (s *Store) GetDispatch(ctx context.Context, id int64) (fleet.Dispatch, error) {
	var d fleet.Dispatch
	err := s.getByID(ctx, &d, "dispatches", id)
	return d, err
}

func (s *Store) ListDispatches(ctx context.Context, f fleet.DispatchFilter) ([]fleet.Dispatch, error) {
	w := &where{}
	w.id("asset_id", f.AssetID)
	w.id("shipment_id", f.ShipmentID)
	w.eq("status", f.Status)
	out := []fleet.Dispatch{}
	err := s.list(ctx, &out, "dispatches", w, "created_at DESC, id DESC", f.Offset, f.Limit)
	return out, err
}

func (s *Store) CreateMaintenance(ctx context.Context, m fleet.Maintenance) (fleet.Maintenance, error) {
	stamp(&m.CreatedAt, &m.UpdatedAt)
	id, err := s.insert(ctx, maintenanceTable, m)
	if err != nil {
		return fleet.Maintenance{}, err
	}
	m.ID = id
	return m, nil
}

func (s *Store) UpdateMaintenance(ctx context.Context, m fleet.Maintenance) (fleet.Maintenance, error) {
	refresh(&m.UpdatedAt)
	if err := s.update(ctx, maintenanceTable, m.ID, m); err != nil {
		return fleet.Maintenance{}, err
	}
	return s.GetMaintenance(ctx, m.ID)
}

func (s *Store) GetMaintenance(ctx context.Context, id int64) (fleet.Maintenance, error) {
	var m fleet.Maintenance
	err := s.getByID(ctx, &m, "maintenance_records", id)
	return m, err
}

func (s *Store) ListMaintenance(ctx context.Context, f fleet.MaintenanceFilter) ([]fleet.Maintenance, error) {
	w := &where{}
	w.id("asset_id", f.AssetID)
	w.id("vessel_id", f.VesselID)
	w.eq("status", f.Status)
	out := []fleet.Maintenance{}
	err := s.list(ctx, &out, "maintenance_records", w, "scheduled_date ASC NULLS LAST, id", f.Offset, f.Limit)
	return out, err
}
