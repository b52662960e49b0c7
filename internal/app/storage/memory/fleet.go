package memory

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/fleet"
)

func (s *Store) CreateAsset(_ context.Context, a fleet.Asset) (fleet.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.assets.exists(func(x fleet.Asset) bool { return x.AssetCode == a.AssetCode }) {
		return fleet.Asset{}, conflict("asset", "asset_code", a.AssetCode)
	}
	stamp(&a.CreatedAt)
	touch(&a.UpdatedAt)
	s.assets.insert(&a, &a.ID)
	return a, nil
}

func (s *Store) UpdateAsset(_ context.Context, a fleet.Asset) (fleet.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.assets.get(a.ID)
	if !ok {
		return fleet.Asset{}, notFound("asset", a.ID)
	}
	if s.assets.exists(func(x fleet.Asset) bool { return x.ID != a.ID && x.AssetCode == a.AssetCode }) {
		return fleet.Asset{}, conflict("asset", "asset_code", a.AssetCode)
	}
	a.CreatedAt = original.CreatedAt
	refresh(&a.UpdatedAt)
	s.assets.put(a.ID, a)
	return a, nil
}

func (s *Store) GetAsset(_ context.Context, id int64) (fleet.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets.get(id)
	if !ok {
		return fleet.Asset{}, notFound("asset", id)
	}
	return a, nil
}

func (s *Store) GetAssetByCode(_ context.Context, code string) (fleet.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets.find(func(x fleet.Asset) bool { return x.AssetCode == code })
	if !ok {
		return fleet.Asset{}, notFoundKey("asset", code)
	}
	return a, nil
}

func (s *Store) ListAssets(_ context.Context, f fleet.Filter) ([]fleet.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.assets.filter(func(a fleet.Asset) bool {
		if f.AssetType != "" && a.AssetType != f.AssetType {
			return false
		}
		if f.Status != "" && a.Status != f.Status {
			return false
		}
		return idMatches(f.CorridorID, a.AssignedCorridorID)
	}, func(a, b fleet.Asset) bool { return byName(a.AssetCode, b.AssetCode, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) CreateDispatch(_ context.Context, d fleet.Dispatch) (fleet.Dispatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets.get(d.AssetID); !ok {
		return fleet.Dispatch{}, notFound("asset", d.AssetID)
	}
	stamp(&d.CreatedAt)
	touch(&d.UpdatedAt)
	s.dispatches.insert(&d, &d.ID)
	return d, nil
}

func (s *Store) UpdateDispatch(_ context.Context, d fleet.Dispatch) (fleet.Dispatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.dispatches.get(d.ID)
	if !ok {
		return fleet.Dispatch{}, notFound("dispatch", d.ID)
	}
	d.CreatedAt = original.CreatedAt
	d.AssetID = original.AssetID
	refresh(&d.UpdatedAt)
	s.dispatches.put(d.ID, d)
	return d, nil
}

func (s *Store) GetDispatch(_ context.Context, id int64) (fleet.Dispatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.dispatches.get(id)
	if !ok {
		return fleet.Dispatch{}, notFound("dispatch", id)
	}
	return d, nil
}

func (s *Store) ListDispatches(_ context.Context, f fleet.DispatchFilter) ([]fleet.Dispatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.dispatches.filter(func(d fleet.Dispatch) bool {
		if f.AssetID != 0 && d.AssetID != f.AssetID {
			return false
		}
		if !idMatches(f.ShipmentID, d.ShipmentID) {
			return false
		}
		return f.Status == "" || d.Status == f.Status
	}, func(a, b fleet.Dispatch) bool { return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) CreateMaintenance(_ context.Context, m fleet.Maintenance) (fleet.Maintenance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(&m.CreatedAt)
	touch(&m.UpdatedAt)
	s.maintenance.insert(&m, &m.ID)
	return m, nil
}

func (s *Store) UpdateMaintenance(_ context.Context, m fleet.Maintenance) (fleet.Maintenance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.maintenance.get(m.ID)
	if !ok {
		return fleet.Maintenance{}, notFound("maintenance", m.ID)
	}
	m.CreatedAt = original.CreatedAt
	refresh(&m.UpdatedAt)
	s.maintenance.put(m.ID, m)
	return m, nil
}

func (s *Store) GetMaintenance(_ context.Context, id int64) (fleet.Maintenance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.maintenance.get(id)
	if !ok {
		return fleet.Maintenance{}, notFound("maintenance", id)
	}
	return m, nil
}

// ListMaintenance orders jobs by scheduled date, unscheduled jobs last.
func (s *Store) ListMaintenance(_ context.Context, f fleet.MaintenanceFilter) ([]fleet.Maintenance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.maintenance.filter(func(m fleet.Maintenance) bool {
		if !idMatches(f.AssetID, m.AssetID) || !idMatches(f.VesselID, m.VesselID) {
			return false
		}
		return f.Status == "" || m.Status == f.Status
	}, func(a, b fleet.Maintenance) bool { return nilLast(a.ScheduledDate, b.ScheduledDate, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}
