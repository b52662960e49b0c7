package postgres

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/vessel"
)

var vesselsTable = newWriteSet("vessels", vessel.Vessel{})

func (s *Store) CreateVessel(ctx context.Context, v vessel.Vessel) (vessel.Vessel, error) {
	stamp(&v.CreatedAt, &v.UpdatedAt)
	id, err := s.insert(ctx, vesselsTable, v)
	if err != nil {
		return vessel.Vessel{}, err
	}
	v.ID = id
	return v, nil
}

func (s *Store) UpdateVessel(ctx context.Context, v vessel.Vessel) (vessel.Vessel, error) {
	refresh(&v.UpdatedAt)
	if err := s.update(ctx, vesselsTable, v.ID, v); err != nil {
		return vessel.Vessel{}, err
	}
	return s.GetVessel(ctx, v.ID)
}

func (s *Store) GetVessel(ctx context.Context, id int64) (vessel.Vessel, error) {
	var v vessel.Vessel
	err := s.getByID(ctx, &v, "vessels", id)
	return v, err
}

func (s *Store) GetVesselByIMO(ctx context.Context, imo string) (vessel.Vessel, error) {
	var v vessel.Vessel
	err := s.getBy(ctx, &v, "vessels", "imo_number", imo)
	return v, err
}

func (s *Store) ListVessels(ctx context.Context, f vessel.Filter) ([]vessel.Vessel, error) {
	w := &where{}
	w.eq("status", f.Status)
	w.eq("vessel_type", f.VesselType)
	if f.WithPosition {
		w.raw("current_lat IS NOT NULL AND current_lng IS NOT NULL")
	}
	out := []vessel.Vessel{}
	err := s.list(ctx, &out, "vessels", w, "name, id", f.Offset, f.Limit)
	return out, err
}

func (s *Store) DeleteVessel(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "vessels", id)
}
