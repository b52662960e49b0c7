package postgres

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/corridor"
)

var (
	corridorsTable = newWriteSet("corridors", corridor.Corridor{})
	geofencesTable = newWriteSet("geofences", corridor.Geofence{})
)

func (s *Store) CreateCorridor(ctx context.Context, c corridor.Corridor) (corridor.Corridor, error) {
	stamp(&c.CreatedAt, &c.UpdatedAt)
	id, err := s.insert(ctx, corridorsTable, c)
	if err != nil {
		return corridor.Corridor{}, err
	}
	c.ID = id
	return c, nil
}

func (s *Store) UpdateCorridor(ctx context.Context, c corridor.Corridor) (corridor.Corridor, error) {
	refresh(&c.UpdatedAt)
	if err := s.update(ctx, corridorsTable, c.ID, c); err != nil {
		return corridor.Corridor{}, err
	}
	return s.GetCorridor(ctx, c.ID)
}

func (s *Store) GetCorridor(ctx context.Context, id int64) (corridor.Corridor, error) {
	var c corridor.Corridor
	err := s.getByID(ctx, &c, "corridors", id)
	return c, err
}

func (s *Store) GetCorridorByCode(ctx context.Context, code string) (corridor.Corridor, error) {
	var c corridor.Corridor
	err := s.getBy(ctx, &c, "corridors", "code", code)
	return c, err
}

func (s *Store) ListCorridors(ctx context.Context, f corridor.Filter) ([]corridor.Corridor, error) {
	w := &where{}
	w.eq("status", f.Status)
	out := []corridor.Corridor{}
	err := s.list(ctx, &out, "corridors", w, "name, id", f.Offset, f.Limit)
	return out, err
}

func (s *Store) CreateGeofence(ctx context.Context, g corridor.Geofence) (corridor.Geofence, error) {
	stamp(&g.CreatedAt, &g.UpdatedAt)
	id, err := s.insert(ctx, geofencesTable, g)
	if err != nil {
		return corridor.Geofence{}, err
	}
	g.ID = id
	return g, nil
}

func (s *Store) UpdateGeofence(ctx context.Context, g corridor.Geofence) (corridor.Geofence, error) {
	refresh(&g.UpdatedAt)
	if err := s.update(ctx, geofencesTable, g.ID, g); err != nil {
		return corridor.Geofence{}, err
	}
	return s.GetGeofence(ctx, g.ID)
}

func (s *Store) GetGeofence(ctx context.Context, id int64) (corridor.Geofence, error) {
	var g corridor.Geofence
	err := s.getByID(ctx, &g, "geofences", id)
	return g, err
}

func (s *Store) ListGeofences(ctx context.Context, corridorID int64) ([]corridor.Geofence, error) {
	w := &where{}
	w.id("corridor_id", corridorID)
	out := []corridor.Geofence{}
	err := s.list(ctx, &out, "geofences", w, "id", 0, 0)
	return out, err
}
