package memory

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/corridor"
)

func (s *Store) CreateCorridor(_ context.Context, c corridor.Corridor) (corridor.Corridor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.corridors.exists(func(x corridor.Corridor) bool { return x.Code == c.Code }) {
		return corridor.Corridor{}, conflict("corridor", "code", c.Code)
	}
	stamp(&c.CreatedAt)
	touch(&c.UpdatedAt)
	s.corridors.insert(&c, &c.ID)
	return c, nil
}

func (s *Store) UpdateCorridor(_ context.Context, c corridor.Corridor) (corridor.Corridor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.corridors.get(c.ID)
	if !ok {
		return corridor.Corridor{}, notFound("corridor", c.ID)
	}
	if s.corridors.exists(func(x corridor.Corridor) bool { return x.ID != c.ID && x.Code == c.Code }) {
		return corridor.Corridor{}, conflict("corridor", "code", c.Code)
	}
	c.CreatedAt = original.CreatedAt
	refresh(&c.UpdatedAt)
	s.corridors.put(c.ID, c)
	return c, nil
}

func (s *Store) GetCorridor(_ context.Context, id int64) (corridor.Corridor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.corridors.get(id)
	if !ok {
		return corridor.Corridor{}, notFound("corridor", id)
	}
	return c, nil
}

func (s *Store) GetCorridorByCode(_ context.Context, code string) (corridor.Corridor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.corridors.find(func(x corridor.Corridor) bool { return x.Code == code })
	if !ok {
		return corridor.Corridor{}, notFoundKey("corridor", code)
	}
	return c, nil
}

func (s *Store) ListCorridors(_ context.Context, f corridor.Filter) ([]corridor.Corridor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.corridors.filter(func(c corridor.Corridor) bool {
		return f.Status == "" || c.Status == f.Status
	}, func(a, b corridor.Corridor) bool { return byName(a.Name, b.Name, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) CreateGeofence(_ context.Context, g corridor.Geofence) (corridor.Geofence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.CorridorID != nil {
		if _, ok := s.corridors.get(*g.CorridorID); !ok {
			return corridor.Geofence{}, notFound("corridor", *g.CorridorID)
		}
	}
	stamp(&g.CreatedAt)
	touch(&g.UpdatedAt)
	s.geofences.insert(&g, &g.ID)
	return g, nil
}

func (s *Store) UpdateGeofence(_ context.Context, g corridor.Geofence) (corridor.Geofence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.geofences.get(g.ID)
	if !ok {
		return corridor.Geofence{}, notFound("geofence", g.ID)
	}
	g.CreatedAt = original.CreatedAt
	refresh(&g.UpdatedAt)
	s.geofences.put(g.ID, g)
	return g, nil
}

func (s *Store) GetGeofence(_ context.Context, id int64) (corridor.Geofence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.geofences.get(id)
	if !ok {
		return corridor.Geofence{}, notFound("geofence", id)
	}
	return g, nil
}

func (s *Store) ListGeofences(_ context.Context, corridorID int64) ([]corridor.Geofence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.geofences.filter(func(g corridor.Geofence) bool { return idMatches(corridorID, g.CorridorID) },
		func(a, b corridor.Geofence) bool { return a.ID < b.ID }), nil
}
