package memory

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/vessel"
)

func sameIMO(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func (s *Store) CreateVessel(_ context.Context, v vessel.Vessel) (vessel.Vessel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vessels.exists(func(x vessel.Vessel) bool { return sameIMO(x.IMONumber, v.IMONumber) }) {
		return vessel.Vessel{}, conflict("vessel", "imo_number", *v.IMONumber)
	}
	stamp(&v.CreatedAt)
	touch(&v.UpdatedAt)
	s.vessels.insert(&v, &v.ID)
	return v, nil
}

func (s *Store) UpdateVessel(_ context.Context, v vessel.Vessel) (vessel.Vessel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.vessels.get(v.ID)
	if !ok {
		return vessel.Vessel{}, notFound("vessel", v.ID)
	}
	if s.vessels.exists(func(x vessel.Vessel) bool { return x.ID != v.ID && sameIMO(x.IMONumber, v.IMONumber) }) {
		return vessel.Vessel{}, conflict("vessel", "imo_number", *v.IMONumber)
	}
	v.CreatedAt = original.CreatedAt
	refresh(&v.UpdatedAt)
	s.vessels.put(v.ID, v)
	return v, nil
}

func (s *Store) GetVessel(_ context.Context, id int64) (vessel.Vessel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vessels.get(id)
	if !ok {
		return vessel.Vessel{}, notFound("vessel", id)
	}
	return v, nil
}

func (s *Store) GetVesselByIMO(_ context.Context, imo string) (vessel.Vessel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vessels.find(func(x vessel.Vessel) bool { return x.IMONumber != nil && *x.IMONumber == imo })
	if !ok {
		return vessel.Vessel{}, notFoundKey("vessel", imo)
	}
	return v, nil
}

func (s *Store) ListVessels(_ context.Context, f vessel.Filter) ([]vessel.Vessel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.vessels.filter(func(v vessel.Vessel) bool {
		if f.Status != "" && v.Status != f.Status {
			return false
		}
		if f.VesselType != "" && v.VesselType != f.VesselType {
			return false
		}
		return !f.WithPosition || v.HasPosition()
	}, func(a, b vessel.Vessel) bool { return byName(a.Name, b.Name, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) DeleteVessel(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.vessels.remove(id) {
		return notFound("vessel", id)
	}
	return nil
}
