package memory

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/market"
)

func (s *Store) CreateFreightRate(_ context.Context, r market.FreightRate) (market.FreightRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(&r.CreatedAt)
	touch(&r.UpdatedAt)
	s.rates.insert(&r, &r.ID)
	return r, nil
}

// ListFreightRates orders rates by effective date, newest first.
func (s *Store) ListFreightRates(_ context.Context, f market.RateFilter) ([]market.FreightRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.rates.filter(func(r market.FreightRate) bool {
		if f.LaneLike != "" && !containsFold(r.Lane, f.LaneLike) {
			return false
		}
		if f.Mode != "" && r.Mode != f.Mode {
			return false
		}
		if !idMatches(f.CorridorID, r.CorridorID) {
			return false
		}
		if f.RateType != "" && r.RateType != f.RateType {
			return false
		}
		return timeInRange(r.EffectiveDate, f.Since, nil)
	}, func(a, b market.FreightRate) bool { return newerFirst(a.EffectiveDate, b.EffectiveDate, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) CreateMarketIndex(_ context.Context, i market.Index) (market.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(&i.CreatedAt)
	if i.RecordedAt.IsZero() {
		i.RecordedAt = i.CreatedAt
	}
	s.indices.insert(&i, &i.ID)
	return i, nil
}

// ListMarketIndices orders observations by recorded time, newest first.
func (s *Store) ListMarketIndices(_ context.Context, f market.IndexFilter) ([]market.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.indices.filter(func(i market.Index) bool {
		if f.NameLike != "" && !containsFold(i.IndexName, f.NameLike) {
			return false
		}
		if f.IndexType != "" && i.IndexType != f.IndexType {
			return false
		}
		return timeInRange(i.RecordedAt, f.Since, nil)
	}, func(a, b market.Index) bool { return newerFirst(a.RecordedAt, b.RecordedAt, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) CreateDemurrage(_ context.Context, d market.DemurrageRecord) (market.DemurrageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(&d.CreatedAt)
	touch(&d.UpdatedAt)
	s.demurrage.insert(&d, &d.ID)
	return d, nil
}

func (s *Store) UpdateDemurrage(_ context.Context, d market.DemurrageRecord) (market.DemurrageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.demurrage.get(d.ID)
	if !ok {
		return market.DemurrageRecord{}, notFound("demurrage record", d.ID)
	}
	d.CreatedAt = original.CreatedAt
	refresh(&d.UpdatedAt)
	s.demurrage.put(d.ID, d)
	return d, nil
}

func (s *Store) GetDemurrage(_ context.Context, id int64) (market.DemurrageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.demurrage.get(id)
	if !ok {
		return market.DemurrageRecord{}, notFound("demurrage record", id)
	}
	return d, nil
}

func (s *Store) ListDemurrage(_ context.Context, f market.DemurrageFilter) ([]market.DemurrageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.demurrage.filter(func(d market.DemurrageRecord) bool {
		if !idMatches(f.ShipmentID, d.ShipmentID) {
			return false
		}
		if f.Status != "" && d.Status != f.Status {
			return false
		}
		return timeInRange(d.CreatedAt, f.Since, nil)
	}, func(a, b market.DemurrageRecord) bool { return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
	return paginate(out, f.Offset, f.Limit), nil
}
