package postgres

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/market"
)

var (
	ratesTable     = newWriteSet("freight_rates", market.FreightRate{})
	indicesTable   = newWriteSet("market_indices", market.Index{})
	demurrageTable = newWriteSet("demurrage_records", market.DemurrageRecord{})
)

func (s *Store) CreateFreightRate(ctx context.Context, r market.FreightRate) (market.FreightRate, error) {
	stamp(&r.CreatedAt, &r.UpdatedAt)
	id, err := s.insert(ctx, ratesTable, r)
	if err != nil {
		return market.FreightRate{}, err
	}
	r.ID = id
	return r, nil
}

func (s *Store) ListFreightRates(ctx context.Context, f market.RateFilter) ([]market.FreightRate, error) {
	w := &where{}
	w.like("lane", f.LaneLike)
	w.eq("mode", f.Mode)
	w.id("corridor_id", f.CorridorID)
	w.eq("rate_type", f.RateType)
	w.since("effective_date", f.Since)
	out := []market.FreightRate{}
	err := s.list(ctx, &out, "freight_rates", w, "effective_date DESC, id DESC", f.Offset, f.Limit)
	return out, err
}

func (s *Store) CreateMarketIndex(ctx context.Context, i market.Index) (market.Index, error) {
	stamp(&i.CreatedAt, nil)
	if i.RecordedAt.IsZero() {
		i.RecordedAt = i.CreatedAt
	}
	id, err := s.insert(ctx, indicesTable, i)
	if err != nil {
		return market.Index{}, err
	}
	i.ID = id
	return i, nil
}

func (s *Store) ListMarketIndices(ctx context.Context, f market.IndexFilter) ([]market.Index, error) {
	w := &where{}
	w.like("index_name", f.NameLike)
	w.eq("index_type", f.IndexType)
	w.since("recorded_at", f.Since)
	out := []market.Index{}
	err := s.list(ctx, &out, "market_indices", w, "recorded_at DESC, id DESC", f.Offset, f.Limit)
	return out, err
}

func (s *Store) CreateDemurrage(ctx context.Context, d market.DemurrageRecord) (market.DemurrageRecord, error) {
	stamp(&d.CreatedAt, &d.UpdatedAt)
	id, err := s.insert(ctx, demurrageTable, d)
	if err != nil {
		return market.DemurrageRecord{}, err
	}
	d.ID = id
	return d, nil
}

func (s *Store) UpdateDemurrage(ctx context.Context, d market.DemurrageRecord) (market.DemurrageRecord, error) {
	refresh(&d.UpdatedAt)
	if err := s.update(ctx, demurrageTable, d.ID, d); err != nil {
		return market.DemurrageRecord{}, err
	}
	return s.GetDemurrage(ctx, d.ID)
}

func (s *Store) GetDemurrage(ctx context.Context, id int64) (market.DemurrageRecord, error) {
	var d market.DemurrageRecord
	err := s.getByID(ctx, &d, "demurrage_records", id)
	return d, err
}

func (s *Store) ListDemurrage(ctx context.Context, f market.DemurrageFilter) ([]market.DemurrageRecord, error) {
	w := &where{}
	w.id("shipment_id", f.ShipmentID)
	w.eq("status", f.Status)
	w.since("created_at", f.Since)
	out := []market.DemurrageRecord{}
	err := s.list(ctx, &out, "demurrage_records", w, "created_at DESC, id DESC", f.Offset, f.Limit)
	return out, err
}
