// Package market records freight rates, market indices and laytime /
// demurrage claims, and derives benchmarks and exposure from them.
package market

import (
	"context"
	"strings"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/market"
	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/analytics"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

const (
	DefaultBenchmarkDays = 90
	DefaultIndexDays     = 30

	// Shipments scoring at least this are counted as high risk in the
	// exposure summary.
	highRiskScore = 70.0
)

// ShipmentLister provides the active shipments behind the exposure summary.
type ShipmentLister interface {
	ListShipments(ctx context.Context, f shipment.Filter) ([]shipment.Shipment, error)
}

type Service struct {
	store     storage.MarketStore
	shipments ShipmentLister
	log       *logger.Logger
	now       func() time.Time
}

func New(store storage.MarketStore, shipments ShipmentLister, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("market")
	}
	return &Service{store: store, shipments: shipments, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "market",
		Domain:       "commercial",
		Layer:        service.LayerAnalytics,
		Capabilities: []string{"freight-rates", "benchmarks", "indices", "demurrage"},
	}
}

type RateRequest struct {
	CorridorID       *int64     `json:"corridor_id"`
	Lane             string     `json:"lane"`
	Mode             string     `json:"mode"`
	CargoType        string     `json:"cargo_type"`
	RateUSD          float64    `json:"rate_usd"`
	RateUnit         string     `json:"rate_unit"`
	Currency         string     `json:"currency"`
	RateType         string     `json:"rate_type"`
	Source           string     `json:"source"`
	EffectiveDate    time.Time  `json:"effective_date"`
	ExpiryDate       *time.Time `json:"expiry_date"`
	VesselClass      string     `json:"vessel_class"`
	VesselSizeDWTMin *float64   `json:"vessel_size_dwt_min"`
	VesselSizeDWTMax *float64   `json:"vessel_size_dwt_max"`
	FuelSurcharge    *float64   `json:"fuel_surcharge"`
	PortCharges      *float64   `json:"port_charges"`
	TotalCost        *float64   `json:"total_cost"`
}

func (s *Service) Rates(ctx context.Context, f market.RateFilter) ([]market.FreightRate, error) {
	return s.store.ListFreightRates(ctx, f)
}

func (s *Service) AddRate(ctx context.Context, actor user.User, req RateRequest) (market.FreightRate, error) {
	switch {
	case strings.TrimSpace(req.Lane) == "" || len(req.Lane) > 255:
		return market.FreightRate{}, apperrors.Validation("lane must be 1-255 characters")
	case strings.TrimSpace(req.Mode) == "" || len(req.Mode) > 50:
		return market.FreightRate{}, apperrors.Validation("mode must be 1-50 characters")
	case req.RateUSD <= 0:
		return market.FreightRate{}, apperrors.Validation("rate_usd must be greater than 0")
	case strings.TrimSpace(req.RateUnit) == "":
		return market.FreightRate{}, apperrors.Validation("rate_unit is required")
	case req.EffectiveDate.IsZero():
		return market.FreightRate{}, apperrors.Validation("effective_date is required")
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	now := s.now()
	r := market.FreightRate{
		CorridorID:       req.CorridorID,
		Lane:             req.Lane,
		Mode:             req.Mode,
		CargoType:        req.CargoType,
		RateUSD:          req.RateUSD,
		RateUnit:         req.RateUnit,
		Currency:         currency,
		RateType:         req.RateType,
		Source:           req.Source,
		EffectiveDate:    req.EffectiveDate.UTC(),
		VesselClass:      req.VesselClass,
		VesselSizeDWTMin: req.VesselSizeDWTMin,
		VesselSizeDWTMax: req.VesselSizeDWTMax,
		FuelSurcharge:    req.FuelSurcharge,
		PortCharges:      req.PortCharges,
		TotalCost:        req.TotalCost,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	service.SetTime(&r.ExpiryDate, req.ExpiryDate)
	created, err := s.store.CreateFreightRate(ctx, r)
	if err != nil {
		return market.FreightRate{}, err
	}
	s.log.WithField("lane", created.Lane).WithField("mode", created.Mode).
		Infof("freight rate $%.2f added by %s", created.RateUSD, actor.Username)
	return created, nil
}

// Benchmarks groups the rates effective in the last days by lane and mode.
// Groups keep the order in which their newest rate appears.
func (s *Service) Benchmarks(ctx context.Context, lane, mode string, days int) ([]market.Benchmark, error) {
	if days <= 0 {
		days = DefaultBenchmarkDays
	}
	since := s.now().AddDate(0, 0, -days)
	rates, err := s.store.ListFreightRates(ctx, market.RateFilter{LaneLike: lane, Mode: mode, Since: &since})
	if err != nil {
		return nil, err
	}

	type group struct {
		b   market.Benchmark
		sum float64
	}
	var order []string
	groups := map[string]*group{}
	for _, r := range rates {
		key := r.Lane + "|" + r.Mode
		g, ok := groups[key]
		if !ok {
			g = &group{b: market.Benchmark{Lane: r.Lane, Mode: r.Mode, MinRate: r.RateUSD, MaxRate: r.RateUSD, PeriodDays: days}}
			groups[key] = g
			order = append(order, key)
		}
		g.sum += r.RateUSD
		g.b.SampleCount++
		if r.RateUSD < g.b.MinRate {
			g.b.MinRate = r.RateUSD
		}
		if r.RateUSD > g.b.MaxRate {
			g.b.MaxRate = r.RateUSD
		}
	}
	out := make([]market.Benchmark, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.b.AvgRate = analytics.Round(g.sum/float64(g.b.SampleCount), 2)
		out = append(out, g.b)
	}
	return out, nil
}

type IndexRequest struct {
	IndexName  string    `json:"index_name"`
	IndexType  string    `json:"index_type"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	ChangePct  *float64  `json:"change_pct"`
	ChangeAbs  *float64  `json:"change_abs"`
	Period     string    `json:"period"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Indices lists observations recorded in the last days, newest first.
func (s *Service) Indices(ctx context.Context, name, indexType string, days, offset, limit int) ([]market.Index, error) {
	if days <= 0 {
		days = DefaultIndexDays
	}
	since := s.now().AddDate(0, 0, -days)
	return s.store.ListMarketIndices(ctx, market.IndexFilter{
		NameLike: name, IndexType: indexType, Since: &since, Offset: offset, Limit: limit,
	})
}

// LatestIndices returns the most recent observation of every index.
func (s *Service) LatestIndices(ctx context.Context) ([]market.Index, error) {
	all, err := s.store.ListMarketIndices(ctx, market.IndexFilter{})
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := make([]market.Index, 0)
	for _, i := range all {
		if seen[i.IndexName] {
			continue
		}
		seen[i.IndexName] = true
		out = append(out, i)
	}
	return out, nil
}

func (s *Service) RecordIndex(ctx context.Context, actor user.User, req IndexRequest) (market.Index, error) {
	if strings.TrimSpace(req.IndexName) == "" || len(req.IndexName) > 255 {
		return market.Index{}, apperrors.Validation("index_name must be 1-255 characters")
	}
	if req.RecordedAt.IsZero() {
		return market.Index{}, apperrors.Validation("recorded_at is required")
	}
	created, err := s.store.CreateMarketIndex(ctx, market.Index{
		IndexName:  req.IndexName,
		IndexType:  req.IndexType,
		Value:      req.Value,
		Unit:       req.Unit,
		ChangePct:  req.ChangePct,
		ChangeAbs:  req.ChangeAbs,
		Period:     req.Period,
		Source:     req.Source,
		RecordedAt: req.RecordedAt.UTC(),
		CreatedAt:  s.now(),
	})
	if err != nil {
		return market.Index{}, err
	}
	s.log.WithField("index", created.IndexName).Debugf("index recorded by %s", actor.Username)
	return created, nil
}
