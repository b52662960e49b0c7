package market

import (
	"context"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/market"
	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/analytics"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

type DemurrageRequest struct {
	ShipmentID          *int64     `json:"shipment_id"`
	VesselID            *int64     `json:"vessel_id"`
	PortID              *int64     `json:"port_id"`
	LaycanStart         *time.Time `json:"laycan_start"`
	LaycanEnd           *time.Time `json:"laycan_end"`
	NORTendered         *time.Time `json:"nor_tendered"`
	LaytimeAllowedHours *float64   `json:"laytime_allowed_hours"`
	DemurrageRateUSD    *float64   `json:"demurrage_rate_usd"`
}

type DemurrageUpdate struct {
	LaytimeStart       *time.Time `json:"laytime_start"`
	LaytimeEnd         *time.Time `json:"laytime_end"`
	LaytimeUsedHours   *float64   `json:"laytime_used_hours"`
	DemurrageStart     *time.Time `json:"demurrage_start"`
	DemurrageEnd       *time.Time `json:"demurrage_end"`
	DemurrageDays      *float64   `json:"demurrage_days"`
	DemurrageRateUSD   *float64   `json:"demurrage_rate_usd"`
	DemurrageAmountUSD *float64   `json:"demurrage_amount_usd"`
	DespatchDays       *float64   `json:"despatch_days"`
	DespatchAmountUSD  *float64   `json:"despatch_amount_usd"`
	Status             *string    `json:"status"`
	Notes              *string    `json:"notes"`
}

func (s *Service) Demurrage(ctx context.Context, f market.DemurrageFilter) ([]market.DemurrageRecord, error) {
	return s.store.ListDemurrage(ctx, f)
}

// OpenDemurrage starts tracking laytime for a shipment call.
func (s *Service) OpenDemurrage(ctx context.Context, actor user.User, req DemurrageRequest) (market.DemurrageRecord, error) {
	if req.ShipmentID == nil {
		return market.DemurrageRecord{}, apperrors.Validation("shipment_id is required")
	}
	if req.DemurrageRateUSD != nil && *req.DemurrageRateUSD < 0 {
		return market.DemurrageRecord{}, apperrors.Validation("demurrage_rate_usd must not be negative")
	}
	now := s.now()
	d := market.DemurrageRecord{
		ShipmentID:          req.ShipmentID,
		VesselID:            req.VesselID,
		PortID:              req.PortID,
		LaytimeAllowedHours: req.LaytimeAllowedHours,
		DemurrageRateUSD:    req.DemurrageRateUSD,
		Status:              "accruing",
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	service.SetTime(&d.LaycanStart, req.LaycanStart)
	service.SetTime(&d.LaycanEnd, req.LaycanEnd)
	service.SetTime(&d.NORTendered, req.NORTendered)
	created, err := s.store.CreateDemurrage(ctx, d)
	if err != nil {
		return market.DemurrageRecord{}, err
	}
	s.log.WithField("shipment_id", *created.ShipmentID).Infof("demurrage record opened by %s", actor.Username)
	return created, nil
}

// UpdateDemurrage applies a partial update. When days and rate are both
// known the amount is recomputed as days × rate, overriding any amount sent.
func (s *Service) UpdateDemurrage(ctx context.Context, actor user.User, id int64, upd DemurrageUpdate) (market.DemurrageRecord, error) {
	d, err := s.store.GetDemurrage(ctx, id)
	if err != nil {
		return market.DemurrageRecord{}, service.Translate(err, "Demurrage record")
	}
	if upd.Status != nil && !market.ValidDemurrageStatus(*upd.Status) {
		return market.DemurrageRecord{}, apperrors.Validation("invalid demurrage status")
	}
	service.SetTime(&d.LaytimeStart, upd.LaytimeStart)
	service.SetTime(&d.LaytimeEnd, upd.LaytimeEnd)
	service.SetPtr(&d.LaytimeUsedHours, upd.LaytimeUsedHours)
	service.SetTime(&d.DemurrageStart, upd.DemurrageStart)
	service.SetTime(&d.DemurrageEnd, upd.DemurrageEnd)
	service.SetPtr(&d.DemurrageDays, upd.DemurrageDays)
	service.SetPtr(&d.DemurrageRateUSD, upd.DemurrageRateUSD)
	service.SetPtr(&d.DemurrageAmountUSD, upd.DemurrageAmountUSD)
	service.SetPtr(&d.DespatchDays, upd.DespatchDays)
	service.SetPtr(&d.DespatchAmountUSD, upd.DespatchAmountUSD)
	service.Set(&d.Status, upd.Status)
	service.Set(&d.Notes, upd.Notes)

	if d.DemurrageDays != nil && d.DemurrageRateUSD != nil {
		days, rate := *d.DemurrageDays, *d.DemurrageRateUSD
		if days != 0 && rate != 0 {
			amount := analytics.Round(days*rate, 2)
			d.DemurrageAmountUSD = &amount
		}
	}
	d.UpdatedAt = s.now()
	saved, err := s.store.UpdateDemurrage(ctx, d)
	if err != nil {
		return market.DemurrageRecord{}, service.Translate(err, "Demurrage record")
	}
	s.log.WithField("demurrage_id", saved.ID).WithField("status", saved.Status).
		Infof("demurrage record updated by %s", actor.Username)
	return saved, nil
}

// Exposure totals the demurrage exposure carried by active shipments.
func (s *Service) Exposure(ctx context.Context) (market.Exposure, error) {
	if s.shipments == nil {
		return market.Exposure{}, nil
	}
	active, err := s.shipments.ListShipments(ctx, shipment.Filter{ActiveOnly: true})
	if err != nil {
		return market.Exposure{}, err
	}
	var out market.Exposure
	var exposure, days, risk float64
	for _, sh := range active {
		exposure += sh.DemurrageExposureUSD
		days += sh.DemurrageDays
		risk += sh.DemurrageRiskScore
		if sh.DemurrageRiskScore >= highRiskScore {
			out.HighRiskShipments++
		}
	}
	out.ActiveShipments = len(active)
	out.TotalExposureUSD = analytics.Round(exposure, 2)
	out.TotalDemurrageDays = analytics.Round(days, 1)
	if len(active) > 0 {
		out.AvgRiskScore = analytics.Round(risk/float64(len(active)), 1)
	}
	return out, nil
}
