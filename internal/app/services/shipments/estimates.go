package shipments

import (
	"context"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/analytics"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

// RiskRequest carries the signals a caller knows about; the rest is derived
// from the shipment, its documents and its destination port.
type RiskRequest struct {
	ETAVarianceHours     *float64 `json:"eta_variance_hours"`
	PortCongestion       string   `json:"port_congestion_level"`
	DocumentsCompletePct *float64 `json:"documents_complete_pct"`
	BerthAvailable       *bool    `json:"berth_available"`
	WeatherSeverity      string   `json:"weather_severity"`
	CounterpartyDelayPct float64  `json:"counterparty_delay_history_pct"`
}

// RiskResult is the scored risk and the updated shipment.
type RiskResult struct {
	Shipment shipment.Shipment       `json:"shipment"`
	Risk     analytics.DemurrageRisk `json:"risk"`
}

// ScoreRisk computes the demurrage risk of a shipment and stores score,
// exposure and expected delay on it. Shipments reaching the at-risk threshold
// are published.
func (s *Service) ScoreRisk(ctx context.Context, actor user.User, shipmentID int64, req RiskRequest) (RiskResult, error) {
	sh, err := s.Get(ctx, shipmentID)
	if err != nil {
		return RiskResult{}, err
	}

	in := analytics.DemurrageInput{
		ETAVarianceHours:     req.ETAVarianceHours,
		PortCongestion:       req.PortCongestion,
		DocumentsCompletePct: req.DocumentsCompletePct,
		BerthAvailable:       req.BerthAvailable,
		WeatherSeverity:      req.WeatherSeverity,
		CounterpartyDelayPct: req.CounterpartyDelayPct,
		LaycanEnd:            sh.LaycanEnd,
		ETADestination:       sh.ETADestination,
		DemurrageRateUSD:     sh.DemurrageRateUSD,
	}
	if in.DocumentsCompletePct == nil {
		if pct, ok := s.documentReadiness(ctx, sh.ID); ok {
			in.DocumentsCompletePct = &pct
		}
	}
	if in.PortCongestion == "" {
		in.PortCongestion = s.destinationCongestion(ctx, sh)
	}

	risk := analytics.ScoreDemurrage(in)
	sh.DemurrageRiskScore = risk.RiskScore
	sh.DemurrageExposureUSD = risk.ExposureUSD
	sh.DemurrageDays = risk.ExpectedDelayDays
	sh.UpdatedAt = s.now()
	saved, err := s.store.UpdateShipment(ctx, sh)
	if err != nil {
		return RiskResult{}, service.Translate(err, "Shipment")
	}

	s.log.WithField("shipment_ref", saved.ShipmentRef).
		WithField("risk_score", risk.RiskScore).
		Infof("demurrage risk scored by %s", actor.Username)
	if risk.RiskScore >= DefaultAtRiskThreshold {
		if err := s.bus.Publish(ctx, eventbus.ShipmentRisk, RiskResult{Shipment: saved, Risk: risk}); err != nil {
			s.log.WithError(err).Warn("publish shipment risk failed")
		}
	}
	return RiskResult{Shipment: saved, Risk: risk}, nil
}

// documentReadiness is the share of non-rejected documents that are verified.
func (s *Service) documentReadiness(ctx context.Context, shipmentID int64) (float64, bool) {
	docs, err := s.store.ListDocuments(ctx, shipmentID)
	if err != nil || len(docs) == 0 {
		return 0, false
	}
	verified := 0
	for _, d := range docs {
		if d.Status == "verified" {
			verified++
		}
	}
	return analytics.Round(float64(verified)/float64(len(docs))*100, 1), true
}

// destinationCongestion maps the destination port state to a congestion
// level.
func (s *Service) destinationCongestion(ctx context.Context, sh shipment.Shipment) string {
	if s.ports == nil || sh.DestinationPortID == nil {
		return ""
	}
	p, err := s.ports.GetPort(ctx, *sh.DestinationPortID)
	if err != nil {
		return ""
	}
	switch {
	case p.Status == "congested" || p.AvgWaitDays >= 3:
		return "high"
	case p.Status == "restricted" || p.AvgWaitDays >= 1:
		return "medium"
	default:
		return "low"
	}
}

// ETARequest is the position and conditions used for a prediction.
type ETARequest struct {
	CurrentLat         *float64 `json:"current_lat"`
	CurrentLng         *float64 `json:"current_lng"`
	DestLat            *float64 `json:"dest_lat"`
	DestLng            *float64 `json:"dest_lng"`
	Mode               string   `json:"mode"`
	CurrentSpeed       *float64 `json:"current_speed"`
	PortCongestion     string   `json:"port_congestion"`
	Weather            string   `json:"weather"`
	DocumentStatus     string   `json:"document_status"`
	HistoricalAvgHours *float64 `json:"historical_avg_hours"`
}

// ETAResult is the prediction and the updated shipment.
type ETAResult struct {
	Shipment   shipment.Shipment       `json:"shipment"`
	Prediction analytics.ETAPrediction `json:"prediction"`
}

// PredictETA estimates arrival at the destination and stores it. The
// destination defaults to the destination port coordinates.
func (s *Service) PredictETA(ctx context.Context, actor user.User, shipmentID int64, req ETARequest) (ETAResult, error) {
	sh, err := s.Get(ctx, shipmentID)
	if err != nil {
		return ETAResult{}, err
	}
	destLat, destLng := req.DestLat, req.DestLng
	if (destLat == nil || destLng == nil) && s.ports != nil && sh.DestinationPortID != nil {
		if p, err := s.ports.GetPort(ctx, *sh.DestinationPortID); err == nil {
			destLat, destLng = p.Latitude, p.Longitude
		}
	}
	if (destLat == nil || destLng == nil) && req.HistoricalAvgHours == nil {
		return ETAResult{}, apperrors.BadRequest("destination coordinates are required")
	}

	in := analytics.ETAInput{
		CurrentLat:         req.CurrentLat,
		CurrentLng:         req.CurrentLng,
		Mode:               req.Mode,
		CurrentSpeed:       req.CurrentSpeed,
		PortCongestion:     req.PortCongestion,
		Weather:            req.Weather,
		DocumentStatus:     req.DocumentStatus,
		HistoricalAvgHours: req.HistoricalAvgHours,
	}
	if destLat != nil && destLng != nil {
		in.DestLat, in.DestLng = *destLat, *destLng
	} else {
		in.CurrentLat, in.CurrentLng = nil, nil
	}
	if in.Mode == "" {
		in.Mode = sh.CurrentMode
	}
	if in.PortCongestion == "" {
		in.PortCongestion = s.destinationCongestion(ctx, sh)
	}

	now := s.now()
	pred := analytics.PredictETA(in, now)
	if pred.ETA == nil {
		return ETAResult{Shipment: sh, Prediction: pred}, nil
	}
	eta := pred.ETA.UTC().Truncate(time.Second)
	conf := pred.Confidence
	sh.ETADestination = &eta
	sh.ETAConfidence = &conf
	sh.ETAUpdatedAt = &now
	sh.UpdatedAt = now
	saved, err := s.store.UpdateShipment(ctx, sh)
	if err != nil {
		return ETAResult{}, service.Translate(err, "Shipment")
	}
	s.log.WithField("shipment_ref", saved.ShipmentRef).Infof("eta predicted by %s", actor.Username)
	return ETAResult{Shipment: saved, Prediction: pred}, nil
}
