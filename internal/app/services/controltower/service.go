// Package controltower assembles the read-only operational picture: the
// overview dashboard, geo data for the map and period KPIs.
package controltower

import (
	"context"
	"math"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/corridor"
	"github.com/R3E-Network/sira_platform/internal/app/domain/fleet"
	"github.com/R3E-Network/sira_platform/internal/app/domain/market"
	"github.com/R3E-Network/sira_platform/internal/app/domain/port"
	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
	"github.com/R3E-Network/sira_platform/internal/app/domain/vessel"
	"github.com/R3E-Network/sira_platform/internal/app/services/analytics"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

const (
	DefaultKPIDays = 30

	highRiskScore = 70.0
	recentWindow  = 7 * 24 * time.Hour
	recentLimit   = 10
	// A predicted ETA within this many hours of the actual arrival counts
	// as accurate.
	etaAccuracyHours = 8.0
)

// Sources are the stores the control tower reads from.
type Sources struct {
	Shipments storage.ShipmentStore
	Vessels   storage.VesselStore
	Fleet     storage.FleetStore
	Ports     storage.PortStore
	Corridors storage.CorridorStore
	Market    storage.MarketStore
}

type Service struct {
	src Sources
	log *logger.Logger
	now func() time.Time
}

func New(src Sources, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("control-tower")
	}
	return &Service{src: src, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "control-tower",
		Domain:       "logistics",
		Layer:        service.LayerAnalytics,
		Capabilities: []string{"overview", "map", "kpis"},
	}
}

type ShipmentStats struct {
	Active                    int            `json:"active"`
	HighRisk                  int            `json:"high_risk"`
	TotalDemurrageExposureUSD float64        `json:"total_demurrage_exposure_usd"`
	ByStatus                  map[string]int `json:"by_status"`
	ByMode                    map[string]int `json:"by_mode"`
}

type VesselStats struct {
	Active int `json:"active"`
	Idle   int `json:"idle"`
	Total  int `json:"total"`
}

type FleetStats struct {
	Total       int `json:"total"`
	InTransit   int `json:"in_transit"`
	Available   int `json:"available"`
	Maintenance int `json:"maintenance"`
}

type PortStats struct {
	Total       int `json:"total"`
	Congested   int `json:"congested"`
	Operational int `json:"operational"`
}

type CorridorStats struct {
	Active int `json:"active"`
}

type ExceptionStats struct {
	Open     int                  `json:"open"`
	Critical int                  `json:"critical"`
	Recent   []shipment.Exception `json:"recent"`
}

// Overview is the main dashboard payload.
type Overview struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Shipments   ShipmentStats  `json:"shipments"`
	Vessels     VesselStats    `json:"vessels"`
	Fleet       FleetStats     `json:"fleet"`
	Ports       PortStats      `json:"ports"`
	Corridors   CorridorStats  `json:"corridors"`
	Exceptions  ExceptionStats `json:"exceptions"`
}

func (s *Service) Overview(ctx context.Context) (Overview, error) {
	now := s.now()
	out := Overview{GeneratedAt: now}

	all, err := s.src.Shipments.ListShipments(ctx, shipment.Filter{})
	if err != nil {
		return Overview{}, err
	}
	out.Shipments.ByStatus = map[string]int{}
	out.Shipments.ByMode = map[string]int{}
	exposure := 0.0
	for _, sh := range all {
		out.Shipments.ByStatus[sh.Status]++
		if !sh.Active() {
			continue
		}
		out.Shipments.Active++
		if sh.DemurrageRiskScore >= highRiskScore {
			out.Shipments.HighRisk++
		}
		exposure += sh.DemurrageExposureUSD
		mode := sh.CurrentMode
		if mode == "" {
			mode = "unassigned"
		}
		out.Shipments.ByMode[mode]++
	}
	out.Shipments.TotalDemurrageExposureUSD = analytics.Round(exposure, 2)

	vessels, err := s.src.Vessels.ListVessels(ctx, vessel.Filter{})
	if err != nil {
		return Overview{}, err
	}
	for _, v := range vessels {
		switch v.Status {
		case "active":
			out.Vessels.Active++
		case "idle":
			out.Vessels.Idle++
		}
	}
	out.Vessels.Total = out.Vessels.Active + out.Vessels.Idle

	assets, err := s.src.Fleet.ListAssets(ctx, fleet.Filter{})
	if err != nil {
		return Overview{}, err
	}
	out.Fleet.Total = len(assets)
	for _, a := range assets {
		switch a.Status {
		case fleet.AssetInTransit:
			out.Fleet.InTransit++
		case fleet.AssetAvailable:
			out.Fleet.Available++
		case fleet.AssetMaintenance:
			out.Fleet.Maintenance++
		}
	}

	ports, err := s.src.Ports.ListPorts(ctx, port.Filter{})
	if err != nil {
		return Overview{}, err
	}
	for _, p := range ports {
		if p.Status == "closed" {
			continue
		}
		out.Ports.Total++
		if p.Status == "congested" {
			out.Ports.Congested++
		}
	}
	out.Ports.Operational = out.Ports.Total - out.Ports.Congested

	corridors, err := s.src.Corridors.ListCorridors(ctx, corridor.Filter{Status: "active"})
	if err != nil {
		return Overview{}, err
	}
	out.Corridors.Active = len(corridors)

	open, err := s.src.Shipments.ListExceptions(ctx, shipment.ExceptionFilter{Statuses: []string{"open", "acknowledged"}})
	if err != nil {
		return Overview{}, err
	}
	out.Exceptions.Open = len(open)
	for _, e := range open {
		if e.Severity == "critical" {
			out.Exceptions.Critical++
		}
	}
	since := now.Add(-recentWindow)
	if out.Exceptions.Recent, err = s.src.Shipments.ListExceptions(ctx, shipment.ExceptionFilter{Since: &since, Limit: recentLimit}); err != nil {
		return Overview{}, err
	}
	return out, nil
}

type MapVessel struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	Speed       *float64   `json:"speed"`
	Heading     *float64   `json:"heading"`
	Status      string     `json:"status"`
	Destination string     `json:"destination"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type MapAsset struct {
	ID     int64    `json:"id"`
	Code   string   `json:"code"`
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Lat    float64  `json:"lat"`
	Lng    float64  `json:"lng"`
	Speed  *float64 `json:"speed"`
	Status string   `json:"status"`
}

type MapPort struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Code   string   `json:"code"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Status string   `json:"status"`
	Queue  int      `json:"queue"`
}

type MapCorridor struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Waypoints string `json:"waypoints"`
	Status    string `json:"status"`
}

// MapData is every geo-positioned entity shown on the map.
type MapData struct {
	Vessels   []MapVessel   `json:"vessels"`
	Assets    []MapAsset    `json:"assets"`
	Ports     []MapPort     `json:"ports"`
	Corridors []MapCorridor `json:"corridors"`
}

func (s *Service) MapData(ctx context.Context) (MapData, error) {
	out := MapData{Vessels: []MapVessel{}, Assets: []MapAsset{}, Ports: []MapPort{}, Corridors: []MapCorridor{}}

	vessels, err := s.src.Vessels.ListVessels(ctx, vessel.Filter{WithPosition: true})
	if err != nil {
		return MapData{}, err
	}
	for _, v := range vessels {
		out.Vessels = append(out.Vessels, MapVessel{
			ID: v.ID, Name: v.Name, Type: v.VesselType,
			Lat: *v.CurrentLat, Lng: *v.CurrentLng,
			Speed: v.CurrentSpeed, Heading: v.CurrentHeading,
			Status: v.Status, Destination: v.CurrentDestination, UpdatedAt: v.PositionUpdatedAt,
		})
	}

	assets, err := s.src.Fleet.ListAssets(ctx, fleet.Filter{})
	if err != nil {
		return MapData{}, err
	}
	for _, a := range assets {
		if a.CurrentLat == nil || a.CurrentLng == nil {
			continue
		}
		out.Assets = append(out.Assets, MapAsset{
			ID: a.ID, Code: a.AssetCode, Name: a.Name, Type: a.AssetType,
			Lat: *a.CurrentLat, Lng: *a.CurrentLng, Speed: a.CurrentSpeed, Status: a.Status,
		})
	}

	ports, err := s.src.Ports.ListPorts(ctx, port.Filter{})
	if err != nil {
		return MapData{}, err
	}
	for _, p := range ports {
		out.Ports = append(out.Ports, MapPort{
			ID: p.ID, Name: p.Name, Code: p.Code, Lat: p.Latitude, Lng: p.Longitude,
			Status: p.Status, Queue: p.CurrentQueue,
		})
	}

	corridors, err := s.src.Corridors.ListCorridors(ctx, corridor.Filter{Status: "active"})
	if err != nil {
		return MapData{}, err
	}
	for _, c := range corridors {
		out.Corridors = append(out.Corridors, MapCorridor{
			ID: c.ID, Name: c.Name, Code: c.Code, Waypoints: c.Waypoints, Status: c.Status,
		})
	}
	return out, nil
}

type DemurrageKPI struct {
	TotalCostUSD       float64 `json:"total_cost_usd"`
	TotalDays          float64 `json:"total_days"`
	AvgCostPerShipment float64 `json:"avg_cost_per_shipment"`
}

type FleetKPI struct {
	AvgUtilizationPct float64 `json:"avg_utilization_pct"`
	TotalAssets       int     `json:"total_assets"`
}

type ETAAccuracy struct {
	SampleSize       int     `json:"sample_size"`
	AvgVarianceHours float64 `json:"avg_variance_hours"`
	Within8HoursPct  float64 `json:"within_8_hours_pct"`
}

// KPIs are the operational indicators over a trailing period.
type KPIs struct {
	PeriodDays         int          `json:"period_days"`
	ShipmentsCompleted int          `json:"shipments_completed"`
	Demurrage          DemurrageKPI `json:"demurrage"`
	Fleet              FleetKPI     `json:"fleet"`
	ETAAccuracy        ETAAccuracy  `json:"eta_accuracy"`
}

// KPIs covers shipments completed and demurrage recorded in the last days.
// ETA accuracy compares the last predicted ETA with the actual arrival.
func (s *Service) KPIs(ctx context.Context, days int) (KPIs, error) {
	if days <= 0 {
		days = DefaultKPIDays
	}
	cutoff := s.now().AddDate(0, 0, -days)
	out := KPIs{PeriodDays: days}

	completed, err := s.src.Shipments.ListShipments(ctx, shipment.Filter{Status: shipment.StatusCompleted})
	if err != nil {
		return KPIs{}, err
	}
	var variances []float64
	for _, sh := range completed {
		if sh.UpdatedAt.Before(cutoff) {
			continue
		}
		out.ShipmentsCompleted++
		if sh.ETADestination != nil && sh.ArrivedDestination != nil {
			variances = append(variances, math.Abs(sh.ArrivedDestination.Sub(*sh.ETADestination).Hours()))
		}
	}
	if len(variances) > 0 {
		sum, within := 0.0, 0
		for _, v := range variances {
			sum += v
			if v <= etaAccuracyHours {
				within++
			}
		}
		out.ETAAccuracy = ETAAccuracy{
			SampleSize:       len(variances),
			AvgVarianceHours: analytics.Round(sum/float64(len(variances)), 1),
			Within8HoursPct:  analytics.Round(float64(within)/float64(len(variances))*100, 1),
		}
	}

	records, err := s.src.Market.ListDemurrage(ctx, market.DemurrageFilter{Since: &cutoff})
	if err != nil {
		return KPIs{}, err
	}
	var cost, dDays float64
	for _, r := range records {
		if r.DemurrageAmountUSD != nil {
			cost += *r.DemurrageAmountUSD
		}
		if r.DemurrageDays != nil {
			dDays += *r.DemurrageDays
		}
	}
	out.Demurrage = DemurrageKPI{TotalCostUSD: analytics.Round(cost, 2), TotalDays: analytics.Round(dDays, 1)}
	if len(records) > 0 {
		out.Demurrage.AvgCostPerShipment = analytics.Round(cost/float64(len(records)), 2)
	}

	assets, err := s.src.Fleet.ListAssets(ctx, fleet.Filter{})
	if err != nil {
		return KPIs{}, err
	}
	out.Fleet.TotalAssets = len(assets)
	if len(assets) > 0 {
		util := 0.0
		for _, a := range assets {
			util += a.UtilizationPct
		}
		out.Fleet.AvgUtilizationPct = analytics.Round(util/float64(len(assets)), 1)
	}
	return out, nil
}
