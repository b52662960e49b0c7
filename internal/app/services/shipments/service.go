// Package shipments tracks multimodal shipments end to end: milestones,
// chain of custody, trade documents, exceptions and the demurrage and ETA
// estimates attached to them.
package shipments

import (
	"context"
	"strings"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/port"
	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// DefaultAtRiskThreshold is the demurrage score from which a shipment is at
// risk.
const DefaultAtRiskThreshold = 50.0

// PortLookup resolves ports referenced by shipments.
type PortLookup interface {
	GetPort(ctx context.Context, id int64) (port.Port, error)
}

// Service manages shipments.
type Service struct {
	store storage.ShipmentStore
	ports PortLookup
	bus   eventbus.Publisher
	log   *logger.Logger
	now   func() time.Time
}

// New constructs the service. ports and bus may be nil.
func New(store storage.ShipmentStore, ports PortLookup, bus eventbus.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("shipments")
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{store: store, ports: ports, bus: bus, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "shipments",
		Domain:       "logistics",
		Layer:        service.LayerCore,
		Capabilities: []string{"shipments", "milestones", "custody", "documents", "exceptions", "demurrage-risk", "eta"},
	}
}

// CreateRequest describes a new shipment.
type CreateRequest struct {
	ShipmentRef       string    `json:"shipment_ref"`
	CorridorID        *int64    `json:"corridor_id"`
	VesselID          *int64    `json:"vessel_id"`
	CargoType         string    `json:"cargo_type"`
	CargoGrade        string    `json:"cargo_grade"`
	VolumeTonnes      *float64  `json:"volume_tonnes"`
	BillOfLading      string    `json:"bill_of_lading"`
	Origin            string    `json:"origin"`
	Destination       string    `json:"destination"`
	OriginPortID      *int64    `json:"origin_port_id"`
	DestinationPortID *int64    `json:"destination_port_id"`
	LaycanStart       time.Time `json:"laycan_start"`
	LaycanEnd         time.Time `json:"laycan_end"`
	DemurrageRateUSD  *float64  `json:"demurrage_rate_usd"`
	Shipper           string    `json:"shipper"`
	Receiver          string    `json:"receiver"`
	FreightForwarder  string    `json:"freight_forwarder"`
	InsuranceRef      string    `json:"insurance_ref"`
}

// Update is a partial shipment update.
type Update struct {
	VesselID             *int64     `json:"vessel_id"`
	Status               *string    `json:"status"`
	CurrentLeg           *string    `json:"current_leg"`
	CurrentMode          *string    `json:"current_mode"`
	ETADestination       *time.Time `json:"eta_destination"`
	ETAConfidence        *float64   `json:"eta_confidence"`
	DemurrageRiskScore   *float64   `json:"demurrage_risk_score"`
	DemurrageExposureUSD *float64   `json:"demurrage_exposure_usd"`
	LoadingStarted       *time.Time `json:"loading_started"`
	LoadingCompleted     *time.Time `json:"loading_completed"`
	DepartedOrigin       *time.Time `json:"departed_origin"`
	ArrivedDestination   *time.Time `json:"arrived_destination"`
	DischargeStarted     *time.Time `json:"discharge_started"`
	DischargeCompleted   *time.Time `json:"discharge_completed"`
	FreightCost          *float64   `json:"freight_cost"`
	InsuranceCost        *float64   `json:"insurance_cost"`
	TotalCost            *float64   `json:"total_cost"`
}

// AtRisk is the compact view returned for shipments above a risk threshold.
type AtRisk struct {
	ID                   int64      `json:"id"`
	ShipmentRef          string     `json:"shipment_ref"`
	CargoType            string     `json:"cargo_type"`
	Origin               string     `json:"origin"`
	Destination          string     `json:"destination"`
	Status               string     `json:"status"`
	DemurrageRiskScore   float64    `json:"demurrage_risk_score"`
	DemurrageExposureUSD float64    `json:"demurrage_exposure_usd"`
	ETADestination       *time.Time `json:"eta_destination"`
	ETAConfidence        *float64   `json:"eta_confidence"`
}

func (s *Service) List(ctx context.Context, f shipment.Filter) ([]shipment.Shipment, error) {
	return s.store.ListShipments(ctx, f)
}

// Active lists shipments that are neither completed nor cancelled, riskiest
// first.
func (s *Service) Active(ctx context.Context) ([]shipment.Shipment, error) {
	return s.store.ListShipments(ctx, shipment.Filter{ActiveOnly: true})
}

// AtRisk lists active shipments scoring at least threshold.
func (s *Service) AtRisk(ctx context.Context, threshold float64) ([]AtRisk, error) {
	list, err := s.store.ListShipments(ctx, shipment.Filter{ActiveOnly: true, MinRiskScore: &threshold})
	if err != nil {
		return nil, err
	}
	out := make([]AtRisk, 0, len(list))
	for _, sh := range list {
		out = append(out, AtRisk{
			ID:                   sh.ID,
			ShipmentRef:          sh.ShipmentRef,
			CargoType:            sh.CargoType,
			Origin:               sh.Origin,
			Destination:          sh.Destination,
			Status:               sh.Status,
			DemurrageRiskScore:   sh.DemurrageRiskScore,
			DemurrageExposureUSD: sh.DemurrageExposureUSD,
			ETADestination:       sh.ETADestination,
			ETAConfidence:        sh.ETAConfidence,
		})
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (shipment.Shipment, error) {
	sh, err := s.store.GetShipment(ctx, id)
	return sh, service.Translate(err, "Shipment")
}

// Detail returns a shipment with its milestones, custody events, documents
// and exceptions.
func (s *Service) Detail(ctx context.Context, id int64) (shipment.Detail, error) {
	sh, err := s.Get(ctx, id)
	if err != nil {
		return shipment.Detail{}, err
	}
	d := shipment.Detail{Shipment: sh}
	if d.Milestones, err = s.store.ListMilestones(ctx, id); err != nil {
		return shipment.Detail{}, err
	}
	if d.CustodyEvents, err = s.store.ListCustodyEvents(ctx, id); err != nil {
		return shipment.Detail{}, err
	}
	if d.Documents, err = s.store.ListDocuments(ctx, id); err != nil {
		return shipment.Detail{}, err
	}
	if d.Exceptions, err = s.store.ListExceptions(ctx, shipment.ExceptionFilter{ShipmentID: id}); err != nil {
		return shipment.Detail{}, err
	}
	return d, nil
}

func (s *Service) Create(ctx context.Context, actor user.User, req CreateRequest) (shipment.Shipment, error) {
	ref := strings.TrimSpace(req.ShipmentRef)
	if ref == "" || len(ref) > 50 {
		return shipment.Shipment{}, apperrors.Validation("shipment_ref must be 1-50 characters")
	}
	if strings.TrimSpace(req.CargoType) == "" || len(req.CargoType) > 100 {
		return shipment.Shipment{}, apperrors.Validation("cargo_type must be 1-100 characters")
	}
	if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
		return shipment.Shipment{}, apperrors.Validation("origin and destination are required")
	}
	if req.LaycanStart.IsZero() || req.LaycanEnd.IsZero() {
		return shipment.Shipment{}, apperrors.Validation("laycan_start and laycan_end are required")
	}
	if !req.LaycanStart.Before(req.LaycanEnd) {
		return shipment.Shipment{}, apperrors.BadRequest("laycan_start must be before laycan_end")
	}

	now := s.now()
	start, end := req.LaycanStart.UTC(), req.LaycanEnd.UTC()
	sh, err := s.store.CreateShipment(ctx, shipment.Shipment{
		ShipmentRef:       ref,
		CorridorID:        req.CorridorID,
		VesselID:          req.VesselID,
		CargoType:         req.CargoType,
		CargoGrade:        req.CargoGrade,
		VolumeTonnes:      req.VolumeTonnes,
		BillOfLading:      req.BillOfLading,
		Origin:            req.Origin,
		Destination:       req.Destination,
		OriginPortID:      req.OriginPortID,
		DestinationPortID: req.DestinationPortID,
		LaycanStart:       &start,
		LaycanEnd:         &end,
		DemurrageRateUSD:  req.DemurrageRateUSD,
		Shipper:           req.Shipper,
		Receiver:          req.Receiver,
		FreightForwarder:  req.FreightForwarder,
		InsuranceRef:      req.InsuranceRef,
		Status:            shipment.StatusPlanned,
		CustodyStatus:     "intact",
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		if apperrors.Is(service.Translate(err, "Shipment"), apperrors.CodeConflict) {
			return shipment.Shipment{}, apperrors.Conflict("Shipment ref already exists")
		}
		return shipment.Shipment{}, err
	}
	s.log.WithField("shipment_ref", sh.ShipmentRef).Infof("shipment created by %s", actor.Username)
	return sh, nil
}

// Update applies a partial update. A new ETA stamps eta_updated_at.
func (s *Service) Update(ctx context.Context, actor user.User, id int64, upd Update) (shipment.Shipment, error) {
	sh, err := s.Get(ctx, id)
	if err != nil {
		return shipment.Shipment{}, err
	}
	if upd.Status != nil {
		if !shipment.ValidStatus(*upd.Status) {
			return shipment.Shipment{}, apperrors.Validation("invalid shipment status")
		}
		sh.Status = *upd.Status
	}
	if upd.ETAConfidence != nil && (*upd.ETAConfidence < 0 || *upd.ETAConfidence > 1) {
		return shipment.Shipment{}, apperrors.Validation("eta_confidence must be between 0 and 1")
	}
	if upd.DemurrageRiskScore != nil && (*upd.DemurrageRiskScore < 0 || *upd.DemurrageRiskScore > 100) {
		return shipment.Shipment{}, apperrors.Validation("demurrage_risk_score must be between 0 and 100")
	}

	setID(&sh.VesselID, upd.VesselID)
	setString(&sh.CurrentLeg, upd.CurrentLeg)
	setString(&sh.CurrentMode, upd.CurrentMode)
	setTime(&sh.ETADestination, upd.ETADestination)
	setFloatPtr(&sh.ETAConfidence, upd.ETAConfidence)
	if upd.DemurrageRiskScore != nil {
		sh.DemurrageRiskScore = *upd.DemurrageRiskScore
	}
	if upd.DemurrageExposureUSD != nil {
		sh.DemurrageExposureUSD = *upd.DemurrageExposureUSD
	}
	setTime(&sh.LoadingStarted, upd.LoadingStarted)
	setTime(&sh.LoadingCompleted, upd.LoadingCompleted)
	setTime(&sh.DepartedOrigin, upd.DepartedOrigin)
	setTime(&sh.ArrivedDestination, upd.ArrivedDestination)
	setTime(&sh.DischargeStarted, upd.DischargeStarted)
	setTime(&sh.DischargeCompleted, upd.DischargeCompleted)
	setFloatPtr(&sh.FreightCost, upd.FreightCost)
	setFloatPtr(&sh.InsuranceCost, upd.InsuranceCost)
	setFloatPtr(&sh.TotalCost, upd.TotalCost)

	now := s.now()
	if upd.ETADestination != nil {
		sh.ETAUpdatedAt = &now
	}
	sh.UpdatedAt = now
	saved, err := s.store.UpdateShipment(ctx, sh)
	if err != nil {
		return shipment.Shipment{}, service.Translate(err, "Shipment")
	}
	s.log.WithField("shipment_ref", saved.ShipmentRef).Infof("shipment updated by %s", actor.Username)
	return saved, nil
}

func setID(dst **int64, v *int64) {
	if v != nil {
		x := *v
		*dst = &x
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setTime(dst **time.Time, v *time.Time) {
	if v != nil {
		t := v.UTC()
		*dst = &t
	}
}

func setFloatPtr(dst **float64, v *float64) {
	if v != nil {
		x := *v
		*dst = &x
	}
}
