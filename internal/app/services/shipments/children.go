package shipments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/analytics"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

// MilestoneRequest adds a milestone.
type MilestoneRequest struct {
	MilestoneType string     `json:"milestone_type"`
	Description   string     `json:"description"`
	Location      string     `json:"location"`
	Mode          string     `json:"mode"`
	PlannedTime   *time.Time `json:"planned_time"`
	ActualTime    *time.Time `json:"actual_time"`
}

// MilestoneUpdate records progress on a milestone.
type MilestoneUpdate struct {
	ActualTime *time.Time `json:"actual_time"`
	Status     *string    `json:"status"`
}

func (s *Service) ListMilestones(ctx context.Context, shipmentID int64) ([]shipment.Milestone, error) {
	if _, err := s.Get(ctx, shipmentID); err != nil {
		return nil, err
	}
	return s.store.ListMilestones(ctx, shipmentID)
}

func (s *Service) AddMilestone(ctx context.Context, actor user.User, shipmentID int64, req MilestoneRequest) (shipment.Milestone, error) {
	if strings.TrimSpace(req.MilestoneType) == "" {
		return shipment.Milestone{}, apperrors.Validation("milestone_type is required")
	}
	m := shipment.Milestone{
		ShipmentID:    shipmentID,
		MilestoneType: req.MilestoneType,
		Description:   req.Description,
		Location:      req.Location,
		Mode:          req.Mode,
		Status:        "pending",
		CreatedAt:     s.now(),
	}
	setTime(&m.PlannedTime, req.PlannedTime)
	setTime(&m.ActualTime, req.ActualTime)
	m.VarianceHours = varianceHours(m.PlannedTime, m.ActualTime)
	created, err := s.store.CreateMilestone(ctx, m)
	if err != nil {
		return shipment.Milestone{}, service.Translate(err, "Shipment")
	}
	s.log.WithField("shipment_id", shipmentID).Infof("milestone %s added by %s", created.MilestoneType, actor.Username)
	return created, nil
}

// UpdateMilestone records the actual time and status; the variance against
// the plan is recomputed in hours.
func (s *Service) UpdateMilestone(ctx context.Context, actor user.User, id int64, upd MilestoneUpdate) (shipment.Milestone, error) {
	m, err := s.store.GetMilestone(ctx, id)
	if err != nil {
		return shipment.Milestone{}, service.Translate(err, "Milestone")
	}
	if upd.Status != nil {
		if !shipment.ValidMilestoneStatus(*upd.Status) {
			return shipment.Milestone{}, apperrors.Validation("status must be one of pending, completed, skipped, delayed")
		}
		m.Status = *upd.Status
	}
	if upd.ActualTime != nil {
		setTime(&m.ActualTime, upd.ActualTime)
		m.VarianceHours = varianceHours(m.PlannedTime, m.ActualTime)
	}
	saved, err := s.store.UpdateMilestone(ctx, m)
	if err != nil {
		return shipment.Milestone{}, service.Translate(err, "Milestone")
	}
	s.log.WithField("milestone_id", id).Infof("milestone updated by %s", actor.Username)
	return saved, nil
}

func varianceHours(planned, actual *time.Time) *float64 {
	if planned == nil || actual == nil {
		return nil
	}
	v := analytics.Round(actual.Sub(*planned).Hours(), 2)
	return &v
}

// CustodyRequest records a custody event.
type CustodyRequest struct {
	EventType      string     `json:"event_type"`
	Timestamp      *time.Time `json:"timestamp"`
	Location       string     `json:"location"`
	Latitude       *float64   `json:"latitude"`
	Longitude      *float64   `json:"longitude"`
	FromParty      string     `json:"from_party"`
	ToParty        string     `json:"to_party"`
	WitnessedBy    string     `json:"witnessed_by"`
	SealNumber     string     `json:"seal_number"`
	SealStatus     string     `json:"seal_status"`
	MeasuredVolume *float64   `json:"measured_volume"`
	ExpectedVolume *float64   `json:"expected_volume"`
	PhotoRef       string     `json:"photo_ref"`
	DocumentRef    string     `json:"document_ref"`
	Notes          string     `json:"notes"`
}

// ListCustody returns custody events in chronological order.
func (s *Service) ListCustody(ctx context.Context, shipmentID int64) ([]shipment.CustodyEvent, error) {
	if _, err := s.Get(ctx, shipmentID); err != nil {
		return nil, err
	}
	return s.store.ListCustodyEvents(ctx, shipmentID)
}

// RecordCustody stores a custody event with its volume variance and
// tamper-evidence signature.
func (s *Service) RecordCustody(ctx context.Context, actor user.User, shipmentID int64, req CustodyRequest) (shipment.CustodyEvent, error) {
	if strings.TrimSpace(req.EventType) == "" {
		return shipment.CustodyEvent{}, apperrors.Validation("event_type is required")
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) {
		return shipment.CustodyEvent{}, apperrors.Validation("latitude must be between -90 and 90")
	}
	if req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		return shipment.CustodyEvent{}, apperrors.Validation("longitude must be between -180 and 180")
	}
	if _, err := s.Get(ctx, shipmentID); err != nil {
		return shipment.CustodyEvent{}, err
	}

	now := s.now()
	ts := now
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}
	ev := shipment.CustodyEvent{
		ShipmentID:     shipmentID,
		EventType:      req.EventType,
		Timestamp:      ts,
		Location:       req.Location,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		FromParty:      req.FromParty,
		ToParty:        req.ToParty,
		WitnessedBy:    req.WitnessedBy,
		SealNumber:     req.SealNumber,
		SealStatus:     req.SealStatus,
		MeasuredVolume: req.MeasuredVolume,
		ExpectedVolume: req.ExpectedVolume,
		PhotoRef:       req.PhotoRef,
		DocumentRef:    req.DocumentRef,
		Notes:          req.Notes,
		CreatedBy:      &actor.ID,
		CreatedAt:      now,
	}
	ev.VolumeVariancePct = analytics.VolumeVariancePct(ev.MeasuredVolume, ev.ExpectedVolume)
	ev.DigitalSignature = analytics.CustodySignature(ev)

	created, err := s.store.CreateCustodyEvent(ctx, ev)
	if err != nil {
		return shipment.CustodyEvent{}, service.Translate(err, "Shipment")
	}
	s.log.WithField("shipment_id", shipmentID).Infof("custody event recorded by %s", actor.Username)
	return created, nil
}

// DocumentRequest attaches a trade document.
type DocumentRequest struct {
	DocumentType string     `json:"document_type"`
	Title        string     `json:"title"`
	FileRef      string     `json:"file_ref"`
	IssuedBy     string     `json:"issued_by"`
	IssuedAt     *time.Time `json:"issued_at"`
	Notes        string     `json:"notes"`
}

// DocumentUpdate changes a document's review status.
type DocumentUpdate struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// ListDocuments returns documents oldest first.
func (s *Service) ListDocuments(ctx context.Context, shipmentID int64) ([]shipment.Document, error) {
	if _, err := s.Get(ctx, shipmentID); err != nil {
		return nil, err
	}
	return s.store.ListDocuments(ctx, shipmentID)
}

func (s *Service) AddDocument(ctx context.Context, actor user.User, shipmentID int64, req DocumentRequest) (shipment.Document, error) {
	if strings.TrimSpace(req.DocumentType) == "" || strings.TrimSpace(req.Title) == "" {
		return shipment.Document{}, apperrors.Validation("document_type and title are required")
	}
	now := s.now()
	d := shipment.Document{
		ShipmentID:   shipmentID,
		DocumentType: req.DocumentType,
		Title:        req.Title,
		FileRef:      req.FileRef,
		IssuedBy:     req.IssuedBy,
		Notes:        req.Notes,
		Status:       "pending",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.FileRef != "" {
		sum := sha256.Sum256([]byte(req.FileRef))
		d.FileHash = hex.EncodeToString(sum[:])
	}
	setTime(&d.IssuedAt, req.IssuedAt)
	created, err := s.store.CreateDocument(ctx, d)
	if err != nil {
		return shipment.Document{}, service.Translate(err, "Shipment")
	}
	s.log.WithField("shipment_id", shipmentID).Infof("document %s added by %s", created.DocumentType, actor.Username)
	return created, nil
}

// UpdateDocument sets the review status; verifying stamps the reviewer.
func (s *Service) UpdateDocument(ctx context.Context, actor user.User, id int64, upd DocumentUpdate) (shipment.Document, error) {
	d, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return shipment.Document{}, service.Translate(err, "Document")
	}
	if upd.Status != nil {
		if !shipment.ValidDocumentStatus(*upd.Status) {
			return shipment.Document{}, apperrors.Validation("status must be one of pending, verified, rejected, expired")
		}
		d.Status = *upd.Status
		if d.Status == "verified" {
			now := s.now()
			d.VerifiedBy = &actor.ID
			d.VerifiedAt = &now
		}
	}
	setString(&d.Notes, upd.Notes)
	d.UpdatedAt = s.now()
	saved, err := s.store.UpdateDocument(ctx, d)
	if err != nil {
		return shipment.Document{}, service.Translate(err, "Document")
	}
	return saved, nil
}

// ExceptionRequest reports an operational exception.
type ExceptionRequest struct {
	ExceptionType       string   `json:"exception_type"`
	Severity            string   `json:"severity"`
	Description         string   `json:"description"`
	ImpactDescription   string   `json:"impact_description"`
	EstimatedDelayHours *float64 `json:"estimated_delay_hours"`
	EstimatedCostUSD    *float64 `json:"estimated_cost_usd"`
}

// ExceptionUpdate moves an exception through its lifecycle.
type ExceptionUpdate struct {
	Status     *string `json:"status"`
	Resolution *string `json:"resolution"`
}

// ListExceptions returns exceptions newest first.
func (s *Service) ListExceptions(ctx context.Context, shipmentID int64) ([]shipment.Exception, error) {
	if _, err := s.Get(ctx, shipmentID); err != nil {
		return nil, err
	}
	return s.store.ListExceptions(ctx, shipment.ExceptionFilter{ShipmentID: shipmentID})
}

// OpenExceptions lists unresolved exceptions across all shipments.
func (s *Service) OpenExceptions(ctx context.Context, limit int) ([]shipment.Exception, error) {
	return s.store.ListExceptions(ctx, shipment.ExceptionFilter{Statuses: []string{"open", "acknowledged", "mitigating"}, Limit: limit})
}

func (s *Service) ReportException(ctx context.Context, actor user.User, shipmentID int64, req ExceptionRequest) (shipment.Exception, error) {
	if strings.TrimSpace(req.ExceptionType) == "" {
		return shipment.Exception{}, apperrors.Validation("exception_type is required")
	}
	if !shipment.ValidExceptionSeverity(req.Severity) {
		return shipment.Exception{}, apperrors.Validation("severity must be one of critical, high, medium, low")
	}
	now := s.now()
	created, err := s.store.CreateException(ctx, shipment.Exception{
		ShipmentID:          shipmentID,
		ExceptionType:       req.ExceptionType,
		Severity:            req.Severity,
		Description:         req.Description,
		ImpactDescription:   req.ImpactDescription,
		EstimatedDelayHours: req.EstimatedDelayHours,
		EstimatedCostUSD:    req.EstimatedCostUSD,
		Status:              "open",
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		return shipment.Exception{}, service.Translate(err, "Shipment")
	}
	s.log.WithField("shipment_id", shipmentID).Infof("exception reported: %s by %s", req.ExceptionType, actor.Username)
	return created, nil
}

// UpdateException changes status and resolution; resolving stamps the
// resolver.
func (s *Service) UpdateException(ctx context.Context, actor user.User, id int64, upd ExceptionUpdate) (shipment.Exception, error) {
	e, err := s.store.GetException(ctx, id)
	if err != nil {
		return shipment.Exception{}, service.Translate(err, "Exception")
	}
	if upd.Status != nil {
		if !shipment.ValidExceptionStatus(*upd.Status) {
			return shipment.Exception{}, apperrors.Validation("status must be one of open, acknowledged, mitigating, resolved")
		}
		e.Status = *upd.Status
		if e.Status == "resolved" {
			now := s.now()
			e.ResolvedAt = &now
			e.ResolvedBy = &actor.ID
		}
	}
	setString(&e.Resolution, upd.Resolution)
	e.UpdatedAt = s.now()
	saved, err := s.store.UpdateException(ctx, e)
	if err != nil {
		return shipment.Exception{}, service.Translate(err, "Exception")
	}
	return saved, nil
}
