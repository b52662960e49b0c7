// Package cases manages incident investigations, their evidence and the
// compliance packs exported from them.
package cases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/casefile"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/pdfreport"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// Notifier tells security staff about case changes.
type Notifier interface {
	NotifyCase(ctx context.Context, c casefile.Case, updateType string, targets []int64) error
}

// Service manages cases and evidence.
type Service struct {
	store  storage.CaseStore
	alerts storage.AlertStore
	files  *FileStore
	notify Notifier
	bus    eventbus.Publisher
	log    *logger.Logger
	now    func() time.Time
}

// New constructs the cases service. files, notify and bus may be nil; without
// files, uploads are rejected.
func New(store storage.CaseStore, alerts storage.AlertStore, files *FileStore, notify Notifier, bus eventbus.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("cases")
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{
		store:  store,
		alerts: alerts,
		files:  files,
		notify: notify,
		bus:    bus,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() service.Descriptor {
	d := service.Descriptor{Name: "cases", Domain: "cases", Layer: service.LayerCore, Capabilities: []string{"cases", "evidence", "export-json", "export-pdf"}}
	if s.files != nil {
		d = d.WithCapabilities("uploads")
	}
	return d
}

// CreateRequest opens a case.
type CreateRequest struct {
	Title    string  `json:"title"`
	Overview string  `json:"overview"`
	Priority string  `json:"priority"`
	Category string  `json:"category"`
	AlertIDs []int64 `json:"alert_ids"`
}

// Update is a partial case update.
type Update struct {
	Title      *string  `json:"title"`
	Overview   *string  `json:"overview"`
	Priority   *string  `json:"priority"`
	Category   *string  `json:"category"`
	Status     *string  `json:"status"`
	AssignedTo *int64   `json:"assigned_to"`
	Costs      *float64 `json:"costs"`
	Parties    *string  `json:"parties"`
	Timeline   *string  `json:"timeline"`
	Actions    *string  `json:"actions"`
}

// CloseRequest closes a case.
type CloseRequest struct {
	ClosureCode       string   `json:"closure_code"`
	ResolutionSummary string   `json:"resolution_summary"`
	FinalCosts        *float64 `json:"final_costs"`
}

func (s *Service) List(ctx context.Context, f casefile.Filter) ([]casefile.Case, error) {
	return s.store.ListCases(ctx, f)
}

func (s *Service) Get(ctx context.Context, id int64) (casefile.Case, error) {
	c, err := s.store.GetCase(ctx, id)
	return c, service.Translate(err, "Case")
}

// Stats aggregates case counts by status and priority.
func (s *Service) Stats(ctx context.Context) (casefile.Stats, error) {
	st, err := s.store.CaseStats(ctx)
	if err != nil {
		return casefile.Stats{}, err
	}
	if st.ByPriority == nil {
		st.ByPriority = map[string]int{}
	}
	for _, p := range []string{casefile.PriorityCritical, casefile.PriorityHigh, casefile.PriorityMedium, casefile.PriorityLow} {
		if _, ok := st.ByPriority[p]; !ok {
			st.ByPriority[p] = 0
		}
	}
	return st, nil
}

// NextCaseNumber returns CASE-{year}-{n} where n follows the number of cases
// already opened this year.
func (s *Service) NextCaseNumber(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("CASE-%d-", s.now().Year())
	n, err := s.store.CountCasesWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, n+1), nil
}

// Create opens a case and links the listed alerts. Unknown alert ids are
// skipped.
func (s *Service) Create(ctx context.Context, actor user.User, req CreateRequest) (casefile.Case, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || len(title) > 255 {
		return casefile.Case{}, apperrors.Validation("title must be 1-255 characters")
	}
	if req.Priority == "" {
		req.Priority = casefile.PriorityMedium
	}
	if !casefile.ValidPriority(req.Priority) {
		return casefile.Case{}, apperrors.Validation("priority must be one of low, medium, high, critical")
	}
	if len(req.Category) > 100 {
		return casefile.Case{}, apperrors.Validation("category is limited to 100 characters")
	}

	number, err := s.NextCaseNumber(ctx)
	if err != nil {
		return casefile.Case{}, err
	}
	now := s.now()
	c, err := s.store.CreateCase(ctx, casefile.Case{
		CaseNumber: number,
		Title:      title,
		Overview:   req.Overview,
		Priority:   req.Priority,
		Category:   req.Category,
		Status:     casefile.StatusOpen,
		CreatedBy:  &actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return casefile.Case{}, service.Translate(err, "Case")
	}

	for _, id := range req.AlertIDs {
		a, err := s.alerts.GetAlert(ctx, id)
		if err != nil {
			continue
		}
		a.CaseID = &c.ID
		if _, err := s.alerts.UpdateAlert(ctx, a); err != nil {
			s.log.WithError(err).WithField("alert_id", id).Warn("link alert failed")
		}
	}

	s.log.WithField("case_number", c.CaseNumber).Infof("case created by %s", actor.Username)
	s.announce(ctx, c, "created", eventbus.CaseCreated)
	return c, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, actor user.User, id int64, upd Update) (casefile.Case, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return casefile.Case{}, err
	}
	if upd.Title != nil {
		t := strings.TrimSpace(*upd.Title)
		if t == "" || len(t) > 255 {
			return casefile.Case{}, apperrors.Validation("title must be 1-255 characters")
		}
		c.Title = t
	}
	if upd.Overview != nil {
		c.Overview = *upd.Overview
	}
	if upd.Priority != nil {
		if !casefile.ValidPriority(*upd.Priority) {
			return casefile.Case{}, apperrors.Validation("priority must be one of low, medium, high, critical")
		}
		c.Priority = *upd.Priority
	}
	if upd.Category != nil {
		c.Category = *upd.Category
	}
	if upd.Status != nil {
		if !casefile.ValidStatus(*upd.Status) {
			return casefile.Case{}, apperrors.Validation("status must be one of open, investigating, pending, closed")
		}
		c.Status = *upd.Status
	}
	if upd.AssignedTo != nil {
		c.AssignedTo = upd.AssignedTo
	}
	if upd.Costs != nil {
		if *upd.Costs < 0 {
			return casefile.Case{}, apperrors.Validation("costs must not be negative")
		}
		c.Costs = *upd.Costs
	}
	if upd.Parties != nil {
		c.Parties = *upd.Parties
	}
	if upd.Timeline != nil {
		c.Timeline = *upd.Timeline
	}
	if upd.Actions != nil {
		c.Actions = *upd.Actions
	}
	c.UpdatedAt = s.now()
	saved, err := s.store.UpdateCase(ctx, c)
	if err != nil {
		return casefile.Case{}, service.Translate(err, "Case")
	}
	s.log.WithField("case_number", c.CaseNumber).Infof("case updated by %s", actor.Username)
	s.announce(ctx, saved, "updated", "")
	return saved, nil
}

// Close marks the case closed with a closure code.
func (s *Service) Close(ctx context.Context, actor user.User, id int64, req CloseRequest) (casefile.Case, error) {
	code := strings.TrimSpace(req.ClosureCode)
	if code == "" || len(code) > 100 {
		return casefile.Case{}, apperrors.Validation("closure_code must be 1-100 characters")
	}
	if req.FinalCosts != nil && *req.FinalCosts < 0 {
		return casefile.Case{}, apperrors.Validation("final_costs must not be negative")
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return casefile.Case{}, err
	}
	now := s.now()
	c.Status = casefile.StatusClosed
	c.ClosureCode = code
	c.ClosedAt = &now
	c.UpdatedAt = now
	if req.FinalCosts != nil {
		c.Costs = *req.FinalCosts
	}
	if req.ResolutionSummary != "" {
		c.Actions = strings.TrimSpace(c.Actions + "\n[Resolution]: " + req.ResolutionSummary)
	}
	saved, err := s.store.UpdateCase(ctx, c)
	if err != nil {
		return casefile.Case{}, service.Translate(err, "Case")
	}
	s.log.WithField("case_number", c.CaseNumber).Infof("case closed by %s", actor.Username)
	s.announce(ctx, saved, "closed", eventbus.CaseClosed)
	return saved, nil
}

func (s *Service) announce(ctx context.Context, c casefile.Case, action, routingKey string) {
	if s.notify != nil {
		if err := s.notify.NotifyCase(ctx, c, action, nil); err != nil {
			s.log.WithError(err).WithField("case_id", c.ID).Warn("case notification failed")
		}
	}
	if routingKey == "" {
		return
	}
	if err := s.bus.Publish(ctx, routingKey, c); err != nil {
		s.log.WithError(err).WithField("routing_key", routingKey).Warn("publish failed")
	}
}

// ExportAlert is the alert line of a compliance pack.
type ExportAlert struct {
	ID          int64     `json:"id"`
	Severity    string    `json:"severity"`
	Domain      string    `json:"domain"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExportEvidence is the evidence line of a compliance pack.
type ExportEvidence struct {
	ID                 int64     `json:"id"`
	EvidenceType       string    `json:"evidence_type"`
	OriginalFilename   string    `json:"original_filename"`
	VerificationStatus string    `json:"verification_status"`
	FileHash           string    `json:"file_hash"`
	CreatedAt          time.Time `json:"created_at"`
}

// ExportCase is the case header of a compliance pack.
type ExportCase struct {
	ID         int64      `json:"id"`
	CaseNumber string     `json:"case_number"`
	Title      string     `json:"title"`
	Overview   string     `json:"overview"`
	Status     string     `json:"status"`
	Priority   string     `json:"priority"`
	Costs      float64    `json:"costs"`
	CreatedAt  time.Time  `json:"created_at"`
	ClosedAt   *time.Time `json:"closed_at"`
}

// CompliancePack is the JSON export of a case.
type CompliancePack struct {
	Case            ExportCase       `json:"case"`
	Alerts          []ExportAlert    `json:"alerts"`
	AlertsCount     int              `json:"alerts_count"`
	Evidences       []ExportEvidence `json:"evidences"`
	EvidencesCount  int              `json:"evidences_count"`
	ExportTimestamp time.Time        `json:"export_timestamp"`
	Format          string           `json:"format"`
}

type exportSource struct {
	c        casefile.Case
	alerts   []alert.Alert
	evidence []casefile.Evidence
}

func (s *Service) exportSource(ctx context.Context, id int64) (exportSource, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return exportSource{}, err
	}
	alerts, err := s.alerts.ListAlerts(ctx, alert.Filter{CaseID: id})
	if err != nil {
		return exportSource{}, err
	}
	evidence, err := s.store.ListEvidence(ctx, id)
	if err != nil {
		return exportSource{}, err
	}
	return exportSource{c: c, alerts: alerts, evidence: evidence}, nil
}

// Export builds the JSON compliance pack of a case.
func (s *Service) Export(ctx context.Context, actor user.User, id int64) (CompliancePack, error) {
	src, err := s.exportSource(ctx, id)
	if err != nil {
		return CompliancePack{}, err
	}
	pack := CompliancePack{
		Case: ExportCase{
			ID: src.c.ID, CaseNumber: src.c.CaseNumber, Title: src.c.Title, Overview: src.c.Overview,
			Status: src.c.Status, Priority: src.c.Priority, Costs: src.c.Costs,
			CreatedAt: src.c.CreatedAt, ClosedAt: src.c.ClosedAt,
		},
		Alerts:          make([]ExportAlert, 0, len(src.alerts)),
		Evidences:       make([]ExportEvidence, 0, len(src.evidence)),
		ExportTimestamp: s.now(),
		Format:          "JSON",
	}
	for _, a := range src.alerts {
		pack.Alerts = append(pack.Alerts, ExportAlert{ID: a.ID, Severity: a.Severity, Domain: a.Domain, Description: a.Description, Status: a.Status, CreatedAt: a.CreatedAt})
	}
	for _, e := range src.evidence {
		pack.Evidences = append(pack.Evidences, ExportEvidence{ID: e.ID, EvidenceType: e.EvidenceType, OriginalFilename: e.OriginalFilename, VerificationStatus: e.VerificationStatus, FileHash: e.FileHash, CreatedAt: e.CreatedAt})
	}
	pack.AlertsCount = len(pack.Alerts)
	pack.EvidencesCount = len(pack.Evidences)
	s.log.WithField("case_number", src.c.CaseNumber).Infof("case exported by %s", actor.Username)
	return pack, nil
}

// ExportPDF renders the compliance report of a case. It returns the PDF and
// its download file name.
func (s *Service) ExportPDF(ctx context.Context, actor user.User, id int64) ([]byte, string, error) {
	src, err := s.exportSource(ctx, id)
	if err != nil {
		return nil, "", err
	}
	out, err := pdfreport.RenderCase(pdfreport.CaseReport{Case: src.c, Alerts: src.alerts, Evidence: src.evidence, GeneratedAt: s.now()})
	if err != nil {
		return nil, "", apperrors.Internal("failed to render report", err)
	}
	s.log.WithField("case_number", src.c.CaseNumber).Infof("case pdf exported by %s", actor.Username)
	return out, src.c.CaseNumber + "_compliance_report.pdf", nil
}
