package cases

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/casefile"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
	"github.com/R3E-Network/sira_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

type recorder struct {
	mu      sync.Mutex
	updates []string
	keys    []string
}

func (r *recorder) NotifyCase(_ context.Context, _ casefile.Case, updateType string, _ []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, updateType)
	return nil
}

func (r *recorder) Publish(_ context.Context, key string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, maxBytes int64) (*Service, *memory.Store, *recorder, user.User, string) {
	t.Helper()
	store := memory.New()
	dir := t.TempDir()
	rec := &recorder{}
	svc := New(store, store, NewFileStore(dir, maxBytes), rec, rec, logger.Discard())
	svc.now = func() time.Time { return fixedNow }
	lead, err := store.CreateUser(context.Background(), user.User{Username: "lead", Email: "lead@example.com", Role: roles.SecurityLead, IsActive: true})
	require.NoError(t, err)
	return svc, store, rec, lead, dir
}

func TestCaseNumbersFollowYear(t *testing.T) {
	svc, _, rec, lead, _ := newTestService(t, 0)
	ctx := context.Background()

	first, err := svc.Create(ctx, lead, CreateRequest{Title: "Seal breach"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, lead, CreateRequest{Title: "Route deviation", Priority: casefile.PriorityHigh})
	require.NoError(t, err)

	assert.Equal(t, "CASE-2026-0001", first.CaseNumber)
	assert.Equal(t, "CASE-2026-0002", second.CaseNumber)
	assert.Equal(t, casefile.PriorityMedium, first.Priority)
	assert.Equal(t, casefile.StatusOpen, first.Status)
	assert.Equal(t, []string{"created", "created"}, rec.updates)
	assert.Equal(t, []string{eventbus.CaseCreated, eventbus.CaseCreated}, rec.keys)
}

func TestCreateValidationAndLinking(t *testing.T) {
	svc, store, _, lead, _ := newTestService(t, 0)
	ctx := context.Background()

	_, err := svc.Create(ctx, lead, CreateRequest{Title: "  "})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = svc.Create(ctx, lead, CreateRequest{Title: "x", Priority: "urgent"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	a, err := store.CreateAlert(ctx, alert.Alert{Severity: alert.SeverityHigh, Status: alert.StatusOpen, Description: "Seal tampered"})
	require.NoError(t, err)
	c, err := svc.Create(ctx, lead, CreateRequest{Title: "Seal breach", AlertIDs: []int64{a.ID, 999}})
	require.NoError(t, err)

	linked, err := store.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.CaseID)
	assert.Equal(t, c.ID, *linked.CaseID)
}

func TestUpdateAndStats(t *testing.T) {
	svc, _, rec, lead, _ := newTestService(t, 0)
	ctx := context.Background()

	c, err := svc.Create(ctx, lead, CreateRequest{Title: "Cargo shortfall", Priority: casefile.PriorityCritical})
	require.NoError(t, err)

	status := casefile.StatusInvestigating
	costs := 420.0
	updated, err := svc.Update(ctx, lead, c.ID, Update{Status: &status, Costs: &costs})
	require.NoError(t, err)
	assert.Equal(t, casefile.StatusInvestigating, updated.Status)
	assert.Equal(t, 420.0, updated.Costs)

	bad := "archived"
	_, err = svc.Update(ctx, lead, c.ID, Update{Status: &bad})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = svc.Update(ctx, lead, 404, Update{Status: &status})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.Investigating)
	assert.Equal(t, 1, st.ByPriority[casefile.PriorityCritical])
	assert.Contains(t, st.ByPriority, casefile.PriorityLow)

	// updates notify but are not published
	assert.Equal(t, []string{eventbus.CaseCreated}, rec.keys)
}

func TestClose(t *testing.T) {
	svc, _, rec, lead, _ := newTestService(t, 0)
	ctx := context.Background()

	c, err := svc.Create(ctx, lead, CreateRequest{Title: "Theft at berth"})
	require.NoError(t, err)

	_, err = svc.Close(ctx, lead, c.ID, CloseRequest{})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	final := 1500.0
	closed, err := svc.Close(ctx, lead, c.ID, CloseRequest{ClosureCode: "RESOLVED", ResolutionSummary: "Cargo recovered", FinalCosts: &final})
	require.NoError(t, err)
	assert.Equal(t, casefile.StatusClosed, closed.Status)
	assert.Equal(t, "RESOLVED", closed.ClosureCode)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, fixedNow, *closed.ClosedAt)
	assert.Equal(t, 1500.0, closed.Costs)
	assert.Contains(t, closed.Actions, "[Resolution]: Cargo recovered")
	assert.Equal(t, eventbus.CaseClosed, rec.keys[len(rec.keys)-1])
}

func TestExport(t *testing.T) {
	svc, store, _, lead, _ := newTestService(t, 0)
	ctx := context.Background()

	a, err := store.CreateAlert(ctx, alert.Alert{Severity: alert.SeverityCritical, Status: alert.StatusOpen, Domain: "Security", Description: "Boarding attempt"})
	require.NoError(t, err)
	c, err := svc.Create(ctx, lead, CreateRequest{Title: "Boarding attempt", AlertIDs: []int64{a.ID}})
	require.NoError(t, err)
	_, err = svc.AddEvidence(ctx, lead, EvidenceRequest{CaseID: c.ID, EvidenceType: "photo", FileRef: "s3://evidence/deck.jpg"})
	require.NoError(t, err)

	pack, err := svc.Export(ctx, lead, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "JSON", pack.Format)
	assert.Equal(t, 1, pack.AlertsCount)
	assert.Equal(t, 1, pack.EvidencesCount)
	assert.Equal(t, c.CaseNumber, pack.Case.CaseNumber)

	raw, err := json.Marshal(pack)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"alerts_count":1`)

	pdf, name, err := svc.ExportPDF(ctx, lead, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "CASE-2026-0001_compliance_report.pdf", name)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	_, err = svc.Export(ctx, lead, 77)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestAddEvidenceHashesReference(t *testing.T) {
	svc, _, _, lead, _ := newTestService(t, 0)
	ctx := context.Background()

	c, err := svc.Create(ctx, lead, CreateRequest{Title: "Seal breach"})
	require.NoError(t, err)

	_, err = svc.AddEvidence(ctx, lead, EvidenceRequest{CaseID: c.ID, EvidenceType: "sketch", FileRef: "ref"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = svc.AddEvidence(ctx, lead, EvidenceRequest{CaseID: 99, EvidenceType: "log", FileRef: "ref"})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	e, err := svc.AddEvidence(ctx, lead, EvidenceRequest{CaseID: c.ID, EvidenceType: "IoT", FileRef: "sensor://seal-17/2026-03-14"})
	require.NoError(t, err)
	sum := sha256.Sum256([]byte("sensor://seal-17/2026-03-14"))
	assert.Equal(t, hex.EncodeToString(sum[:]), e.FileHash)
	assert.Equal(t, casefile.VerificationPending, e.VerificationStatus)
	require.NotNil(t, e.UploadedBy)
	assert.Equal(t, lead.ID, *e.UploadedBy)

	list, err := svc.ListEvidence(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListEvidence(ctx, 99)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestUploadEvidence(t *testing.T) {
	svc, _, _, lead, dir := newTestService(t, 16)
	ctx := context.Background()

	c, err := svc.Create(ctx, lead, CreateRequest{Title: "Damaged container"})
	require.NoError(t, err)

	body := "deck photo bytes"
	e, err := svc.UploadEvidence(ctx, lead, Upload{CaseID: c.ID, Filename: "../deck photo.jpg", MimeType: "image/jpeg", Body: strings.NewReader(body)})
	require.NoError(t, err)
	assert.Equal(t, "document", e.EvidenceType)
	assert.Equal(t, int64(len(body)), e.FileSize)
	sum := sha256.Sum256([]byte(body))
	assert.Equal(t, hex.EncodeToString(sum[:]), e.FileHash)
	assert.Equal(t, filepath.Join(dir, "case_1", "20260314_093000_deck_photo.jpg"), e.FileRef)
	assert.Contains(t, e.EvidenceMetadata, `"uploader":"lead"`)

	stored, err := os.ReadFile(e.FileRef)
	require.NoError(t, err)
	assert.Equal(t, body, string(stored))

	_, err = svc.UploadEvidence(ctx, lead, Upload{CaseID: c.ID, Filename: "big.bin", Body: strings.NewReader(strings.Repeat("x", 17))})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))

	require.NoError(t, svc.DeleteEvidence(ctx, lead, e.ID))
	_, err = os.Stat(e.FileRef)
	assert.True(t, os.IsNotExist(err))
	assert.True(t, apperrors.Is(svc.DeleteEvidence(ctx, lead, e.ID), apperrors.CodeNotFound))
}

func TestVerifyEvidence(t *testing.T) {
	svc, _, _, lead, _ := newTestService(t, 0)
	ctx := context.Background()

	c, err := svc.Create(ctx, lead, CreateRequest{Title: "Seal breach"})
	require.NoError(t, err)
	e, err := svc.AddEvidence(ctx, lead, EvidenceRequest{CaseID: c.ID, EvidenceType: "log", FileRef: "gate.log", Notes: "gate log"})
	require.NoError(t, err)

	_, err = svc.VerifyEvidence(ctx, lead, e.ID, "maybe", "")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	v, err := svc.VerifyEvidence(ctx, lead, e.ID, casefile.VerificationVerified, "matches CCTV")
	require.NoError(t, err)
	assert.Equal(t, casefile.VerificationVerified, v.VerificationStatus)
	assert.Equal(t, "gate log\n[Verification]: matches CCTV", v.Notes)
	require.NotNil(t, v.VerifiedAt)
	assert.Equal(t, fixedNow, *v.VerifiedAt)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "report.pdf", SafeName("/etc/../report.pdf"))
	assert.Equal(t, "a_b.txt", SafeName(`C:\docs\a b.txt`))
	assert.Equal(t, "upload", SafeName(".."))
}
