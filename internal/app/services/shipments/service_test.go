package shipments

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/port"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/analytics"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
	"github.com/R3E-Network/sira_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

type busRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (b *busRecorder) Publish(_ context.Context, key string, _ any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, key)
	return nil
}

var (
	now      = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	operator = user.User{ID: 3, Username: "ops", Role: roles.Operator}
)

func f64(v float64) *float64 { return &v }

func newService(t *testing.T) (*Service, *memory.Store, *busRecorder) {
	t.Helper()
	store := memory.New()
	bus := &busRecorder{}
	svc := New(store, store, bus, logger.Discard())
	svc.now = func() time.Time { return now }
	return svc, store, bus
}

func createShipment(t *testing.T, svc *Service, ref string, mod func(*CreateRequest)) shipment.Shipment {
	t.Helper()
	req := CreateRequest{
		ShipmentRef: ref,
		CargoType:   "crude_oil",
		Origin:      "Lagos",
		Destination: "Rotterdam",
		LaycanStart: now.Add(24 * time.Hour),
		LaycanEnd:   now.Add(96 * time.Hour),
	}
	if mod != nil {
		mod(&req)
	}
	sh, err := svc.Create(context.Background(), operator, req)
	require.NoError(t, err)
	return sh
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, operator, CreateRequest{ShipmentRef: "SHP-1", CargoType: "lng", Origin: "a", Destination: "b",
		LaycanStart: now.Add(48 * time.Hour), LaycanEnd: now})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
	assert.Equal(t, "laycan_start must be before laycan_end", apperrors.GetServiceError(err).Message)

	sh := createShipment(t, svc, "SHP-1", nil)
	assert.Equal(t, shipment.StatusPlanned, sh.Status)
	assert.Equal(t, "intact", sh.CustodyStatus)

	_, err = svc.Create(ctx, operator, CreateRequest{ShipmentRef: "SHP-1", CargoType: "lng", Origin: "a", Destination: "b",
		LaycanStart: now, LaycanEnd: now.Add(time.Hour)})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	assert.Equal(t, "Shipment ref already exists", apperrors.GetServiceError(err).Message)
}

func TestUpdateStampsETA(t *testing.T) {
	svc, _, _ := newService(t)
	sh := createShipment(t, svc, "SHP-2", nil)

	leg := "ocean"
	updated, err := svc.Update(context.Background(), operator, sh.ID, Update{CurrentLeg: &leg})
	require.NoError(t, err)
	assert.Nil(t, updated.ETAUpdatedAt)

	eta := now.Add(72 * time.Hour)
	updated, err = svc.Update(context.Background(), operator, sh.ID, Update{ETADestination: &eta})
	require.NoError(t, err)
	require.NotNil(t, updated.ETAUpdatedAt)
	assert.Equal(t, now, *updated.ETAUpdatedAt)
	assert.Equal(t, "ocean", updated.CurrentLeg)

	bad := "lost"
	_, err = svc.Update(context.Background(), operator, sh.ID, Update{Status: &bad})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestMilestoneVariance(t *testing.T) {
	svc, _, _ := newService(t)
	sh := createShipment(t, svc, "SHP-3", nil)
	ctx := context.Background()

	planned := now.Add(-8 * time.Hour)
	m, err := svc.AddMilestone(ctx, operator, sh.ID, MilestoneRequest{MilestoneType: "departed_origin", PlannedTime: &planned})
	require.NoError(t, err)
	assert.Nil(t, m.VarianceHours)

	actual := planned.Add(6*time.Hour + 30*time.Minute)
	done := "completed"
	m, err = svc.UpdateMilestone(ctx, operator, m.ID, MilestoneUpdate{ActualTime: &actual, Status: &done})
	require.NoError(t, err)
	require.NotNil(t, m.VarianceHours)
	assert.InDelta(t, 6.5, *m.VarianceHours, 1e-9)
	assert.Equal(t, "completed", m.Status)

	_, err = svc.AddMilestone(ctx, operator, 99, MilestoneRequest{MilestoneType: "x"})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestCustodyChain(t *testing.T) {
	svc, store, _ := newService(t)
	sh := createShipment(t, svc, "SHP-4", nil)
	ctx := context.Background()

	t1 := now.Add(-4 * time.Hour)
	ev, err := svc.RecordCustody(ctx, operator, sh.ID, CustodyRequest{EventType: "loading", Timestamp: &t1, FromParty: "Terminal", ToParty: "Carrier",
		MeasuredVolume: f64(980), ExpectedVolume: f64(1000)})
	require.NoError(t, err)
	require.NotNil(t, ev.VolumeVariancePct)
	assert.Equal(t, -2.0, *ev.VolumeVariancePct)
	assert.True(t, analytics.VerifyCustodySignature(ev))

	chain, err := svc.Chain(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, analytics.IntegrityIntact, chain.Integrity)

	t2 := now.Add(-time.Hour)
	_, err = svc.RecordCustody(ctx, operator, sh.ID, CustodyRequest{EventType: "handover", Timestamp: &t2, FromParty: "Stranger", ToParty: "Receiver"})
	require.NoError(t, err)

	report, err := svc.Compliance(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, analytics.IntegrityCompromised, report.ChainIntegrity)
	assert.Equal(t, 1, report.CustodyGaps)
	assert.Equal(t, "review_required", report.ComplianceStatus)

	stored, err := store.GetShipment(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, analytics.IntegrityCompromised, stored.CustodyStatus)

	_, err = svc.RecordCustody(ctx, operator, sh.ID, CustodyRequest{EventType: "x", Latitude: f64(95)})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestSeal(t *testing.T) {
	svc, _, _ := newService(t)
	sh := createShipment(t, svc, "SHP-5", nil)

	res, err := svc.Seal(context.Background(), operator, sh.ID, SealRequest{SealNumber: "A-7781", Location: "Apapa", Party: "Terminal"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.SealID, "SEAL-"))
	assert.Len(t, res.SealID, len("SEAL-")+16)
	assert.Equal(t, analytics.SealID("SHP-5", "A-7781", now), res.SealID)
	assert.Equal(t, "seal_applied", res.Event.EventType)

	detail, err := svc.Detail(context.Background(), sh.ID)
	require.NoError(t, err)
	assert.Equal(t, res.SealID, detail.CustodySealID)
	assert.Len(t, detail.CustodyEvents, 1)
}

func TestDocumentsAndExceptions(t *testing.T) {
	svc, _, _ := newService(t)
	sh := createShipment(t, svc, "SHP-6", nil)
	ctx := context.Background()

	d, err := svc.AddDocument(ctx, operator, sh.ID, DocumentRequest{DocumentType: "bill_of_lading", Title: "B/L 001", FileRef: "s3://docs/bl.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "pending", d.Status)
	assert.Len(t, d.FileHash, 64)

	verified := "verified"
	d, err = svc.UpdateDocument(ctx, operator, d.ID, DocumentUpdate{Status: &verified})
	require.NoError(t, err)
	require.NotNil(t, d.VerifiedBy)
	assert.Equal(t, operator.ID, *d.VerifiedBy)

	_, err = svc.ReportException(ctx, operator, sh.ID, ExceptionRequest{ExceptionType: "port_strike", Severity: "severe"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	e, err := svc.ReportException(ctx, operator, sh.ID, ExceptionRequest{ExceptionType: "port_strike", Severity: "high"})
	require.NoError(t, err)
	open, err := svc.OpenExceptions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	resolved := "resolved"
	note := "strike ended"
	e, err = svc.UpdateException(ctx, operator, e.ID, ExceptionUpdate{Status: &resolved, Resolution: &note})
	require.NoError(t, err)
	require.NotNil(t, e.ResolvedAt)
	assert.Equal(t, "strike ended", e.Resolution)

	open, err = svc.OpenExceptions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestScoreRisk(t *testing.T) {
	svc, store, bus := newService(t)
	ctx := context.Background()

	dest, err := store.CreatePort(ctx, port.Port{Name: "Rotterdam", Code: "NLRTM", Status: "congested", Latitude: f64(51.95), Longitude: f64(4.14)})
	require.NoError(t, err)
	sh := createShipment(t, svc, "SHP-7", func(r *CreateRequest) {
		r.DestinationPortID = &dest.ID
		r.DemurrageRateUSD = f64(20000)
	})
	_, err = svc.AddDocument(ctx, operator, sh.ID, DocumentRequest{DocumentType: "invoice", Title: "Invoice"})
	require.NoError(t, err)
	d, err := svc.AddDocument(ctx, operator, sh.ID, DocumentRequest{DocumentType: "bill_of_lading", Title: "B/L"})
	require.NoError(t, err)
	verified := "verified"
	_, err = svc.UpdateDocument(ctx, operator, d.ID, DocumentUpdate{Status: &verified})
	require.NoError(t, err)

	res, err := svc.ScoreRisk(ctx, operator, sh.ID, RiskRequest{WeatherSeverity: "severe"})
	require.NoError(t, err)
	assert.Equal(t, 85, res.Risk.Factors["port_congestion"])
	assert.Equal(t, 90, res.Risk.Factors["document_readiness"])
	assert.Equal(t, 40, res.Risk.Factors["laycan_proximity"])
	assert.InDelta(t, 55.5, res.Risk.RiskScore, 1e-9)
	assert.Equal(t, analytics.LevelMedium, res.Risk.RiskLevel)
	assert.InDelta(t, 30000.0, res.Shipment.DemurrageExposureUSD, 1e-9)
	assert.Equal(t, 1.5, res.Shipment.DemurrageDays)
	assert.Equal(t, []string{eventbus.ShipmentRisk}, bus.keys)

	atRisk, err := svc.AtRisk(ctx, DefaultAtRiskThreshold)
	require.NoError(t, err)
	require.Len(t, atRisk, 1)
	assert.Equal(t, "SHP-7", atRisk[0].ShipmentRef)

	atRisk, err = svc.AtRisk(ctx, 60)
	require.NoError(t, err)
	assert.Empty(t, atRisk)
}

func TestPredictETAFromDestinationPort(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	dest, err := store.CreatePort(ctx, port.Port{Name: "Rotterdam", Code: "NLRTM", Status: "congested", Latitude: f64(51.95), Longitude: f64(4.14)})
	require.NoError(t, err)
	sh := createShipment(t, svc, "SHP-8", func(r *CreateRequest) { r.DestinationPortID = &dest.ID })

	res, err := svc.PredictETA(ctx, operator, sh.ID, ETARequest{CurrentLat: f64(51.95), CurrentLng: f64(4.14)})
	require.NoError(t, err)
	require.NotNil(t, res.Shipment.ETADestination)
	assert.Equal(t, now.Add(72*time.Hour), *res.Shipment.ETADestination)
	require.NotNil(t, res.Shipment.ETAConfidence)
	assert.Equal(t, 0.5, *res.Shipment.ETAConfidence)

	other := createShipment(t, svc, "SHP-9", nil)
	_, err = svc.PredictETA(ctx, operator, other.ID, ETARequest{CurrentLat: f64(1), CurrentLng: f64(1)})
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
}
