package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/market"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

var (
	now     = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	analyst = user.User{ID: 6, Username: "analyst", Role: roles.Operator}
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func newService() (*Service, *memory.Store) {
	store := memory.New()
	svc := New(store, store, logger.Discard())
	svc.now = func() time.Time { return now }
	return svc, store
}

func addRate(t *testing.T, svc *Service, lane, mode string, usd float64, age time.Duration) {
	t.Helper()
	_, err := svc.AddRate(context.Background(), analyst, RateRequest{
		Lane: lane, Mode: mode, RateUSD: usd, RateUnit: "per_tonne", EffectiveDate: now.Add(-age),
	})
	require.NoError(t, err)
}

func TestAddRateValidation(t *testing.T) {
	svc, _ := newService()
	_, err := svc.AddRate(context.Background(), analyst, RateRequest{Lane: "Lagos-Kano", Mode: "truck", RateUSD: 0, RateUnit: "t", EffectiveDate: now})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	r, err := svc.AddRate(context.Background(), analyst, RateRequest{Lane: "Lagos-Kano", Mode: "truck", RateUSD: 42, RateUnit: "t", EffectiveDate: now})
	require.NoError(t, err)
	assert.Equal(t, "USD", r.Currency)
}

func TestBenchmarks(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	day := 24 * time.Hour

	addRate(t, svc, "Lagos-Kano", "truck", 40, 10*day)
	addRate(t, svc, "Lagos-Kano", "truck", 45, 5*day)
	addRate(t, svc, "Lagos-Kano", "rail", 30, 2*day)
	addRate(t, svc, "Lagos-Kano", "truck", 100, 200*day)
	addRate(t, svc, "Onne-Rotterdam", "vessel", 18.333, day)

	all, err := svc.Benchmarks(ctx, "", "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, market.Benchmark{Lane: "Onne-Rotterdam", Mode: "vessel", AvgRate: 18.33, MinRate: 18.333, MaxRate: 18.333, SampleCount: 1, PeriodDays: 90}, all[0])

	trucks, err := svc.Benchmarks(ctx, "lagos", "truck", 30)
	require.NoError(t, err)
	require.Len(t, trucks, 1)
	assert.Equal(t, market.Benchmark{Lane: "Lagos-Kano", Mode: "truck", AvgRate: 42.5, MinRate: 40, MaxRate: 45, SampleCount: 2, PeriodDays: 30}, trucks[0])

	none, err := svc.Benchmarks(ctx, "Mombasa", "", 30)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIndices(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	for _, obs := range []struct {
		name  string
		value float64
		age   time.Duration
	}{
		{"Baltic Dry", 1500, 48 * time.Hour},
		{"Baltic Dry", 1540, 24 * time.Hour},
		{"Brent", 81.2, 72 * time.Hour},
		{"Brent", 70, 60 * 24 * time.Hour},
	} {
		_, err := svc.RecordIndex(ctx, analyst, IndexRequest{IndexName: obs.name, Value: obs.value, RecordedAt: now.Add(-obs.age)})
		require.NoError(t, err)
	}

	_, err := svc.RecordIndex(ctx, analyst, IndexRequest{IndexName: "", RecordedAt: now})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	latest, err := svc.LatestIndices(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "Baltic Dry", latest[0].IndexName)
	assert.Equal(t, 1540.0, latest[0].Value)
	assert.Equal(t, 81.2, latest[1].Value)

	recent, err := svc.Indices(ctx, "brent", "", 0, 0, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestDemurrageAmountAndExposure(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	_, err := svc.OpenDemurrage(ctx, analyst, DemurrageRequest{})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	shipmentID := int64(1)
	rec, err := svc.OpenDemurrage(ctx, analyst, DemurrageRequest{ShipmentID: &shipmentID, DemurrageRateUSD: f64(18500)})
	require.NoError(t, err)
	assert.Equal(t, "accruing", rec.Status)

	rec, err = svc.UpdateDemurrage(ctx, analyst, rec.ID, DemurrageUpdate{DemurrageDays: f64(2.25), DemurrageAmountUSD: f64(1), Status: str("calculated")})
	require.NoError(t, err)
	require.NotNil(t, rec.DemurrageAmountUSD)
	assert.Equal(t, 41625.0, *rec.DemurrageAmountUSD)

	_, err = svc.UpdateDemurrage(ctx, analyst, rec.ID, DemurrageUpdate{Status: str("waived")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = svc.UpdateDemurrage(ctx, analyst, 99, DemurrageUpdate{})
	assert.Equal(t, "Demurrage record not found", apperrors.GetServiceError(err).Message)

	list, err := svc.Demurrage(ctx, market.DemurrageFilter{ShipmentID: shipmentID})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	empty, err := svc.Exposure(ctx)
	require.NoError(t, err)
	assert.Equal(t, market.Exposure{}, empty)

	for i, s := range []shipment.Shipment{
		{ShipmentRef: "S1", Status: shipment.StatusInTransit, DemurrageExposureUSD: 30000.25, DemurrageDays: 1.5, DemurrageRiskScore: 72},
		{ShipmentRef: "S2", Status: shipment.StatusPlanned, DemurrageExposureUSD: 1000, DemurrageDays: 0.5, DemurrageRiskScore: 41},
		{ShipmentRef: "S3", Status: "completed", DemurrageExposureUSD: 99999, DemurrageDays: 9, DemurrageRiskScore: 95},
	} {
		_, err := store.CreateShipment(ctx, s)
		require.NoError(t, err, i)
	}
	exp, err := svc.Exposure(ctx)
	require.NoError(t, err)
	assert.Equal(t, market.Exposure{
		TotalExposureUSD:   31000.25,
		TotalDemurrageDays: 2,
		ActiveShipments:    2,
		HighRiskShipments:  1,
		AvgRiskScore:       56.5,
	}, exp)
}
