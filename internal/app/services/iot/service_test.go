package iot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/shipment"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
	"github.com/R3E-Network/sira_platform/internal/app/services/shipments"
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
	now      = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	operator = user.User{ID: 4, Username: "ops", Role: roles.Operator}
)

func str(v string) *string { return &v }

func newService() (*Service, *memory.Store, *busRecorder) {
	store := memory.New()
	bus := &busRecorder{}
	svc := New(store, shipments.New(store, store, nil, logger.Discard()), bus, logger.Discard())
	svc.now = func() time.Time { return now }
	return svc, store, bus
}

func TestCreateDevice(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	_, err := svc.CreateDevice(ctx, operator, DeviceRequest{DeviceType: "gps"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = svc.CreateDevice(ctx, operator, DeviceRequest{DeviceID: "TRK-9", DeviceType: "gps", FieldMap: `["lat"]`})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	d, err := svc.CreateDevice(ctx, operator, DeviceRequest{DeviceID: " TRK-9 ", DeviceType: "gps"})
	require.NoError(t, err)
	assert.Equal(t, "TRK-9", d.DeviceID)
	assert.Equal(t, "active", d.Status)
	assert.Equal(t, DefaultReportingInterval, d.ReportingIntervalSec)

	_, err = svc.CreateDevice(ctx, operator, DeviceRequest{DeviceID: "TRK-9", DeviceType: "gps"})
	require.Error(t, err)
	assert.Equal(t, "Device ID already registered", apperrors.GetServiceError(err).Message)

	_, err = svc.UpdateDevice(ctx, operator, d.ID, DeviceUpdate{Status: str("lost")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	updated, err := svc.UpdateDevice(ctx, operator, d.ID, DeviceUpdate{Status: str("maintenance"), AlertThresholds: str(`{"temperature":{"max":8}}`)})
	require.NoError(t, err)
	assert.Equal(t, "maintenance", updated.Status)

	_, err = svc.Device(ctx, 42)
	assert.Equal(t, "Device not found", apperrors.GetServiceError(err).Message)
}

func TestIngestFieldMapping(t *testing.T) {
	svc, _, bus := newService()
	ctx := context.Background()

	d, err := svc.CreateDevice(ctx, operator, DeviceRequest{
		DeviceID:   "REEFER-1",
		DeviceType: "reefer",
		FieldMap:   `{"temperature":"sensors.temp_c","latitude":"$.gps[0]","longitude":"$.gps[1]"}`,
	})
	require.NoError(t, err)
	_, err = svc.UpdateDevice(ctx, operator, d.ID, DeviceUpdate{Status: str("offline")})
	require.NoError(t, err)

	res, err := svc.Ingest(ctx, operator, d.ID, []byte(`{"ts":"2026-10-01T10:00:00Z","sensors":{"temp_c":"4.5"},"gps":[6.45,3.39],"battery":88,"seal":true}`))
	require.NoError(t, err)
	r := res.Reading
	require.NotNil(t, r.Temperature)
	assert.Equal(t, 4.5, *r.Temperature)
	require.NotNil(t, r.Latitude)
	assert.Equal(t, 6.45, *r.Latitude)
	assert.Equal(t, 3.39, *r.Longitude)
	assert.Equal(t, 88.0, *r.BatteryLevel)
	assert.True(t, *r.SealIntact)
	assert.Equal(t, time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC), r.Timestamp)
	assert.Empty(t, res.Breaches)
	assert.Empty(t, res.Anomalies)
	assert.Empty(t, bus.keys)

	dev, err := svc.Device(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", dev.Status)
	assert.Equal(t, 88.0, *dev.BatteryLevel)
	assert.Equal(t, 6.45, *dev.LastLat)
	assert.Equal(t, r.Timestamp, *dev.LastSeen)

	// No timestamp falls back to the ingest time.
	res, err = svc.Ingest(ctx, operator, d.ID, []byte(`{"sensors":{"temp_c":5}}`))
	require.NoError(t, err)
	assert.Equal(t, now, res.Reading.Timestamp)

	_, err = svc.Ingest(ctx, operator, d.ID, []byte(`[1,2]`))
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
	_, err = svc.Ingest(ctx, operator, d.ID, []byte(`{"gps":[6.45]}`))
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = svc.Ingest(ctx, operator, 99, []byte(`{}`))
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestIngestRaisesShipmentExceptions(t *testing.T) {
	svc, store, bus := newService()
	ctx := context.Background()

	sh, err := store.CreateShipment(ctx, shipment.Shipment{ShipmentRef: "SHP-77", Status: shipment.StatusInTransit})
	require.NoError(t, err)
	d, err := svc.CreateDevice(ctx, operator, DeviceRequest{
		DeviceID:             "TRK-77",
		DeviceType:           "gps",
		ShipmentID:           &sh.ID,
		ReportingIntervalSec: 60,
		AlertThresholds:      `{"temperature":{"max":8,"severity":"critical"},"battery_level":{"min":20}}`,
	})
	require.NoError(t, err)

	res, err := svc.Ingest(ctx, operator, d.ID, []byte(`{"timestamp":"2026-10-01T10:00:00Z","temp":12,"battery":15,"lat":6.45,"lng":3.39}`))
	require.NoError(t, err)
	assert.Equal(t, []Breach{
		{Field: "temperature", Value: 12, Limit: 8, Bound: "max", Severity: "critical"},
		{Field: "battery_level", Value: 15, Limit: 20, Bound: "min", Severity: "high"},
	}, res.Breaches)
	assert.Empty(t, res.Anomalies)
	require.Len(t, res.Exceptions, 2)
	assert.Equal(t, "sensor_threshold", res.Exceptions[0].ExceptionType)
	assert.Equal(t, "critical", res.Exceptions[0].Severity)

	// An hour later, hundreds of kilometres away, with the seal broken.
	res, err = svc.Ingest(ctx, operator, d.ID, []byte(`{"timestamp":"2026-10-01T11:00:00Z","lat":9.0,"lng":7.0,"seal_intact":false}`))
	require.NoError(t, err)
	require.Len(t, res.Breaches, 1)
	assert.Equal(t, "seal_intact", res.Breaches[0].Field)
	require.Len(t, res.Anomalies, 2)
	assert.Equal(t, "reporting_gap", res.Anomalies[0].Type)
	assert.Equal(t, "position_jump", res.Anomalies[1].Type)

	types := []string{}
	for _, e := range res.Exceptions {
		types = append(types, e.ExceptionType)
	}
	assert.Equal(t, []string{"seal_breach", "sensor_reporting_gap", "sensor_position_jump"}, types)

	all, err := store.ListExceptions(ctx, shipment.ExceptionFilter{ShipmentID: sh.ID})
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, []string{eventbus.TelemetryAnomaly, eventbus.TelemetryAnomaly}, bus.keys)
}

func TestReadingsAndIntegrity(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	d, err := svc.CreateDevice(ctx, operator, DeviceRequest{DeviceID: "BUOY-3", DeviceType: "gps", ReportingIntervalSec: 600})
	require.NoError(t, err)

	check, err := svc.Integrity(ctx, d.ID, 0)
	require.NoError(t, err)
	assert.False(t, check.Anomaly)
	assert.Equal(t, "Insufficient readings for analysis", check.Message)

	for _, ts := range []string{"2026-10-01T08:00:00Z", "2026-10-01T08:10:00Z", "2026-10-01T08:20:00Z", "2026-10-01T09:30:00Z"} {
		_, err := svc.Ingest(ctx, operator, d.ID, []byte(`{"timestamp":"`+ts+`","lat":4.8,"lng":7.0}`))
		require.NoError(t, err)
	}

	readings, err := svc.Readings(ctx, d.ID, 2)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, time.Date(2026, 10, 1, 8, 20, 0, 0, time.UTC), readings[0].Timestamp)

	check, err = svc.Integrity(ctx, d.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "BUOY-3", check.DeviceID)
	assert.Equal(t, 4, check.ReadingsAnalyzed)
	require.Len(t, check.Anomalies, 1)
	assert.Equal(t, "reporting_gap", check.Anomalies[0].Type)

	_, err = svc.Readings(ctx, 404, 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}
