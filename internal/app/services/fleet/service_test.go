package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/fleet"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

var (
	now      = time.Date(2026, 7, 20, 14, 0, 0, 0, time.UTC)
	operator = user.User{ID: 4, Username: "dispatcher", Role: roles.Operator}
)

func str(v string) *string { return &v }
func id(v int64) *int64    { return &v }

func newService() (*Service, *memory.Store) {
	store := memory.New()
	svc := New(store, logger.Discard())
	svc.now = func() time.Time { return now }
	return svc, store
}

func createAsset(t *testing.T, svc *Service, code, kind string) fleet.Asset {
	t.Helper()
	a, err := svc.CreateAsset(context.Background(), operator, AssetRequest{AssetCode: code, Name: code, AssetType: kind})
	require.NoError(t, err)
	return a
}

func TestCreateAsset(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.CreateAsset(ctx, operator, AssetRequest{AssetCode: "", Name: "x", AssetType: "truck"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	a := createAsset(t, svc, "TRK-001", "truck")
	assert.Equal(t, fleet.AssetAvailable, a.Status)

	_, err = svc.CreateAsset(ctx, operator, AssetRequest{AssetCode: "TRK-001", Name: "dup", AssetType: "truck"})
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))

	_, err = svc.UpdateAsset(ctx, operator, a.ID, AssetUpdate{Status: str("parked")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	moved, err := svc.UpdateAsset(ctx, operator, a.ID, AssetUpdate{CurrentLocation: str("Kano depot")})
	require.NoError(t, err)
	assert.Equal(t, "Kano depot", moved.CurrentLocation)
}

func TestDispatchLifecycle(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	a := createAsset(t, svc, "BRG-07", "barge")

	_, err := svc.Dispatch(ctx, operator, DispatchRequest{AssetID: 42, Origin: "Onitsha", Destination: "Warri"})
	assert.Equal(t, "Asset not found", apperrors.GetServiceError(err).Message)

	d, err := svc.Dispatch(ctx, operator, DispatchRequest{AssetID: a.ID, ShipmentID: id(9), Origin: "Onitsha", Destination: "Warri"})
	require.NoError(t, err)
	assert.Equal(t, "dispatched", d.Status)
	require.NotNil(t, d.DispatchedAt)
	assert.Equal(t, now, *d.DispatchedAt)

	inTransit, err := svc.Asset(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, fleet.AssetInTransit, inTransit.Status)
	require.NotNil(t, inTransit.AssignedShipmentID)
	assert.Equal(t, int64(9), *inTransit.AssignedShipmentID)

	_, err = svc.UpdateDispatch(ctx, operator, d.ID, DispatchUpdate{Status: str("lost")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	arrival := now.Add(30 * time.Hour)
	done, err := svc.UpdateDispatch(ctx, operator, d.ID, DispatchUpdate{Status: str("completed"), ActualArrival: &arrival})
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)

	released, err := svc.Asset(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, fleet.AssetAvailable, released.Status)
	assert.Nil(t, released.AssignedShipmentID)
	assert.Equal(t, 1, released.TotalTrips)
	require.NotNil(t, released.LastTripEnd)
	assert.Equal(t, arrival, *released.LastTripEnd)

	// completing twice does not count the trip again
	_, err = svc.UpdateDispatch(ctx, operator, d.ID, DispatchUpdate{Status: str("completed")})
	require.NoError(t, err)
	again, err := svc.Asset(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.TotalTrips)

	list, err := svc.Dispatches(ctx, fleet.DispatchFilter{AssetID: a.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAvailabilityAndUtilization(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	empty, err := svc.Utilization(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalAssets)
	assert.Equal(t, 0.0, empty.AvgUtilization)

	t1 := createAsset(t, svc, "TRK-1", "truck")
	t2 := createAsset(t, svc, "TRK-2", "truck")
	w1 := createAsset(t, svc, "WGN-1", "wagon")

	for _, u := range []struct {
		a      fleet.Asset
		status string
		pct    float64
	}{{t1, fleet.AssetInTransit, 80}, {t2, fleet.AssetIdle, 45}, {w1, "maintenance", 10}} {
		a := u.a
		a.Status = u.status
		a.UtilizationPct = u.pct
		_, err := store.UpdateAsset(ctx, a)
		require.NoError(t, err)
	}

	board, err := svc.Availability(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, board["truck"].Total)
	assert.Equal(t, map[string]int{"in_transit": 1, "idle": 1}, board["truck"].Statuses)
	assert.Equal(t, 1, board["wagon"].Statuses["maintenance"])

	util, err := svc.Utilization(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, util.TotalAssets)
	assert.Equal(t, 45.0, util.AvgUtilization)
	assert.Equal(t, TypeUtilization{Count: 2, InTransit: 1, Idle: 1, AvgUtilization: 62.5}, util.ByType["truck"])
	assert.Equal(t, TypeUtilization{Count: 1, AvgUtilization: 10}, util.ByType["wagon"])
}

func TestMaintenance(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	a := createAsset(t, svc, "TRK-9", "truck")

	_, err := svc.ScheduleMaintenance(ctx, operator, MaintenanceRequest{MaintenanceType: "service"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	m, err := svc.ScheduleMaintenance(ctx, operator, MaintenanceRequest{AssetID: &a.ID, MaintenanceType: "brake_service"})
	require.NoError(t, err)
	assert.Equal(t, "scheduled", m.Status)

	started := now.Add(time.Hour)
	m, err = svc.UpdateMaintenance(ctx, m.ID, MaintenanceUpdate{Status: str("in_progress"), StartedAt: &started})
	require.NoError(t, err)
	assert.Equal(t, "in_progress", m.Status)

	_, err = svc.UpdateMaintenance(ctx, 404, MaintenanceUpdate{})
	assert.Equal(t, "Maintenance record not found", apperrors.GetServiceError(err).Message)

	list, err := svc.Maintenance(ctx, fleet.MaintenanceFilter{AssetID: a.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
