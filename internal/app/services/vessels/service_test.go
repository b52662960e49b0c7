package vessels

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/domain/vessel"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
	"github.com/R3E-Network/sira_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

type busRecorder struct {
	mu       sync.Mutex
	keys     []string
	payloads []any
}

func (b *busRecorder) Publish(_ context.Context, key string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, key)
	b.payloads = append(b.payloads, payload)
	return nil
}

var (
	now      = time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC)
	operator = user.User{ID: 2, Username: "ops", Role: roles.Operator}
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func newService() (*Service, *busRecorder) {
	bus := &busRecorder{}
	svc := New(memory.New(), bus, logger.Discard())
	svc.now = func() time.Time { return now }
	return svc, bus
}

func TestCreateValidatesAndRejectsDuplicateIMO(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, operator, CreateRequest{Name: "", IMONumber: "9321483", VesselType: "tanker"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	v, err := svc.Create(ctx, operator, CreateRequest{Name: "Bonny Light", IMONumber: " 9321483 ", VesselType: "tanker"})
	require.NoError(t, err)
	assert.Equal(t, "active", v.Status)
	require.NotNil(t, v.IMONumber)
	assert.Equal(t, "9321483", *v.IMONumber)

	_, err = svc.Create(ctx, operator, CreateRequest{Name: "Other", IMONumber: "9321483", VesselType: "bulk"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	assert.Equal(t, "Vessel with this IMO number already exists", apperrors.GetServiceError(err).Message)
}

func TestUpdateAndPositions(t *testing.T) {
	svc, bus := newService()
	ctx := context.Background()

	a, err := svc.Create(ctx, operator, CreateRequest{Name: "Zaria", IMONumber: "1", VesselType: "bulk"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, operator, CreateRequest{Name: "Apapa Star", IMONumber: "2", VesselType: "tanker"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, operator, a.ID, Update{Status: str("sunk")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = svc.Update(ctx, operator, a.ID, Update{CurrentLat: f64(91)})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	updated, err := svc.Update(ctx, operator, a.ID, Update{Status: str("drydock"), Owner: str("NNPC")})
	require.NoError(t, err)
	assert.Equal(t, "drydock", updated.Status)
	assert.Equal(t, "NNPC", updated.Owner)

	moved, err := svc.UpdatePosition(ctx, b.ID, vessel.Position{Lat: 6.43, Lng: 3.39, Speed: f64(11.2), AISStatus: "under_way"})
	require.NoError(t, err)
	require.NotNil(t, moved.PositionUpdatedAt)
	assert.Equal(t, now, *moved.PositionUpdatedAt)
	assert.Equal(t, "under_way", moved.AISStatus)
	assert.Equal(t, []string{eventbus.VesselPosition}, bus.keys)

	_, err = svc.UpdatePosition(ctx, b.ID, vessel.Position{Lat: 6.4, Lng: 200})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	positioned, err := svc.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, positioned, 1)
	assert.Equal(t, "Apapa Star", positioned[0].Name)

	all, err := svc.List(ctx, vessel.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Apapa Star", all[0].Name)

	tankers, err := svc.List(ctx, vessel.Filter{VesselType: "tanker"})
	require.NoError(t, err)
	assert.Len(t, tankers, 1)
}

func TestDelete(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	v, err := svc.Create(ctx, operator, CreateRequest{Name: "Kano", IMONumber: "77", VesselType: "barge"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, operator, v.ID))

	_, err = svc.Get(ctx, v.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	err = svc.Delete(ctx, operator, v.ID)
	assert.Equal(t, "Vessel not found", apperrors.GetServiceError(err).Message)
}
