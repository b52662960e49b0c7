package movements

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/domain/movement"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/realtime"
	"github.com/R3E-Network/sira_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

type recorder struct {
	mu     sync.Mutex
	events []movement.Event
	rooms  []realtime.Message
}

func (r *recorder) HandleEvent(_ context.Context, ev movement.Event) []alert.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if ev.EventType == movement.EventSecurity {
		return []alert.Alert{{ID: 1, RuleID: "RULE_SEC_001"}}
	}
	return nil
}

func (r *recorder) PushRoom(_ context.Context, room string, msg realtime.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.Room = room
	r.rooms = append(r.rooms, msg)
}

var actor = user.User{ID: 1, Username: "ops"}

func newService() (*Service, *recorder) {
	rec := &recorder{}
	return New(memory.New(), rec, rec, nil, logger.Discard()), rec
}

func TestCreateMovementValidatesLaycan(t *testing.T) {
	svc, rec := newService()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, actor, CreateRequest{Cargo: "LNG", Route: "A-B", LaycanStart: start, LaycanEnd: start})
	require.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
	assert.Equal(t, "laycan_start must be before laycan_end", apperrors.GetServiceError(err).Message)

	_, err = svc.Create(ctx, actor, CreateRequest{Route: "A-B", LaycanStart: start, LaycanEnd: start.Add(time.Hour)})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	m, err := svc.Create(ctx, actor, CreateRequest{Cargo: "LNG", Route: "A-B", LaycanStart: start, LaycanEnd: start.Add(48 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, movement.StatusActive, m.Status)
	require.Len(t, rec.rooms, 1)
	assert.Equal(t, realtime.RoomMovements, rec.rooms[0].Room)
	assert.Equal(t, "created", rec.rooms[0].Action)
}

func TestUpdateAndLocation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	start := time.Now().UTC()
	m, err := svc.Create(ctx, actor, CreateRequest{Cargo: "Coal", Route: "Richards Bay - Rotterdam", LaycanStart: start, LaycanEnd: start.Add(time.Hour)})
	require.NoError(t, err)

	bad := "lost"
	_, err = svc.Update(ctx, actor, m.ID, Update{Status: &bad})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	risk := 140.0
	_, err = svc.Update(ctx, actor, m.ID, Update{RiskScore: &risk})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	delayed := movement.StatusDelayed
	updated, err := svc.Update(ctx, actor, m.ID, Update{Status: &delayed})
	require.NoError(t, err)
	assert.Equal(t, movement.StatusDelayed, updated.Status)
	assert.Equal(t, "Coal", updated.Cargo)

	lat, lng := 1.26, 103.84
	located, err := svc.UpdateLocation(ctx, actor, m.ID, "Singapore Strait", &lat, &lng)
	require.NoError(t, err)
	assert.Equal(t, "Singapore Strait", located.CurrentLocation)
	assert.Equal(t, &lat, located.CurrentLat)

	badLat := 91.0
	_, err = svc.UpdateLocation(ctx, actor, m.ID, "Nowhere", &badLat, nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = svc.UpdateLocation(ctx, actor, 99, "Singapore", nil, nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	require.NoError(t, svc.Delete(ctx, actor, m.ID))
	err = svc.Delete(ctx, actor, m.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestRecordEventRunsAlertEngine(t *testing.T) {
	svc, rec := newService()
	ctx := context.Background()
	start := time.Now().UTC()

	_, _, err := svc.RecordEvent(ctx, actor, EventRequest{MovementID: 42, EventType: movement.EventSecurity})
	require.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	assert.Equal(t, "Movement not found", apperrors.GetServiceError(err).Message)

	m, err := svc.Create(ctx, actor, CreateRequest{Cargo: "Diesel", Route: "A-B", LaycanStart: start, LaycanEnd: start.Add(time.Hour)})
	require.NoError(t, err)

	_, _, err = svc.RecordEvent(ctx, actor, EventRequest{MovementID: m.ID, EventType: "rumour"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	ev, derived, err := svc.RecordEvent(ctx, actor, EventRequest{MovementID: m.ID, EventType: movement.EventSecurity, Description: "Boarding attempt"})
	require.NoError(t, err)
	assert.Equal(t, movement.SeverityInfo, ev.Severity)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Len(t, derived, 1)

	_, derived, err = svc.RecordEvent(ctx, actor, EventRequest{MovementID: m.ID, EventType: movement.EventPlanned})
	require.NoError(t, err)
	assert.Empty(t, derived)
	assert.Len(t, rec.events, 2)

	listed, err := svc.ListEvents(ctx, movement.EventFilter{MovementID: m.ID, EventType: movement.EventSecurity})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, ev.ID, listed[0].ID)

	require.NoError(t, svc.DeleteEvent(ctx, actor, ev.ID))
	_, err = svc.GetEvent(ctx, ev.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}
