package corridors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/corridor"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

var supervisor = user.User{ID: 1, Username: "sup", Role: roles.Supervisor}

func str(v string) *string { return &v }
func yes() *bool           { v := true; return &v }
func no() *bool            { v := false; return &v }

func newService() *Service {
	svc := New(memory.New(), logger.Discard())
	svc.now = func() time.Time { return time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) }
	return svc
}

const route = `[{"name":"Lagos","lat":6.45,"lng":3.39},{"name":"Ibadan","lat":7.38,"lng":3.94}]`

func TestCorridorCRUD(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, supervisor, CreateRequest{Name: "Lagos-Kano", Code: "LK", Waypoints: "not json"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	c, err := svc.Create(ctx, supervisor, CreateRequest{Name: "Lagos-Kano", Code: "LK", Waypoints: route})
	require.NoError(t, err)
	assert.Equal(t, "active", c.Status)
	points, err := c.Route()
	require.NoError(t, err)
	assert.Len(t, points, 2)

	_, err = svc.Create(ctx, supervisor, CreateRequest{Name: "Other", Code: "LK"})
	require.Error(t, err)
	assert.Equal(t, "Corridor code already exists", apperrors.GetServiceError(err).Message)

	_, err = svc.Update(ctx, supervisor, c.ID, Update{Status: str("flooded")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	disrupted, err := svc.Update(ctx, supervisor, c.ID, Update{Status: str("disrupted")})
	require.NoError(t, err)
	assert.Equal(t, "disrupted", disrupted.Status)

	list, err := svc.List(ctx, corridor.Filter{Status: "disrupted"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Get(ctx, 77)
	assert.Equal(t, "Corridor not found", apperrors.GetServiceError(err).Message)
}

func TestGeofences(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	c, err := svc.Create(ctx, supervisor, CreateRequest{Name: "Niger river", Code: "NR"})
	require.NoError(t, err)

	_, err = svc.CreateGeofence(ctx, supervisor, GeofenceRequest{CorridorID: &c.ID, Name: "Lokoja", Geometry: "{"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	missing := int64(99)
	_, err = svc.CreateGeofence(ctx, supervisor, GeofenceRequest{CorridorID: &missing, Name: "x", Geometry: `{"type":"Point"}`})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	g, err := svc.CreateGeofence(ctx, supervisor, GeofenceRequest{
		CorridorID: &c.ID, Name: "Lokoja confluence", Geometry: `{"type":"Polygon","coordinates":[[[6.7,7.8],[6.8,7.8],[6.8,7.9],[6.7,7.8]]]}`,
		AlertOnExit: no(),
	})
	require.NoError(t, err)
	assert.True(t, g.AlertOnEnter)
	assert.False(t, g.AlertOnExit)
	assert.False(t, g.AlertOnDwell)
	assert.True(t, g.IsActive)

	updated, err := svc.UpdateGeofence(ctx, g.ID, GeofenceUpdate{IsActive: no(), AlertOnDwell: yes()})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.True(t, updated.AlertOnDwell)

	fences, err := svc.Geofences(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, fences, 1)

	_, err = svc.UpdateGeofence(ctx, 500, GeofenceUpdate{})
	assert.Equal(t, "Geofence not found", apperrors.GetServiceError(err).Message)
}
