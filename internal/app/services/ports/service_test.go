package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/port"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

var (
	now        = time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	supervisor = user.User{ID: 1, Username: "sup", Role: roles.Supervisor}
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }
func id(v int64) *int64      { return &v }

func newService() *Service {
	svc := New(memory.New(), logger.Discard())
	svc.now = func() time.Time { return now }
	return svc
}

func createPort(t *testing.T, svc *Service, name, code string) port.Port {
	t.Helper()
	p, err := svc.Create(context.Background(), supervisor, CreateRequest{
		Name: name, Code: code, Country: "NG", Latitude: f64(6.45), Longitude: f64(3.38),
	})
	require.NoError(t, err)
	return p
}

func TestCreatePort(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, supervisor, CreateRequest{Name: "Lagos", Code: "NGLOS", Country: "NG"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	p := createPort(t, svc, "Lagos", "nglos")
	assert.Equal(t, "NGLOS", p.Code)
	assert.Equal(t, "operational", p.Status)

	_, err = svc.Create(ctx, supervisor, CreateRequest{Name: "Apapa", Code: "NGLOS", Country: "NG", Latitude: f64(6), Longitude: f64(3)})
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))

	updated, err := svc.Update(ctx, supervisor, p.ID, Update{Status: str("congested"), AvgWaitDays: f64(4.5)})
	require.NoError(t, err)
	assert.Equal(t, "congested", updated.Status)
	assert.Equal(t, 4.5, updated.AvgWaitDays)

	_, err = svc.Update(ctx, supervisor, p.ID, Update{Status: str("flooded")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestBerthsAndBookings(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	p := createPort(t, svc, "Onne", "NGONN")

	_, err := svc.CreateBerth(ctx, supervisor, BerthRequest{PortID: 99, Name: "B1"})
	assert.Equal(t, "Port not found", apperrors.GetServiceError(err).Message)

	b2, err := svc.CreateBerth(ctx, supervisor, BerthRequest{PortID: p.ID, Name: "Quay 2"})
	require.NoError(t, err)
	_, err = svc.CreateBerth(ctx, supervisor, BerthRequest{PortID: p.ID, Name: "Quay 1"})
	require.NoError(t, err)

	berths, err := svc.Berths(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, berths, 2)
	assert.Equal(t, "Quay 1", berths[0].Name)

	_, err = svc.CreateBooking(ctx, supervisor, BookingRequest{
		BerthID: b2.ID, VesselID: id(4), ScheduledArrival: now.Add(48 * time.Hour), ScheduledDeparture: now.Add(24 * time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
	assert.Equal(t, "Arrival must be before departure", apperrors.GetServiceError(err).Message)

	late, err := svc.CreateBooking(ctx, supervisor, BookingRequest{
		BerthID: b2.ID, VesselID: id(4), ScheduledArrival: now.Add(72 * time.Hour), ScheduledDeparture: now.Add(96 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, late.Priority)
	assert.Equal(t, "scheduled", late.Status)

	early, err := svc.CreateBooking(ctx, supervisor, BookingRequest{
		BerthID: b2.ID, VesselID: id(5), ScheduledArrival: now.Add(2 * time.Hour), ScheduledDeparture: now.Add(30 * time.Hour),
	})
	require.NoError(t, err)

	list, err := svc.Bookings(ctx, p.ID, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)

	done, err := svc.UpdateBooking(ctx, early.ID, BookingUpdate{Status: str("completed")})
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)

	_, err = svc.UpdateBooking(ctx, early.ID, BookingUpdate{ScheduledDeparture: &now})
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))

	_, err = svc.UpdateBerth(ctx, b2.ID, BerthUpdate{Status: str("occupied")})
	require.NoError(t, err)
	_, err = svc.UpdateBerth(ctx, b2.ID, BerthUpdate{Status: str("sunk")})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestCongestionSummary(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	busy := createPort(t, svc, "Apapa", "NGAPP")
	idle := createPort(t, svc, "Calabar", "NGCBQ")
	closed := createPort(t, svc, "Warri", "NGWAR")
	_, err := svc.Update(ctx, supervisor, closed.ID, Update{Status: str("closed")})
	require.NoError(t, err)

	var berthIDs []int64
	for _, name := range []string{"A", "B", "C"} {
		b, err := svc.CreateBerth(ctx, supervisor, BerthRequest{PortID: busy.ID, Name: name})
		require.NoError(t, err)
		berthIDs = append(berthIDs, b.ID)
	}
	for _, bid := range berthIDs[:2] {
		_, err := svc.UpdateBerth(ctx, bid, BerthUpdate{Status: str("occupied")})
		require.NoError(t, err)
	}
	_, err = svc.CreateBooking(ctx, supervisor, BookingRequest{
		BerthID: berthIDs[0], VesselID: id(1), ScheduledArrival: now, ScheduledDeparture: now.Add(time.Hour),
	})
	require.NoError(t, err)
	cancelled, err := svc.CreateBooking(ctx, supervisor, BookingRequest{
		BerthID: berthIDs[1], VesselID: id(2), ScheduledArrival: now, ScheduledDeparture: now.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = svc.UpdateBooking(ctx, cancelled.ID, BookingUpdate{Status: str("cancelled")})
	require.NoError(t, err)

	summary, err := svc.CongestionSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	byCode := map[string]port.CongestionEntry{}
	for _, e := range summary {
		byCode[e.PortCode] = e
	}
	assert.NotContains(t, byCode, "NGWAR")

	a := byCode["NGAPP"]
	assert.Equal(t, 3, a.TotalBerths)
	assert.Equal(t, 1, a.AvailableBerths)
	assert.Equal(t, 1, a.ActiveBookings)
	assert.Equal(t, 66.7, a.UtilizationPct)

	c := byCode[idle.Code]
	assert.Equal(t, 0, c.TotalBerths)
	assert.Equal(t, 0.0, c.UtilizationPct)
}
