package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/iot"
	"github.com/R3E-Network/sira_platform/internal/app/domain/port"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	"github.com/R3E-Network/sira_platform/internal/platform/migrations"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestWriteSetSQL(t *testing.T) {
	ws := newWriteSet("berths", port.Berth{}, "port_id")
	assert.NotContains(t, ws.insert, "id")
	assert.Contains(t, ws.insert, "port_id")
	assert.NotContains(t, ws.update, "port_id")
	assert.NotContains(t, ws.update, "created_at")
	assert.Contains(t, ws.update, "updated_at")
	assert.Contains(t, ws.updateSQL(), "WHERE id = :id")
	assert.Contains(t, ws.insertSQL(), "RETURNING id")
}

func TestCreateUserReturnsID(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users ("username"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	u, err := s.CreateUser(context.Background(), user.User{Username: "alice", Email: "a@x", Role: "operator"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserUniqueViolation(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

	_, err := s.CreateUser(context.Background(), user.User{Username: "alice"})
	assert.True(t, errors.Is(err, storage.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET "username" = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.UpdateUser(context.Background(), user.User{ID: 9, Username: "ghost"})
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserNoRows(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM users WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetUser(context.Background(), 3)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestListUsersBuildsFilters(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM users WHERE role = ANY($1) AND is_active ORDER BY id LIMIT $2 OFFSET $3`)).
		WithArgs(sqlmock.AnyArg(), int64(10), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "role", "is_active", "created_at"}).
			AddRow(int64(1), "sup", "sup@x", "supervisor", true, now))

	out, err := s.ListUsers(context.Background(), user.Filter{Roles: []string{"supervisor", "admin"}, ActiveOnly: true, Offset: 5, Limit: 10})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "sup", out[0].Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListBookingsJoinsBerths(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM berth_bookings b JOIN berths br ON br.id = b.berth_id WHERE br.port_id = $1 ORDER BY b.scheduled_arrival`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "berth_id", "status"}).AddRow(int64(1), int64(2), "scheduled"))

	out, err := s.ListBookings(context.Background(), port.BookingFilter{PortID: 7})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].BerthID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReadingsReordersRecentWindow(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY "timestamp" DESC, id DESC LIMIT $2) r ORDER BY r."timestamp", r.id`)).
		WithArgs(int64(4), int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "device_id"}))

	out, err := s.ListReadings(context.Background(), iot.ReadingFilter{DeviceID: 4, Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMapErrorForeignKey(t *testing.T) {
	err := mapError(&pq.Error{Code: "23503", Constraint: "events_movement_id_fkey"})
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	plain := errors.New("boom")
	assert.Equal(t, plain, mapError(plain))
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	m, err := migrations.New(db, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	ctx := context.Background()
	store := New(db)
	name := "it-" + time.Now().Format("150405.000000")

	u, err := store.CreateUser(ctx, user.User{Username: name, Email: name + "@example.com", Role: "operator", IsActive: true})
	require.NoError(t, err)
	defer store.DeleteUser(ctx, u.ID)

	_, err = store.CreateUser(ctx, user.User{Username: name, Email: "other-" + name + "@example.com", Role: "operator"})
	assert.True(t, errors.Is(err, storage.ErrConflict))

	got, err := store.GetUserByEmail(ctx, name+"@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got.FullName = "Integration"
	updated, err := store.UpdateUser(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Integration", updated.FullName)
}
