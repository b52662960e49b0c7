package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := New(store, Settings{SecretKey: "test-secret"}, logger.Discard())
	return svc, store
}

func register(t *testing.T, svc *Service, name string) user.User {
	t.Helper()
	u, err := svc.Register(context.Background(), Registration{
		Username: name,
		Email:    name + "@example.com",
		Password: "password123",
		Role:     roles.Admin,
	})
	require.NoError(t, err)
	return u
}

func TestRegisterForcesOperatorRole(t *testing.T) {
	svc, _ := newService(t)
	u := register(t, svc, "alice")
	assert.Equal(t, roles.Operator, u.Role)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "password123", u.HashedPassword)

	_, err := svc.Register(context.Background(), Registration{Username: "alice", Email: "x@example.com", Password: "password123"})
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))

	_, err = svc.Register(context.Background(), Registration{Username: "bob", Email: "ALICE@example.com", Password: "password123"})
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))

	_, err = svc.Register(context.Background(), Registration{Username: "carol", Email: "c@example.com", Password: "short"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestRegisterUsernameLength(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, Registration{Username: strings.Repeat("u", 100), Email: "long@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Len(t, u.Username, 100)

	for _, name := range []string{"ab", strings.Repeat("v", 101)} {
		_, err := svc.Register(ctx, Registration{Username: name, Email: "x" + name[:1] + "@example.com", Password: "password123"})
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation), name)
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	svc, store := newService(t)
	register(t, svc, "alice")

	pair, u, err := svc.Login(context.Background(), "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	require.NotNil(t, u.LastLogin)

	stored, err := store.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)

	authed, err := svc.Authenticate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, authed.ID)

	// A refresh token is not accepted as an access token.
	_, err = svc.Authenticate(context.Background(), pair.RefreshToken)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidToken))

	refreshed, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestLoginFailures(t *testing.T) {
	svc, store := newService(t)
	u := register(t, svc, "alice")

	_, _, err := svc.Login(context.Background(), "alice", "wrong-password")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))

	_, _, err = svc.Login(context.Background(), "nobody", "password123")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))

	u.IsActive = false
	_, err = store.UpdateUser(context.Background(), u)
	require.NoError(t, err)
	_, _, err = svc.Login(context.Background(), "alice", "password123")
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
}

func TestAuthenticateRejectsExpiredAndForeignTokens(t *testing.T) {
	svc, _ := newService(t)
	u := register(t, svc, "alice")

	token, err := svc.IssueAccessToken(u)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	_, err = svc.Authenticate(context.Background(), token)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidToken))

	other := New(memory.New(), Settings{SecretKey: "other-secret"}, logger.Discard())
	foreign, err := other.IssueAccessToken(u)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().UTC() }
	_, err = svc.Authenticate(context.Background(), foreign)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidToken))
}

func TestChangePassword(t *testing.T) {
	svc, _ := newService(t)
	u := register(t, svc, "alice")
	ctx := context.Background()

	err := svc.ChangePassword(ctx, u.ID, "bad", "newpassword1")
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))

	err = svc.ChangePassword(ctx, u.ID, "password123", "short")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "password123", "newpassword1"))
	_, _, err = svc.Login(ctx, "alice", "newpassword1")
	assert.NoError(t, err)

	err = svc.ChangePassword(ctx, 999, "x", "y")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}
