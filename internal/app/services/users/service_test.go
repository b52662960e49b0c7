package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/auth"
	"github.com/R3E-Network/sira_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

func setup(t *testing.T) (*Service, user.User, user.User) {
	t.Helper()
	store := memory.New()
	authSvc := auth.New(store, auth.Settings{SecretKey: "k"}, logger.Discard())
	svc := New(store, authSvc, logger.Discard())

	admin, err := svc.Create(context.Background(), auth.Registration{Username: "root", Email: "root@x.io", Password: "password123", Role: roles.Admin})
	require.NoError(t, err)
	op, err := svc.Create(context.Background(), auth.Registration{Username: "oper", Email: "op@x.io", Password: "password123"})
	require.NoError(t, err)
	return svc, admin, op
}

func TestGetVisibility(t *testing.T) {
	svc, admin, op := setup(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, op, admin.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	self, err := svc.Get(ctx, op, op.ID)
	require.NoError(t, err)
	assert.Equal(t, "oper", self.Username)

	_, err = svc.Get(ctx, admin, 404)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestUpdateRoleNeedsAdmin(t *testing.T) {
	svc, admin, op := setup(t)
	ctx := context.Background()
	name := "Op Erator"
	role := roles.Supervisor

	updated, err := svc.Update(ctx, op, op.ID, Update{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.FullName)

	_, err = svc.Update(ctx, op, op.ID, Update{Role: &role})
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	updated, err = svc.Update(ctx, admin, op.ID, Update{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, roles.Supervisor, updated.Role)

	bogus := "captain"
	_, err = svc.Update(ctx, admin, op.ID, Update{Role: &bogus})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestDeleteSelfRejected(t *testing.T) {
	svc, admin, op := setup(t)
	ctx := context.Background()

	err := svc.Delete(ctx, admin, admin.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))

	require.NoError(t, svc.Delete(ctx, admin, op.ID))
	err = svc.Delete(ctx, admin, op.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestActiveIDsByRole(t *testing.T) {
	svc, admin, _ := setup(t)
	ids, err := svc.ActiveIDsByRole(context.Background(), roles.Supervisors)
	require.NoError(t, err)
	assert.Equal(t, []int64{admin.ID}, ids)
}
