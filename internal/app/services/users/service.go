// Package users manages accounts on behalf of administrators and the users
// themselves.
package users

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/services/auth"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// Update carries a partial user update. Nil fields are left unchanged.
type Update struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// Service manages user accounts.
type Service struct {
	store storage.UserStore
	auth  *auth.Service
	log   *logger.Logger
}

// New constructs a users service.
func New(store storage.UserStore, authSvc *auth.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, auth: authSvc, log: log}
}

// List returns users page by page.
func (s *Service) List(ctx context.Context, f user.Filter) ([]user.User, error) {
	return s.store.ListUsers(ctx, f)
}

// Get returns a user visible to actor: themselves, or anyone for supervisors.
func (s *Service) Get(ctx context.Context, actor user.User, id int64) (user.User, error) {
	if actor.ID != id && !roles.Supervisors.Contains(actor.Role) {
		return user.User{}, apperrors.Forbidden("")
	}
	u, err := s.store.GetUser(ctx, id)
	return u, service.Translate(err, "User")
}

// Create adds an account with any role.
func (s *Service) Create(ctx context.Context, req auth.Registration) (user.User, error) {
	return s.auth.CreateUser(ctx, req)
}

// Update applies upd to user id. Users may edit their own profile fields;
// role and activation changes need an administrator.
func (s *Service) Update(ctx context.Context, actor user.User, id int64, upd Update) (user.User, error) {
	isAdmin := roles.Admins.Contains(actor.Role)
	if actor.ID != id && !isAdmin {
		return user.User{}, apperrors.Forbidden("")
	}
	if (upd.Role != nil || upd.IsActive != nil) && !isAdmin {
		return user.User{}, apperrors.Forbidden("Only administrators can change role or status")
	}

	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, service.Translate(err, "User")
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Role != nil {
		if !roles.Valid(*upd.Role) {
			return user.User{}, apperrors.Validation("invalid role")
		}
		u.Role = *upd.Role
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}

	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, service.Translate(err, "Email")
	}
	s.log.Infof("user %d updated by %s", id, actor.Username)
	return updated, nil
}

// Delete removes an account. Administrators cannot delete themselves.
func (s *Service) Delete(ctx context.Context, actor user.User, id int64) error {
	if actor.ID == id {
		return apperrors.BadRequest("Cannot delete your own account")
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return service.Translate(err, "User")
	}
	s.log.Infof("user %d deleted by %s", id, actor.Username)
	return nil
}

// ActiveIDsByRole returns ids of active users holding any of the given roles.
func (s *Service) ActiveIDsByRole(ctx context.Context, group roles.Group) ([]int64, error) {
	list, err := s.store.ListUsers(ctx, user.Filter{Roles: group, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(list))
	for _, u := range list {
		ids = append(ids, u.ID)
	}
	return ids, nil
}
