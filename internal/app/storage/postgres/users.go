package postgres

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
)

var usersTable = newWriteSet("users", user.User{})

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	stamp(&u.CreatedAt, &u.UpdatedAt)
	id, err := s.insert(ctx, usersTable, u)
	if err != nil {
		return user.User{}, err
	}
	u.ID = id
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	refresh(&u.UpdatedAt)
	if err := s.update(ctx, usersTable, u.ID, u); err != nil {
		return user.User{}, err
	}
	return s.GetUser(ctx, u.ID)
}

func (s *Store) GetUser(ctx context.Context, id int64) (user.User, error) {
	var u user.User
	err := s.getByID(ctx, &u, "users", id)
	return u, err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User
	err := s.getBy(ctx, &u, "users", "username", username)
	return u, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, "SELECT * FROM users WHERE LOWER(email) = LOWER($1)", email)
	return u, notFoundOnNoRows(err, "users", email)
}

func (s *Store) ListUsers(ctx context.Context, f user.Filter) ([]user.User, error) {
	w := &where{}
	w.eq("role", f.Role)
	w.in("role", f.Roles)
	if f.ActiveOnly {
		w.raw("is_active")
	}
	out := []user.User{}
	err := s.list(ctx, &out, "users", w, "id", f.Offset, f.Limit)
	return out, err
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "users", id)
}
