package memory

import (
	"context"
	"strings"

	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
)

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users.exists(func(x user.User) bool { return x.Username == u.Username }) {
		return user.User{}, conflict("user", "username", u.Username)
	}
	if s.users.exists(func(x user.User) bool { return strings.EqualFold(x.Email, u.Email) }) {
		return user.User{}, conflict("user", "email", u.Email)
	}
	stamp(&u.CreatedAt)
	touch(&u.UpdatedAt)
	s.users.insert(&u, &u.ID)
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users.get(u.ID)
	if !ok {
		return user.User{}, notFound("user", u.ID)
	}
	if s.users.exists(func(x user.User) bool { return x.ID != u.ID && x.Username == u.Username }) {
		return user.User{}, conflict("user", "username", u.Username)
	}
	if s.users.exists(func(x user.User) bool { return x.ID != u.ID && strings.EqualFold(x.Email, u.Email) }) {
		return user.User{}, conflict("user", "email", u.Email)
	}
	u.CreatedAt = original.CreatedAt
	refresh(&u.UpdatedAt)
	s.users.put(u.ID, u)
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users.get(id)
	if !ok {
		return user.User{}, notFound("user", id)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users.find(func(x user.User) bool { return x.Username == username })
	if !ok {
		return user.User{}, notFoundKey("user", username)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users.find(func(x user.User) bool { return strings.EqualFold(x.Email, email) })
	if !ok {
		return user.User{}, notFoundKey("user", email)
	}
	return u, nil
}

func (s *Store) ListUsers(_ context.Context, f user.Filter) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.users.filter(func(u user.User) bool {
		if f.Role != "" && u.Role != f.Role {
			return false
		}
		if f.ActiveOnly && !u.IsActive {
			return false
		}
		return inSet(u.Role, f.Roles)
	}, func(a, b user.User) bool { return a.ID < b.ID })
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.users.remove(id) {
		return notFound("user", id)
	}
	return nil
}
