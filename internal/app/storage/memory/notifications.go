package memory

import (
	"context"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/domain/notification"
)

func (s *Store) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(&n.CreatedAt)
	s.notifications.insert(&n, &n.ID)
	return n, nil
}

func (s *Store) ListNotifications(_ context.Context, f notification.Filter) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.notifications.filter(func(n notification.Notification) bool {
		return n.UserID == f.UserID && (!f.UnreadOnly || !n.IsRead)
	}, func(a, b notification.Notification) bool { return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
	return paginate(out, 0, f.Limit), nil
}

func (s *Store) CountUnread(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, x := range s.notifications.rows {
		if x.UserID == userID && !x.IsRead {
			n++
		}
	}
	return n, nil
}

// MarkNotificationRead fails with ErrNotFound when the notification belongs
// to another user.
func (s *Store) MarkNotificationRead(_ context.Context, userID, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications.get(id)
	if !ok || n.UserID != userID {
		return notFound("notification", id)
	}
	if !n.IsRead {
		n.IsRead = true
		n.ReadAt = &at
		s.notifications.put(id, n)
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, userID int64, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, n := range s.notifications.rows {
		if n.UserID != userID || n.IsRead {
			continue
		}
		readAt := at
		n.IsRead = true
		n.ReadAt = &readAt
		s.notifications.rows[id] = n
		count++
	}
	return count, nil
}

func (s *Store) GetPreference(_ context.Context, userID int64) (notification.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.preferences.find(func(p notification.Preference) bool { return p.UserID == userID })
	if !ok {
		return notification.Preference{}, notFound("notification preference for user", userID)
	}
	return p, nil
}

// SavePreference inserts or replaces the row for p.UserID.
func (s *Store) SavePreference(_ context.Context, p notification.Preference) (notification.Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.preferences.find(func(x notification.Preference) bool { return x.UserID == p.UserID })
	if !ok {
		stamp(&p.CreatedAt)
		touch(&p.UpdatedAt)
		s.preferences.insert(&p, &p.ID)
		return p, nil
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	refresh(&p.UpdatedAt)
	s.preferences.put(p.ID, p)
	return p, nil
}
