package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/sira_platform/internal/app/domain/notification"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
)

var (
	notificationsTable = newWriteSet("notifications", notification.Notification{})
	preferencesTable   = newWriteSet("notification_preferences", notification.Preference{}, "user_id")
)

func (s *Store) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	stamp(&n.CreatedAt, nil)
	id, err := s.insert(ctx, notificationsTable, n)
	if err != nil {
		return notification.Notification{}, err
	}
	n.ID = id
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, f notification.Filter) ([]notification.Notification, error) {
	w := &where{}
	w.add("user_id = ?", f.UserID)
	if f.UnreadOnly {
		w.raw("NOT is_read")
	}
	out := []notification.Notification{}
	err := s.list(ctx, &out, "notifications", w, "created_at DESC, id DESC", 0, f.Limit)
	return out, err
}

func (s *Store) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read", userID)
	return n, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $3) WHERE id = $1 AND user_id = $2",
		id, userID, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("notification %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID int64, at time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE user_id = $1 AND NOT is_read", userID, at)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) GetPreference(ctx context.Context, userID int64) (notification.Preference, error) {
	var p notification.Preference
	err := s.getBy(ctx, &p, "notification_preferences", "user_id", userID)
	return p, err
}

// SavePreference upserts on user_id.
func (s *Store) SavePreference(ctx context.Context, p notification.Preference) (notification.Preference, error) {
	stamp(&p.CreatedAt, nil)
	refresh(&p.UpdatedAt)

	sets := make([]string, len(preferencesTable.update))
	for i, c := range preferencesTable.update {
		sets[i] = fmt.Sprintf(`"%s" = EXCLUDED."%s"`, c, c)
	}
	q := strings.TrimSuffix(preferencesTable.insertSQL(), " RETURNING id") +
		" ON CONFLICT (user_id) DO UPDATE SET " + strings.Join(sets, ", ") + " RETURNING id"
	rows, err := s.db.NamedQueryContext(ctx, q, p)
	if err != nil {
		return notification.Preference{}, mapError(err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&p.ID); err != nil {
			return notification.Preference{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return notification.Preference{}, err
	}
	return s.GetPreference(ctx, p.UserID)
}
