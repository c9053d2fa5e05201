package store

import (
	"context"
	"fmt"

	"github.com/kvn/taskhub/internal/model"
)

// CreateNotification inserts a new notification record.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n model.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, link, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, n.Message, n.Link,
		boolToInt(n.Read), n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// GetNotificationsForUser retrieves every notification addressed to a
// user, newest first.
func (s *SQLiteStore) GetNotificationsForUser(
	ctx context.Context,
	userID string,
) ([]model.Notification, error) {
	return s.queryNotifications(ctx,
		"SELECT * FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id", userID,
	)
}

// GetUnreadNotificationsForUser retrieves a user's unread notifications,
// newest first.
func (s *SQLiteStore) GetUnreadNotificationsForUser(
	ctx context.Context,
	userID string,
) ([]model.Notification, error) {
	return s.queryNotifications(ctx,
		"SELECT * FROM notifications WHERE user_id = ? AND read = 0 ORDER BY created_at DESC, id",
		userID,
	)
}

// MarkNotificationRead marks a single notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("notification %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// queryNotifications runs a notification query and scans the results.
func (s *SQLiteStore) queryNotifications(
	ctx context.Context,
	query string,
	args ...interface{},
) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var (
			n       model.Notification
			readInt int
		)
		err := rows.Scan(
			&n.ID, &n.UserID, &n.Title, &n.Message, &n.Link,
			&readInt, &n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		n.Read = readInt != 0
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}
