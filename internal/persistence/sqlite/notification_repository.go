package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/eventhub/internal/persistence"
)

const notificationColumns = `id, user_id, type, title, message, event_id, event_title, is_read, created_at`

// NotificationRepository implements persistence.NotificationRepository using SQLite
type NotificationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewNotificationRepository creates a new SQLite notification repository
func NewNotificationRepository(pool *ConnectionPool) *NotificationRepository {
	return &NotificationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateNotifications inserts the batch in a single transaction.
func (r *NotificationRepository) CreateNotifications(ctx context.Context, notifications []persistence.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	for _, n := range notifications {
		if n.ID == "" || n.UserID == "" {
			return persistence.ErrConstraintViolation
		}
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO notifications (`+notificationColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for _, n := range notifications {
				if _, err := stmt.ExecContext(ctx,
					n.ID,
					n.UserID,
					n.Type,
					n.Title,
					n.Message,
					nullableString(n.EventID),
					nullableString(n.EventTitle),
					boolToInt(n.Read),
					formatTime(n.CreatedAt),
				); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// GetNotification retrieves a notification by ID.
func (r *NotificationRepository) GetNotification(ctx context.Context, id string) (persistence.Notification, error) {
	if id == "" {
		return persistence.Notification{}, persistence.ErrNotFound
	}
	n, err := scanNotification(r.helper.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Notification{}, persistence.ErrNotFound
		}
		return persistence.Notification{}, r.mapper.MapError(err)
	}
	return n, nil
}

// ListNotificationsForUser returns up to limit notifications, newest first.
// A non-positive limit returns every notification.
func (r *NotificationRepository) ListNotificationsForUser(ctx context.Context, userID string, limit int) ([]persistence.Notification, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.helper.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	notifications := []persistence.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return notifications, nil
}

// CountUnreadNotifications counts the user's unread notifications.
func (r *NotificationRepository) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.helper.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID,
	).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// MarkNotificationRead flags one notification as read.
func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// MarkAllNotificationsRead flags every unread notification of the user and
// returns how many changed.
func (r *NotificationRepository) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	result, err := r.helper.Exec(ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// DeleteNotification removes one notification.
func (r *NotificationRepository) DeleteNotification(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// DeleteNotificationsForUser clears the user's inbox and returns how many
// notifications were removed.
func (r *NotificationRepository) DeleteNotificationsForUser(ctx context.Context, userID string) (int, error) {
	result, err := r.helper.Exec(ctx, `DELETE FROM notifications WHERE user_id = ?`, userID)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (persistence.Notification, error) {
	var (
		n          persistence.Notification
		eventID    sql.NullString
		eventTitle sql.NullString
		read       int
		createdAt  string
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &eventID, &eventTitle, &read, &createdAt); err != nil {
		return persistence.Notification{}, err
	}
	ts, err := parseTime(createdAt)
	if err != nil {
		return persistence.Notification{}, err
	}
	n.EventID = stringPointer(eventID)
	n.EventTitle = stringPointer(eventTitle)
	n.Read = read != 0
	n.CreatedAt = ts
	return n, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
