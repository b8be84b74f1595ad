package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/eventhub/internal/persistence"
)

// DefaultInboxLimit caps a single inbox listing.
const DefaultInboxLimit = 50

// NotificationRepository captures the persistence operations needed by the inbox.
type NotificationRepository interface {
	CreateNotifications(ctx context.Context, notifications []Notification) error
	GetNotification(ctx context.Context, id string) (Notification, error)
	ListNotificationsForUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
	DeleteNotification(ctx context.Context, id string) error
	DeleteNotificationsForUser(ctx context.Context, userID string) (int, error)
}

// EventLookup resolves events referenced by notifications.
type EventLookup interface {
	GetEvent(ctx context.Context, id string) (Event, error)
}

// NotificationService is the per-recipient inbox. Only the recipient may read,
// mark or delete a notification.
type NotificationService struct {
	notifications NotificationRepository
	events        EventLookup
	idGenerator   func() string
	now           func() time.Time
	limit         int
	logger        *slog.Logger
}

// NewNotificationService constructs an inbox service. A non-positive limit
// selects DefaultInboxLimit.
func NewNotificationService(notifications NotificationRepository, events EventLookup, idGenerator func() string, now func() time.Time, limit int) *NotificationService {
	return NewNotificationServiceWithLogger(notifications, events, idGenerator, now, limit, nil)
}

// NewNotificationServiceWithLogger constructs an inbox service with a specified logger.
func NewNotificationServiceWithLogger(notifications NotificationRepository, events EventLookup, idGenerator func() string, now func() time.Time, limit int, logger *slog.Logger) *NotificationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if limit <= 0 {
		limit = DefaultInboxLimit
	}
	return &NotificationService{
		notifications: notifications,
		events:        events,
		idGenerator:   idGenerator,
		now:           now,
		limit:         limit,
		logger:        defaultLogger(logger),
	}
}

func (s *NotificationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NotificationService", operation, attrs...)
}

func (s *NotificationService) ready(principal Principal) error {
	if s == nil {
		return fmt.Errorf("NotificationService is nil")
	}
	if s.notifications == nil {
		return fmt.Errorf("notification repository not configured")
	}
	if principal.UserID == "" {
		return ErrUnauthenticated
	}
	return nil
}

// ListForUser returns the newest notifications of the principal, capped at
// limit (the service default when limit is not positive), and the number of
// unread notifications in the whole inbox.
func (s *NotificationService) ListForUser(ctx context.Context, principal Principal, limit int) (inbox Inbox, err error) {
	if err = s.ready(principal); err != nil {
		return
	}
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	logger := s.loggerWith(ctx, "ListForUser", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list notifications", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(inbox.Notifications), "unread", inbox.UnreadCount).
			DebugContext(ctx, "notifications listed")
	}()

	inbox.Notifications, err = s.notifications.ListNotificationsForUser(ctx, principal.UserID, limit)
	if err != nil {
		err = mapNotificationRepoError("ListNotificationsForUser", err)
		return
	}
	if inbox.Notifications == nil {
		inbox.Notifications = []Notification{}
	}

	inbox.UnreadCount, err = s.notifications.CountUnreadNotifications(ctx, principal.UserID)
	if err != nil {
		err = mapNotificationRepoError("CountUnreadNotifications", err)
	}
	return
}

// MarkRead flags one of the principal's notifications as read. Marking an
// already read notification succeeds.
func (s *NotificationService) MarkRead(ctx context.Context, principal Principal, id string) (err error) {
	if err = s.ready(principal); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "MarkRead",
		"principal_id", principal.UserID,
		"notification_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to mark notification read", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var n Notification
	if n, err = s.owned(ctx, principal, id); err != nil {
		return
	}
	if n.Read {
		return
	}
	if err = s.notifications.MarkNotificationRead(ctx, id); err != nil {
		err = mapNotificationRepoError("MarkNotificationRead", err)
	}
	return
}

// MarkAllRead flags every unread notification of the principal and returns
// how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, principal Principal) (count int, err error) {
	if err = s.ready(principal); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "MarkAllRead", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to mark notifications read", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("count", count).InfoContext(ctx, "notifications marked read")
	}()

	count, err = s.notifications.MarkAllNotificationsRead(ctx, principal.UserID)
	if err != nil {
		err = mapNotificationRepoError("MarkAllNotificationsRead", err)
	}
	return
}

// Delete removes one of the principal's notifications.
func (s *NotificationService) Delete(ctx context.Context, principal Principal, id string) (err error) {
	if err = s.ready(principal); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete",
		"principal_id", principal.UserID,
		"notification_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete notification", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if _, err = s.owned(ctx, principal, id); err != nil {
		return
	}
	if err = s.notifications.DeleteNotification(ctx, id); err != nil {
		err = mapNotificationRepoError("DeleteNotification", err)
	}
	return
}

// DeleteAll clears the principal's inbox and returns how many notifications
// were removed.
func (s *NotificationService) DeleteAll(ctx context.Context, principal Principal) (count int, err error) {
	if err = s.ready(principal); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteAll", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete notifications", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("count", count).InfoContext(ctx, "notifications deleted")
	}()

	count, err = s.notifications.DeleteNotificationsForUser(ctx, principal.UserID)
	if err != nil {
		err = mapNotificationRepoError("DeleteNotificationsForUser", err)
	}
	return
}

// Create stores a client-initiated notification. The recipient defaults to
// the principal; addressing somebody else requires organizing the referenced
// event.
func (s *NotificationService) Create(ctx context.Context, principal Principal, input NotificationInput) (notification Notification, err error) {
	if err = s.ready(principal); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Create", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create notification", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("notification_id", notification.ID, "recipient_id", notification.UserID).
			InfoContext(ctx, "notification created")
	}()

	input.UserID = strings.TrimSpace(input.UserID)
	input.Type = strings.TrimSpace(input.Type)
	input.Title = strings.TrimSpace(input.Title)
	input.Message = strings.TrimSpace(input.Message)
	if input.UserID == "" {
		input.UserID = principal.UserID
	}
	input.EventID = emptyToNil(input.EventID)
	input.EventTitle = emptyToNil(input.EventTitle)

	vErr := &ValidationError{}
	if input.Type == "" {
		vErr.require("type", "El tipo es requerido")
	}
	if input.Title == "" {
		vErr.require("title", "El título es requerido")
	}
	if input.Message == "" {
		vErr.require("message", "El mensaje es requerido")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if input.UserID != principal.UserID {
		if err = s.authorizeOnBehalf(ctx, principal, input.EventID); err != nil {
			return
		}
	}

	notification = Notification{
		ID:         s.idGenerator(),
		UserID:     input.UserID,
		Type:       input.Type,
		Title:      input.Title,
		Message:    input.Message,
		EventID:    input.EventID,
		EventTitle: input.EventTitle,
		CreatedAt:  s.now().UTC(),
	}
	if err = s.notifications.CreateNotifications(ctx, []Notification{notification}); err != nil {
		err = mapNotificationRepoError("CreateNotifications", err)
	}
	return
}

func (s *NotificationService) authorizeOnBehalf(ctx context.Context, principal Principal, eventID *string) error {
	if eventID == nil || s.events == nil {
		return ErrForbidden
	}
	event, err := s.events.GetEvent(ctx, *eventID)
	if err != nil {
		if mapped := mapEventRepoError("GetEvent", err); !errors.Is(mapped, ErrNotFound) {
			return mapped
		}
		return ErrForbidden
	}
	if event.OrganizerID != principal.UserID {
		return ErrForbidden
	}
	return nil
}

func (s *NotificationService) owned(ctx context.Context, principal Principal, id string) (Notification, error) {
	n, err := s.notifications.GetNotification(ctx, id)
	if err != nil {
		return Notification{}, mapNotificationRepoError("GetNotification", err)
	}
	if n.UserID != principal.UserID {
		return Notification{}, ErrForbidden
	}
	return n, nil
}

func emptyToNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mapNotificationRepoError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("notification", "Datos de notificación inválidos")
		return vErr
	}
	return storeError(op, err)
}
