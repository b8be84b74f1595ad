package persistence

import "context"

// EventFilter narrows event listings. Empty fields are ignored.
type EventFilter struct {
	// DateOnOrAfter keeps events whose date is >= the given YYYY-MM-DD day.
	DateOnOrAfter string
	// DateBefore keeps events whose date is < the given YYYY-MM-DD day.
	DateBefore    string
	Status        string
	OrganizerID   string
	ParticipantID string
}

// EventRepository stores events together with their participant rosters.
// Listings are ordered by date descending.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, id string, changes EventChanges) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	// AddParticipant appends a participant atomically and returns the new
	// roster size. It fails with ErrDuplicate when the user is already listed.
	AddParticipant(ctx context.Context, eventID string, participant Participant) (int, error)
	// RemoveParticipant drops the user from the roster if present and returns
	// the new roster size.
	RemoveParticipant(ctx context.Context, eventID, userID string) (int, error)
}

// NotificationRepository stores per-recipient notifications.
type NotificationRepository interface {
	// CreateNotifications writes every notification or none of them.
	CreateNotifications(ctx context.Context, notifications []Notification) error
	GetNotification(ctx context.Context, id string) (Notification, error)
	// ListNotificationsForUser returns the newest notifications first.
	ListNotificationsForUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
	DeleteNotification(ctx context.Context, id string) error
	DeleteNotificationsForUser(ctx context.Context, userID string) (int, error)
}
