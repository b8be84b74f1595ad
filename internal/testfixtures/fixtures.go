package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/eventhub/internal/application"
	"github.com/example/eventhub/internal/persistence"
)

var (
	eventCounter        uint64
	notificationCounter uint64
)

var referenceTime = time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Event fixtures -----------------------------

// ParticipantFixture is one roster entry of an EventFixture.
type ParticipantFixture struct {
	UserID      string
	UserEmail   string
	ConfirmedAt time.Time
}

// EventFixture represents a deterministic event that can be materialised for
// application or persistence tests.
type EventFixture struct {
	ID             string
	Title          string
	Description    string
	Date           string
	Time           string
	Location       string
	Category       string
	OrganizerID    string
	OrganizerEmail string
	Status         string
	Participants   []ParticipantFixture
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic active event with an empty roster.
// Each call shifts the date one day back so fixtures sort predictably.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	id := fmt.Sprintf("event-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := EventFixture{
		ID:             id,
		Title:          fmt.Sprintf("Evento %03d", idx),
		Description:    "Descripción de prueba",
		Date:           referenceTime.AddDate(0, 0, 30-int(idx%30)).Format("2006-01-02"),
		Time:           application.DefaultEventTime,
		Location:       "Sala principal",
		Category:       application.DefaultEventCategory,
		OrganizerID:    "organizer-001",
		OrganizerEmail: "organizer-001@example.com",
		Status:         application.EventStatusActive,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventTitle overrides the generated title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventSchedule sets the calendar day and time of day.
func WithEventSchedule(date, clock string) EventOption {
	return func(f *EventFixture) {
		f.Date = date
		f.Time = clock
	}
}

// WithEventOrganizer sets the organizer.
func WithEventOrganizer(id, email string) EventOption {
	return func(f *EventFixture) {
		f.OrganizerID = id
		f.OrganizerEmail = email
	}
}

// WithEventStatus overrides the status.
func WithEventStatus(status string) EventOption {
	return func(f *EventFixture) {
		f.Status = status
	}
}

// WithEventParticipants appends roster entries confirmed one minute apart,
// starting at the creation time.
func WithEventParticipants(userIDs ...string) EventOption {
	return func(f *EventFixture) {
		for _, id := range userIDs {
			f.Participants = append(f.Participants, ParticipantFixture{
				UserID:      id,
				UserEmail:   id + "@example.com",
				ConfirmedAt: f.CreatedAt.Add(time.Duration(len(f.Participants)+1) * time.Minute),
			})
		}
	}
}

// WithEventTimestamps sets both created and updated timestamps on the fixture.
func WithEventTimestamps(created, updated time.Time) EventOption {
	return func(f *EventFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application converts the fixture into an application event.
func (f EventFixture) Application() application.Event {
	participants := make([]application.Participant, 0, len(f.Participants))
	for _, p := range f.Participants {
		participants = append(participants, application.Participant{
			UserID:      p.UserID,
			UserEmail:   p.UserEmail,
			ConfirmedAt: p.ConfirmedAt,
		})
	}
	return application.Event{
		ID:             f.ID,
		Title:          f.Title,
		Description:    f.Description,
		Date:           f.Date,
		Time:           f.Time,
		Location:       f.Location,
		Category:       f.Category,
		OrganizerID:    f.OrganizerID,
		OrganizerEmail: f.OrganizerEmail,
		Status:         f.Status,
		Participants:   participants,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Persistence converts the fixture into a persistence event.
func (f EventFixture) Persistence() persistence.Event {
	participants := make([]persistence.Participant, 0, len(f.Participants))
	for _, p := range f.Participants {
		participants = append(participants, persistence.Participant{
			UserID:      p.UserID,
			UserEmail:   p.UserEmail,
			ConfirmedAt: p.ConfirmedAt,
		})
	}
	return persistence.Event{
		ID:             f.ID,
		Title:          f.Title,
		Description:    f.Description,
		Date:           f.Date,
		Time:           f.Time,
		Location:       f.Location,
		Category:       f.Category,
		OrganizerID:    f.OrganizerID,
		OrganizerEmail: f.OrganizerEmail,
		Status:         f.Status,
		Participants:   participants,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// ------------------------- Notification fixtures -------------------------

// NotificationFixture represents a deterministic inbox entry.
type NotificationFixture struct {
	ID         string
	UserID     string
	Type       string
	Title      string
	Message    string
	EventID    *string
	EventTitle *string
	Read       bool
	CreatedAt  time.Time
}

// NotificationOption configures the generated notification fixture.
type NotificationOption func(*NotificationFixture)

// NewNotificationFixture returns an unread notification. Later fixtures are
// created later, so listings return them first.
func NewNotificationFixture(opts ...NotificationOption) NotificationFixture {
	idx := atomic.AddUint64(&notificationCounter, 1)
	fixture := NotificationFixture{
		ID:        fmt.Sprintf("notification-%03d", idx),
		UserID:    "user-001",
		Type:      application.NotificationEventChanged,
		Title:     "🔄 Evento Modificado",
		Message:   fmt.Sprintf("Mensaje %03d", idx),
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithNotificationID overrides the generated ID.
func WithNotificationID(id string) NotificationOption {
	return func(f *NotificationFixture) {
		f.ID = id
	}
}

// WithNotificationRecipient sets the owning user.
func WithNotificationRecipient(userID string) NotificationOption {
	return func(f *NotificationFixture) {
		f.UserID = userID
	}
}

// WithNotificationType overrides the notification type.
func WithNotificationType(kind string) NotificationOption {
	return func(f *NotificationFixture) {
		f.Type = kind
	}
}

// WithNotificationEvent references an event by ID and title.
func WithNotificationEvent(id, title string) NotificationOption {
	return func(f *NotificationFixture) {
		f.EventID = &id
		f.EventTitle = &title
	}
}

// WithNotificationRead marks the fixture as read.
func WithNotificationRead(read bool) NotificationOption {
	return func(f *NotificationFixture) {
		f.Read = read
	}
}

// WithNotificationCreatedAt overrides the creation time.
func WithNotificationCreatedAt(t time.Time) NotificationOption {
	return func(f *NotificationFixture) {
		f.CreatedAt = t
	}
}

// Application converts the fixture into an application notification.
func (f NotificationFixture) Application() application.Notification {
	return application.Notification{
		ID:         f.ID,
		UserID:     f.UserID,
		Type:       f.Type,
		Title:      f.Title,
		Message:    f.Message,
		EventID:    f.EventID,
		EventTitle: f.EventTitle,
		Read:       f.Read,
		CreatedAt:  f.CreatedAt,
	}
}

// Persistence converts the fixture into a persistence notification.
func (f NotificationFixture) Persistence() persistence.Notification {
	return persistence.Notification{
		ID:         f.ID,
		UserID:     f.UserID,
		Type:       f.Type,
		Title:      f.Title,
		Message:    f.Message,
		EventID:    f.EventID,
		EventTitle: f.EventTitle,
		Read:       f.Read,
		CreatedAt:  f.CreatedAt,
	}
}
