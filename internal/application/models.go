package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Email  string
	Name   string
}

// Identity is the verified content of a bearer token.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	Picture   string
	Provider  string
	ExpiresAt time.Time
}

// Principal narrows the identity to the fields services act on.
func (i Identity) Principal() Principal {
	return Principal{UserID: i.UserID, Email: i.Email, Name: i.Name}
}

// Event status values.
const (
	EventStatusActive    = "active"
	EventStatusCancelled = "cancelled"
)

// Field defaults applied on creation.
const (
	DefaultEventTime     = "00:00"
	DefaultEventCategory = "general"
)

// Participant is one confirmed attendee of an event.
type Participant struct {
	UserID      string
	UserEmail   string
	ConfirmedAt time.Time
}

// Event represents an organized gathering and its roster.
type Event struct {
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
	Participants   []Participant
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasParticipant reports whether userID is on the roster.
func (e Event) HasParticipant(userID string) bool {
	for _, p := range e.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// EventInput captures caller provided fields for a new event.
type EventInput struct {
	Title       string
	Description string
	Date        string
	Time        string
	Location    string
	Category    string
}

// EventPatch lists the fields an organizer may change. Nil fields are left
// untouched; there is no way to change the organizer or the roster here.
type EventPatch struct {
	Title       *string
	Description *string
	Date        *string
	Time        *string
	Location    *string
	Category    *string
	Status      *string
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Date == nil && p.Time == nil &&
		p.Location == nil && p.Category == nil && p.Status == nil
}

// ListFilter selects which events a listing returns.
type ListFilter string

const (
	// ListAll applies no date or status restriction.
	ListAll ListFilter = "all"
	// ListUpcoming keeps active events dated today or later.
	ListUpcoming ListFilter = "upcoming"
	// ListPast keeps events dated before today regardless of status.
	ListPast ListFilter = "past"
)

// EventRepositoryFilter narrows repository listings. Empty fields are ignored.
type EventRepositoryFilter struct {
	DateOnOrAfter string
	DateBefore    string
	Status        string
	OrganizerID   string
	ParticipantID string
}

// Notification types.
const (
	NotificationEventCreated        = "event_created"
	NotificationEventChanged        = "event_changed"
	NotificationEventUpdated        = "event_updated"
	NotificationEventCancelled      = "event_cancelled"
	NotificationAttendanceConfirmed = "attendance_confirmed"
	NotificationNewAttendee         = "new_attendee"
)

// Notification represents one addressed message in a user's inbox.
type Notification struct {
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

// Note is the content of a notification before it is addressed.
type Note struct {
	Type       string
	Title      string
	Message    string
	EventID    *string
	EventTitle *string
}

// Inbox is a page of a user's notifications.
type Inbox struct {
	Notifications []Notification
	UnreadCount   int
}

// NotificationInput captures a client-initiated notification.
type NotificationInput struct {
	UserID     string
	Type       string
	Title      string
	Message    string
	EventID    *string
	EventTitle *string
}
