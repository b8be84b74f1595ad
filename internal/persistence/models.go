package persistence

import "time"

// Event status values stored alongside each event document.
const (
	EventStatusActive    = "active"
	EventStatusCancelled = "cancelled"
)

// Participant is one confirmed attendee of an event.
type Participant struct {
	UserID      string
	UserEmail   string
	ConfirmedAt time.Time
}

// Event represents an organized gathering and its participant roster.
//
// Date is a calendar day formatted as YYYY-MM-DD and Time a time of day
// formatted as HH:MM; both are stored verbatim so that lexical order matches
// chronological order.
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

// EventChanges lists the mutable event fields. Nil pointers leave the stored
// value untouched. Organizer and participant data are intentionally absent.
type EventChanges struct {
	Title       *string
	Description *string
	Date        *string
	Time        *string
	Location    *string
	Category    *string
	Status      *string
	UpdatedAt   time.Time
}

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
