package mongo

import (
	"time"

	"github.com/example/eventhub/internal/persistence"
)

type participantDocument struct {
	UserID      string    `bson:"userId"`
	UserEmail   string    `bson:"userEmail"`
	ConfirmedAt time.Time `bson:"confirmedAt"`
}

type eventDocument struct {
	ID             string                `bson:"_id"`
	Title          string                `bson:"title"`
	Description    string                `bson:"description"`
	Date           string                `bson:"date"`
	Time           string                `bson:"time"`
	Location       string                `bson:"location"`
	Category       string                `bson:"category"`
	OrganizerID    string                `bson:"organizerId"`
	OrganizerEmail string                `bson:"organizerEmail"`
	Status         string                `bson:"status"`
	Participants   []participantDocument `bson:"participants"`
	CreatedAt      time.Time             `bson:"createdAt"`
	UpdatedAt      time.Time             `bson:"updatedAt"`
}

type notificationDocument struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"userId"`
	Type       string    `bson:"type"`
	Title      string    `bson:"title"`
	Message    string    `bson:"message"`
	EventID    *string   `bson:"eventId,omitempty"`
	EventTitle *string   `bson:"eventTitle,omitempty"`
	Read       bool      `bson:"read"`
	CreatedAt  time.Time `bson:"createdAt"`
}

func newEventDocument(e persistence.Event) eventDocument {
	doc := eventDocument{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		Date:           e.Date,
		Time:           e.Time,
		Location:       e.Location,
		Category:       e.Category,
		OrganizerID:    e.OrganizerID,
		OrganizerEmail: e.OrganizerEmail,
		Status:         e.Status,
		Participants:   make([]participantDocument, 0, len(e.Participants)),
		CreatedAt:      e.CreatedAt.UTC(),
		UpdatedAt:      e.UpdatedAt.UTC(),
	}
	for _, p := range e.Participants {
		doc.Participants = append(doc.Participants, newParticipantDocument(p))
	}
	return doc
}

func newParticipantDocument(p persistence.Participant) participantDocument {
	return participantDocument{UserID: p.UserID, UserEmail: p.UserEmail, ConfirmedAt: p.ConfirmedAt.UTC()}
}

func (d eventDocument) model() persistence.Event {
	e := persistence.Event{
		ID:             d.ID,
		Title:          d.Title,
		Description:    d.Description,
		Date:           d.Date,
		Time:           d.Time,
		Location:       d.Location,
		Category:       d.Category,
		OrganizerID:    d.OrganizerID,
		OrganizerEmail: d.OrganizerEmail,
		Status:         d.Status,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
	for _, p := range d.Participants {
		e.Participants = append(e.Participants, persistence.Participant{
			UserID:      p.UserID,
			UserEmail:   p.UserEmail,
			ConfirmedAt: p.ConfirmedAt.UTC(),
		})
	}
	return e
}

func newNotificationDocument(n persistence.Notification) notificationDocument {
	return notificationDocument{
		ID:         n.ID,
		UserID:     n.UserID,
		Type:       n.Type,
		Title:      n.Title,
		Message:    n.Message,
		EventID:    n.EventID,
		EventTitle: n.EventTitle,
		Read:       n.Read,
		CreatedAt:  n.CreatedAt.UTC(),
	}
}

func (d notificationDocument) model() persistence.Notification {
	return persistence.Notification{
		ID:         d.ID,
		UserID:     d.UserID,
		Type:       d.Type,
		Title:      d.Title,
		Message:    d.Message,
		EventID:    d.EventID,
		EventTitle: d.EventTitle,
		Read:       d.Read,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}
