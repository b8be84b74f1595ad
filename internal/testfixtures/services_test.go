package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/eventhub/internal/application"
)

type capturingEventRepo struct {
	created application.Event
}

func (c *capturingEventRepo) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	c.created = event
	return event, nil
}

func (c *capturingEventRepo) GetEvent(ctx context.Context, id string) (application.Event, error) {
	return application.Event{}, application.ErrNotFound
}

func (c *capturingEventRepo) UpdateEvent(ctx context.Context, id string, patch application.EventPatch, updatedAt time.Time) (application.Event, error) {
	return application.Event{}, application.ErrNotFound
}

func (c *capturingEventRepo) DeleteEvent(ctx context.Context, id string) error {
	return nil
}

func (c *capturingEventRepo) ListEvents(ctx context.Context, filter application.EventRepositoryFilter) ([]application.Event, error) {
	return nil, nil
}

func (c *capturingEventRepo) AddParticipant(ctx context.Context, eventID string, participant application.Participant) (int, error) {
	return 0, application.ErrNotFound
}

func (c *capturingEventRepo) RemoveParticipant(ctx context.Context, eventID, userID string) (int, error) {
	return 0, application.ErrNotFound
}

func TestServiceFactoryNewEventService(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingEventRepo{}

	svc := factory.NewEventService(EventServiceDeps{Events: repo})
	principal := application.Principal{UserID: "organizer", Email: "organizer@example.com"}
	input := application.EventInput{Title: "Meetup", Description: "x", Date: "2025-06-01", Location: "HQ"}

	event, err := svc.CreateEvent(context.Background(), principal, input)
	if err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}

	if event.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", event.ID)
	}
	if repo.created.ID != event.ID {
		t.Fatalf("repository received unexpected ID: %q", repo.created.ID)
	}
	if !event.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), event.CreatedAt)
	}
}

func TestEventFixtureConversions(t *testing.T) {
	fixture := NewEventFixture(
		WithEventID("evt"),
		WithEventOrganizer("org", "org@example.com"),
		WithEventParticipants("u1", "u2"),
	)

	app := fixture.Application()
	stored := fixture.Persistence()
	if len(app.Participants) != 2 || len(stored.Participants) != 2 {
		t.Fatalf("expected two participants, got %d and %d", len(app.Participants), len(stored.Participants))
	}
	if !app.Participants[0].ConfirmedAt.Before(app.Participants[1].ConfirmedAt) {
		t.Fatalf("expected roster in confirmation order")
	}
	if stored.OrganizerID != "org" || app.Status != application.EventStatusActive {
		t.Fatalf("unexpected conversion: %+v", stored)
	}
}
