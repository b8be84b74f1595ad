package main

import (
	"context"
	"time"

	"github.com/example/eventhub/internal/application"
	"github.com/example/eventhub/internal/persistence"
)

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) UpdateEvent(ctx context.Context, id string, patch application.EventPatch, updatedAt time.Time) (application.Event, error) {
	stored, err := a.repo.UpdateEvent(ctx, id, persistence.EventChanges{
		Title:       patch.Title,
		Description: patch.Description,
		Date:        patch.Date,
		Time:        patch.Time,
		Location:    patch.Location,
		Category:    patch.Category,
		Status:      patch.Status,
		UpdatedAt:   updatedAt,
	})
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context, filter application.EventRepositoryFilter) ([]application.Event, error) {
	models, err := a.repo.ListEvents(ctx, persistence.EventFilter{
		DateOnOrAfter: filter.DateOnOrAfter,
		DateBefore:    filter.DateBefore,
		Status:        filter.Status,
		OrganizerID:   filter.OrganizerID,
		ParticipantID: filter.ParticipantID,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

func (a *eventRepositoryAdapter) AddParticipant(ctx context.Context, eventID string, participant application.Participant) (int, error) {
	return a.repo.AddParticipant(ctx, eventID, persistence.Participant{
		UserID:      participant.UserID,
		UserEmail:   participant.UserEmail,
		ConfirmedAt: participant.ConfirmedAt,
	})
}

func (a *eventRepositoryAdapter) RemoveParticipant(ctx context.Context, eventID, userID string) (int, error) {
	return a.repo.RemoveParticipant(ctx, eventID, userID)
}

// notificationRepositoryAdapter serves both the inbox service and the
// dispatcher's writer.
type notificationRepositoryAdapter struct {
	repo persistence.NotificationRepository
}

func newNotificationRepositoryAdapter(repo persistence.NotificationRepository) *notificationRepositoryAdapter {
	return &notificationRepositoryAdapter{repo: repo}
}

func (a *notificationRepositoryAdapter) CreateNotifications(ctx context.Context, notifications []application.Notification) error {
	models := make([]persistence.Notification, 0, len(notifications))
	for _, n := range notifications {
		models = append(models, toPersistenceNotification(n))
	}
	return a.repo.CreateNotifications(ctx, models)
}

func (a *notificationRepositoryAdapter) GetNotification(ctx context.Context, id string) (application.Notification, error) {
	stored, err := a.repo.GetNotification(ctx, id)
	if err != nil {
		return application.Notification{}, err
	}
	return toApplicationNotification(stored), nil
}

func (a *notificationRepositoryAdapter) ListNotificationsForUser(ctx context.Context, userID string, limit int) ([]application.Notification, error) {
	models, err := a.repo.ListNotificationsForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]application.Notification, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationNotification(model))
	}
	return out, nil
}

func (a *notificationRepositoryAdapter) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	return a.repo.CountUnreadNotifications(ctx, userID)
}

func (a *notificationRepositoryAdapter) MarkNotificationRead(ctx context.Context, id string) error {
	return a.repo.MarkNotificationRead(ctx, id)
}

func (a *notificationRepositoryAdapter) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	return a.repo.MarkAllNotificationsRead(ctx, userID)
}

func (a *notificationRepositoryAdapter) DeleteNotification(ctx context.Context, id string) error {
	return a.repo.DeleteNotification(ctx, id)
}

func (a *notificationRepositoryAdapter) DeleteNotificationsForUser(ctx context.Context, userID string) (int, error) {
	return a.repo.DeleteNotificationsForUser(ctx, userID)
}

func toApplicationEvent(model persistence.Event) application.Event {
	event := application.Event{
		ID:             model.ID,
		Title:          model.Title,
		Description:    model.Description,
		Date:           model.Date,
		Time:           model.Time,
		Location:       model.Location,
		Category:       model.Category,
		OrganizerID:    model.OrganizerID,
		OrganizerEmail: model.OrganizerEmail,
		Status:         model.Status,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
	if len(model.Participants) > 0 {
		event.Participants = make([]application.Participant, 0, len(model.Participants))
		for _, p := range model.Participants {
			event.Participants = append(event.Participants, application.Participant{
				UserID:      p.UserID,
				UserEmail:   p.UserEmail,
				ConfirmedAt: p.ConfirmedAt,
			})
		}
	}
	return event
}

func toPersistenceEvent(event application.Event) persistence.Event {
	model := persistence.Event{
		ID:             event.ID,
		Title:          event.Title,
		Description:    event.Description,
		Date:           event.Date,
		Time:           event.Time,
		Location:       event.Location,
		Category:       event.Category,
		OrganizerID:    event.OrganizerID,
		OrganizerEmail: event.OrganizerEmail,
		Status:         event.Status,
		CreatedAt:      event.CreatedAt,
		UpdatedAt:      event.UpdatedAt,
	}
	for _, p := range event.Participants {
		model.Participants = append(model.Participants, persistence.Participant{
			UserID:      p.UserID,
			UserEmail:   p.UserEmail,
			ConfirmedAt: p.ConfirmedAt,
		})
	}
	return model
}

func toApplicationNotification(model persistence.Notification) application.Notification {
	return application.Notification{
		ID:         model.ID,
		UserID:     model.UserID,
		Type:       model.Type,
		Title:      model.Title,
		Message:    model.Message,
		EventID:    cloneString(model.EventID),
		EventTitle: cloneString(model.EventTitle),
		Read:       model.Read,
		CreatedAt:  model.CreatedAt,
	}
}

func toPersistenceNotification(n application.Notification) persistence.Notification {
	return persistence.Notification{
		ID:         n.ID,
		UserID:     n.UserID,
		Type:       n.Type,
		Title:      n.Title,
		Message:    n.Message,
		EventID:    cloneString(n.EventID),
		EventTitle: cloneString(n.EventTitle),
		Read:       n.Read,
		CreatedAt:  n.CreatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
