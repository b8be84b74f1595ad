package http

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/example/eventhub/internal/application"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type authenticatorStub struct {
	principals map[string]application.Principal
	err        error
}

func (a authenticatorStub) Authenticate(_ context.Context, token string) (application.Principal, error) {
	if a.err != nil {
		return application.Principal{}, a.err
	}
	p, ok := a.principals[token]
	if !ok {
		return application.Principal{}, application.ErrUnauthenticated
	}
	return p, nil
}

type authServiceStub struct {
	identity application.Identity
	err      error
}

func (a authServiceStub) Verify(_ context.Context, token string) (application.Identity, error) {
	if a.err != nil {
		return application.Identity{}, a.err
	}
	if token != "good" {
		return application.Identity{}, application.ErrUnauthenticated
	}
	return a.identity, nil
}

type eventServiceStub struct {
	created    application.EventInput
	createErr  error
	events     map[string]application.Event
	listFilter application.ListFilter
	list       []application.Event
	patch      application.EventPatch
	updateErr  error
	deleteErr  error
	attendErr  error
	count      int
	principal  application.Principal
}

func (s *eventServiceStub) CreateEvent(_ context.Context, principal application.Principal, input application.EventInput) (application.Event, error) {
	s.principal = principal
	s.created = input
	if s.createErr != nil {
		return application.Event{}, s.createErr
	}
	return application.Event{
		ID:          "evt-new",
		Title:       input.Title,
		Date:        input.Date,
		OrganizerID: principal.UserID,
		Status:      application.EventStatusActive,
	}, nil
}

func (s *eventServiceStub) GetEvent(_ context.Context, id string) (application.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return application.Event{}, application.ErrNotFound
	}
	return e, nil
}

func (s *eventServiceStub) ListEvents(_ context.Context, filter application.ListFilter) ([]application.Event, error) {
	s.listFilter = filter
	return s.list, nil
}

func (s *eventServiceStub) ListMyOrganizedEvents(_ context.Context, principal application.Principal) ([]application.Event, error) {
	s.principal = principal
	return s.list, nil
}

func (s *eventServiceStub) ListMyParticipatingEvents(_ context.Context, principal application.Principal) ([]application.Event, error) {
	s.principal = principal
	return nil, &application.StoreError{Op: "ListEvents", Err: errors.New("disk I/O error")}
}

func (s *eventServiceStub) UpdateEvent(_ context.Context, principal application.Principal, id string, patch application.EventPatch) (application.Event, error) {
	s.principal = principal
	s.patch = patch
	if s.updateErr != nil {
		return application.Event{}, s.updateErr
	}
	e := s.events[id]
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	return e, nil
}

func (s *eventServiceStub) DeleteEvent(_ context.Context, principal application.Principal, id string) error {
	s.principal = principal
	return s.deleteErr
}

func (s *eventServiceStub) ConfirmAttendance(_ context.Context, principal application.Principal, id string) (int, error) {
	s.principal = principal
	if s.attendErr != nil {
		return 0, s.attendErr
	}
	return s.count, nil
}

func (s *eventServiceStub) CancelAttendance(_ context.Context, principal application.Principal, id string) (int, error) {
	s.principal = principal
	return s.count, nil
}

type notificationServiceStub struct {
	inbox     application.Inbox
	limit     int
	err       error
	count     int
	created   application.NotificationInput
	principal application.Principal
}

func (s *notificationServiceStub) ListForUser(_ context.Context, principal application.Principal, limit int) (application.Inbox, error) {
	s.principal = principal
	s.limit = limit
	return s.inbox, s.err
}

func (s *notificationServiceStub) MarkRead(_ context.Context, principal application.Principal, id string) error {
	s.principal = principal
	return s.err
}

func (s *notificationServiceStub) MarkAllRead(_ context.Context, principal application.Principal) (int, error) {
	s.principal = principal
	return s.count, s.err
}

func (s *notificationServiceStub) Delete(_ context.Context, principal application.Principal, id string) error {
	s.principal = principal
	return s.err
}

func (s *notificationServiceStub) DeleteAll(_ context.Context, principal application.Principal) (int, error) {
	s.principal = principal
	return s.count, s.err
}

func (s *notificationServiceStub) Create(_ context.Context, principal application.Principal, input application.NotificationInput) (application.Notification, error) {
	s.principal = principal
	s.created = input
	if s.err != nil {
		return application.Notification{}, s.err
	}
	return application.Notification{ID: "n-1", UserID: input.UserID, Type: input.Type, Title: input.Title, Message: input.Message}, nil
}

type calendarStub struct{ err error }

func (c calendarStub) Write(w io.Writer, event application.Event) error {
	if c.err != nil {
		return c.err
	}
	_, err := io.WriteString(w, "BEGIN:VCALENDAR\r\nSUMMARY:"+event.Title+"\r\nEND:VCALENDAR\r\n")
	return err
}

type pingerStub struct{ err error }

func (p pingerStub) Ping(context.Context) error { return p.err }
