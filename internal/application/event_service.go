package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/eventhub/internal/persistence"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// EventRepository captures the persistence operations needed by the service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, id string, patch EventPatch, updatedAt time.Time) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, filter EventRepositoryFilter) ([]Event, error)
	// AddParticipant appends participant atomically and returns the roster
	// size. A second registration of the same user must fail.
	AddParticipant(ctx context.Context, eventID string, participant Participant) (int, error)
	// RemoveParticipant drops userID from the roster if present and returns
	// the roster size.
	RemoveParticipant(ctx context.Context, eventID, userID string) (int, error)
}

// EventService owns the event lifecycle: organizer-only mutation, attendance
// and the notifications each transition triggers.
type EventService struct {
	events      EventRepository
	notifier    Notifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService constructs an event service with the provided dependencies.
func NewEventService(events EventRepository, notifier Notifier, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, notifier, idGenerator, now, nil)
}

// NewEventServiceWithLogger constructs an event service with a specified logger.
func NewEventServiceWithLogger(events EventRepository, notifier Notifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		notifier:    notifier,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

func (s *EventService) ready() error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}
	return nil
}

// CreateEvent validates input and stores a new active event organized by the
// principal, then notifies the organizer.
func (s *EventService) CreateEvent(ctx context.Context, principal Principal, input EventInput) (event Event, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateEvent", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "event created")
	}()

	if principal.UserID == "" {
		err = ErrUnauthenticated
		return
	}

	input = normalizeEventInput(input)
	if vErr := validateEventInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	event = Event{
		ID:             s.idGenerator(),
		Title:          input.Title,
		Description:    input.Description,
		Date:           input.Date,
		Time:           input.Time,
		Location:       input.Location,
		Category:       input.Category,
		OrganizerID:    principal.UserID,
		OrganizerEmail: principal.Email,
		Status:         EventStatusActive,
		Participants:   []Participant{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var stored Event
	stored, err = s.events.CreateEvent(ctx, event)
	if err != nil {
		err = mapEventRepoError("CreateEvent", err)
		return
	}
	event = withRoster(stored)

	s.notifier.NotifyOne(ctx, event.OrganizerID, EventCreatedNote(event))
	return
}

// GetEvent returns a single event.
func (s *EventService) GetEvent(ctx context.Context, id string) (event Event, err error) {
	if err = s.ready(); err != nil {
		return
	}

	event, err = s.events.GetEvent(ctx, id)
	if err != nil {
		err = mapEventRepoError("GetEvent", err)
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "GetEvent", "event_id", id).
				ErrorContext(ctx, "failed to get event", "error", err, "error_kind", ErrorKind(err))
		}
		return
	}
	event = withRoster(event)
	return
}

// ListEvents returns events matching filter ordered by date descending.
// Today is the current UTC calendar day.
func (s *EventService) ListEvents(ctx context.Context, filter ListFilter) ([]Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	today := s.now().UTC().Format(dateLayout)
	repoFilter := EventRepositoryFilter{}
	switch filter {
	case ListUpcoming:
		repoFilter.DateOnOrAfter = today
		repoFilter.Status = EventStatusActive
	case ListPast:
		repoFilter.DateBefore = today
	case ListAll, "":
	default:
		vErr := &ValidationError{}
		vErr.add("filter", "Filtro inválido")
		return nil, vErr
	}

	return s.list(ctx, "ListEvents", repoFilter, "filter", string(filter))
}

// ListMyOrganizedEvents returns the events organized by the principal.
func (s *EventService) ListMyOrganizedEvents(ctx context.Context, principal Principal) ([]Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if principal.UserID == "" {
		return nil, ErrUnauthenticated
	}
	return s.list(ctx, "ListMyOrganizedEvents", EventRepositoryFilter{OrganizerID: principal.UserID}, "principal_id", principal.UserID)
}

// ListMyParticipatingEvents returns the events the principal attends.
func (s *EventService) ListMyParticipatingEvents(ctx context.Context, principal Principal) ([]Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if principal.UserID == "" {
		return nil, ErrUnauthenticated
	}
	return s.list(ctx, "ListMyParticipatingEvents", EventRepositoryFilter{ParticipantID: principal.UserID}, "principal_id", principal.UserID)
}

func (s *EventService) list(ctx context.Context, operation string, filter EventRepositoryFilter, attrs ...any) (events []Event, err error) {
	logger := s.loggerWith(ctx, operation, attrs...)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list events", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(events)).DebugContext(ctx, "events listed")
	}()

	var raw []Event
	raw, err = s.events.ListEvents(ctx, filter)
	if err != nil {
		err = mapEventRepoError(operation, err)
		return
	}

	events = make([]Event, len(raw))
	for i, e := range raw {
		events[i] = withRoster(e)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date > events[j].Date
		}
		return events[i].Time > events[j].Time
	})
	return
}

// UpdateEvent applies patch for the organizer. Participants are told about the
// change and the organizer receives a confirmation; both notes carry the
// title the event had before the edit.
func (s *EventService) UpdateEvent(ctx context.Context, principal Principal, id string, patch EventPatch) (event Event, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateEvent",
		"principal_id", principal.UserID,
		"event_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event updated")
	}()

	var existing Event
	existing, err = s.authorizeOrganizer(ctx, principal, id)
	if err != nil {
		return
	}

	patch = normalizeEventPatch(patch)
	if vErr := validateEventPatch(patch); vErr.HasErrors() {
		err = vErr
		return
	}

	event, err = s.events.UpdateEvent(ctx, id, patch, s.now().UTC())
	if err != nil {
		err = mapEventRepoError("UpdateEvent", err)
		return
	}
	event = withRoster(event)

	s.notifier.FanOut(ctx, withRoster(existing), EventChangedNote(existing),
		WithOrganizerNote(EventUpdatedNote(existing)),
	)
	return
}

// DeleteEvent removes an event for the organizer. Participants are notified
// before the event is removed.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, id string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteEvent",
		"principal_id", principal.UserID,
		"event_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event deleted")
	}()

	var existing Event
	existing, err = s.authorizeOrganizer(ctx, principal, id)
	if err != nil {
		return
	}

	if len(existing.Participants) > 0 {
		s.notifier.FanOut(ctx, existing, EventCancelledNote(existing), WithoutOrganizer(), Synchronous())
	}

	if err = s.events.DeleteEvent(ctx, id); err != nil {
		err = mapEventRepoError("DeleteEvent", err)
	}
	return
}

// ConfirmAttendance registers the principal as a participant and returns the
// new roster size. The attendee and the organizer are both notified.
func (s *EventService) ConfirmAttendance(ctx context.Context, principal Principal, id string) (count int, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ConfirmAttendance",
		"principal_id", principal.UserID,
		"event_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to confirm attendance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("participants", count).InfoContext(ctx, "attendance confirmed")
	}()

	if principal.UserID == "" {
		err = ErrUnauthenticated
		return
	}

	var event Event
	event, err = s.events.GetEvent(ctx, id)
	if err != nil {
		err = mapEventRepoError("GetEvent", err)
		return
	}
	if event.HasParticipant(principal.UserID) {
		err = ErrAlreadyRegistered
		return
	}

	count, err = s.events.AddParticipant(ctx, id, Participant{
		UserID:      principal.UserID,
		UserEmail:   principal.Email,
		ConfirmedAt: s.now().UTC(),
	})
	if err != nil {
		err = mapParticipantRepoError("AddParticipant", err)
		return
	}

	s.notifier.NotifyOne(ctx, principal.UserID, AttendanceConfirmedNote(event))
	s.notifier.NotifyOne(ctx, event.OrganizerID, NewAttendeeNote(event, principal.Email))
	return
}

// CancelAttendance removes the principal from the roster and returns the new
// roster size. Cancelling without being registered is not an error.
func (s *EventService) CancelAttendance(ctx context.Context, principal Principal, id string) (count int, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CancelAttendance",
		"principal_id", principal.UserID,
		"event_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel attendance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("participants", count).InfoContext(ctx, "attendance cancelled")
	}()

	if principal.UserID == "" {
		err = ErrUnauthenticated
		return
	}

	count, err = s.events.RemoveParticipant(ctx, id, principal.UserID)
	if err != nil {
		err = mapParticipantRepoError("RemoveParticipant", err)
	}
	return
}

func (s *EventService) authorizeOrganizer(ctx context.Context, principal Principal, id string) (Event, error) {
	if principal.UserID == "" {
		return Event{}, ErrUnauthenticated
	}
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, mapEventRepoError("GetEvent", err)
	}
	if event.OrganizerID != principal.UserID {
		return Event{}, ErrForbidden
	}
	return withRoster(event), nil
}

func normalizeEventInput(input EventInput) EventInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Date = strings.TrimSpace(input.Date)
	input.Time = strings.TrimSpace(input.Time)
	input.Location = strings.TrimSpace(input.Location)
	input.Category = strings.TrimSpace(input.Category)
	if input.Time == "" {
		input.Time = DefaultEventTime
	}
	if input.Category == "" {
		input.Category = DefaultEventCategory
	}
	return input
}

func validateEventInput(input EventInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Title == "" {
		vErr.require("title", "El título es requerido")
	}
	if input.Description == "" {
		vErr.require("description", "La descripción es requerida")
	}
	if input.Date == "" {
		vErr.require("date", "La fecha es requerida")
	} else if !validDate(input.Date) {
		vErr.add("date", "La fecha debe tener el formato YYYY-MM-DD")
	}
	if input.Location == "" {
		vErr.require("location", "La ubicación es requerida")
	}
	if !validTime(input.Time) {
		vErr.add("time", "La hora debe tener el formato HH:MM")
	}

	return vErr
}

func normalizeEventPatch(patch EventPatch) EventPatch {
	trim := func(value *string) *string {
		if value == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*value)
		return &trimmed
	}
	patch.Title = trim(patch.Title)
	patch.Description = trim(patch.Description)
	patch.Date = trim(patch.Date)
	patch.Time = trim(patch.Time)
	patch.Location = trim(patch.Location)
	patch.Category = trim(patch.Category)
	patch.Status = trim(patch.Status)
	if patch.Category != nil && *patch.Category == "" {
		category := DefaultEventCategory
		patch.Category = &category
	}
	if patch.Time != nil && *patch.Time == "" {
		eventTime := DefaultEventTime
		patch.Time = &eventTime
	}
	return patch
}

func validateEventPatch(patch EventPatch) *ValidationError {
	vErr := &ValidationError{}

	if patch.Title != nil && *patch.Title == "" {
		vErr.require("title", "El título es requerido")
	}
	if patch.Description != nil && *patch.Description == "" {
		vErr.require("description", "La descripción es requerida")
	}
	if patch.Location != nil && *patch.Location == "" {
		vErr.require("location", "La ubicación es requerida")
	}
	if patch.Date != nil {
		switch {
		case *patch.Date == "":
			vErr.require("date", "La fecha es requerida")
		case !validDate(*patch.Date):
			vErr.add("date", "La fecha debe tener el formato YYYY-MM-DD")
		}
	}
	if patch.Time != nil && !validTime(*patch.Time) {
		vErr.add("time", "La hora debe tener el formato HH:MM")
	}
	if patch.Status != nil && *patch.Status != EventStatusActive && *patch.Status != EventStatusCancelled {
		vErr.add("status", "El estado debe ser active o cancelled")
	}

	return vErr
}

func validDate(value string) bool {
	_, err := time.Parse(dateLayout, value)
	return err == nil
}

func validTime(value string) bool {
	_, err := time.Parse(timeLayout, value)
	return err == nil && len(value) == len(timeLayout)
}

// withRoster guarantees a non-nil participant list.
func withRoster(event Event) Event {
	if event.Participants == nil {
		event.Participants = []Participant{}
	}
	return event
}

func mapEventRepoError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("event", "Datos de evento inválidos")
		return vErr
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	return storeError(op, err)
}

func mapParticipantRepoError(op string, err error) error {
	if errors.Is(err, ErrAlreadyRegistered) || errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyRegistered
	}
	return mapEventRepoError(op, err)
}
