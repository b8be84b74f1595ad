package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/example/eventhub/internal/persistence"
)

type eventRepositoryStub struct {
	mu     sync.Mutex
	events map[string]Event

	createErr error
	getErr    error
	updateErr error
	deleteErr error
	listErr   error

	lastFilter EventRepositoryFilter
	deleted    []string
}

func newEventRepositoryStub(events ...Event) *eventRepositoryStub {
	stub := &eventRepositoryStub{events: make(map[string]Event)}
	for _, e := range events {
		stub.events[e.ID] = e
	}
	return stub
}

func (s *eventRepositoryStub) CreateEvent(_ context.Context, event Event) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return Event{}, s.createErr
	}
	if _, ok := s.events[event.ID]; ok {
		return Event{}, persistence.ErrDuplicate
	}
	s.events[event.ID] = event
	return event, nil
}

func (s *eventRepositoryStub) GetEvent(_ context.Context, id string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return Event{}, s.getErr
	}
	event, ok := s.events[id]
	if !ok {
		return Event{}, persistence.ErrNotFound
	}
	event.Participants = append([]Participant(nil), event.Participants...)
	return event, nil
}

func (s *eventRepositoryStub) UpdateEvent(_ context.Context, id string, patch EventPatch, updatedAt time.Time) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return Event{}, s.updateErr
	}
	event, ok := s.events[id]
	if !ok {
		return Event{}, persistence.ErrNotFound
	}
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&event.Title, patch.Title)
	apply(&event.Description, patch.Description)
	apply(&event.Date, patch.Date)
	apply(&event.Time, patch.Time)
	apply(&event.Location, patch.Location)
	apply(&event.Category, patch.Category)
	apply(&event.Status, patch.Status)
	event.UpdatedAt = updatedAt
	s.events[id] = event
	return event, nil
}

func (s *eventRepositoryStub) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.events, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *eventRepositoryStub) ListEvents(_ context.Context, filter EventRepositoryFilter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = filter
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Event
	for _, e := range s.events {
		if filter.DateOnOrAfter != "" && e.Date < filter.DateOnOrAfter {
			continue
		}
		if filter.DateBefore != "" && e.Date >= filter.DateBefore {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.OrganizerID != "" && e.OrganizerID != filter.OrganizerID {
			continue
		}
		if filter.ParticipantID != "" && !e.HasParticipant(filter.ParticipantID) {
			continue
		}
		out = append(out, e)
	}
	// Deliberately unordered by date so the service sort is exercised.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *eventRepositoryStub) AddParticipant(_ context.Context, eventID string, participant Participant) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return 0, persistence.ErrNotFound
	}
	if event.HasParticipant(participant.UserID) {
		return 0, persistence.ErrDuplicate
	}
	event.Participants = append(event.Participants, participant)
	s.events[eventID] = event
	return len(event.Participants), nil
}

func (s *eventRepositoryStub) RemoveParticipant(_ context.Context, eventID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return 0, persistence.ErrNotFound
	}
	kept := event.Participants[:0:0]
	for _, p := range event.Participants {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	event.Participants = kept
	s.events[eventID] = event
	return len(kept), nil
}

func (s *eventRepositoryStub) get(id string) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	return e, ok
}

type fanOutCall struct {
	event Event
	note  Note
	opts  FanOutOptions
	// eventExisted records whether the event was still stored when the
	// fan-out happened.
	eventExisted bool
}

type notifyOneCall struct {
	userID string
	note   Note
}

type notifierStub struct {
	mu      sync.Mutex
	events  *eventRepositoryStub
	fanOuts []fanOutCall
	singles []notifyOneCall
}

func (n *notifierStub) FanOut(_ context.Context, event Event, note Note, opts ...FanOutOption) int {
	existed := false
	if n.events != nil {
		_, existed = n.events.get(event.ID)
	}
	options := ApplyFanOutOptions(opts...)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fanOuts = append(n.fanOuts, fanOutCall{event: event, note: note, opts: options, eventExisted: existed})
	return len(Audience(event, options.SkipOrganizer))
}

func (n *notifierStub) NotifyOne(_ context.Context, userID string, note Note) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.singles = append(n.singles, notifyOneCall{userID: userID, note: note})
	return 1
}

type notificationRepositoryStub struct {
	mu            sync.Mutex
	notifications map[string]Notification
	order         []string

	createErr error
	listErr   error
	lastLimit int
}

func newNotificationRepositoryStub(notifications ...Notification) *notificationRepositoryStub {
	stub := &notificationRepositoryStub{notifications: make(map[string]Notification)}
	for _, n := range notifications {
		stub.notifications[n.ID] = n
		stub.order = append(stub.order, n.ID)
	}
	return stub
}

func (s *notificationRepositoryStub) CreateNotifications(_ context.Context, notifications []Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, n := range notifications {
		s.notifications[n.ID] = n
		s.order = append(s.order, n.ID)
	}
	return nil
}

func (s *notificationRepositoryStub) GetNotification(_ context.Context, id string) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return Notification{}, persistence.ErrNotFound
	}
	return n, nil
}

func (s *notificationRepositoryStub) ListNotificationsForUser(_ context.Context, userID string, limit int) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Notification
	for i := len(s.order) - 1; i >= 0; i-- {
		n, ok := s.notifications[s.order[i]]
		if ok && n.UserID == userID {
			out = append(out, n)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *notificationRepositoryStub) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *notificationRepositoryStub) MarkNotificationRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return persistence.ErrNotFound
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

func (s *notificationRepositoryStub) MarkAllNotificationsRead(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			s.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (s *notificationRepositoryStub) DeleteNotification(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.notifications, id)
	return nil
}

func (s *notificationRepositoryStub) DeleteNotificationsForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, n := range s.notifications {
		if n.UserID == userID {
			delete(s.notifications, id)
			count++
		}
	}
	return count, nil
}

type tokenVerifierStub struct {
	mu         sync.Mutex
	identities map[string]Identity
	err        error
	calls      int
}

func (v *tokenVerifierStub) Verify(_ context.Context, token string) (Identity, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.err != nil {
		return Identity{}, v.err
	}
	identity, ok := v.identities[token]
	if !ok {
		return Identity{}, errors.New("signature mismatch")
	}
	return identity, nil
}
