package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/example/eventhub/internal/persistence"
	"github.com/example/eventhub/internal/persistence/sqlite/migration"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dir := t.TempDir()
	config := migration.TempFileTestSQLiteConfig(filepath.Join(dir, "eventhub.db"))
	storage, err := Open(config, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}

	t.Cleanup(func() {
		_ = storage.Close()
	})

	if _, err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return storage
}

func sampleEvent(id, date string, created time.Time) persistence.Event {
	return persistence.Event{
		ID:             id,
		Title:          "Event " + id,
		Description:    "Description " + id,
		Date:           date,
		Time:           "18:00",
		Location:       "Madrid",
		Category:       "tech",
		OrganizerID:    "organizer",
		OrganizerEmail: "organizer@example.com",
		Status:         persistence.EventStatusActive,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func TestStorage_MigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	applied, err := storage.Migrate(ctx)
	if err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no pending migrations, got %d", applied)
	}

	status, err := storage.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if status.CurrentVersion != "002" {
		t.Fatalf("expected schema version 002, got %q", status.CurrentVersion)
	}
}

func TestEventRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestStorage(t).Events()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	event := sampleEvent("evt-1", "2025-04-10", now)
	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if err := repo.CreateEvent(ctx, event); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on second insert, got %v", err)
	}

	fetched, err := repo.GetEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if fetched.Title != event.Title || !fetched.CreatedAt.Equal(now) {
		t.Fatalf("unexpected event: %#v", fetched)
	}
	if fetched.Participants == nil || len(fetched.Participants) != 0 {
		t.Fatalf("expected empty, non-nil roster, got %#v", fetched.Participants)
	}

	title := "Renamed"
	cancelled := persistence.EventStatusCancelled
	later := now.Add(time.Hour)
	updated, err := repo.UpdateEvent(ctx, "evt-1", persistence.EventChanges{
		Title:     &title,
		Status:    &cancelled,
		UpdatedAt: later,
	})
	if err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}
	if updated.Title != "Renamed" || updated.Status != cancelled || updated.Location != "Madrid" {
		t.Fatalf("unexpected update result: %#v", updated)
	}
	if !updated.UpdatedAt.Equal(later) || !updated.CreatedAt.Equal(now) {
		t.Fatalf("unexpected timestamps: created %v updated %v", updated.CreatedAt, updated.UpdatedAt)
	}

	invalid := "archived"
	if _, err := repo.UpdateEvent(ctx, "evt-1", persistence.EventChanges{Status: &invalid, UpdatedAt: later}); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for unknown status, got %v", err)
	}
	if _, err := repo.UpdateEvent(ctx, "missing", persistence.EventChanges{Title: &title, UpdatedAt: later}); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing event, got %v", err)
	}

	if _, err := repo.AddParticipant(ctx, "evt-1", persistence.Participant{UserID: "u1", ConfirmedAt: later}); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if err := repo.DeleteEvent(ctx, "evt-1"); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
	if _, err := repo.GetEvent(ctx, "evt-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteEvent(ctx, "evt-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
	attending, err := repo.ListEvents(ctx, persistence.EventFilter{ParticipantID: "u1"})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(attending) != 0 {
		t.Fatalf("expected roster to be removed with the event, got %d events", len(attending))
	}
}

func TestEventRepository_ListEvents(t *testing.T) {
	ctx := context.Background()
	repo := newTestStorage(t).Events()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	fixtures := []persistence.Event{
		sampleEvent("past", "2025-02-01", base),
		sampleEvent("today", "2025-03-01", base.Add(time.Minute)),
		sampleEvent("future", "2025-05-20", base.Add(2*time.Minute)),
		sampleEvent("cancelled", "2025-06-01", base.Add(3*time.Minute)),
		sampleEvent("called-off", "2025-01-15", base.Add(4*time.Minute)),
	}
	fixtures[2].OrganizerID = "someone-else"
	fixtures[3].Status = persistence.EventStatusCancelled
	fixtures[4].Status = persistence.EventStatusCancelled
	for _, event := range fixtures {
		if err := repo.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent %s failed: %v", event.ID, err)
		}
	}
	if _, err := repo.AddParticipant(ctx, "future", persistence.Participant{UserID: "fan", ConfirmedAt: base}); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if _, err := repo.AddParticipant(ctx, "past", persistence.Participant{UserID: "fan", ConfirmedAt: base}); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}

	tests := []struct {
		name   string
		filter persistence.EventFilter
		want   []string
	}{
		{name: "all", filter: persistence.EventFilter{}, want: []string{"cancelled", "future", "today", "past", "called-off"}},
		{name: "upcoming", filter: persistence.EventFilter{DateOnOrAfter: "2025-03-01", Status: persistence.EventStatusActive}, want: []string{"future", "today"}},
		{name: "past includes cancelled", filter: persistence.EventFilter{DateBefore: "2025-03-01"}, want: []string{"past", "called-off"}},
		{name: "organized", filter: persistence.EventFilter{OrganizerID: "organizer"}, want: []string{"cancelled", "today", "past", "called-off"}},
		{name: "participating", filter: persistence.EventFilter{ParticipantID: "fan"}, want: []string{"future", "past"}},
		{name: "nobody", filter: persistence.EventFilter{ParticipantID: "ghost"}, want: []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			events, err := repo.ListEvents(ctx, tc.filter)
			if err != nil {
				t.Fatalf("ListEvents failed: %v", err)
			}
			if len(events) != len(tc.want) {
				t.Fatalf("expected %d events, got %d", len(tc.want), len(events))
			}
			for i, id := range tc.want {
				if events[i].ID != id {
					t.Fatalf("position %d: expected %s, got %s", i, id, events[i].ID)
				}
			}
		})
	}
}

func TestEventRepository_ListEventsBeyondParameterLimit(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	repo := storage.Events()
	created := formatTime(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))

	// More events than SQLite accepts as bound parameters in one statement.
	const total = 33000
	err := storage.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO events (id, title, description, date, time, location, category,
				organizer_id, organizer_email, status, created_at, updated_at)
			VALUES (?, 'Bulk', '', ?, '18:00', 'Madrid', 'tech', 'organizer', 'organizer@example.com', 'active', ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i := 0; i < total; i++ {
			date := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i%3000).Format("2006-01-02")
			if _, err := stmt.ExecContext(ctx, fmt.Sprintf("bulk-%05d", i), date, created, created); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seeding events failed: %v", err)
	}
	for _, id := range []string{"bulk-00000", "bulk-32999"} {
		if _, err := repo.AddParticipant(ctx, id, persistence.Participant{UserID: "fan", ConfirmedAt: time.Now()}); err != nil {
			t.Fatalf("AddParticipant %s failed: %v", id, err)
		}
	}

	events, err := repo.ListEvents(ctx, persistence.EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != total {
		t.Fatalf("expected %d events, got %d", total, len(events))
	}
	withRoster := 0
	for _, event := range events {
		if len(event.Participants) > 0 {
			withRoster++
			if event.Participants[0].UserID != "fan" {
				t.Fatalf("unexpected roster on %s: %+v", event.ID, event.Participants)
			}
		}
	}
	if withRoster != 2 {
		t.Fatalf("expected rosters on 2 events across chunks, got %d", withRoster)
	}

	organized, err := repo.ListEvents(ctx, persistence.EventFilter{OrganizerID: "organizer"})
	if err != nil {
		t.Fatalf("ListEvents by organizer failed: %v", err)
	}
	if len(organized) != total {
		t.Fatalf("expected %d organized events, got %d", total, len(organized))
	}
}

func TestEventRepository_Participants(t *testing.T) {
	ctx := context.Background()
	repo := newTestStorage(t).Events()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.CreateEvent(ctx, sampleEvent("evt", "2025-04-01", now)); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	count, err := repo.AddParticipant(ctx, "evt", persistence.Participant{UserID: "b", UserEmail: "b@example.com", ConfirmedAt: now})
	if err != nil || count != 1 {
		t.Fatalf("expected count 1, got %d (%v)", count, err)
	}
	count, err = repo.AddParticipant(ctx, "evt", persistence.Participant{UserID: "a", UserEmail: "a@example.com", ConfirmedAt: now})
	if err != nil || count != 2 {
		t.Fatalf("expected count 2, got %d (%v)", count, err)
	}
	if _, err := repo.AddParticipant(ctx, "evt", persistence.Participant{UserID: "a", ConfirmedAt: now}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := repo.AddParticipant(ctx, "missing", persistence.Participant{UserID: "a", ConfirmedAt: now}); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	event, err := repo.GetEvent(ctx, "evt")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if len(event.Participants) != 2 || event.Participants[0].UserID != "b" || event.Participants[1].UserEmail != "a@example.com" {
		t.Fatalf("expected roster in join order, got %#v", event.Participants)
	}

	count, err = repo.RemoveParticipant(ctx, "evt", "b")
	if err != nil || count != 1 {
		t.Fatalf("expected count 1 after removal, got %d (%v)", count, err)
	}
	count, err = repo.RemoveParticipant(ctx, "evt", "b")
	if err != nil || count != 1 {
		t.Fatalf("expected removing an absent user to be a no-op, got %d (%v)", count, err)
	}
	if _, err := repo.RemoveParticipant(ctx, "missing", "a"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventRepository_ConcurrentAddParticipant(t *testing.T) {
	ctx := context.Background()
	repo := newTestStorage(t).Events()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.CreateEvent(ctx, sampleEvent("evt", "2025-04-01", now)); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	const attendees = 10
	var wg sync.WaitGroup
	errs := make(chan error, attendees)
	for i := 0; i < attendees; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.AddParticipant(ctx, "evt", persistence.Participant{UserID: fmt.Sprintf("user-%d", i), ConfirmedAt: now})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("AddParticipant failed: %v", err)
		}
	}

	event, err := repo.GetEvent(ctx, "evt")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if len(event.Participants) != attendees {
		t.Fatalf("expected %d participants, got %d", attendees, len(event.Participants))
	}
}

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestStorage(t).Notifications()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	eventID := "evt-1"
	eventTitle := "Launch"

	batch := []persistence.Notification{
		{ID: "n1", UserID: "alice", Type: "event_created", Title: "t1", Message: "m1", EventID: &eventID, EventTitle: &eventTitle, CreatedAt: base},
		{ID: "n2", UserID: "alice", Type: "event_updated", Title: "t2", Message: "m2", CreatedAt: base.Add(time.Minute)},
		{ID: "n3", UserID: "bob", Type: "event_changed", Title: "t3", Message: "m3", CreatedAt: base.Add(2 * time.Minute)},
	}
	if err := repo.CreateNotifications(ctx, batch); err != nil {
		t.Fatalf("CreateNotifications failed: %v", err)
	}

	t.Run("batch is atomic", func(t *testing.T) {
		err := repo.CreateNotifications(ctx, []persistence.Notification{
			{ID: "n4", UserID: "carol", Type: "x", Title: "t", Message: "m", CreatedAt: base},
			{ID: "n1", UserID: "carol", Type: "x", Title: "t", Message: "m", CreatedAt: base},
		})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
		list, err := repo.ListNotificationsForUser(ctx, "carol", 50)
		if err != nil {
			t.Fatalf("ListNotificationsForUser failed: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("expected failed batch to leave nothing behind, got %d", len(list))
		}
	})

	t.Run("list newest first with limit", func(t *testing.T) {
		list, err := repo.ListNotificationsForUser(ctx, "alice", 50)
		if err != nil {
			t.Fatalf("ListNotificationsForUser failed: %v", err)
		}
		if len(list) != 2 || list[0].ID != "n2" || list[1].ID != "n1" {
			t.Fatalf("unexpected order: %#v", list)
		}
		if list[1].EventID == nil || *list[1].EventID != eventID || list[0].EventID != nil {
			t.Fatalf("unexpected event references: %#v", list)
		}

		limited, err := repo.ListNotificationsForUser(ctx, "alice", 1)
		if err != nil {
			t.Fatalf("ListNotificationsForUser failed: %v", err)
		}
		if len(limited) != 1 || limited[0].ID != "n2" {
			t.Fatalf("expected only the newest notification, got %#v", limited)
		}
	})

	t.Run("mark read", func(t *testing.T) {
		if err := repo.MarkNotificationRead(ctx, "n1"); err != nil {
			t.Fatalf("MarkNotificationRead failed: %v", err)
		}
		if err := repo.MarkNotificationRead(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		n, err := repo.GetNotification(ctx, "n1")
		if err != nil || !n.Read {
			t.Fatalf("expected n1 to be read, got %#v (%v)", n, err)
		}
		unread, err := repo.CountUnreadNotifications(ctx, "alice")
		if err != nil || unread != 1 {
			t.Fatalf("expected 1 unread, got %d (%v)", unread, err)
		}

		changed, err := repo.MarkAllNotificationsRead(ctx, "alice")
		if err != nil || changed != 1 {
			t.Fatalf("expected 1 changed, got %d (%v)", changed, err)
		}
		changed, err = repo.MarkAllNotificationsRead(ctx, "alice")
		if err != nil || changed != 0 {
			t.Fatalf("expected 0 changed on second pass, got %d (%v)", changed, err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.DeleteNotification(ctx, "n3"); err != nil {
			t.Fatalf("DeleteNotification failed: %v", err)
		}
		if _, err := repo.GetNotification(ctx, "n3"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := repo.DeleteNotification(ctx, "n3"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
		}

		removed, err := repo.DeleteNotificationsForUser(ctx, "alice")
		if err != nil || removed != 2 {
			t.Fatalf("expected 2 removed, got %d (%v)", removed, err)
		}
	})
}
