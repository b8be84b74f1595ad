package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/eventhub/internal/persistence"
)

// participantChunkSize bounds the event ids bound into one roster query so
// large listings stay under SQLite's host parameter limit.
const participantChunkSize = 500

const eventColumns = `e.id, e.title, e.description, e.date, e.time, e.location, e.category,
		e.organizer_id, e.organizer_email, e.status, e.created_at, e.updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// EventRepository implements persistence.EventRepository using SQLite.
// Participants live in event_participants, which doubles as the index for
// "events I attend" lookups.
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewEventRepository creates a new SQLite event repository
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateEvent inserts a new event and any initial participants.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.OrganizerID == "" {
		return persistence.ErrConstraintViolation
	}
	if event.Status == "" {
		event.Status = persistence.EventStatusActive
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(ctx, tx, `
			INSERT INTO events (id, title, description, date, time, location, category,
				organizer_id, organizer_email, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			event.ID,
			event.Title,
			event.Description,
			event.Date,
			event.Time,
			event.Location,
			event.Category,
			event.OrganizerID,
			event.OrganizerEmail,
			event.Status,
			formatTime(event.CreatedAt),
			formatTime(event.UpdatedAt),
		)
		if err != nil {
			return err
		}

		for i, p := range event.Participants {
			if _, err := r.helper.ExecTx(ctx, tx, `
				INSERT INTO event_participants (event_id, user_id, user_email, confirmed_at, seq)
				VALUES (?, ?, ?, ?, ?)`,
				event.ID, p.UserID, p.UserEmail, formatTime(p.ConfirmedAt), i+1,
			); err != nil {
				return err
			}
		}
		return nil
	})
	return r.mapper.MapError(err)
}

// GetEvent retrieves an event and its roster by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	var event persistence.Event
	err := r.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		event, err = r.getEvent(ctx, tx, id)
		return err
	})
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return event, nil
}

func (r *EventRepository) getEvent(ctx context.Context, q queryer, id string) (persistence.Event, error) {
	events, err := r.queryEvents(ctx, q, `SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, id)
	if err != nil {
		return persistence.Event{}, err
	}
	if len(events) == 0 {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return events[0], nil
}

// UpdateEvent applies the non-nil fields of changes and returns the stored
// event after the update.
func (r *EventRepository) UpdateEvent(ctx context.Context, id string, changes persistence.EventChanges) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	sets := []string{"updated_at = ?"}
	args := []any{formatTime(changes.UpdatedAt)}
	for _, field := range []struct {
		column string
		value  *string
	}{
		{"title", changes.Title},
		{"description", changes.Description},
		{"date", changes.Date},
		{"time", changes.Time},
		{"location", changes.Location},
		{"category", changes.Category},
		{"status", changes.Status},
	} {
		if field.value != nil {
			sets = append(sets, field.column+" = ?")
			args = append(args, *field.value)
		}
	}
	args = append(args, id)

	var updated persistence.Event
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx, "UPDATE events SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		updated, err = r.getEvent(ctx, tx, id)
		return err
	})
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return updated, nil
}

// DeleteEvent removes an event together with its roster.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM event_participants WHERE event_id = ?`, id); err != nil {
			return err
		}
		result, err := r.helper.ExecTx(ctx, tx, `DELETE FROM events WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
	return r.mapper.MapError(err)
}

// ListEvents returns the events matching filter, newest date first.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	var (
		where []string
		args  []any
	)
	if filter.DateOnOrAfter != "" {
		where = append(where, "e.date >= ?")
		args = append(args, filter.DateOnOrAfter)
	}
	if filter.DateBefore != "" {
		where = append(where, "e.date < ?")
		args = append(args, filter.DateBefore)
	}
	if filter.Status != "" {
		where = append(where, "e.status = ?")
		args = append(args, filter.Status)
	}
	if filter.OrganizerID != "" {
		where = append(where, "e.organizer_id = ?")
		args = append(args, filter.OrganizerID)
	}
	if filter.ParticipantID != "" {
		where = append(where, "EXISTS (SELECT 1 FROM event_participants p WHERE p.event_id = e.id AND p.user_id = ?)")
		args = append(args, filter.ParticipantID)
	}

	query := `SELECT ` + eventColumns + ` FROM events e`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.date DESC, e.time DESC, e.created_at DESC"

	var events []persistence.Event
	err := r.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		events, err = r.queryEvents(ctx, tx, query, args...)
		return err
	})
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

// AddParticipant appends a participant to the roster. The insert only
// succeeds while the event exists and the user is not yet listed, so
// concurrent confirmations cannot lose each other's writes.
func (r *EventRepository) AddParticipant(ctx context.Context, eventID string, participant persistence.Participant) (int, error) {
	if eventID == "" {
		return 0, persistence.ErrNotFound
	}
	if participant.UserID == "" {
		return 0, persistence.ErrConstraintViolation
	}

	var count int
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx, `
				INSERT INTO event_participants (event_id, user_id, user_email, confirmed_at, seq)
				SELECT e.id, ?, ?, ?,
					COALESCE((SELECT MAX(seq) FROM event_participants WHERE event_id = e.id), 0) + 1
				FROM events e
				WHERE e.id = ?`,
				participant.UserID, participant.UserEmail, formatTime(participant.ConfirmedAt), eventID,
			)
			if err != nil {
				return err
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if affected == 0 {
				return persistence.ErrNotFound
			}
			return r.helper.QueryRowTx(ctx, tx,
				`SELECT COUNT(*) FROM event_participants WHERE event_id = ?`, eventID,
			).Scan(&count)
		})
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RemoveParticipant drops userID from the roster. Removing a user who is not
// listed is not an error.
func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, userID string) (int, error) {
	if eventID == "" {
		return 0, persistence.ErrNotFound
	}

	var count int
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := r.helper.ExecTx(ctx, tx,
				`DELETE FROM event_participants WHERE event_id = ? AND user_id = ?`, eventID, userID,
			); err != nil {
				return err
			}
			var exists int
			if err := r.helper.QueryRowTx(ctx, tx, `SELECT 1 FROM events WHERE id = ?`, eventID).Scan(&exists); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return persistence.ErrNotFound
				}
				return err
			}
			return r.helper.QueryRowTx(ctx, tx,
				`SELECT COUNT(*) FROM event_participants WHERE event_id = ?`, eventID,
			).Scan(&count)
		})
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *EventRepository) queryEvents(ctx context.Context, q queryer, query string, args ...any) ([]persistence.Event, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	index := make(map[string]int)
	for rows.Next() {
		var (
			event                persistence.Event
			createdAt, updatedAt string
		)
		if err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Description,
			&event.Date,
			&event.Time,
			&event.Location,
			&event.Category,
			&event.OrganizerID,
			&event.OrganizerEmail,
			&event.Status,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if event.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if event.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		event.Participants = []persistence.Participant{}
		index[event.ID] = len(events)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	if len(events) == 0 {
		return []persistence.Event{}, nil
	}

	if err := r.loadParticipants(ctx, q, events, index); err != nil {
		return nil, err
	}
	return events, nil
}

// loadParticipants fills the rosters of events, preserving the order in which
// participants joined. Ids are bound in chunks of participantChunkSize.
func (r *EventRepository) loadParticipants(ctx context.Context, q queryer, events []persistence.Event, index map[string]int) error {
	for start := 0; start < len(events); start += participantChunkSize {
		end := min(start+participantChunkSize, len(events))
		if err := r.loadParticipantChunk(ctx, q, events, events[start:end], index); err != nil {
			return err
		}
	}
	return nil
}

func (r *EventRepository) loadParticipantChunk(ctx context.Context, q queryer, events, chunk []persistence.Event, index map[string]int) error {
	placeholders := make([]string, len(chunk))
	args := make([]any, len(chunk))
	for i, event := range chunk {
		placeholders[i] = "?"
		args[i] = event.ID
	}

	rows, err := q.QueryContext(ctx, `
		SELECT event_id, user_id, user_email, confirmed_at
		FROM event_participants
		WHERE event_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY event_id, seq`, args...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventID     string
			p           persistence.Participant
			confirmedAt string
		)
		if err := rows.Scan(&eventID, &p.UserID, &p.UserEmail, &confirmedAt); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		if p.ConfirmedAt, err = parseTime(confirmedAt); err != nil {
			return err
		}
		i := index[eventID]
		events[i].Participants = append(events[i].Participants, p)
	}
	return r.mapper.MapError(rows.Err())
}
