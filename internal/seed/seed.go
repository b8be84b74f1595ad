// Package seed loads demo events from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/eventhub/internal/application"
)

// User identifies a seeded organizer or attendee.
type User struct {
	UID   string `yaml:"uid"`
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// Event is one seeded event and its attendees.
type Event struct {
	Organizer   User   `yaml:"organizer"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Date        string `yaml:"date"`
	Time        string `yaml:"time"`
	Location    string `yaml:"location"`
	Category    string `yaml:"category"`
	Attendees   []User `yaml:"attendees"`
}

// File is the top-level seed document.
type File struct {
	Events []Event `yaml:"events"`
}

// Result summarises an Apply run.
type Result struct {
	Events    int
	Attendees int
}

// EventCreator is the subset of the event service a seed run needs.
type EventCreator interface {
	CreateEvent(ctx context.Context, principal application.Principal, input application.EventInput) (application.Event, error)
	ConfirmAttendance(ctx context.Context, principal application.Principal, id string) (int, error)
}

// LoadFile reads and decodes the seed file at path.
func LoadFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("seed: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a seed document. Unknown keys are rejected.
func Decode(r io.Reader) (File, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("seed: parse: %w", err)
	}
	for i, event := range file.Events {
		if event.Organizer.UID == "" {
			return File{}, fmt.Errorf("seed: events[%d]: organizer uid is required", i)
		}
		for j, attendee := range event.Attendees {
			if attendee.UID == "" {
				return File{}, fmt.Errorf("seed: events[%d].attendees[%d]: uid is required", i, j)
			}
		}
	}
	return file, nil
}

// Apply creates every event through the service so that validation and
// notifications behave as for API callers. Attendees already registered are
// skipped.
func Apply(ctx context.Context, svc EventCreator, file File, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var result Result
	for i, item := range file.Events {
		created, err := svc.CreateEvent(ctx, item.Organizer.principal(), application.EventInput{
			Title:       item.Title,
			Description: item.Description,
			Date:        item.Date,
			Time:        item.Time,
			Location:    item.Location,
			Category:    item.Category,
		})
		if err != nil {
			return result, fmt.Errorf("seed: events[%d] %q: %w", i, item.Title, err)
		}
		result.Events++
		logger.Info("seeded event", "event_id", created.ID, "title", created.Title)

		for _, attendee := range item.Attendees {
			if _, err := svc.ConfirmAttendance(ctx, attendee.principal(), created.ID); err != nil {
				if errors.Is(err, application.ErrAlreadyRegistered) {
					continue
				}
				return result, fmt.Errorf("seed: events[%d] attendee %s: %w", i, attendee.UID, err)
			}
			result.Attendees++
		}
	}
	return result, nil
}

func (u User) principal() application.Principal {
	return application.Principal{UserID: u.UID, Email: u.Email, Name: u.Name}
}
