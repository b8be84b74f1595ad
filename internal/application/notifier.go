package application

import "context"

// Notifier delivers notifications on a best-effort basis. Implementations
// log and swallow delivery failures; the returned count is the number of
// notifications written, or accepted for delivery when delivery is deferred.
type Notifier interface {
	// FanOut addresses note to every participant of event and to its
	// organizer.
	FanOut(ctx context.Context, event Event, note Note, opts ...FanOutOption) int
	// NotifyOne addresses note to a single user.
	NotifyOne(ctx context.Context, userID string, note Note) int
}

// FanOutOptions tunes a single fan-out.
type FanOutOptions struct {
	// OrganizerNote replaces the note sent to the organizer.
	OrganizerNote *Note
	// SkipOrganizer limits the audience to the roster.
	SkipOrganizer bool
	// Synchronous requires the batch to be written before FanOut returns.
	Synchronous bool
}

// FanOutOption configures FanOutOptions.
type FanOutOption func(*FanOutOptions)

// WithOrganizerNote sends note to the organizer instead of the shared note.
func WithOrganizerNote(note Note) FanOutOption {
	return func(o *FanOutOptions) {
		o.OrganizerNote = &note
	}
}

// WithoutOrganizer leaves the organizer out unless they are on the roster.
func WithoutOrganizer() FanOutOption {
	return func(o *FanOutOptions) {
		o.SkipOrganizer = true
	}
}

// Synchronous forces inline delivery.
func Synchronous() FanOutOption {
	return func(o *FanOutOptions) {
		o.Synchronous = true
	}
}

// ApplyFanOutOptions folds opts into a FanOutOptions value.
func ApplyFanOutOptions(opts ...FanOutOption) FanOutOptions {
	var o FanOutOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Audience returns the recipients of a fan-out for event: every participant
// in roster order, then the organizer when not already listed. The organizer
// is left out when skipOrganizer is set.
func Audience(event Event, skipOrganizer bool) []string {
	recipients := make([]string, 0, len(event.Participants)+1)
	seen := make(map[string]bool, len(event.Participants)+1)
	for _, p := range event.Participants {
		if p.UserID == "" || seen[p.UserID] {
			continue
		}
		seen[p.UserID] = true
		recipients = append(recipients, p.UserID)
	}
	if !skipOrganizer && event.OrganizerID != "" && !seen[event.OrganizerID] {
		recipients = append(recipients, event.OrganizerID)
	}
	return recipients
}

type noopNotifier struct{}

func (noopNotifier) FanOut(context.Context, Event, Note, ...FanOutOption) int { return 0 }

func (noopNotifier) NotifyOne(context.Context, string, Note) int { return 0 }
