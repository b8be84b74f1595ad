// Package notify delivers event notifications to user inboxes.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/eventhub/internal/application"
	"github.com/example/eventhub/internal/logging"
	"github.com/example/eventhub/internal/metrics"
)

// Writer persists a batch of notifications atomically.
type Writer interface {
	CreateNotifications(ctx context.Context, notifications []application.Notification) error
}

// Config sizes the background delivery pool. Zero workers selects inline
// delivery on the caller's goroutine.
type Config struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
}

const defaultWriteTimeout = 10 * time.Second

type batch struct {
	eventID       string
	notifications []application.Notification
	logger        *slog.Logger
}

// Dispatcher implements application.Notifier on top of a Writer. Failures are
// logged and swallowed; a failed batch writes nothing.
type Dispatcher struct {
	writer       Writer
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	pool   *workerPool[batch]
	cancel context.CancelFunc
}

// NewDispatcher constructs a dispatcher and starts its workers.
func NewDispatcher(writer Writer, idGenerator func() string, now func() time.Time, cfg Config, logger *slog.Logger) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	d := &Dispatcher{
		writer:       writer,
		idGenerator:  idGenerator,
		now:          now,
		logger:       logger.With("component", "notify.Dispatcher"),
		writeTimeout: cfg.WriteTimeout,
	}
	if cfg.Workers > 0 {
		queueSize := cfg.QueueSize
		if queueSize < 0 {
			queueSize = 0
		}
		ctx, cancel := context.WithCancel(context.Background())
		d.cancel = cancel
		d.pool = newWorkerPool(ctx, cfg.Workers, queueSize, d.process)
	}
	return d
}

// FanOut addresses note to the audience of event. The organizer receives the
// organizer note when one is configured. Without the Synchronous option the
// batch may be written after FanOut returns; the count is then the number of
// notifications accepted.
func (d *Dispatcher) FanOut(ctx context.Context, event application.Event, note application.Note, opts ...application.FanOutOption) int {
	if d == nil || d.writer == nil {
		return 0
	}
	options := application.ApplyFanOutOptions(opts...)
	recipients := application.Audience(event, options.SkipOrganizer)
	if len(recipients) == 0 {
		return 0
	}

	createdAt := d.now().UTC()
	notifications := make([]application.Notification, 0, len(recipients))
	for _, userID := range recipients {
		content := note
		if userID == event.OrganizerID && options.OrganizerNote != nil {
			content = *options.OrganizerNote
		}
		notifications = append(notifications, d.address(userID, content, createdAt))
	}

	b := batch{
		eventID:       event.ID,
		notifications: notifications,
		logger:        d.requestLogger(ctx).With("event_id", event.ID, "notification_type", note.Type),
	}
	if options.Synchronous {
		return d.deliver(ctx, b)
	}
	return d.enqueue(ctx, b)
}

// NotifyOne writes a single notification before returning.
func (d *Dispatcher) NotifyOne(ctx context.Context, userID string, note application.Note) int {
	if d == nil || d.writer == nil || userID == "" {
		return 0
	}
	b := batch{
		notifications: []application.Notification{d.address(userID, note, d.now().UTC())},
		logger:        d.requestLogger(ctx).With("notification_type", note.Type),
	}
	if note.EventID != nil {
		b.eventID = *note.EventID
		b.logger = b.logger.With("event_id", b.eventID)
	}
	return d.deliver(ctx, b)
}

// Close stops accepting background work and waits for queued batches.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	if d.pool != nil {
		d.pool.Drain()
		d.cancel()
		metrics.FanOutQueueUtilization.Set(0)
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, b batch) int {
	d.mu.RLock()
	if d.pool != nil && !d.closed {
		if d.pool.Submit(b) {
			d.observeQueue()
			d.mu.RUnlock()
			return len(b.notifications)
		}
		metrics.FanOutInline.Inc()
		b.logger.WarnContext(ctx, "fan-out queue full, delivering inline",
			"queue_cap", d.pool.QueueCap())
	}
	d.mu.RUnlock()
	return d.deliver(ctx, b)
}

func (d *Dispatcher) process(ctx context.Context, b batch) {
	defer d.observeQueue()
	d.deliver(ctx, b)
}

func (d *Dispatcher) deliver(ctx context.Context, b batch) int {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.writeTimeout)
	defer cancel()

	if err := d.writer.CreateNotifications(ctx, b.notifications); err != nil {
		for _, n := range b.notifications {
			metrics.NotificationsFailed.WithLabelValues(n.Type).Inc()
		}
		b.logger.ErrorContext(ctx, "failed to deliver notifications",
			"error", err,
			"recipients", recipientIDs(b.notifications),
		)
		return 0
	}
	for _, n := range b.notifications {
		metrics.NotificationsWritten.WithLabelValues(n.Type).Inc()
	}
	b.logger.DebugContext(ctx, "notifications delivered", "count", len(b.notifications))
	return len(b.notifications)
}

func (d *Dispatcher) address(userID string, note application.Note, createdAt time.Time) application.Notification {
	id := ""
	if d.idGenerator != nil {
		id = d.idGenerator()
	}
	return application.Notification{
		ID:         id,
		UserID:     userID,
		Type:       note.Type,
		Title:      note.Title,
		Message:    note.Message,
		EventID:    note.EventID,
		EventTitle: note.EventTitle,
		CreatedAt:  createdAt,
	}
}

func (d *Dispatcher) requestLogger(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger.With("component", "notify.Dispatcher")
	}
	return d.logger
}

func (d *Dispatcher) observeQueue() {
	if d.pool == nil || d.pool.QueueCap() == 0 {
		return
	}
	metrics.FanOutQueueUtilization.Set(float64(d.pool.QueueLen()) / float64(d.pool.QueueCap()))
}

func recipientIDs(notifications []application.Notification) []string {
	ids := make([]string, len(notifications))
	for i, n := range notifications {
		ids[i] = n.UserID
	}
	return ids
}
