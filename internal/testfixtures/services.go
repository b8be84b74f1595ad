package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/eventhub/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func (f *ServiceFactory) defaults(idGen func() string, now func() time.Time) (func() string, func() time.Time) {
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return idGen, now
}

// EventServiceDeps captures dependencies for constructing an event service.
type EventServiceDeps struct {
	Events      application.EventRepository
	Notifier    application.Notifier
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewEventService builds an event service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewEventService(deps EventServiceDeps) *application.EventService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewEventServiceWithLogger(deps.Events, deps.Notifier, idGen, now, deps.Logger)
}

// NotificationServiceDeps captures dependencies for constructing an inbox service.
type NotificationServiceDeps struct {
	Notifications application.NotificationRepository
	Events        application.EventLookup
	IDGenerator   func() string
	Now           func() time.Time
	Limit         int
	Logger        *slog.Logger
}

// NewNotificationService builds an inbox service using the supplied dependencies.
func (f *ServiceFactory) NewNotificationService(deps NotificationServiceDeps) *application.NotificationService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewNotificationServiceWithLogger(deps.Notifications, deps.Events, idGen, now, deps.Limit, deps.Logger)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Verifier application.TokenVerifier
	Now      func() time.Time
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	_, now := f.defaults(nil, deps.Now)
	return application.NewAuthServiceWithLogger(deps.Verifier, now, deps.CacheTTL, deps.Logger)
}
