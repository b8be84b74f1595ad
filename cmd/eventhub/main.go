package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/example/eventhub/internal/application"
	"github.com/example/eventhub/internal/calendar"
	"github.com/example/eventhub/internal/config"
	httptransport "github.com/example/eventhub/internal/http"
	"github.com/example/eventhub/internal/identity"
	"github.com/example/eventhub/internal/logging"
	"github.com/example/eventhub/internal/metrics"
	"github.com/example/eventhub/internal/notify"
	"github.com/example/eventhub/internal/seed"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		slog.Error("eventhub failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "eventhub",
		Usage: "Event management API with attendance tracking and notifications.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file loaded before reading the environment"},
		},
		Before: func(c *cli.Context) error {
			return config.LoadEnvFile(c.String("env-file"))
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			seedCommand(),
		},
		DefaultCommand: "serve",
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API.",
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			return serve(c.Context, cfg, logger)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations or create indexes.",
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			st, err := openStore(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore(st, logger)

			applied, err := st.Migrate(c.Context)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations complete", "store", cfg.Store, "applied", applied)
			return nil
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load demo events and attendees from a YAML file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "seed file path"},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			file, err := seed.LoadFile(c.String("file"))
			if err != nil {
				return err
			}
			st, err := openStore(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore(st, logger)

			if _, err := st.Migrate(c.Context); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			// Inline delivery so every notification is written before exit.
			dispatcher := notify.NewDispatcher(newNotificationRepositoryAdapter(st.Notifications()), uuid.NewString, time.Now, notify.Config{}, logger)
			defer dispatcher.Close()
			events := application.NewEventServiceWithLogger(newEventRepositoryAdapter(st.Events()), dispatcher, uuid.NewString, time.Now, logger)

			result, err := seed.Apply(c.Context, events, file, logger)
			if err != nil {
				return err
			}
			logger.Info("seed complete", "events", result.Events, "attendees", result.Attendees)
			return nil
		},
	}
}

func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	if _, err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	verifier, err := identity.NewFirebaseVerifier(ctx, cfg.IdentityAudience)
	if err != nil {
		return fmt.Errorf("identity verifier: %w", err)
	}

	handler, dispatcher := buildHandler(cfg, st, verifier, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		dispatcher.Close()
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("eventhub API listening", "addr", listener.Addr().String(), "store", cfg.Store)
	return runServer(ctx, server, listener, dispatcher, logger)
}

// runServer serves until ctx is cancelled. In-flight requests finish before
// the dispatcher drains, and the dispatcher drains before the caller closes
// the store.
func runServer(ctx context.Context, server *http.Server, listener net.Listener, dispatcher *notify.Dispatcher, logger *slog.Logger) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	err := server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		dispatcher.Close()
		return fmt.Errorf("server: %w", err)
	}
	<-stopped
	dispatcher.Close()
	return nil
}

// buildHandler wires services and transport over st. The returned dispatcher
// must be closed after the server stops.
func buildHandler(cfg config.Config, st store, verifier application.TokenVerifier, logger *slog.Logger) (http.Handler, *notify.Dispatcher) {
	now := time.Now
	notifications := newNotificationRepositoryAdapter(st.Notifications())
	events := newEventRepositoryAdapter(st.Events())

	dispatcher := notify.NewDispatcher(notifications, uuid.NewString, now, notify.Config{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueue,
	}, logger)

	authService := application.NewAuthServiceWithLogger(verifier, now, cfg.PrincipalCacheTTL, logger)
	eventService := application.NewEventServiceWithLogger(events, dispatcher, uuid.NewString, now, logger)
	notificationService := application.NewNotificationServiceWithLogger(notifications, events, uuid.NewString, now, cfg.NotificationLimit, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(authService, logger),
		Events:        httptransport.NewEventHandler(eventService, calendar.NewExporter(time.UTC, time.Hour, now), logger),
		Notifications: httptransport.NewNotificationHandler(notificationService, logger),
		Health:        httptransport.NewHealthHandler(st, logger),
		Authenticator: authService,
		Metrics:       metrics.Handler(),
		Logger:        logger,
		Middleware:    []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
	return router, dispatcher
}

func closeStore(st store, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := st.Close(ctx); err != nil {
		logger.Error("failed to close storage", "error", err)
	}
}
