package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/example/eventhub/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrations returns the schema migrations shipped with the store.
func Migrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(fmt.Sprintf("sqlite: embedded migrations: %v", err))
	}
	return sub
}

// Storage bundles the SQLite-backed repositories over one connection pool.
type Storage struct {
	pool          *ConnectionPool
	logger        *slog.Logger
	events        *EventRepository
	notifications *NotificationRepository
}

// Open connects to the database described by config. Call Migrate before use
// on a fresh database.
func Open(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		pool:          pool,
		logger:        logger,
		events:        NewEventRepository(pool),
		notifications: NewNotificationRepository(pool),
	}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending schema migrations and returns how many ran.
func (s *Storage) Migrate(ctx context.Context) (int, error) {
	manager := migration.NewManager(migration.NewScanner(), migration.NewSQLiteExecutor(s.pool.DB()), Migrations(), s.logger)
	return manager.Run(ctx)
}

// MigrationStatus reports applied and pending migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (migration.Status, error) {
	manager := migration.NewManager(migration.NewScanner(), migration.NewSQLiteExecutor(s.pool.DB()), Migrations(), s.logger)
	return manager.Status(ctx)
}

// Events returns the event repository.
func (s *Storage) Events() *EventRepository {
	return s.events
}

// Notifications returns the notification repository.
func (s *Storage) Notifications() *NotificationRepository {
	return s.notifications
}
