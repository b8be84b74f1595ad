package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/eventhub/internal/config"
	"github.com/example/eventhub/internal/persistence"
	"github.com/example/eventhub/internal/persistence/mongo"
	"github.com/example/eventhub/internal/persistence/sqlite"
	"github.com/example/eventhub/internal/persistence/sqlite/migration"
)

// store is the backend-neutral view of a storage engine.
type store interface {
	Events() persistence.EventRepository
	Notifications() persistence.NotificationRepository
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) (int, error)
	Close(ctx context.Context) error
}

type sqliteStore struct {
	*sqlite.Storage
}

func (s sqliteStore) Events() persistence.EventRepository {
	return s.Storage.Events()
}

func (s sqliteStore) Notifications() persistence.NotificationRepository {
	return s.Storage.Notifications()
}

func (s sqliteStore) Close(context.Context) error {
	return s.Storage.Close()
}

type mongoStore struct {
	*mongo.Storage
}

func (s mongoStore) Events() persistence.EventRepository {
	return s.Storage.Events()
}

func (s mongoStore) Notifications() persistence.NotificationRepository {
	return s.Storage.Notifications()
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return sqliteStore{storage}, nil
	case config.StoreMongo:
		storage, err := mongo.Open(ctx, mongo.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase}, logger)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return mongoStore{storage}, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
