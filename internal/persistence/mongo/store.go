// Package mongo stores events and notifications in MongoDB. Rosters are
// embedded in the event document so attendance changes are single-document
// atomic updates.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	eventsCollection        = "events"
	notificationsCollection = "notifications"

	defaultConnectTimeout = 10 * time.Second
)

// Config describes how to reach the database.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Storage bundles the MongoDB-backed repositories over one client.
type Storage struct {
	client        *mongo.Client
	db            *mongo.Database
	logger        *slog.Logger
	events        *EventRepository
	notifications *NotificationRepository
}

// Open connects to the deployment described by config. Call Migrate before
// use to create indexes.
func Open(ctx context.Context, config Config, logger *slog.Logger) (*Storage, error) {
	if config.URI == "" {
		return nil, errors.New("mongo: URI is required")
	}
	if config.Database == "" {
		return nil, errors.New("mongo: database name is required")
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = defaultConnectTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := options.Client().
		ApplyURI(config.URI).
		SetConnectTimeout(config.ConnectTimeout).
		SetServerSelectionTimeout(config.ConnectTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	db := client.Database(config.Database)
	transactions := supportsTransactions(ctx, db)
	logger.Debug("mongo storage opened", "database", config.Database, "transactions", transactions)

	return &Storage{
		client:        client,
		db:            db,
		logger:        logger,
		events:        newEventRepository(db.Collection(eventsCollection)),
		notifications: newNotificationRepository(client, db.Collection(notificationsCollection), transactions),
	}, nil
}

// supportsTransactions reports whether the deployment is a replica set or a
// sharded cluster. Standalone servers reject multi-document transactions.
func supportsTransactions(ctx context.Context, db *mongo.Database) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return false
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}

// Close disconnects the client.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks that the primary is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Migrate creates the indexes the repositories rely on and returns how many
// exist afterwards. Creating an existing index is a no-op.
func (s *Storage) Migrate(ctx context.Context) (int, error) {
	eventIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: -1}, {Key: "time", Value: -1}}},
		{Keys: bson.D{{Key: "organizerId", Value: 1}}},
		{Keys: bson.D{{Key: "participants.userId", Value: 1}}},
	}
	notificationIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "read", Value: 1}}},
	}

	created := 0
	names, err := s.db.Collection(eventsCollection).Indexes().CreateMany(ctx, eventIndexes)
	if err != nil {
		return 0, fmt.Errorf("mongo: event indexes: %w", err)
	}
	created += len(names)
	names, err = s.db.Collection(notificationsCollection).Indexes().CreateMany(ctx, notificationIndexes)
	if err != nil {
		return created, fmt.Errorf("mongo: notification indexes: %w", err)
	}
	created += len(names)
	s.logger.Info("mongo indexes ensured", "count", created)
	return created, nil
}

// Events returns the event repository.
func (s *Storage) Events() *EventRepository {
	return s.events
}

// Notifications returns the notification repository.
func (s *Storage) Notifications() *NotificationRepository {
	return s.notifications
}

// Drop removes the whole database. Intended for tests and local resets.
func (s *Storage) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}
