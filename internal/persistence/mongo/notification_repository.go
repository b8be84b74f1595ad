package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/eventhub/internal/persistence"
)

// NotificationRepository implements persistence.NotificationRepository.
type NotificationRepository struct {
	client        *mongo.Client
	notifications *mongo.Collection
	transactions  bool
}

func newNotificationRepository(client *mongo.Client, notifications *mongo.Collection, transactions bool) *NotificationRepository {
	return &NotificationRepository{client: client, notifications: notifications, transactions: transactions}
}

// CreateNotifications writes the batch in one transaction when the deployment
// supports it. On a standalone server a failed ordered insert is undone by
// deleting whatever part of the batch was written.
func (r *NotificationRepository) CreateNotifications(ctx context.Context, notifications []persistence.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	docs := make([]any, 0, len(notifications))
	ids := make([]string, 0, len(notifications))
	for _, n := range notifications {
		if n.ID == "" || n.UserID == "" {
			return persistence.ErrConstraintViolation
		}
		docs = append(docs, newNotificationDocument(n))
		ids = append(ids, n.ID)
	}

	if r.transactions {
		session, err := r.client.StartSession()
		if err != nil {
			return mapError("CreateNotifications", err)
		}
		defer session.EndSession(ctx)
		_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
			return r.notifications.InsertMany(sc, docs)
		})
		return mapError("CreateNotifications", err)
	}

	if _, err := r.notifications.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		r.undoPartial(ctx, err, ids)
		return mapError("CreateNotifications", err)
	}
	return nil
}

// undoPartial deletes the documents an ordered insert wrote before it
// stopped. Documents from the failing index on were not written by this
// batch; a duplicate ID there belongs to an earlier write and must survive.
func (r *NotificationRepository) undoPartial(ctx context.Context, err error, ids []string) {
	written := len(ids)
	var bulk mongo.BulkWriteException
	if errors.As(err, &bulk) && len(bulk.WriteErrors) > 0 {
		written = bulk.WriteErrors[0].Index
	}
	if written == 0 {
		return
	}
	_, _ = r.notifications.DeleteMany(context.WithoutCancel(ctx), bson.M{"_id": bson.M{"$in": ids[:written]}})
}

// GetNotification loads one notification.
func (r *NotificationRepository) GetNotification(ctx context.Context, id string) (persistence.Notification, error) {
	var doc notificationDocument
	if err := r.notifications.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return persistence.Notification{}, mapError("GetNotification", err)
	}
	return doc.model(), nil
}

// ListNotificationsForUser returns up to limit notifications, newest first.
// A non-positive limit returns the whole inbox.
func (r *NotificationRepository) ListNotificationsForUser(ctx context.Context, userID string, limit int) ([]persistence.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.notifications.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, mapError("ListNotificationsForUser", err)
	}
	var docs []notificationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError("ListNotificationsForUser", err)
	}
	out := make([]persistence.Notification, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.model())
	}
	return out, nil
}

// CountUnreadNotifications counts the user's unread notifications.
func (r *NotificationRepository) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	count, err := r.notifications.CountDocuments(ctx, bson.M{"userId": userID, "read": false})
	if err != nil {
		return 0, mapError("CountUnreadNotifications", err)
	}
	return int(count), nil
}

// MarkNotificationRead flags one notification as read.
func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := r.notifications.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return mapError("MarkNotificationRead", err)
	}
	if result.MatchedCount == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead flags every unread notification of the user.
func (r *NotificationRepository) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	result, err := r.notifications.UpdateMany(ctx,
		bson.M{"userId": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, mapError("MarkAllNotificationsRead", err)
	}
	return int(result.ModifiedCount), nil
}

// DeleteNotification removes one notification.
func (r *NotificationRepository) DeleteNotification(ctx context.Context, id string) error {
	result, err := r.notifications.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError("DeleteNotification", err)
	}
	if result.DeletedCount == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteNotificationsForUser empties the user's inbox.
func (r *NotificationRepository) DeleteNotificationsForUser(ctx context.Context, userID string) (int, error) {
	result, err := r.notifications.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, mapError("DeleteNotificationsForUser", err)
	}
	return int(result.DeletedCount), nil
}
