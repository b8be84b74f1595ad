package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/eventhub/internal/persistence"
)

// EventRepository implements persistence.EventRepository on one collection.
type EventRepository struct {
	events *mongo.Collection
}

func newEventRepository(events *mongo.Collection) *EventRepository {
	return &EventRepository{events: events}
}

// CreateEvent inserts a new event document.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.OrganizerID == "" {
		return persistence.ErrConstraintViolation
	}
	if event.Status == "" {
		event.Status = persistence.EventStatusActive
	}
	_, err := r.events.InsertOne(ctx, newEventDocument(event))
	return mapError("CreateEvent", err)
}

// GetEvent loads an event with its roster.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	var doc eventDocument
	if err := r.events.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return persistence.Event{}, mapError("GetEvent", err)
	}
	return doc.model(), nil
}

// UpdateEvent applies the non-nil changes and returns the stored result.
func (r *EventRepository) UpdateEvent(ctx context.Context, id string, changes persistence.EventChanges) (persistence.Event, error) {
	set := bson.M{"updatedAt": changes.UpdatedAt.UTC()}
	for field, value := range map[string]*string{
		"title":       changes.Title,
		"description": changes.Description,
		"date":        changes.Date,
		"time":        changes.Time,
		"location":    changes.Location,
		"category":    changes.Category,
		"status":      changes.Status,
	} {
		if value != nil {
			set[field] = *value
		}
	}
	return r.findAndUpdate(ctx, "UpdateEvent", bson.M{"_id": id}, bson.M{"$set": set})
}

// DeleteEvent removes the event and its embedded roster.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	result, err := r.events.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError("DeleteEvent", err)
	}
	if result.DeletedCount == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListEvents returns matching events ordered by date descending.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query := bson.M{}
	date := bson.M{}
	if filter.DateOnOrAfter != "" {
		date["$gte"] = filter.DateOnOrAfter
	}
	if filter.DateBefore != "" {
		date["$lt"] = filter.DateBefore
	}
	if len(date) > 0 {
		query["date"] = date
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.OrganizerID != "" {
		query["organizerId"] = filter.OrganizerID
	}
	if filter.ParticipantID != "" {
		query["participants.userId"] = filter.ParticipantID
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "date", Value: -1},
		{Key: "time", Value: -1},
		{Key: "createdAt", Value: -1},
	})
	cursor, err := r.events.Find(ctx, query, opts)
	if err != nil {
		return nil, mapError("ListEvents", err)
	}
	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError("ListEvents", err)
	}

	events := make([]persistence.Event, 0, len(docs))
	for _, doc := range docs {
		events = append(events, doc.model())
	}
	return events, nil
}

// AddParticipant pushes the participant unless the user is already listed.
// The filter and the push run as one document update, so concurrent
// confirmations cannot overwrite each other.
func (r *EventRepository) AddParticipant(ctx context.Context, eventID string, participant persistence.Participant) (int, error) {
	if participant.UserID == "" {
		return 0, persistence.ErrConstraintViolation
	}
	filter := bson.M{"_id": eventID, "participants.userId": bson.M{"$ne": participant.UserID}}
	update := bson.M{"$push": bson.M{"participants": newParticipantDocument(participant)}}

	event, err := r.findAndUpdate(ctx, "AddParticipant", filter, update)
	if errors.Is(err, persistence.ErrNotFound) {
		count, countErr := r.events.CountDocuments(ctx, bson.M{"_id": eventID})
		if countErr != nil {
			return 0, mapError("AddParticipant", countErr)
		}
		if count > 0 {
			return 0, persistence.ErrDuplicate
		}
	}
	if err != nil {
		return 0, err
	}
	return len(event.Participants), nil
}

// RemoveParticipant pulls the user from the roster if present.
func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, userID string) (int, error) {
	update := bson.M{"$pull": bson.M{"participants": bson.M{"userId": userID}}}
	event, err := r.findAndUpdate(ctx, "RemoveParticipant", bson.M{"_id": eventID}, update)
	if err != nil {
		return 0, err
	}
	return len(event.Participants), nil
}

func (r *EventRepository) findAndUpdate(ctx context.Context, op string, filter, update any) (persistence.Event, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc eventDocument
	if err := r.events.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return persistence.Event{}, mapError(op, err)
	}
	return doc.model(), nil
}
