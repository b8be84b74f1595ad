package mongo

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/example/eventhub/internal/persistence"
)

func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return persistence.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return persistence.ErrDuplicate
	default:
		return fmt.Errorf("mongo: %s: %w", op, err)
	}
}
