package mongodb

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"carrental/internal/repository"
)

// Collection names.
const (
	CarsCollection    = "cars"
	UsersCollection   = "users"
	RentalsCollection = "rentals"
)

// parseKey accepts a 24-character hex ObjectID.
func parseKey(raw string) (string, bool) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return oid.Hex(), true
}

// findOne decodes the first document matching filter into doc.
func findOne(ctx context.Context, coll *mongo.Collection, filter bson.M, doc any) error {
	err := coll.FindOne(ctx, filter).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

// byKey builds the filter for a surrogate key, or reports a miss.
func byKey(key string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(key)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return bson.M{"_id": oid}, nil
}
