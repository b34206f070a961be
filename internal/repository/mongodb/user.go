package mongodb

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"carrental/internal/domain"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	LegacyID     mixed              `bson:"id,omitempty"`
	FirstName    string             `bson:"firstName"`
	LastName     string             `bson:"lastName"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PhoneNumber  string             `bson:"phoneNumber,omitempty"`
	Role         string             `bson:"role,omitempty"`
	PasswordHash string             `bson:"passwordHash,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt,omitempty"`
}

func (d *userDoc) toDomain() *domain.User {
	user := &domain.User{
		Key:          d.ID.Hex(),
		LegacyID:     domain.Ref(d.LegacyID),
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Username:     d.Username,
		Email:        d.Email,
		PhoneNumber:  d.PhoneNumber,
		Role:         domain.Role(d.Role),
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	return user
}

// UserRepository implements repository.UserRepository using MongoDB.
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

// ParseKey reports whether raw is an ObjectID.
func (r *UserRepository) ParseKey(raw string) (string, bool) {
	return parseKey(raw)
}

// GetByKey retrieves a user by ObjectID.
func (r *UserRepository) GetByKey(ctx context.Context, key string) (*domain.User, error) {
	filter, err := byKey(key)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, filter)
}

// GetByLegacyID retrieves a user by its legacy id field.
func (r *UserRepository) GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.User, error) {
	return r.get(ctx, bson.M{"id": mixed(id)})
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, bson.M{"email": emailPattern(email)})
}

func (r *UserRepository) get(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := findOne(ctx, r.coll, filter, &doc); err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

// emailPattern matches an email field exactly, ignoring case.
func emailPattern(email string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(strings.TrimSpace(email)) + "$", Options: "i"}
}
