package repository

import (
	"context"

	"carrental/internal/domain"
)

// UserRepository defines the lookups on user accounts.
type UserRepository interface {
	// ParseKey reports whether raw is a well-formed surrogate key for this store.
	ParseKey(raw string) (string, bool)

	// GetByKey retrieves a user by surrogate key.
	GetByKey(ctx context.Context, key string) (*domain.User, error)

	// GetByLegacyID retrieves a user by legacy id with exact kind match.
	GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.User, error)

	// GetByEmail retrieves a user by email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
