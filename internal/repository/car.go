package repository

import (
	"context"

	"carrental/internal/domain"
)

// CarRepository defines the lookups the booking core needs on the vehicle catalog.
type CarRepository interface {
	// ParseKey reports whether raw is a well-formed surrogate key for this
	// store and returns it in canonical form.
	ParseKey(raw string) (string, bool)

	// GetByKey retrieves a car by surrogate key.
	GetByKey(ctx context.Context, key string) (*domain.Car, error)

	// GetByLegacyID retrieves a car whose legacy id equals id, matching the
	// kind exactly: a numeric id never matches a string id.
	GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.Car, error)
}
