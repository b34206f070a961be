package repository

import (
	"context"

	"carrental/internal/domain"
)

// RentalFilter selects rentals in Find. Zero-valued fields do not filter.
type RentalFilter struct {
	// CarRefs matches rentals whose car reference is any of the given refs.
	CarRefs []domain.Ref

	// UserRefs and UserEmail match rentals whose user reference is any of
	// UserRefs OR whose snapshotted email equals UserEmail, ignoring case.
	UserRefs  []domain.Ref
	UserEmail string

	// Status matches rentals in exactly this status.
	Status domain.RentalStatus

	// EndBefore matches rentals whose end date sorts before this YYYY-MM-DD date.
	EndBefore string
}

// RentalRepository defines the persistence operations for rentals.
type RentalRepository interface {
	// ParseKey reports whether raw is a well-formed surrogate key for this store.
	ParseKey(raw string) (string, bool)

	// GetByKey retrieves a rental by surrogate key.
	GetByKey(ctx context.Context, key string) (*domain.Rental, error)

	// GetByLegacyID retrieves a rental by legacy id with exact kind match.
	GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.Rental, error)

	// Create persists a new rental and assigns its surrogate key.
	Create(ctx context.Context, rental *domain.Rental) error

	// Update replaces an existing rental, matched by surrogate key.
	Update(ctx context.Context, rental *domain.Rental) error

	// Find returns the rentals matching filter.
	Find(ctx context.Context, filter RentalFilter) ([]*domain.Rental, error)
}

// Matches reports whether rental satisfies f. Stores that filter in memory
// use it directly; query-building stores must agree with it.
func (f RentalFilter) Matches(rental *domain.Rental) bool {
	if len(f.CarRefs) > 0 && !domain.ContainsRef(f.CarRefs, rental.CarRef) {
		return false
	}

	if len(f.UserRefs) > 0 || f.UserEmail != "" {
		byRef := domain.ContainsRef(f.UserRefs, rental.UserRef)
		byEmail := domain.SameEmail(rental.UserEmail, f.UserEmail)
		if !byRef && !byEmail {
			return false
		}
	}

	if f.Status != "" && rental.Status != f.Status {
		return false
	}

	if f.EndBefore != "" && !(rental.EndDate < f.EndBefore) {
		return false
	}

	return true
}
