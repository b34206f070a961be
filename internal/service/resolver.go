package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"carrental/internal/domain"
	"carrental/internal/repository"
)

// Strategy is one way of looking up a record from a raw identifier.
type Strategy int

const (
	// ByKey looks up by surrogate key when the raw value is a well-formed key.
	ByKey Strategy = iota
	// ByLegacyNumber looks up by legacy numeric id when the raw value is an integer.
	ByLegacyNumber
	// ByLegacyString looks up by legacy string id.
	ByLegacyString
)

func (s Strategy) String() string {
	switch s {
	case ByKey:
		return "key"
	case ByLegacyNumber:
		return "legacy_number"
	case ByLegacyString:
		return "legacy_string"
	default:
		return "unknown"
	}
}

// Lookup orders. Cars and users were catalogued with numeric ids long before
// string ids appeared, so numbers go first. Rental ids were strings from the
// start and only a few imported records carry numbers.
var (
	CarLookupOrder    = []Strategy{ByKey, ByLegacyNumber, ByLegacyString}
	UserLookupOrder   = []Strategy{ByKey, ByLegacyNumber, ByLegacyString}
	RentalLookupOrder = []Strategy{ByKey, ByLegacyString, ByLegacyNumber}
)

// keyedStore is the lookup capability shared by all repositories.
type keyedStore[T any] interface {
	ParseKey(raw string) (string, bool)
	GetByKey(ctx context.Context, key string) (*T, error)
	GetByLegacyID(ctx context.Context, id domain.Ref) (*T, error)
}

// resolve tries each strategy in order and returns the first hit. A miss is
// not an error until every applicable strategy has been tried; any other
// store error aborts immediately.
func resolve[T any](ctx context.Context, store keyedStore[T], raw string, order []Strategy) (*T, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, repository.ErrNotFound
	}

	for _, strategy := range order {
		var (
			record *T
			err    error
		)

		switch strategy {
		case ByKey:
			key, ok := store.ParseKey(raw)
			if !ok {
				continue
			}
			record, err = store.GetByKey(ctx, key)
		case ByLegacyNumber:
			n, perr := strconv.ParseInt(raw, 10, 64)
			if perr != nil {
				continue
			}
			record, err = store.GetByLegacyID(ctx, domain.NumberRef(n))
		case ByLegacyString:
			record, err = store.GetByLegacyID(ctx, domain.StringRef(raw))
		default:
			continue
		}

		if err == nil {
			return record, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup by %s: %w", strategy, err)
		}
	}

	return nil, repository.ErrNotFound
}

// Resolver is the single place that knows how raw identifiers and stored
// references map onto records.
type Resolver struct {
	cars    repository.CarRepository
	users   repository.UserRepository
	rentals repository.RentalRepository
}

// NewResolver creates a new Resolver.
func NewResolver(
	cars repository.CarRepository,
	users repository.UserRepository,
	rentals repository.RentalRepository,
) *Resolver {
	return &Resolver{
		cars:    cars,
		users:   users,
		rentals: rentals,
	}
}

// Car resolves a caller-supplied car identifier using CarLookupOrder.
func (r *Resolver) Car(ctx context.Context, raw string) (*domain.Car, error) {
	car, err := resolve[domain.Car](ctx, r.cars, raw, CarLookupOrder)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCarNotFound
	}
	return car, err
}

// CarByRef resolves a car reference stored on a rental.
func (r *Resolver) CarByRef(ctx context.Context, ref domain.Ref) (*domain.Car, error) {
	return r.Car(ctx, ref.String())
}

// Rental resolves a caller-supplied rental identifier using RentalLookupOrder.
func (r *Resolver) Rental(ctx context.Context, raw string) (*domain.Rental, error) {
	rental, err := resolve[domain.Rental](ctx, r.rentals, raw, RentalLookupOrder)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRentalNotFound
	}
	return rental, err
}

// User resolves a raw user identifier using UserLookupOrder.
func (r *Resolver) User(ctx context.Context, raw string) (*domain.User, error) {
	user, err := resolve[domain.User](ctx, r.users, raw, UserLookupOrder)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// RentalOwner resolves the user a rental belongs to: by its user reference
// first, then by the email snapshotted at booking time.
func (r *Resolver) RentalOwner(ctx context.Context, rental *domain.Rental) (*domain.User, error) {
	if !rental.UserRef.IsZero() {
		user, err := r.User(ctx, rental.UserRef.String())
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
	}

	if rental.UserEmail == "" {
		return nil, ErrUserNotFound
	}

	user, err := r.users.GetByEmail(ctx, rental.UserEmail)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}
