package service

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"carrental/internal/domain"
	"carrental/internal/metrics"
	"carrental/internal/repository"
)

// RentalView is a rental joined with its car and owner. Car and User are nil
// when the reference could not be resolved.
type RentalView struct {
	Rental *domain.Rental
	Car    *domain.Car
	User   *domain.User
}

// SkipReason explains why a rental was left out of a listing.
type SkipReason struct {
	RentalID string
	Reason   string
	Err      error
}

func (s *SkipReason) Error() string {
	if s.Err != nil {
		return fmt.Sprintf("rental %s skipped: %s: %v", s.RentalID, s.Reason, s.Err)
	}
	return fmt.Sprintf("rental %s skipped: %s", s.RentalID, s.Reason)
}

func (s *SkipReason) Unwrap() error {
	return s.Err
}

// Result is one element of an aggregated listing: either a view or the
// reason the rental was skipped.
type Result struct {
	View *RentalView
	Skip *SkipReason
}

// RentalReader assembles rental listings.
type RentalReader struct {
	resolver   *Resolver
	rentalRepo repository.RentalRepository
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// NewRentalReader creates a new RentalReader.
func NewRentalReader(resolver *Resolver, rentalRepo repository.RentalRepository, m *metrics.Metrics, log *zap.Logger) *RentalReader {
	return &RentalReader{
		resolver:   resolver,
		rentalRepo: rentalRepo,
		metrics:    m,
		log:        log,
	}
}

// All returns a lazy sequence over every rental joined with its car and
// owner. Rentals whose owner cannot be resolved yield a Skip result; the
// car is best-effort.
func (r *RentalReader) All(ctx context.Context) (iter.Seq[Result], error) {
	rentals, err := r.rentalRepo.Find(ctx, repository.RentalFilter{})
	if err != nil {
		return nil, fmt.Errorf("find rentals: %w", err)
	}

	return func(yield func(Result) bool) {
		for _, rental := range rentals {
			if ctx.Err() != nil {
				return
			}
			if !yield(r.join(ctx, rental)) {
				return
			}
		}
	}, nil
}

func (r *RentalReader) join(ctx context.Context, rental *domain.Rental) Result {
	user, err := r.resolver.RentalOwner(ctx, rental)
	if err != nil {
		reason := "user lookup failed"
		if errors.Is(err, ErrUserNotFound) {
			reason = "user not found"
		}
		return Result{Skip: &SkipReason{RentalID: rental.ID(), Reason: reason, Err: err}}
	}

	return Result{View: &RentalView{
		Rental: rental,
		Car:    r.car(ctx, rental),
		User:   user,
	}}
}

// ListAll drains All, keeping the views and logging every skipped rental.
func (r *RentalReader) ListAll(ctx context.Context) ([]*RentalView, error) {
	seq, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]*RentalView, 0)
	for res := range seq {
		if res.Skip != nil {
			r.metrics.ListingSkipped()
			r.log.Warn("rental omitted from listing",
				zap.String("rental_id", res.Skip.RentalID),
				zap.String("reason", res.Skip.Reason),
				zap.Error(res.Skip.Err),
			)
			continue
		}
		views = append(views, res.View)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return views, nil
}

// ListForPrincipal returns the principal's rentals with their cars. A rental
// belongs to the principal when its user reference is any of the principal's
// identifiers or its snapshotted email is the principal's email.
func (r *RentalReader) ListForPrincipal(ctx context.Context, principal *domain.User) ([]*RentalView, error) {
	if principal == nil {
		return nil, ErrUnauthorized
	}

	rentals, err := r.rentalRepo.Find(ctx, repository.RentalFilter{
		UserRefs:  principal.Refs(),
		UserEmail: principal.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("find rentals: %w", err)
	}

	views := make([]*RentalView, 0, len(rentals))
	for _, rental := range rentals {
		views = append(views, &RentalView{
			Rental: rental,
			Car:    r.car(ctx, rental),
		})
	}
	return views, nil
}

// car resolves the rental's car, returning nil if it cannot be found.
func (r *RentalReader) car(ctx context.Context, rental *domain.Rental) *domain.Car {
	if rental.CarRef.IsZero() {
		return nil
	}

	car, err := r.resolver.CarByRef(ctx, rental.CarRef)
	if err != nil {
		if !errors.Is(err, ErrCarNotFound) {
			r.log.Warn("car lookup failed", zap.String("rental_id", rental.ID()), zap.Error(err))
		}
		return nil
	}
	return car
}
