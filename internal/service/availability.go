package service

import (
	"context"
	"fmt"
	"time"

	"carrental/internal/domain"
	"carrental/internal/repository"
)

// DateRange is an inclusive [Start, End] range of calendar dates.
type DateRange struct {
	Start string
	End   string

	start time.Time
	end   time.Time
}

// NewDateRange validates start and end and returns the range. The end date
// may equal the start date but may not precede it.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidDateRange, end, start)
	}

	return DateRange{
		Start: s.Format(DateLayout),
		End:   e.Format(DateLayout),
		start: s,
		end:   e,
	}, nil
}

// Overlaps reports whether the two inclusive ranges share at least one day.
func (r DateRange) Overlaps(other DateRange) bool {
	return overlaps(r.Start, r.End, other.Start, other.End)
}

func overlaps(s1, e1, s2, e2 string) bool {
	return s1 <= e2 && e1 >= s2
}

// PriceFor parses the range and quotes it at perDay.
func PriceFor(start, end string, perDay float64) (Price, error) {
	rng, err := NewDateRange(start, end)
	if err != nil {
		return Price{}, err
	}
	return Quote(rng, perDay)
}

// AvailabilityChecker answers whether a car is free for a date range.
type AvailabilityChecker struct {
	resolver *Resolver
	rentals  repository.RentalRepository
}

// NewAvailabilityChecker creates a new AvailabilityChecker.
func NewAvailabilityChecker(resolver *Resolver, rentals repository.RentalRepository) *AvailabilityChecker {
	return &AvailabilityChecker{
		resolver: resolver,
		rentals:  rentals,
	}
}

// Availability is the answer to an availability query.
type Availability struct {
	Car       *domain.Car
	Available bool
}

// IsAvailable resolves the car and reports whether no active rental of it
// overlaps [startDate, endDate]. Malformed dates are rejected before any
// query runs.
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, carID, startDate, endDate string) (*Availability, error) {
	rng, err := NewDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	car, err := c.resolver.Car(ctx, carID)
	if err != nil {
		return nil, err
	}

	conflict, err := c.findConflict(ctx, car, rng, "")
	if err != nil {
		return nil, err
	}

	return &Availability{Car: car, Available: conflict == nil}, nil
}

// ActiveBookings returns the date ranges of all active rentals of the car.
func (c *AvailabilityChecker) ActiveBookings(ctx context.Context, carID string) (*domain.Car, []DateRange, error) {
	car, err := c.resolver.Car(ctx, carID)
	if err != nil {
		return nil, nil, err
	}

	rentals, err := c.activeRentals(ctx, car)
	if err != nil {
		return nil, nil, err
	}

	bookings := make([]DateRange, 0, len(rentals))
	for _, r := range rentals {
		bookings = append(bookings, DateRange{Start: r.StartDate, End: r.EndDate})
	}
	return car, bookings, nil
}

// findConflict returns the first active rental of car overlapping rng,
// ignoring the rental whose key is exclude.
func (c *AvailabilityChecker) findConflict(ctx context.Context, car *domain.Car, rng DateRange, exclude string) (*domain.Rental, error) {
	rentals, err := c.activeRentals(ctx, car)
	if err != nil {
		return nil, err
	}

	for _, r := range rentals {
		if exclude != "" && r.Key == exclude {
			continue
		}
		if overlaps(r.StartDate, r.EndDate, rng.Start, rng.End) {
			return r, nil
		}
	}
	return nil, nil
}

func (c *AvailabilityChecker) activeRentals(ctx context.Context, car *domain.Car) ([]*domain.Rental, error) {
	rentals, err := c.rentals.Find(ctx, repository.RentalFilter{
		CarRefs: car.Refs(),
		Status:  domain.RentalStatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("find active rentals: %w", err)
	}
	return rentals, nil
}
