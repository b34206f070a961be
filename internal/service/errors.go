package service

import "errors"

// Validation errors.
var (
	// ErrInvalidDate is returned when a date is not a YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

	// ErrInvalidDateRange is returned when the end date precedes the start date,
	// or when a booking would last less than one day.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrMissingDates is returned when a start or end date is absent.
	ErrMissingDates = errors.New("start date and end date are required")

	// ErrInvalidStatus is returned for an unknown rental status.
	ErrInvalidStatus = errors.New("invalid rental status")

	// ErrInvalidRate is returned when a car has a negative daily rate.
	ErrInvalidRate = errors.New("invalid price per day")

	// ErrInvalidID is returned when an identifier is empty.
	ErrInvalidID = errors.New("invalid id")
)

// Authorization errors.
var (
	// ErrUnauthorized is returned when the request has no resolvable principal.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the principal may not act on the rental.
	ErrForbidden = errors.New("not authorized to modify this rental")
)

// Lookup errors.
var (
	// ErrCarNotFound is returned when a car cannot be resolved by any strategy.
	ErrCarNotFound = errors.New("car not found")

	// ErrRentalNotFound is returned when a rental cannot be resolved by any strategy.
	ErrRentalNotFound = errors.New("rental not found")

	// ErrUserNotFound is returned when a user cannot be resolved by any strategy.
	ErrUserNotFound = errors.New("user not found")
)

// State errors.
var (
	// ErrBookingConflict is returned when an active rental of the same car
	// overlaps the requested dates.
	ErrBookingConflict = errors.New("car is already rented for the selected dates")

	// ErrRentalCompleted is returned when cancelling a completed rental.
	ErrRentalCompleted = errors.New("rental already completed")

	// ErrLockUnavailable is returned when the per-car booking lock could not
	// be acquired in time.
	ErrLockUnavailable = errors.New("booking temporarily unavailable, retry later")
)
