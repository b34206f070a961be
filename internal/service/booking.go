package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"carrental/internal/domain"
	"carrental/internal/metrics"
	"carrental/internal/repository"
)

// Locker serializes booking attempts for the same car. Lock blocks until the
// key is held or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// IDGenerator produces time-derived unique rental tokens.
type IDGenerator interface {
	Generate() snowflake.ID
}

// BookingService creates, cancels and updates rentals.
type BookingService struct {
	resolver    *Resolver
	checker     *AvailabilityChecker
	rentalRepo  repository.RentalRepository
	locker      Locker
	ids         IDGenerator
	lockTimeout time.Duration
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time
}

// NewBookingService creates a new BookingService. lockTimeout bounds how long
// a booking waits for another booking of the same car; zero waits as long as
// the request context allows.
func NewBookingService(
	resolver *Resolver,
	checker *AvailabilityChecker,
	rentalRepo repository.RentalRepository,
	locker Locker,
	ids IDGenerator,
	lockTimeout time.Duration,
	m *metrics.Metrics,
	log *zap.Logger,
) *BookingService {
	return &BookingService{
		resolver:    resolver,
		checker:     checker,
		rentalRepo:  rentalRepo,
		locker:      locker,
		ids:         ids,
		lockTimeout: lockTimeout,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

// SetClock overrides the time source.
func (s *BookingService) SetClock(now func() time.Time) {
	s.now = now
}

// PaymentInput is the payment method supplied with a booking.
type PaymentInput struct {
	Method         string
	CardNumber     string
	CardName       string
	ExpirationDate string
	CVC            string
}

// CreateBookingRequest contains the parameters for booking a car.
type CreateBookingRequest struct {
	CarID           string
	StartDate       string
	EndDate         string
	PickupLocation  string
	DropoffLocation string
	SpecialRequests string
	Payment         *PaymentInput
}

// BookingResult is a rental joined with its car.
type BookingResult struct {
	Rental *domain.Rental
	Car    *domain.Car
}

// CreateBooking books a car for the principal. The overlap check and the
// insert run under the car's lock so two overlapping requests cannot both
// succeed.
func (s *BookingService) CreateBooking(ctx context.Context, principal *domain.User, req CreateBookingRequest) (*BookingResult, error) {
	if principal == nil {
		return nil, ErrUnauthorized
	}

	rng, err := NewDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	car, err := s.resolver.Car(ctx, req.CarID)
	if err != nil {
		return nil, err
	}

	price, err := Quote(rng, car.PricePerDay)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockCar(ctx, car)
	if err != nil {
		s.metrics.BookingOutcome(metrics.OutcomeFailed)
		return nil, err
	}
	defer unlock()

	conflict, err := s.checker.findConflict(ctx, car, rng, "")
	if err != nil {
		s.metrics.BookingOutcome(metrics.OutcomeFailed)
		return nil, err
	}
	if conflict != nil {
		s.metrics.BookingOutcome(metrics.OutcomeConflict)
		s.log.Info("booking rejected: overlap",
			zap.String("car_key", car.Key),
			zap.String("start_date", rng.Start),
			zap.String("end_date", rng.End),
			zap.String("conflicting_rental", conflict.ID()),
		)
		return nil, ErrBookingConflict
	}

	rental := &domain.Rental{
		LegacyID:        domain.StringRef(s.ids.Generate().String()),
		CarRef:          car.Ref(),
		UserRef:         principal.Ref(),
		UserEmail:       principal.Email,
		Username:        principal.Username,
		StartDate:       rng.Start,
		EndDate:         rng.End,
		TotalDays:       price.Days,
		PricePerDay:     price.PricePerDay,
		TotalPrice:      price.Total,
		PickupLocation:  orDefault(req.PickupLocation, domain.DefaultLocation),
		DropoffLocation: orDefault(req.DropoffLocation, domain.DefaultLocation),
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
		PaymentInfo:     snapshotPayment(req.Payment),
		Status:          domain.RentalStatusActive,
		CreatedAt:       s.now().UTC(),
	}

	if err := s.rentalRepo.Create(ctx, rental); err != nil {
		s.metrics.BookingOutcome(metrics.OutcomeFailed)
		return nil, fmt.Errorf("create rental: %w", err)
	}

	s.metrics.BookingOutcome(metrics.OutcomeCreated)
	s.log.Info("rental created",
		zap.String("rental_id", rental.ID()),
		zap.String("car_key", car.Key),
		zap.String("user_email", rental.UserEmail),
		zap.Int("total_days", rental.TotalDays),
		zap.Float64("total_price", rental.TotalPrice),
	)

	return &BookingResult{Rental: rental, Car: car}, nil
}

// CancelBooking cancels a rental on behalf of the principal. Admins may
// cancel any rental; other users only their own, matched by user reference
// or, for records older than the current id scheme, by email.
func (s *BookingService) CancelBooking(ctx context.Context, principal *domain.User, rentalID string) (*domain.Rental, error) {
	if principal == nil {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(rentalID) == "" {
		return nil, ErrInvalidID
	}

	rental, err := s.resolver.Rental(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	if !canModify(principal, rental) {
		return nil, ErrForbidden
	}

	_, unlock, err := s.lockRental(ctx, rental)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if rental, err = s.reload(ctx, rental.Key); err != nil {
		return nil, err
	}

	switch rental.Status {
	case domain.RentalStatusCancelled:
		return rental, nil
	case domain.RentalStatusCompleted:
		return nil, ErrRentalCompleted
	}

	rental.Status = domain.RentalStatusCancelled
	if err := s.rentalRepo.Update(ctx, rental); err != nil {
		return nil, fmt.Errorf("update rental: %w", err)
	}

	s.log.Info("rental cancelled",
		zap.String("rental_id", rental.ID()),
		zap.String("cancelled_by", principal.Email),
	)
	return rental, nil
}

func canModify(principal *domain.User, rental *domain.Rental) bool {
	if principal.IsAdmin() {
		return true
	}
	if domain.ContainsRef(principal.Refs(), rental.UserRef) {
		return true
	}
	return domain.SameEmail(rental.UserEmail, principal.Email)
}

// UpdateBookingRequest contains the administrative changes to a rental.
// Nil fields are left unchanged; dates must be given together.
type UpdateBookingRequest struct {
	StartDate *string
	EndDate   *string
	Status    *string
}

// UpdateBooking applies administrative changes to a rental. New dates are
// repriced at the car's current rate. Whenever the result is an active
// rental with new dates, or a rental being reactivated, the overlap check
// runs against the car's other active rentals.
func (s *BookingService) UpdateBooking(ctx context.Context, rentalID string, req UpdateBookingRequest) (*BookingResult, error) {
	if strings.TrimSpace(rentalID) == "" {
		return nil, ErrInvalidID
	}

	datesGiven := req.StartDate != nil && req.EndDate != nil
	if (req.StartDate != nil) != (req.EndDate != nil) {
		return nil, ErrMissingDates
	}

	var status domain.RentalStatus
	if req.Status != nil {
		status = domain.RentalStatus(strings.TrimSpace(*req.Status))
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
		}
	}

	var rng DateRange
	if datesGiven {
		var err error
		if rng, err = NewDateRange(*req.StartDate, *req.EndDate); err != nil {
			return nil, err
		}
	}

	rental, err := s.resolver.Rental(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	car, unlock, err := s.lockRental(ctx, rental)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if rental, err = s.reload(ctx, rental.Key); err != nil {
		return nil, err
	}

	resulting := rental.Status
	if status != "" {
		resulting = status
	}
	reactivating := resulting == domain.RentalStatusActive && !rental.IsActive()
	needsCheck := resulting == domain.RentalStatusActive && (datesGiven || reactivating)

	if car == nil && (datesGiven || needsCheck) {
		return nil, fmt.Errorf("associated car: %w", ErrCarNotFound)
	}

	var price Price
	if datesGiven {
		if price, err = Quote(rng, car.PricePerDay); err != nil {
			return nil, err
		}
	}

	if needsCheck {
		check := rng
		if !datesGiven {
			check = DateRange{Start: rental.StartDate, End: rental.EndDate}
		}
		conflict, err := s.checker.findConflict(ctx, car, check, rental.Key)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			return nil, ErrBookingConflict
		}
	}

	if datesGiven {
		rental.StartDate = rng.Start
		rental.EndDate = rng.End
		rental.TotalDays = price.Days
		rental.PricePerDay = price.PricePerDay
		rental.TotalPrice = price.Total
	}
	if status != "" {
		rental.Status = status
	}

	if err := s.rentalRepo.Update(ctx, rental); err != nil {
		return nil, fmt.Errorf("update rental: %w", err)
	}

	s.log.Info("rental updated",
		zap.String("rental_id", rental.ID()),
		zap.String("status", string(rental.Status)),
		zap.String("start_date", rental.StartDate),
		zap.String("end_date", rental.EndDate),
	)
	return &BookingResult{Rental: rental, Car: car}, nil
}

// CompleteFinished marks every active rental that ended before today as
// completed and returns how many were changed. Failures on single rentals
// are logged and skipped.
func (s *BookingService) CompleteFinished(ctx context.Context) (int, error) {
	today := s.now().UTC().Format(DateLayout)

	rentals, err := s.rentalRepo.Find(ctx, repository.RentalFilter{
		Status:    domain.RentalStatusActive,
		EndBefore: today,
	})
	if err != nil {
		return 0, fmt.Errorf("find finished rentals: %w", err)
	}

	completed := 0
	for _, rental := range rentals {
		done, err := s.complete(ctx, rental, today)
		if err != nil {
			s.log.Error("failed to complete rental", zap.String("rental_id", rental.ID()), zap.Error(err))
			continue
		}
		if done {
			completed++
		}
	}
	return completed, nil
}

// complete re-reads rental under its lock and completes it if it is still
// active and ended before today.
func (s *BookingService) complete(ctx context.Context, rental *domain.Rental, today string) (bool, error) {
	_, unlock, err := s.lockRental(ctx, rental)
	if err != nil {
		return false, err
	}
	defer unlock()

	if rental, err = s.reload(ctx, rental.Key); err != nil {
		return false, err
	}
	if !rental.IsActive() || rental.EndDate >= today {
		return false, nil
	}

	rental.Status = domain.RentalStatusCompleted
	if err := s.rentalRepo.Update(ctx, rental); err != nil {
		return false, fmt.Errorf("update rental: %w", err)
	}
	return true, nil
}

// lockCar takes the booking lock of car. All identifier schemes of a car
// share its surrogate key, so the lock is keyed by that.
func (s *BookingService) lockCar(ctx context.Context, car *domain.Car) (func(), error) {
	return s.lock(ctx, "car:"+car.Key)
}

// lockRental takes the lock guarding writes to rental and returns its car.
// Rentals share their car's booking lock; a rental whose car no longer
// resolves is locked on its own key and the returned car is nil.
func (s *BookingService) lockRental(ctx context.Context, rental *domain.Rental) (*domain.Car, func(), error) {
	car, err := s.resolver.CarByRef(ctx, rental.CarRef)
	switch {
	case err == nil:
		unlock, err := s.lockCar(ctx, car)
		if err != nil {
			return nil, nil, err
		}
		return car, unlock, nil
	case errors.Is(err, ErrCarNotFound):
		unlock, err := s.lock(ctx, "rental:"+rental.Key)
		if err != nil {
			return nil, nil, err
		}
		return nil, unlock, nil
	default:
		return nil, nil, fmt.Errorf("associated car: %w", err)
	}
}

func (s *BookingService) lock(ctx context.Context, key string) (func(), error) {
	lockCtx := ctx
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	unlock, err := s.locker.Lock(lockCtx, key)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Warn("booking lock unavailable", zap.String("lock_key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}
	return unlock, nil
}

// reload fetches the current stored copy of a rental.
func (s *BookingService) reload(ctx context.Context, key string) (*domain.Rental, error) {
	rental, err := s.rentalRepo.GetByKey(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRentalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reload rental: %w", err)
	}
	return rental, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// snapshotPayment keeps the payment method for display. The card number is
// reduced to its last four digits and the CVC is not stored.
func snapshotPayment(in *PaymentInput) *domain.PaymentInfo {
	if in == nil {
		return nil
	}

	return &domain.PaymentInfo{
		Method:         strings.TrimSpace(in.Method),
		CardNumber:     maskCardNumber(in.CardNumber),
		CardName:       strings.TrimSpace(in.CardName),
		ExpirationDate: strings.TrimSpace(in.ExpirationDate),
	}
}

func maskCardNumber(number string) string {
	digits := make([]rune, 0, len(number))
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) == 0 {
		return ""
	}
	if len(digits) <= 4 {
		return string(digits)
	}
	return strings.Repeat("*", len(digits)-4) + string(digits[len(digits)-4:])
}
