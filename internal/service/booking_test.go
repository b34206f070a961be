package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/domain"
	"carrental/internal/repository"
	"carrental/internal/service"
)

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	car, user, _ := f.seed()
	now := time.Date(2024, 2, 20, 9, 30, 0, 0, time.FixedZone("EST", -5*3600))
	f.booking.SetClock(func() time.Time { return now })

	res, err := f.booking.CreateBooking(context.Background(), user, service.CreateBookingRequest{
		CarID:           "7",
		StartDate:       "2024-03-01",
		EndDate:         "2024-03-04",
		PickupLocation:  "Airport",
		SpecialRequests: "  child seat  ",
		Payment: &service.PaymentInput{
			Method:     "credit_card",
			CardNumber: "4242 4242 4242 4242",
			CardName:   "Alice",
			CVC:        "123",
		},
	})
	require.NoError(t, err)

	rental := res.Rental
	assert.Equal(t, car.Key, res.Car.Key)
	assert.NotEmpty(t, rental.Key)
	assert.Equal(t, domain.RefString, rental.LegacyID.Kind)
	assert.NotEmpty(t, rental.LegacyID.Str)
	assert.Equal(t, domain.NumberRef(7), rental.CarRef)
	assert.Equal(t, domain.NumberRef(5), rental.UserRef)
	assert.Equal(t, "alice@example.com", rental.UserEmail)
	assert.Equal(t, "alice", rental.Username)
	assert.Equal(t, 3, rental.TotalDays)
	assert.Equal(t, 150.0, rental.TotalPrice)
	assert.Equal(t, "Airport", rental.PickupLocation)
	assert.Equal(t, domain.DefaultLocation, rental.DropoffLocation)
	assert.Equal(t, "child seat", rental.SpecialRequests)
	assert.Equal(t, domain.RentalStatusActive, rental.Status)
	assert.Equal(t, now.UTC(), rental.CreatedAt)

	require.NotNil(t, rental.PaymentInfo)
	assert.Equal(t, "************4242", rental.PaymentInfo.CardNumber)
	assert.Equal(t, "credit_card", rental.PaymentInfo.Method)

	stored := f.rentals.Stored(rental.Key)
	require.NotNil(t, stored)
	assert.Equal(t, rental.LegacyID, stored.LegacyID)
}

func TestCreateBooking_KeyOnlyPrincipalAndCar(t *testing.T) {
	f := newFixture(t)
	f.cars.AddCar(&domain.Car{Key: "car_8", PricePerDay: 30})
	principal := &domain.User{Key: "user_8", Email: "new@example.com"}
	f.users.AddUser(principal)

	res, err := f.booking.CreateBooking(context.Background(), principal, service.CreateBookingRequest{
		CarID:     "car_8",
		StartDate: "2024-05-01",
		EndDate:   "2024-05-02",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KeyRef("car_8"), res.Rental.CarRef)
	assert.Equal(t, domain.KeyRef("user_8"), res.Rental.UserRef)
	assert.Nil(t, res.Rental.PaymentInfo)
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(t)
	_, user, _ := f.seed()

	testCases := []struct {
		name      string
		principal *domain.User
		req       service.CreateBookingRequest
		wantErr   error
	}{
		{"no principal", nil, service.CreateBookingRequest{CarID: "7", StartDate: "2024-03-01", EndDate: "2024-03-02"}, service.ErrUnauthorized},
		{"missing dates", user, service.CreateBookingRequest{CarID: "7"}, service.ErrMissingDates},
		{"bad date", user, service.CreateBookingRequest{CarID: "7", StartDate: "2024-13-01", EndDate: "2024-03-02"}, service.ErrInvalidDate},
		{"same day", user, service.CreateBookingRequest{CarID: "7", StartDate: "2024-03-01", EndDate: "2024-03-01"}, service.ErrInvalidDateRange},
		{"unknown car", user, service.CreateBookingRequest{CarID: "404", StartDate: "2024-03-01", EndDate: "2024-03-02"}, service.ErrCarNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.booking.CreateBooking(context.Background(), tc.principal, tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
	assert.Zero(t, f.rentals.CreateCallCount)
}

func TestCreateBooking_Conflict(t *testing.T) {
	f := newFixture(t)
	car, user, _ := f.seed()
	f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-03-01", "2024-03-05"))

	_, err := f.booking.CreateBooking(context.Background(), user, service.CreateBookingRequest{
		CarID:     "car_1",
		StartDate: "2024-03-05",
		EndDate:   "2024-03-08",
	})
	assert.ErrorIs(t, err, service.ErrBookingConflict)
	assert.Zero(t, f.rentals.CreateCallCount)
}

func TestCreateBooking_ConcurrentOverlapsOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	_, user, _ := f.seed()
	f.rentals.CreateDelay = 5 * time.Millisecond

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.booking.CreateBooking(context.Background(), user, service.CreateBookingRequest{
				CarID:     "7",
				StartDate: "2024-06-01",
				EndDate:   "2024-06-05",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, service.ErrBookingConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
}

func TestCreateBooking_LockUnavailable(t *testing.T) {
	f := newFixtureWithLocker(t, FailingLocker{Err: errors.New("lock held")})
	_, user, _ := f.seed()

	_, err := f.booking.CreateBooking(context.Background(), user, service.CreateBookingRequest{
		CarID:     "7",
		StartDate: "2024-03-01",
		EndDate:   "2024-03-02",
	})
	assert.ErrorIs(t, err, service.ErrLockUnavailable)
	assert.Zero(t, f.rentals.CreateCallCount)
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)
	car, user, admin := f.seed()
	other := &domain.User{Key: "user_3", Email: "bob@example.com", Role: domain.RoleUser}
	f.users.AddUser(other)

	t.Run("owner by reference alias", func(t *testing.T) {
		rental := f.rentals.AddRental(activeRental(car.Ref(), domain.StringRef("5"), "", "2024-03-01", "2024-03-02"))
		got, err := f.booking.CancelBooking(context.Background(), user, rental.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusCancelled, got.Status)
		assert.Equal(t, domain.RentalStatusCancelled, f.rentals.Stored(rental.Key).Status)
	})

	t.Run("owner by email", func(t *testing.T) {
		rental := f.rentals.AddRental(activeRental(car.Ref(), domain.Ref{}, "Alice@Example.com", "2024-04-01", "2024-04-02"))
		_, err := f.booking.CancelBooking(context.Background(), user, rental.Key)
		require.NoError(t, err)
	})

	t.Run("someone else", func(t *testing.T) {
		rental := f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-05-01", "2024-05-02"))
		_, err := f.booking.CancelBooking(context.Background(), other, rental.Key)
		assert.ErrorIs(t, err, service.ErrForbidden)
		assert.Equal(t, domain.RentalStatusActive, f.rentals.Stored(rental.Key).Status)
	})

	t.Run("admin", func(t *testing.T) {
		rental := f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-06-01", "2024-06-02"))
		_, err := f.booking.CancelBooking(context.Background(), admin, rental.Key)
		require.NoError(t, err)
	})

	t.Run("already cancelled is a no-op", func(t *testing.T) {
		rental := activeRental(car.Ref(), user.Ref(), user.Email, "2024-07-01", "2024-07-02")
		rental.Status = domain.RentalStatusCancelled
		f.rentals.AddRental(rental)
		before := f.rentals.UpdateCallCount

		got, err := f.booking.CancelBooking(context.Background(), user, rental.Key)
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusCancelled, got.Status)
		assert.Equal(t, before, f.rentals.UpdateCallCount)
	})

	t.Run("completed", func(t *testing.T) {
		rental := activeRental(car.Ref(), user.Ref(), user.Email, "2024-01-01", "2024-01-02")
		rental.Status = domain.RentalStatusCompleted
		f.rentals.AddRental(rental)

		_, err := f.booking.CancelBooking(context.Background(), user, rental.Key)
		assert.ErrorIs(t, err, service.ErrRentalCompleted)
	})

	t.Run("unknown rental", func(t *testing.T) {
		_, err := f.booking.CancelBooking(context.Background(), user, "rental_999")
		assert.ErrorIs(t, err, service.ErrRentalNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := f.booking.CancelBooking(context.Background(), user, " ")
		assert.ErrorIs(t, err, service.ErrInvalidID)
	})

	t.Run("no principal", func(t *testing.T) {
		_, err := f.booking.CancelBooking(context.Background(), nil, "rental_1")
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})
}

func TestCancelBooking_FreesDates(t *testing.T) {
	f := newFixture(t)
	_, user, _ := f.seed()
	req := service.CreateBookingRequest{CarID: "7", StartDate: "2024-08-01", EndDate: "2024-08-03"}

	res, err := f.booking.CreateBooking(context.Background(), user, req)
	require.NoError(t, err)

	avail, err := f.checker.IsAvailable(context.Background(), "7", "2024-08-02", "2024-08-02")
	require.NoError(t, err)
	assert.False(t, avail.Available)

	_, err = f.booking.CancelBooking(context.Background(), user, res.Rental.ID())
	require.NoError(t, err)

	avail, err = f.checker.IsAvailable(context.Background(), "7", "2024-08-02", "2024-08-02")
	require.NoError(t, err)
	assert.True(t, avail.Available)

	_, err = f.booking.CreateBooking(context.Background(), user, req)
	assert.NoError(t, err)
}

func TestUpdateBooking(t *testing.T) {
	f := newFixture(t)
	car, user, _ := f.seed()

	t.Run("reprices new dates and ignores itself", func(t *testing.T) {
		rental := f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-03-01", "2024-03-03"))

		res, err := f.booking.UpdateBooking(context.Background(), rental.Key, service.UpdateBookingRequest{
			StartDate: strPtr("2024-03-02"),
			EndDate:   strPtr("2024-03-06"),
		})
		require.NoError(t, err)
		assert.Equal(t, 4, res.Rental.TotalDays)
		assert.Equal(t, 200.0, res.Rental.TotalPrice)
		assert.Equal(t, car.Key, res.Car.Key)
		assert.Equal(t, "2024-03-06", f.rentals.Stored(rental.Key).EndDate)
	})

	t.Run("conflicts with another rental", func(t *testing.T) {
		f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-09-10", "2024-09-12"))
		rental := f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-09-01", "2024-09-03"))

		_, err := f.booking.UpdateBooking(context.Background(), rental.Key, service.UpdateBookingRequest{
			StartDate: strPtr("2024-09-02"),
			EndDate:   strPtr("2024-09-10"),
		})
		assert.ErrorIs(t, err, service.ErrBookingConflict)
		assert.Equal(t, "2024-09-03", f.rentals.Stored(rental.Key).EndDate)
	})

	t.Run("reactivation is checked", func(t *testing.T) {
		f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-10-01", "2024-10-05"))
		cancelled := activeRental(car.Ref(), user.Ref(), user.Email, "2024-10-04", "2024-10-06")
		cancelled.Status = domain.RentalStatusCancelled
		f.rentals.AddRental(cancelled)

		_, err := f.booking.UpdateBooking(context.Background(), cancelled.Key, service.UpdateBookingRequest{
			Status: strPtr("active"),
		})
		assert.ErrorIs(t, err, service.ErrBookingConflict)
	})

	t.Run("status only", func(t *testing.T) {
		rental := f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-11-01", "2024-11-02"))

		res, err := f.booking.UpdateBooking(context.Background(), rental.Key, service.UpdateBookingRequest{
			Status: strPtr("completed"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusCompleted, res.Rental.Status)
		assert.Equal(t, car.Key, res.Car.Key)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := f.booking.UpdateBooking(context.Background(), "rental_1", service.UpdateBookingRequest{
			Status: strPtr("paused"),
		})
		assert.ErrorIs(t, err, service.ErrInvalidStatus)
	})

	t.Run("one date only", func(t *testing.T) {
		_, err := f.booking.UpdateBooking(context.Background(), "rental_1", service.UpdateBookingRequest{
			StartDate: strPtr("2024-03-02"),
		})
		assert.ErrorIs(t, err, service.ErrMissingDates)
	})

	t.Run("car gone", func(t *testing.T) {
		rental := f.rentals.AddRental(activeRental(domain.NumberRef(404), user.Ref(), user.Email, "2024-12-01", "2024-12-02"))

		_, err := f.booking.UpdateBooking(context.Background(), rental.Key, service.UpdateBookingRequest{
			StartDate: strPtr("2024-12-01"),
			EndDate:   strPtr("2024-12-03"),
		})
		assert.ErrorIs(t, err, service.ErrCarNotFound)
	})
}

func TestCompleteFinished(t *testing.T) {
	f := newFixture(t)
	car, user, _ := f.seed()
	f.booking.SetClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) })

	ended := f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-03-01", "2024-03-09"))
	endsToday := f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-03-08", "2024-03-10"))
	cancelled := activeRental(car.Ref(), user.Ref(), user.Email, "2024-02-01", "2024-02-02")
	cancelled.Status = domain.RentalStatusCancelled
	f.rentals.AddRental(cancelled)

	n, err := f.booking.CompleteFinished(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.RentalStatusCompleted, f.rentals.Stored(ended.Key).Status)
	assert.Equal(t, domain.RentalStatusActive, f.rentals.Stored(endsToday.Key).Status)
	assert.Equal(t, domain.RentalStatusCancelled, f.rentals.Stored(cancelled.Key).Status)
}

func TestCompleteFinished_FindError(t *testing.T) {
	f := newFixture(t)
	f.rentals.FindError = errors.New("db down")

	_, err := f.booking.CompleteFinished(context.Background())
	assert.Error(t, err)
}

func TestUpdateBooking_CancelWhileUpdatingIsKept(t *testing.T) {
	f := newFixture(t)
	car, user, _ := f.seed()
	rental := f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-03-01", "2024-03-03"))

	hook, done := once(100*time.Millisecond, func() error {
		_, err := f.booking.CancelBooking(context.Background(), user, rental.Key)
		return err
	})
	f.rentals.AfterFind = hook

	_, err := f.booking.UpdateBooking(context.Background(), rental.Key, service.UpdateBookingRequest{
		StartDate: strPtr("2024-03-02"),
		EndDate:   strPtr("2024-03-05"),
	})
	require.NoError(t, err)
	require.NoError(t, <-done)

	stored := f.rentals.Stored(rental.Key)
	assert.Equal(t, domain.RentalStatusCancelled, stored.Status)
	assert.Equal(t, "2024-03-05", stored.EndDate)
}

func TestUpdateBooking_StatusOnlyCannotRestoreCancelledRental(t *testing.T) {
	f := newFixture(t)
	car, user, admin := f.seed()
	bob := &domain.User{Key: "user_3", Email: "bob@example.com", Role: domain.RoleUser}
	f.users.AddUser(bob)
	rental := f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-03-01", "2024-03-05"))

	hook, done := once(100*time.Millisecond, func() error {
		if _, err := f.booking.CancelBooking(context.Background(), admin, rental.Key); err != nil {
			return err
		}
		_, err := f.booking.CreateBooking(context.Background(), bob, service.CreateBookingRequest{
			CarID:     "7",
			StartDate: "2024-03-02",
			EndDate:   "2024-03-04",
		})
		return err
	})
	f.rentals.BeforeUpdate = hook

	_, err := f.booking.UpdateBooking(context.Background(), rental.Key, service.UpdateBookingRequest{
		Status: strPtr("active"),
	})
	require.NoError(t, err)
	require.NoError(t, <-done)

	active, err := f.rentals.Find(context.Background(), repository.RentalFilter{
		CarRefs: car.Refs(),
		Status:  domain.RentalStatusActive,
	})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "2024-03-02", active[0].StartDate)
	assert.Equal(t, domain.RentalStatusCancelled, f.rentals.Stored(rental.Key).Status)
}

func TestUpdateBooking_ReactivationUsesCurrentStatus(t *testing.T) {
	f := newFixture(t)
	car, user, admin := f.seed()
	f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-04-03", "2024-04-06"))
	rental := f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-04-01", "2024-04-02"))

	cancelled := *rental
	cancelled.Status = domain.RentalStatusCancelled
	require.NoError(t, f.rentals.Update(context.Background(), &cancelled))

	_, err := f.booking.UpdateBooking(context.Background(), rental.Key, service.UpdateBookingRequest{
		StartDate: strPtr("2024-04-01"),
		EndDate:   strPtr("2024-04-04"),
		Status:    strPtr("active"),
	})
	assert.ErrorIs(t, err, service.ErrBookingConflict)
	assert.Equal(t, domain.RentalStatusCancelled, f.rentals.Stored(rental.Key).Status)

	_, err = f.booking.CancelBooking(context.Background(), admin, rental.Key)
	assert.NoError(t, err)
}

func TestCancelBooking_CarGone(t *testing.T) {
	f := newFixture(t)
	_, user, _ := f.seed()
	rental := f.rentals.AddRental(activeRental(domain.NumberRef(404), user.Ref(), user.Email, "2024-03-01", "2024-03-02"))

	got, err := f.booking.CancelBooking(context.Background(), user, rental.Key)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusCancelled, got.Status)
}

func TestCancelBooking_LockUnavailable(t *testing.T) {
	f := newFixtureWithLocker(t, FailingLocker{Err: errors.New("lock held")})
	car, user, _ := f.seed()
	rental := f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-03-01", "2024-03-02"))

	_, err := f.booking.CancelBooking(context.Background(), user, rental.Key)
	assert.ErrorIs(t, err, service.ErrLockUnavailable)
	assert.Equal(t, domain.RentalStatusActive, f.rentals.Stored(rental.Key).Status)
}

func TestCompleteFinished_SkipsRentalExtendedMeanwhile(t *testing.T) {
	f := newFixture(t)
	car, user, _ := f.seed()
	f.booking.SetClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) })
	rental := f.rentals.AddRental(activeRental(car.Ref(), user.Ref(), user.Email, "2024-03-01", "2024-03-09"))

	hook, done := once(time.Second, func() error {
		_, err := f.booking.UpdateBooking(context.Background(), rental.Key, service.UpdateBookingRequest{
			StartDate: strPtr("2024-03-01"),
			EndDate:   strPtr("2024-03-20"),
		})
		return err
	})
	f.rentals.AfterFind = hook

	n, err := f.booking.CompleteFinished(context.Background())
	require.NoError(t, err)
	require.NoError(t, <-done)

	assert.Zero(t, n)
	stored := f.rentals.Stored(rental.Key)
	assert.Equal(t, domain.RentalStatusActive, stored.Status)
	assert.Equal(t, "2024-03-20", stored.EndDate)
}
