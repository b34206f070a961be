package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/domain"
	"carrental/internal/service"
)

func TestResolver_Car(t *testing.T) {
	f := newFixture(t)
	f.seed()
	f.cars.AddCar(&domain.Car{Key: "car_2", LegacyID: domain.StringRef("tesla-3")})
	f.cars.AddCar(&domain.Car{Key: "car_3"})

	testCases := []struct {
		name    string
		raw     string
		wantKey string
		wantErr error
	}{
		{"legacy number from string", "7", "car_1", nil},
		{"surrogate key", "car_1", "car_1", nil},
		{"legacy string", "tesla-3", "car_2", nil},
		{"key only car", "car_3", "car_3", nil},
		{"surrounding whitespace", " 7 ", "car_1", nil},
		{"unknown number", "8", "", service.ErrCarNotFound},
		{"empty", "", "", service.ErrCarNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			car, err := f.resolver.Car(context.Background(), tc.raw)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantKey, car.Key)
		})
	}
}

func TestResolver_KeyOnlyCarIsNotFoundByNumber(t *testing.T) {
	f := newFixture(t)
	f.cars.AddCar(&domain.Car{Key: "car_9"})

	_, err := f.resolver.Car(context.Background(), "9")
	assert.ErrorIs(t, err, service.ErrCarNotFound)
}

func TestResolver_CarByRefFallsBackToLegacyString(t *testing.T) {
	f := newFixture(t)
	f.cars.AddCar(&domain.Car{Key: "car_4", LegacyID: domain.StringRef("12")})

	car, err := f.resolver.CarByRef(context.Background(), domain.NumberRef(12))
	require.NoError(t, err)
	assert.Equal(t, "car_4", car.Key)
}

func TestResolver_RentalPrefersLegacyString(t *testing.T) {
	f := newFixture(t)
	byNumber := f.rentals.AddRental(&domain.Rental{LegacyID: domain.NumberRef(42)})
	byString := f.rentals.AddRental(&domain.Rental{LegacyID: domain.StringRef("42")})

	rental, err := f.resolver.Rental(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, byString.Key, rental.Key)
	assert.NotEqual(t, byNumber.Key, rental.Key)
}

func TestResolver_StoreErrorAborts(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection reset")
	f.cars.GetError = boom

	_, err := f.resolver.Car(context.Background(), "7")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, service.ErrCarNotFound)
}

func TestResolver_RentalOwner(t *testing.T) {
	f := newFixture(t)
	_, user, _ := f.seed()

	t.Run("by reference", func(t *testing.T) {
		owner, err := f.resolver.RentalOwner(context.Background(), &domain.Rental{UserRef: domain.StringRef("5")})
		require.NoError(t, err)
		assert.Equal(t, user.Key, owner.Key)
	})

	t.Run("falls back to email", func(t *testing.T) {
		owner, err := f.resolver.RentalOwner(context.Background(), &domain.Rental{
			UserRef:   domain.NumberRef(999),
			UserEmail: "ALICE@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, user.Key, owner.Key)
	})

	t.Run("dangling", func(t *testing.T) {
		_, err := f.resolver.RentalOwner(context.Background(), &domain.Rental{
			UserRef:   domain.NumberRef(999),
			UserEmail: "ghost@example.com",
		})
		assert.ErrorIs(t, err, service.ErrUserNotFound)
	})

	t.Run("no reference or email", func(t *testing.T) {
		_, err := f.resolver.RentalOwner(context.Background(), &domain.Rental{})
		assert.ErrorIs(t, err, service.ErrUserNotFound)
	})
}
