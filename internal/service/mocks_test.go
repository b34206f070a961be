package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carrental/internal/domain"
	"carrental/internal/lock"
	"carrental/internal/repository"
	"carrental/internal/service"
)

// ──────────────────────────────────────────────
// MOCK CAR REPOSITORY
// ──────────────────────────────────────────────

// MockCarRepository is an in-memory CarRepository. Keys look like "car_<n>".
type MockCarRepository struct {
	mu   sync.RWMutex
	cars map[string]*domain.Car

	// Error injection
	GetError error
}

func NewMockCarRepository() *MockCarRepository {
	return &MockCarRepository{cars: make(map[string]*domain.Car)}
}

// AddCar adds a car to the mock repository.
func (m *MockCarRepository) AddCar(car *domain.Car) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cars[car.Key] = car
}

func (m *MockCarRepository) ParseKey(raw string) (string, bool) {
	return raw, strings.HasPrefix(raw, "car_")
}

func (m *MockCarRepository) GetByKey(ctx context.Context, key string) (*domain.Car, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	car, ok := m.cars[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *car
	return &copy, nil
}

func (m *MockCarRepository) GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.Car, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, car := range m.cars {
		if car.LegacyID == id {
			copy := *car
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is an in-memory UserRepository. Keys look like "user_<n>".
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	// Error injection
	GetError error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

// AddUser adds a user to the mock repository.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Key] = user
}

func (m *MockUserRepository) ParseKey(raw string) (string, bool) {
	return raw, strings.HasPrefix(raw, "user_")
}

func (m *MockUserRepository) GetByKey(ctx context.Context, key string) (*domain.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (m *MockUserRepository) GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.LegacyID == id {
			copy := *user
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			copy := *user
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ──────────────────────────────────────────────
// MOCK RENTAL REPOSITORY
// ──────────────────────────────────────────────

// MockRentalRepository is an in-memory RentalRepository that keeps
// insertion order. Keys look like "rental_<n>".
type MockRentalRepository struct {
	mu      sync.RWMutex
	rentals map[string]*domain.Rental
	order   []string
	nextKey int

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	FindError   error

	// CreateDelay widens the window between the overlap check and the insert.
	CreateDelay time.Duration

	// Hooks run outside the repository mutex so they may call back into it.
	AfterFind    func()
	BeforeUpdate func()
}

func NewMockRentalRepository() *MockRentalRepository {
	return &MockRentalRepository{rentals: make(map[string]*domain.Rental)}
}

// AddRental stores a rental as-is, assigning a key when it has none.
func (m *MockRentalRepository) AddRental(rental *domain.Rental) *domain.Rental {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rental.Key == "" {
		m.nextKey++
		rental.Key = fmt.Sprintf("rental_%d", m.nextKey)
	}
	m.rentals[rental.Key] = rental
	m.order = append(m.order, rental.Key)
	return rental
}

// Stored returns a copy of the stored rental with key.
func (m *MockRentalRepository) Stored(key string) *domain.Rental {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rental, ok := m.rentals[key]
	if !ok {
		return nil
	}
	copy := *rental
	return &copy
}

func (m *MockRentalRepository) ParseKey(raw string) (string, bool) {
	return raw, strings.HasPrefix(raw, "rental_")
}

func (m *MockRentalRepository) GetByKey(ctx context.Context, key string) (*domain.Rental, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rental, ok := m.rentals[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *rental
	return &copy, nil
}

func (m *MockRentalRepository) GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.Rental, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, key := range m.order {
		if rental := m.rentals[key]; rental.LegacyID == id {
			copy := *rental
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockRentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	if m.CreateDelay > 0 {
		time.Sleep(m.CreateDelay)
	}
	copy := *rental
	m.AddRental(&copy)
	rental.Key = copy.Key
	return nil
}

func (m *MockRentalRepository) Update(ctx context.Context, rental *domain.Rental) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if m.BeforeUpdate != nil {
		m.BeforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rentals[rental.Key]; !ok {
		return repository.ErrNotFound
	}
	copy := *rental
	m.rentals[rental.Key] = &copy
	return nil
}

func (m *MockRentalRepository) Find(ctx context.Context, filter repository.RentalFilter) ([]*domain.Rental, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	out := m.find(filter)
	if m.AfterFind != nil {
		m.AfterFind()
	}
	return out, nil
}

func (m *MockRentalRepository) find(filter repository.RentalFilter) []*domain.Rental {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Rental
	for _, key := range m.order {
		if rental := m.rentals[key]; filter.Matches(rental) {
			copy := *rental
			out = append(out, &copy)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// MOCK LOCKER
// ──────────────────────────────────────────────

// once returns a hook that runs fn in a goroutine on its first call only and
// waits up to wait for it. The returned channel carries fn's result.
func once(wait time.Duration, fn func() error) (func(), <-chan error) {
	var fired atomic.Bool
	done := make(chan error, 1)
	return func() {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		finished := make(chan struct{})
		go func() {
			done <- fn()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(wait):
		}
	}, done
}

// FailingLocker never grants the lock.
type FailingLocker struct {
	Err error
}

func (l FailingLocker) Lock(ctx context.Context, key string) (func(), error) {
	return nil, l.Err
}

// ──────────────────────────────────────────────
// FIXTURE
// ──────────────────────────────────────────────

type fixture struct {
	cars     *MockCarRepository
	users    *MockUserRepository
	rentals  *MockRentalRepository
	resolver *service.Resolver
	checker  *service.AvailabilityChecker
	booking  *service.BookingService
	reader   *service.RentalReader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLocker(t, lock.NewKeyedMutex())
}

func newFixtureWithLocker(t *testing.T, locker service.Locker) *fixture {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		cars:    NewMockCarRepository(),
		users:   NewMockUserRepository(),
		rentals: NewMockRentalRepository(),
	}
	log := zap.NewNop()
	f.resolver = service.NewResolver(f.cars, f.users, f.rentals)
	f.checker = service.NewAvailabilityChecker(f.resolver, f.rentals)
	f.booking = service.NewBookingService(f.resolver, f.checker, f.rentals, locker, node, time.Second, nil, log)
	f.reader = service.NewRentalReader(f.resolver, f.rentals, nil, log)
	return f
}

// seed adds a car with legacy id 7 at 50/day, a regular user with legacy id
// 5 and an admin.
func (f *fixture) seed() (car *domain.Car, user, admin *domain.User) {
	car = &domain.Car{
		Key:         "car_1",
		LegacyID:    domain.NumberRef(7),
		Make:        "Toyota",
		Model:       "Corolla",
		PricePerDay: 50,
		Currency:    "USD",
		Available:   true,
	}
	user = &domain.User{
		Key:          "user_1",
		LegacyID:     domain.NumberRef(5),
		Username:     "alice",
		Email:        "alice@example.com",
		Role:         domain.RoleUser,
		PasswordHash: "hash",
	}
	admin = &domain.User{
		Key:      "user_2",
		Username: "root",
		Email:    "admin@example.com",
		Role:     domain.RoleAdmin,
	}
	f.cars.AddCar(car)
	f.users.AddUser(user)
	f.users.AddUser(admin)
	return car, user, admin
}

func activeRental(carRef, userRef domain.Ref, email, start, end string) *domain.Rental {
	return &domain.Rental{
		LegacyID:    domain.StringRef(fmt.Sprintf("%s-%s", start, end)),
		CarRef:      carRef,
		UserRef:     userRef,
		UserEmail:   email,
		StartDate:   start,
		EndDate:     end,
		PricePerDay: 50,
		Status:      domain.RentalStatusActive,
	}
}

func strPtr(s string) *string {
	return &s
}
