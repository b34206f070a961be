package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/domain"
	"carrental/internal/repository"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestJSONRef(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Ref
	}{
		{`7`, domain.NumberRef(7)},
		{`"7"`, domain.StringRef("7")},
		{`"car-abc"`, domain.StringRef("car-abc")},
		{`{"$key":"k1"}`, domain.KeyRef("k1")},
		{`null`, domain.Ref{}},
		{`""`, domain.Ref{}},
		{`7.5`, domain.StringRef("7.5")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var r jsonRef
			require.NoError(t, json.Unmarshal([]byte(tt.in), &r))
			assert.Equal(t, tt.want, domain.Ref(r))
		})
	}

	out, err := json.Marshal(jsonRef(domain.NumberRef(7)))
	require.NoError(t, err)
	assert.JSONEq(t, `7`, string(out))

	out, err = json.Marshal(jsonRef(domain.KeyRef("k1")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"$key":"k1"}`, string(out))
}

func TestCarRepository_Lookups(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, CarsFile, `[
		{"id": 7, "make": "Toyota", "model": "Corolla", "year": 2020, "price_per_day": 50},
		{"id": "c-2", "make": "Honda", "model": "Civic", "year": 2021, "price_per_day": 60, "available": false},
		{"id": 9, "make": "Kia", "model": "Rio", "year": 2019, "pricePerDay": 35}
	]`)

	repo := NewCarRepository(dir)
	ctx := context.Background()

	car, err := repo.GetByLegacyID(ctx, domain.NumberRef(7))
	require.NoError(t, err)
	assert.Equal(t, "Toyota", car.Make)
	assert.Equal(t, 50.0, car.PricePerDay)

	rio, err := repo.GetByLegacyID(ctx, domain.NumberRef(9))
	require.NoError(t, err)
	assert.Equal(t, 35.0, rio.PricePerDay)
	assert.True(t, car.Available)
	assert.Equal(t, "USD", car.Currency)

	_, err = repo.GetByLegacyID(ctx, domain.StringRef("7"))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	key, ok := repo.ParseKey(car.Key)
	require.True(t, ok)

	again, err := repo.GetByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, car.Key, again.Key)

	civic, err := repo.GetByLegacyID(ctx, domain.StringRef("c-2"))
	require.NoError(t, err)
	assert.False(t, civic.Available)
	assert.NotEqual(t, car.Key, civic.Key)

	_, ok = repo.ParseKey("7")
	assert.False(t, ok)
}

func TestCarRepository_MissingFile(t *testing.T) {
	repo := NewCarRepository(t.TempDir())

	_, err := repo.GetByLegacyID(context.Background(), domain.NumberRef(1))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_GetByEmail(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, UsersFile, `[
		{"id": 1, "username": "ana", "email": "ana@example.com", "role": "admin"},
		{"id": 2, "username": "bo", "email": "bo@example.com"}
	]`)

	repo := NewUserRepository(dir)

	user, err := repo.GetByEmail(context.Background(), "ANA@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())

	user, err = repo.GetByEmail(context.Background(), "bo@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)

	_, err = repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRentalRepository_CreateUpdateFind(t *testing.T) {
	dir := t.TempDir()
	repo := NewRentalRepository(dir)
	ctx := context.Background()

	rental := &domain.Rental{
		LegacyID:    domain.StringRef("1800000000000000001"),
		CarRef:      domain.NumberRef(7),
		UserRef:     domain.KeyRef("user-key"),
		UserEmail:   "ana@example.com",
		StartDate:   "2024-03-01",
		EndDate:     "2024-03-04",
		TotalDays:   3,
		PricePerDay: 50,
		TotalPrice:  150,
		PaymentInfo: &domain.PaymentInfo{Method: "card", CardNumber: "************4242"},
		Status:      domain.RentalStatusActive,
		CreatedAt:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, rental))
	require.NotEmpty(t, rental.Key)

	got, err := repo.GetByLegacyID(ctx, domain.StringRef("1800000000000000001"))
	require.NoError(t, err)
	assert.Equal(t, rental, got)

	found, err := repo.Find(ctx, repository.RentalFilter{
		CarRefs: []domain.Ref{domain.NumberRef(7)},
		Status:  domain.RentalStatusActive,
	})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = repo.Find(ctx, repository.RentalFilter{UserEmail: "ANA@example.com"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = repo.Find(ctx, repository.RentalFilter{CarRefs: []domain.Ref{domain.StringRef("7")}})
	require.NoError(t, err)
	assert.Empty(t, found)

	rental.Status = domain.RentalStatusCancelled
	require.NoError(t, repo.Update(ctx, rental))

	found, err = repo.Find(ctx, repository.RentalFilter{Status: domain.RentalStatusActive})
	require.NoError(t, err)
	assert.Empty(t, found)

	raw, err := os.ReadFile(filepath.Join(dir, RentalsFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"carId": 7`)
	assert.Contains(t, string(raw), `"userId": {`)
}

func TestRentalRepository_UpdateMissing(t *testing.T) {
	repo := NewRentalRepository(t.TempDir())

	err := repo.Update(context.Background(), &domain.Rental{Key: "b8b4c8c2-0d4c-4c0e-9d7e-1f3b2a4c5d6e"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRentalRepository_KeepsDerivedKeysStable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, RentalsFile, `[
		{"id": "r-1", "carId": 7, "userId": 1, "userEmail": "ana@example.com",
		 "startDate": "2024-01-01", "endDate": "2024-01-05", "status": "active"}
	]`)

	repo := NewRentalRepository(dir)
	ctx := context.Background()

	before, err := repo.GetByLegacyID(ctx, domain.StringRef("r-1"))
	require.NoError(t, err)

	before.Status = domain.RentalStatusCompleted
	require.NoError(t, repo.Update(ctx, before))

	after, err := repo.GetByKey(ctx, before.Key)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusCompleted, after.Status)
}
