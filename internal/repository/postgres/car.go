package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"carrental/internal/domain"
	"carrental/internal/repository"
)

var carColumns = []string{
	"key", "legacy_kind", "legacy_value", "make", "model", "year", "body_type", "seats",
	"transmission", "fuel_type", "rental_class", "image_url", "price_per_day", "currency",
	"available", "created_at",
}

// CarRepository is a PostgreSQL implementation of repository.CarRepository.
type CarRepository struct {
	q Querier
}

// NewCarRepository creates a new PostgreSQL car repository.
func NewCarRepository(db *sql.DB) *CarRepository {
	return &CarRepository{q: db}
}

// ParseKey reports whether raw is a UUID.
func (r *CarRepository) ParseKey(raw string) (string, bool) {
	return parseKey(raw)
}

// GetByKey retrieves a car by key.
func (r *CarRepository) GetByKey(ctx context.Context, key string) (*domain.Car, error) {
	return r.get(ctx, squirrel.Eq{"key": key})
}

// GetByLegacyID retrieves a car by legacy id.
func (r *CarRepository) GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.Car, error) {
	if id.IsZero() {
		return nil, repository.ErrNotFound
	}
	return r.get(ctx, refEq("legacy_kind", "legacy_value", id))
}

func (r *CarRepository) get(ctx context.Context, where squirrel.Sqlizer) (*domain.Car, error) {
	query, args, err := psql.Select(carColumns...).From("cars").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select car: %w", err)
	}

	var (
		car                     domain.Car
		legacyKind, legacyValue sql.NullString
	)
	err = r.q.QueryRowContext(ctx, query, args...).Scan(
		&car.Key,
		&legacyKind,
		&legacyValue,
		&car.Make,
		&car.Model,
		&car.Year,
		&car.BodyType,
		&car.Seats,
		&car.Transmission,
		&car.FuelType,
		&car.RentalClass,
		&car.ImageURL,
		&car.PricePerDay,
		&car.Currency,
		&car.Available,
		&car.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if car.LegacyID, err = decodeRef(legacyKind, legacyValue); err != nil {
		return nil, err
	}
	return &car, nil
}
