package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"carrental/internal/domain"
	"carrental/internal/repository"
)

var rentalColumns = []string{
	"key", "legacy_kind", "legacy_value", "car_ref_kind", "car_ref_value",
	"user_ref_kind", "user_ref_value", "user_email", "username", "start_date", "end_date",
	"total_days", "price_per_day", "total_price", "pickup_location", "dropoff_location",
	"special_requests", "payment_method", "payment_card", "payment_name", "payment_expires",
	"status", "created_at",
}

// RentalRepository is a PostgreSQL implementation of repository.RentalRepository.
type RentalRepository struct {
	q Querier
}

// NewRentalRepository creates a new PostgreSQL rental repository.
func NewRentalRepository(db *sql.DB) *RentalRepository {
	return &RentalRepository{q: db}
}

// ParseKey reports whether raw is a UUID.
func (r *RentalRepository) ParseKey(raw string) (string, bool) {
	return parseKey(raw)
}

// GetByKey retrieves a rental by key.
func (r *RentalRepository) GetByKey(ctx context.Context, key string) (*domain.Rental, error) {
	return r.get(ctx, squirrel.Eq{"key": key})
}

// GetByLegacyID retrieves a rental by legacy id.
func (r *RentalRepository) GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.Rental, error) {
	if id.IsZero() {
		return nil, repository.ErrNotFound
	}
	return r.get(ctx, refEq("legacy_kind", "legacy_value", id))
}

// Create persists a new rental under a fresh key.
func (r *RentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	key := newKey()

	query, args, err := psql.Insert("rentals").
		Columns(rentalColumns...).
		Values(rentalValues(key, rental)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert rental: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	rental.Key = key
	return nil
}

// Update replaces the mutable fields of the rental with the same key.
func (r *RentalRepository) Update(ctx context.Context, rental *domain.Rental) error {
	method, card, name, expires := paymentColumns(rental.PaymentInfo)

	query, args, err := psql.Update("rentals").
		SetMap(map[string]any{
			"start_date":       rental.StartDate,
			"end_date":         rental.EndDate,
			"total_days":       rental.TotalDays,
			"price_per_day":    rental.PricePerDay,
			"total_price":      rental.TotalPrice,
			"pickup_location":  rental.PickupLocation,
			"dropoff_location": rental.DropoffLocation,
			"special_requests": rental.SpecialRequests,
			"payment_method":   method,
			"payment_card":     card,
			"payment_name":     name,
			"payment_expires":  expires,
			"status":           string(rental.Status),
		}).
		Where(squirrel.Eq{"key": rental.Key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update rental: %w", err)
	}

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Find returns the rentals matching filter, oldest first.
func (r *RentalRepository) Find(ctx context.Context, filter repository.RentalFilter) ([]*domain.Rental, error) {
	builder := psql.Select(rentalColumns...).From("rentals").OrderBy("created_at", "key")

	if len(filter.CarRefs) > 0 {
		builder = builder.Where(refIn("car_ref_kind", "car_ref_value", filter.CarRefs))
	}
	if len(filter.UserRefs) > 0 || filter.UserEmail != "" {
		owner := refIn("user_ref_kind", "user_ref_value", filter.UserRefs)
		if filter.UserEmail != "" {
			owner = append(owner, squirrel.Expr("LOWER(user_email) = ?", strings.ToLower(strings.TrimSpace(filter.UserEmail))))
		}
		builder = builder.Where(owner)
	}
	if filter.Status != "" {
		builder = builder.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.EndBefore != "" {
		builder = builder.Where(squirrel.Lt{"end_date": filter.EndBefore})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select rentals: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []*domain.Rental
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, rental)
	}
	return rentals, rows.Err()
}

func (r *RentalRepository) get(ctx context.Context, where squirrel.Sqlizer) (*domain.Rental, error) {
	query, args, err := psql.Select(rentalColumns...).From("rentals").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select rental: %w", err)
	}

	rental, err := scanRental(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rental, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRental(s scanner) (*domain.Rental, error) {
	var (
		rental                                 domain.Rental
		status                                 string
		legacyKind, legacyValue                sql.NullString
		carKind, carValue, userKind, userValue sql.NullString
		method, card, name, expires            sql.NullString
	)

	err := s.Scan(
		&rental.Key,
		&legacyKind,
		&legacyValue,
		&carKind,
		&carValue,
		&userKind,
		&userValue,
		&rental.UserEmail,
		&rental.Username,
		&rental.StartDate,
		&rental.EndDate,
		&rental.TotalDays,
		&rental.PricePerDay,
		&rental.TotalPrice,
		&rental.PickupLocation,
		&rental.DropoffLocation,
		&rental.SpecialRequests,
		&method,
		&card,
		&name,
		&expires,
		&status,
		&rental.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rental.Status = domain.RentalStatus(status)
	if rental.LegacyID, err = decodeRef(legacyKind, legacyValue); err != nil {
		return nil, err
	}
	if rental.CarRef, err = decodeRef(carKind, carValue); err != nil {
		return nil, err
	}
	if rental.UserRef, err = decodeRef(userKind, userValue); err != nil {
		return nil, err
	}
	if method.Valid || card.Valid || name.Valid || expires.Valid {
		rental.PaymentInfo = &domain.PaymentInfo{
			Method:         method.String,
			CardNumber:     card.String,
			CardName:       name.String,
			ExpirationDate: expires.String,
		}
	}
	return &rental, nil
}

func rentalValues(key string, rental *domain.Rental) []any {
	legacyKind, legacyValue := encodeRef(rental.LegacyID)
	carKind, carValue := encodeRef(rental.CarRef)
	userKind, userValue := encodeRef(rental.UserRef)
	method, card, name, expires := paymentColumns(rental.PaymentInfo)

	return []any{
		key, legacyKind, legacyValue, carKind, carValue,
		userKind, userValue, rental.UserEmail, rental.Username, rental.StartDate, rental.EndDate,
		rental.TotalDays, rental.PricePerDay, rental.TotalPrice, rental.PickupLocation, rental.DropoffLocation,
		rental.SpecialRequests, method, card, name, expires,
		string(rental.Status), rental.CreatedAt,
	}
}

func paymentColumns(p *domain.PaymentInfo) (method, card, name, expires sql.NullString) {
	if p == nil {
		return
	}
	return sql.NullString{String: p.Method, Valid: true},
		sql.NullString{String: p.CardNumber, Valid: true},
		sql.NullString{String: p.CardName, Valid: true},
		sql.NullString{String: p.ExpirationDate, Valid: true}
}
