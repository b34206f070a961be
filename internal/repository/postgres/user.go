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

var userColumns = []string{
	"key", "legacy_kind", "legacy_value", "first_name", "last_name", "username", "email",
	"phone_number", "role", "password_hash", "created_at",
}

// UserRepository is a PostgreSQL implementation of repository.UserRepository.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{q: db}
}

// ParseKey reports whether raw is a UUID.
func (r *UserRepository) ParseKey(raw string) (string, bool) {
	return parseKey(raw)
}

// GetByKey retrieves a user by key.
func (r *UserRepository) GetByKey(ctx context.Context, key string) (*domain.User, error) {
	return r.get(ctx, squirrel.Eq{"key": key})
}

// GetByLegacyID retrieves a user by legacy id.
func (r *UserRepository) GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.User, error) {
	if id.IsZero() {
		return nil, repository.ErrNotFound
	}
	return r.get(ctx, refEq("legacy_kind", "legacy_value", id))
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, squirrel.Expr("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))))
}

func (r *UserRepository) get(ctx context.Context, where squirrel.Sqlizer) (*domain.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user: %w", err)
	}

	var (
		user                    domain.User
		role                    string
		legacyKind, legacyValue sql.NullString
	)
	err = r.q.QueryRowContext(ctx, query, args...).Scan(
		&user.Key,
		&legacyKind,
		&legacyValue,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.Email,
		&user.PhoneNumber,
		&role,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	user.Role = domain.Role(role)
	if user.LegacyID, err = decodeRef(legacyKind, legacyValue); err != nil {
		return nil, err
	}
	return &user, nil
}
