package file

import (
	"context"
	"strings"
	"time"

	"carrental/internal/domain"
	"carrental/internal/repository"
)

type userRecord struct {
	Key          string     `json:"_id,omitempty"`
	ID           jsonRef    `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PhoneNumber  string     `json:"phoneNumber,omitempty"`
	Role         string     `json:"role,omitempty"`
	PasswordHash string     `json:"passwordHash,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

func (r *userRecord) key() string       { return r.Key }
func (r *userRecord) setKey(key string) { r.Key = key }
func (r *userRecord) legacy() jsonRef   { return r.ID }

func (r *userRecord) toDomain() *domain.User {
	user := &domain.User{
		Key:          r.Key,
		LegacyID:     domain.Ref(r.ID),
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Username:     r.Username,
		Email:        r.Email,
		PhoneNumber:  r.PhoneNumber,
		Role:         domain.Role(r.Role),
		PasswordHash: r.PasswordHash,
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if r.CreatedAt != nil {
		user.CreatedAt = *r.CreatedAt
	}
	return user
}

// UserRepository implements repository.UserRepository over users.json.
type UserRepository struct {
	users *collection[*userRecord]
}

// NewUserRepository creates a new UserRepository reading from dir.
func NewUserRepository(dir string) *UserRepository {
	return &UserRepository{users: newCollection[*userRecord](dir, UsersFile)}
}

// ParseKey reports whether raw is a UUID.
func (r *UserRepository) ParseKey(raw string) (string, bool) {
	return parseKey(raw)
}

// GetByKey retrieves a user by surrogate key.
func (r *UserRepository) GetByKey(ctx context.Context, key string) (*domain.User, error) {
	return r.get(func(u *userRecord) bool { return u.Key == key })
}

// GetByLegacyID retrieves a user by legacy id.
func (r *UserRepository) GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.User, error) {
	return r.get(func(u *userRecord) bool { return domain.Ref(u.ID) == id })
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	return r.get(func(u *userRecord) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepository) get(match func(*userRecord) bool) (*domain.User, error) {
	rec, ok, err := r.users.find(match)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec.toDomain(), nil
}
