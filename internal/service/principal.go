package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"carrental/internal/auth"
	"carrental/internal/domain"
	"carrental/internal/repository"
)

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// PrincipalService turns a bearer token into the authenticated user.
type PrincipalService struct {
	tokens   TokenVerifier
	resolver *Resolver
	users    repository.UserRepository
}

// NewPrincipalService creates a new PrincipalService.
func NewPrincipalService(tokens TokenVerifier, resolver *Resolver, users repository.UserRepository) *PrincipalService {
	return &PrincipalService{
		tokens:   tokens,
		resolver: resolver,
		users:    users,
	}
}

// Authenticate verifies token and loads its user, by email first and then by
// the id claim. The password hash is cleared on the returned user.
func (s *PrincipalService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthorized
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	user, err := s.lookup(ctx, claims)
	if err != nil {
		return nil, err
	}

	principal := *user
	principal.PasswordHash = ""
	return &principal, nil
}

func (s *PrincipalService) lookup(ctx context.Context, claims *auth.Claims) (*domain.User, error) {
	if claims.Email != "" {
		user, err := s.users.GetByEmail(ctx, claims.Email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup principal: %w", err)
		}
	}

	if claims.ID != "" {
		user, err := s.resolver.User(ctx, claims.ID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("lookup principal: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: user not found", ErrUnauthorized)
}
