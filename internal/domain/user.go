package domain

import (
	"strings"
	"time"
)

// Role represents the authorization role of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an account holder. The authenticated principal of a
// request is a User.
type User struct {
	Key          string
	LegacyID     Ref
	FirstName    string
	LastName     string
	Username     string
	Email        string
	PhoneNumber  string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Refs returns every reference a rental may use to point at this user.
func (u *User) Refs() []Ref {
	return Aliases(u.Key, u.LegacyID)
}

// Ref returns the reference stored on new rentals for this user.
func (u *User) Ref() Ref {
	return PreferredRef(u.Key, u.LegacyID)
}

// SameEmail reports whether two email addresses name the same mailbox.
// Addresses compare case-insensitively; an empty address matches nothing.
func SameEmail(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && b != "" && strings.EqualFold(a, b)
}
