package domain

import (
	"errors"
	"time"
)

// Role values accepted at registration. They are stored verbatim in the user
// directory and carried inside session tokens.
const (
	RoleStudent  = "student"
	RoleLecturer = "lecturer"
	RoleAdmin    = "admin"
)

var ErrValidation = errors.New("validation failed")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrEmailTaken = errors.New("email already registered")
var ErrFederatedIDTaken = errors.New("federated identity already linked")
var ErrUserNotFound = errors.New("user not found")
var ErrProviderUnavailable = errors.New("identity provider unavailable")

// ValidRole reports whether role is one of the enumerated role values.
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleLecturer, RoleAdmin:
		return true
	}
	return false
}

// User is the durable identity record. A user authenticates with a password,
// a federated identity, or both; at least one method is populated after
// creation. The credential fields never appear in JSON responses.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	NPM          string    `json:"npm,omitempty"`
	PasswordHash string    `json:"-"`
	FederatedID  string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserUpdate carries the mutable fields of an update. Nil pointers leave the
// corresponding column untouched.
type UserUpdate struct {
	Name        *string
	Phone       *string
	Avatar      *string
	NPM         *string
	FederatedID *string
}
