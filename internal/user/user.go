package user

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Sentinel errors for the user package.
var (
	ErrNotFound         = errors.New("user not found")
	ErrAlreadyExists    = errors.New("username already taken")
	ErrUsernameLength   = errors.New("username must be between 1 and 64 characters")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
)

// User holds the identity fields read from the database. PasswordHash is never
// serialized.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        *string   `json:"email"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateParams groups the inputs for creating a new user.
type CreateParams struct {
	Username     string
	PasswordHash string
	Email        *string
	IsAdmin      bool
}

// UpdateParams groups the optional fields for updating a user.
type UpdateParams struct {
	Username *string
	Email    *string
	IsAdmin  *bool
}

// ValidateUsername checks that a username is non-empty after trimming and at
// most 64 Unicode characters.
func ValidateUsername(username string) (string, error) {
	trimmed := strings.TrimSpace(username)
	if n := utf8.RuneCountInString(trimmed); n < 1 || n > 64 {
		return "", ErrUsernameLength
	}
	return trimmed, nil
}

// ValidatePassword checks the minimum password length used by registration and
// password rotation.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}

// Repository defines the data-access contract for user operations.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id int64, params UpdateParams) (*User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}
