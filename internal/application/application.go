package application

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Sentinel errors for the application package.
var (
	ErrNotFound      = errors.New("application not found")
	ErrAlreadyExists = errors.New("application already exists")
	ErrNameLength    = errors.New("application name must be between 1 and 128 characters")
)

// Application represents a named message source owned by a user. Its token
// authorizes publishing into the application's stream.
type Application struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	Token           string    `json:"token"`
	DefaultPriority int       `json:"default_priority"`
	Image           *string   `json:"image"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateParams groups the inputs for creating a new application.
type CreateParams struct {
	UserID          int64
	Name            string
	Description     *string
	Token           string
	DefaultPriority int
}

// UpdateParams groups the optional fields for updating an application.
type UpdateParams struct {
	Name            *string
	Description     *string
	DefaultPriority *int
}

// ValidateName checks that an application name is between 1 and 128 Unicode
// characters after trimming.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if n := utf8.RuneCountInString(trimmed); n < 1 || n > 128 {
		return "", ErrNameLength
	}
	return trimmed, nil
}

// Repository defines the data-access contract for application operations.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Application, error)
	GetByID(ctx context.Context, id int64) (*Application, error)
	GetByToken(ctx context.Context, token string) (*Application, error)
	ListByUser(ctx context.Context, userID int64) ([]Application, error)
	Update(ctx context.Context, id int64, params UpdateParams) (*Application, error)
	UpdateImage(ctx context.Context, id int64, image *string) (*Application, error)
	Delete(ctx context.Context, id int64) error
}
