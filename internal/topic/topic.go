package topic

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Sentinel errors for the topic package.
var (
	ErrNotFound      = errors.New("topic not found")
	ErrAlreadyExists = errors.New("topic already exists")
	ErrNameLength    = errors.New("topic name must be between 1 and 128 characters")
	ErrNameChars     = errors.New("topic name may only contain alphanumeric characters, hyphens, underscores, and dots")
)

// Topic is a named, wildcard-addressable channel. Names use dot-separated path
// segments; read/write access is governed by the everyone flags, ownership,
// and per-user permissions.
type Topic struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	OwnerID       *int64    `json:"owner_id"`
	Description   *string   `json:"description"`
	EveryoneRead  bool      `json:"everyone_read"`
	EveryoneWrite bool      `json:"everyone_write"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateParams groups the inputs for creating a new topic.
type CreateParams struct {
	Name          string
	OwnerID       *int64
	Description   *string
	EveryoneRead  bool
	EveryoneWrite bool
}

// ValidateName checks the length and character constraints on a topic name and
// returns the trimmed form.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if n := utf8.RuneCountInString(trimmed); n < 1 || n > 128 {
		return "", ErrNameLength
	}
	for _, c := range trimmed {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '-' && c != '_' && c != '.' {
			return "", ErrNameChars
		}
	}
	return trimmed, nil
}

// Repository defines the data-access contract for topic operations.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Topic, error)
	GetByID(ctx context.Context, id int64) (*Topic, error)
	GetByName(ctx context.Context, name string) (*Topic, error)
	List(ctx context.Context) ([]Topic, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}
