package push

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the push package.
var (
	ErrNotFound      = errors.New("push registration not found")
	ErrAlreadyExists = errors.New("push registration already exists")
)

// Registration links a server-minted opaque token to a device-chosen endpoint
// URL. Bodies posted to the relay endpoint with the token are forwarded to the
// endpoint verbatim.
type Registration struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	UserID    *int64    `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines the data-access contract for push registrations.
type Repository interface {
	Create(ctx context.Context, token string, userID *int64, endpoint string) (*Registration, error)
	GetByID(ctx context.Context, id int64) (*Registration, error)
	GetByToken(ctx context.Context, token string) (*Registration, error)
	ListByUser(ctx context.Context, userID int64) ([]Registration, error)
	Delete(ctx context.Context, id int64) error
}
