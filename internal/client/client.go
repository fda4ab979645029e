package client

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the client package.
var (
	ErrNotFound      = errors.New("client not found")
	ErrAlreadyExists = errors.New("client already exists")
)

// Client represents a subscribing device. Its token authorizes subscription to
// the owning user's aggregate message stream.
type Client struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines the data-access contract for client operations.
type Repository interface {
	Create(ctx context.Context, userID int64, name, token string) (*Client, error)
	GetByID(ctx context.Context, id int64) (*Client, error)
	GetByToken(ctx context.Context, token string) (*Client, error)
	ListByUser(ctx context.Context, userID int64) ([]Client, error)
	Update(ctx context.Context, id int64, name string) (*Client, error)
	Delete(ctx context.Context, id int64) error
}
