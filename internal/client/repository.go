package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/postgres"
)

const selectColumns = `id, user_id, name, token, created_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Token, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan client: %w", err)
	}
	return &c, nil
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPGRepository creates a new PostgreSQL-backed client repository.
func NewPGRepository(db *pgxpool.Pool, logger zerolog.Logger) *PGRepository {
	return &PGRepository{db: db, log: logger}
}

// Create inserts a new client.
func (r *PGRepository) Create(ctx context.Context, userID int64, name, token string) (*Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx,
		`INSERT INTO clients (user_id, name, token) VALUES ($1, $2, $3) RETURNING `+selectColumns,
		userID, name, token,
	))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert client: %w", err)
	}
	return c, nil
}

// GetByID returns the client matching the given ID.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query client by id: %w", err)
	}
	return c, nil
}

// GetByToken returns the client matching the given token. This serves the
// subscription authentication path.
func (r *PGRepository) GetByToken(ctx context.Context, token string) (*Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM clients WHERE token = $1`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query client by token: %w", err)
	}
	return c, nil
}

// ListByUser returns all clients owned by the given user, ordered by id.
func (r *PGRepository) ListByUser(ctx context.Context, userID int64) ([]Client, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM clients WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

// Update renames the client and returns the updated row.
func (r *PGRepository) Update(ctx context.Context, id int64, name string) (*Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx,
		`UPDATE clients SET name = $1 WHERE id = $2 RETURNING `+selectColumns,
		name, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update client: %w", err)
	}
	return c, nil
}

// Delete removes the client.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
