package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/postgres"
)

const selectColumns = `id, token, user_id, endpoint, created_at`

func scanRegistration(row pgx.Row) (*Registration, error) {
	var reg Registration
	if err := row.Scan(&reg.ID, &reg.Token, &reg.UserID, &reg.Endpoint, &reg.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan push registration: %w", err)
	}
	return &reg, nil
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPGRepository creates a new PostgreSQL-backed push registration repository.
func NewPGRepository(db *pgxpool.Pool, logger zerolog.Logger) *PGRepository {
	return &PGRepository{db: db, log: logger}
}

// Create inserts a new registration.
func (r *PGRepository) Create(ctx context.Context, token string, userID *int64, endpoint string) (*Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`INSERT INTO up_registrations (token, user_id, endpoint) VALUES ($1, $2, $3) RETURNING `+selectColumns,
		token, userID, endpoint,
	))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert push registration: %w", err)
	}
	return reg, nil
}

// GetByID returns the registration matching the given ID.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM up_registrations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query push registration by id: %w", err)
	}
	return reg, nil
}

// GetByToken returns the registration matching the given opaque token.
func (r *PGRepository) GetByToken(ctx context.Context, token string) (*Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM up_registrations WHERE token = $1`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query push registration by token: %w", err)
	}
	return reg, nil
}

// ListByUser returns the registrations owned by the given user, ordered by id.
func (r *PGRepository) ListByUser(ctx context.Context, userID int64) ([]Registration, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM up_registrations WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query push registrations: %w", err)
	}
	defer rows.Close()

	var regs []Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

// Delete removes the registration.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM up_registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete push registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
