package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/postgres"
)

const selectColumns = `id, user_id, name, description, token, default_priority, image, created_at, updated_at`

func scanApplication(row pgx.Row) (*Application, error) {
	var a Application
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Description, &a.Token, &a.DefaultPriority, &a.Image, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan application: %w", err)
	}
	return &a, nil
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPGRepository creates a new PostgreSQL-backed application repository.
func NewPGRepository(db *pgxpool.Pool, logger zerolog.Logger) *PGRepository {
	return &PGRepository{db: db, log: logger}
}

// Create inserts a new application.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (*Application, error) {
	a, err := scanApplication(r.db.QueryRow(ctx,
		`INSERT INTO applications (user_id, name, description, token, default_priority)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+selectColumns,
		params.UserID, params.Name, params.Description, params.Token, params.DefaultPriority,
	))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert application: %w", err)
	}
	return a, nil
}

// GetByID returns the application matching the given ID.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Application, error) {
	a, err := scanApplication(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM applications WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query application by id: %w", err)
	}
	return a, nil
}

// GetByToken returns the application matching the given token. This serves the
// publish authentication path.
func (r *PGRepository) GetByToken(ctx context.Context, token string) (*Application, error) {
	a, err := scanApplication(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM applications WHERE token = $1`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query application by token: %w", err)
	}
	return a, nil
}

// ListByUser returns all applications owned by the given user, ordered by id.
func (r *PGRepository) ListByUser(ctx context.Context, userID int64) ([]Application, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM applications WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

// Update applies the non-nil fields in params to the application row and
// returns the updated application.
func (r *PGRepository) Update(ctx context.Context, id int64, params UpdateParams) (*Application, error) {
	var setClauses []string
	var args []any

	if params.Name != nil {
		args = append(args, *params.Name)
		setClauses = append(setClauses, "name = $"+strconv.Itoa(len(args)))
	}
	if params.Description != nil {
		args = append(args, *params.Description)
		setClauses = append(setClauses, "description = $"+strconv.Itoa(len(args)))
	}
	if params.DefaultPriority != nil {
		args = append(args, *params.DefaultPriority)
		setClauses = append(setClauses, "default_priority = $"+strconv.Itoa(len(args)))
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)
	query := "UPDATE applications SET " + strings.Join(setClauses, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) +
		" RETURNING " + selectColumns

	a, err := scanApplication(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update application: %w", err)
	}
	return a, nil
}

// UpdateImage sets or clears the application's icon storage key.
func (r *PGRepository) UpdateImage(ctx context.Context, id int64, image *string) (*Application, error) {
	a, err := scanApplication(r.db.QueryRow(ctx,
		`UPDATE applications SET image = $1, updated_at = now() WHERE id = $2 RETURNING `+selectColumns,
		image, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update application image: %w", err)
	}
	return a, nil
}

// Delete removes the application. Its messages cascade at the schema level.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
