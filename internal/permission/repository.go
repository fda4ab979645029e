package permission

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const selectColumns = `id, user_id, topic_pattern, can_read, can_write`

func scanPermission(row pgx.Row) (*TopicPermission, error) {
	var p TopicPermission
	if err := row.Scan(&p.ID, &p.UserID, &p.TopicPattern, &p.CanRead, &p.CanWrite); err != nil {
		return nil, fmt.Errorf("scan permission: %w", err)
	}
	return &p, nil
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPGRepository creates a new PostgreSQL-backed permission repository.
func NewPGRepository(db *pgxpool.Pool, logger zerolog.Logger) *PGRepository {
	return &PGRepository{db: db, log: logger}
}

// Create inserts a new topic permission.
func (r *PGRepository) Create(ctx context.Context, userID int64, pattern string, canRead, canWrite bool) (*TopicPermission, error) {
	p, err := scanPermission(r.db.QueryRow(ctx,
		`INSERT INTO topic_permissions (user_id, topic_pattern, can_read, can_write)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+selectColumns,
		userID, pattern, canRead, canWrite,
	))
	if err != nil {
		return nil, fmt.Errorf("insert permission: %w", err)
	}
	return p, nil
}

// ListForUser returns the permissions granted to the given user, ordered by id.
func (r *PGRepository) ListForUser(ctx context.Context, userID int64) ([]TopicPermission, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+selectColumns+` FROM topic_permissions WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// List returns all permissions ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]TopicPermission, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM topic_permissions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// Delete removes the permission.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM topic_permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collect(rows pgx.Rows) ([]TopicPermission, error) {
	var perms []TopicPermission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, *p)
	}
	return perms, rows.Err()
}
