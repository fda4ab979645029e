package topic

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/postgres"
)

const selectColumns = `id, name, owner_id, description, everyone_read, everyone_write, created_at`

func scanTopic(row pgx.Row) (*Topic, error) {
	var t Topic
	err := row.Scan(&t.ID, &t.Name, &t.OwnerID, &t.Description, &t.EveryoneRead, &t.EveryoneWrite, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan topic: %w", err)
	}
	return &t, nil
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPGRepository creates a new PostgreSQL-backed topic repository.
func NewPGRepository(db *pgxpool.Pool, logger zerolog.Logger) *PGRepository {
	return &PGRepository{db: db, log: logger}
}

// Create inserts a new topic.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (*Topic, error) {
	t, err := scanTopic(r.db.QueryRow(ctx,
		`INSERT INTO topics (name, owner_id, description, everyone_read, everyone_write)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+selectColumns,
		params.Name, params.OwnerID, params.Description, params.EveryoneRead, params.EveryoneWrite,
	))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert topic: %w", err)
	}
	return t, nil
}

// GetByID returns the topic matching the given ID.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Topic, error) {
	t, err := scanTopic(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM topics WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query topic by id: %w", err)
	}
	return t, nil
}

// GetByName returns the topic matching the given name.
func (r *PGRepository) GetByName(ctx context.Context, name string) (*Topic, error) {
	t, err := scanTopic(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM topics WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query topic by name: %w", err)
	}
	return t, nil
}

// List returns all topics ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Topic, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM topics ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *t)
	}
	return topics, rows.Err()
}

// Delete removes the topic. Its messages cascade at the schema level.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of topics.
func (r *PGRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM topics`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count topics: %w", err)
	}
	return count, nil
}
