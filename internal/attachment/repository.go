package attachment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const selectColumns = `id, message_id, filename, content_type, size_bytes, storage_type, storage_path, expires_at, created_at`

func scanAttachment(row pgx.Row) (*Attachment, error) {
	var a Attachment
	err := row.Scan(&a.ID, &a.MessageID, &a.Filename, &a.ContentType, &a.SizeBytes,
		&a.StorageType, &a.StoragePath, &a.ExpiresAt, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan attachment: %w", err)
	}
	return &a, nil
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPGRepository creates a new PostgreSQL-backed attachment repository.
func NewPGRepository(db *pgxpool.Pool, logger zerolog.Logger) *PGRepository {
	return &PGRepository{db: db, log: logger}
}

// Create records an uploaded attachment.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (*Attachment, error) {
	a, err := scanAttachment(r.db.QueryRow(ctx,
		`INSERT INTO attachments (message_id, filename, content_type, size_bytes, storage_type, storage_path, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+selectColumns,
		params.MessageID, params.Filename, params.ContentType, params.SizeBytes,
		params.StorageType, params.StoragePath, params.ExpiresAt,
	))
	if err != nil {
		return nil, fmt.Errorf("insert attachment: %w", err)
	}
	return a, nil
}

// GetByID returns the attachment matching the given ID.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Attachment, error) {
	a, err := scanAttachment(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM attachments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query attachment by id: %w", err)
	}
	return a, nil
}

// ListExpired returns attachments whose expiry time has passed. The caller is
// responsible for deleting the stored files and then the rows.
func (r *PGRepository) ListExpired(ctx context.Context) ([]Attachment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+selectColumns+` FROM attachments WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return nil, fmt.Errorf("query expired attachments: %w", err)
	}
	defer rows.Close()

	var attachments []Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, *a)
	}
	return attachments, rows.Err()
}

// Delete removes the attachment row.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
