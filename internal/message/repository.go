package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const selectColumns = `id, application_id, topic_id, user_id, title, message, priority, tags, click_url,
	icon_url, actions, extras, content_type, scheduled_for, delivered_at, expires_at, created_at`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(
		&m.ID, &m.ApplicationID, &m.TopicID, &m.UserID, &m.Title, &m.Message, &m.Priority,
		&m.Tags, &m.ClickURL, &m.IconURL, &m.Actions, &m.Extras, &m.ContentType,
		&m.ScheduledFor, &m.DeliveredAt, &m.ExpiresAt, &m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	return &m, nil
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPGRepository creates a new PostgreSQL-backed message repository.
func NewPGRepository(db *pgxpool.Pool, logger zerolog.Logger) *PGRepository {
	return &PGRepository{db: db, log: logger}
}

// Create inserts a new message. At most one of ApplicationID and TopicID may be
// set; violating that is a programming error surfaced before the insert.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (*Message, error) {
	if params.ApplicationID != nil && params.TopicID != nil {
		return nil, ErrInvalidTarget
	}

	m, err := scanMessage(r.db.QueryRow(ctx,
		`INSERT INTO messages
			(application_id, topic_id, user_id, title, message, priority, tags, click_url, icon_url, actions, extras, content_type, scheduled_for)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+selectColumns,
		params.ApplicationID, params.TopicID, params.UserID, params.Title, params.Message,
		params.Priority, params.Tags, params.ClickURL, params.IconURL, params.Actions,
		params.Extras, params.ContentType, params.ScheduledFor,
	))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// GetByID returns the message matching the given ID.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Message, error) {
	m, err := scanMessage(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM messages WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query message by id: %w", err)
	}
	return m, nil
}

// ListByUserApps returns messages published through any of the user's
// applications with id greater than since, newest first.
func (r *PGRepository) ListByUserApps(ctx context.Context, userID int64, limit int, since int64) ([]Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+selectColumnsAliased("m")+`
		 FROM messages m
		 JOIN applications a ON m.application_id = a.id
		 WHERE a.user_id = $1 AND m.id > $2
		 ORDER BY m.id DESC
		 LIMIT $3`,
		userID, since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages by user apps: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// ListByApplication returns the application's messages with id greater than
// since, newest first.
func (r *PGRepository) ListByApplication(ctx context.Context, appID int64, limit int, since int64) ([]Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+selectColumns+` FROM messages WHERE application_id = $1 AND id > $2 ORDER BY id DESC LIMIT $3`,
		appID, since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages by application: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// ListByTopic returns the topic's messages with id greater than since, newest
// first.
func (r *PGRepository) ListByTopic(ctx context.Context, topicID int64, limit int, since int64) ([]Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+selectColumns+` FROM messages WHERE topic_id = $1 AND id > $2 ORDER BY id DESC LIMIT $3`,
		topicID, since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages by topic: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// DeleteByID removes a single message.
func (r *PGRepository) DeleteByID(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllForUser removes messages published through the user's applications
// and topic messages attributed to the user. Topic messages are removed even
// when the user no longer holds permission on the topic; the attribution on
// the row is what counts.
func (r *PGRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM messages
		 WHERE application_id IN (SELECT id FROM applications WHERE user_id = $1)
		    OR (user_id = $1 AND topic_id IS NOT NULL)`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("delete messages for user: %w", err)
	}
	return nil
}

// DeleteAllForApplication removes all messages of the given application.
func (r *PGRepository) DeleteAllForApplication(ctx context.Context, appID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM messages WHERE application_id = $1`, appID)
	if err != nil {
		return fmt.Errorf("delete messages for application: %w", err)
	}
	return nil
}

// SetExpiresAt stamps the expiry time on a message.
func (r *PGRepository) SetExpiresAt(ctx context.Context, id int64, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE messages SET expires_at = $1 WHERE id = $2`, expiresAt, id)
	if err != nil {
		return fmt.Errorf("set message expiry: %w", err)
	}
	return nil
}

// DeleteExpired removes messages whose expiry time has passed and returns the
// number of rows deleted.
func (r *PGRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ClaimScheduled atomically claims every due scheduled message by stamping
// delivered_at in a single statement and returns the claimed rows. The single
// UPDATE is the de-duplication guarantee: with multiple workers running, each
// row's delivered_at transitions from NULL exactly once, so each message is
// delivered at most once. Rows are claimed in (scheduled_for, id) order.
func (r *PGRepository) ClaimScheduled(ctx context.Context) ([]Message, error) {
	rows, err := r.db.Query(ctx,
		`UPDATE messages SET delivered_at = now()
		 WHERE id IN (
			SELECT id FROM messages
			WHERE scheduled_for IS NOT NULL AND scheduled_for <= now() AND delivered_at IS NULL
			ORDER BY scheduled_for, id
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+selectColumns,
	)
	if err != nil {
		return nil, fmt.Errorf("claim scheduled messages: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// Count returns the total number of messages.
func (r *PGRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// CountSince returns the number of messages created at or after the given time.
func (r *PGRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE created_at >= $1`, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages since: %w", err)
	}
	return count, nil
}

func collect(rows pgx.Rows) ([]Message, error) {
	var msgs []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

// selectColumnsAliased prefixes every column in selectColumns with the given
// table alias for joined queries.
func selectColumnsAliased(alias string) string {
	cols := []string{
		"id", "application_id", "topic_id", "user_id", "title", "message", "priority", "tags",
		"click_url", "icon_url", "actions", "extras", "content_type", "scheduled_for",
		"delivered_at", "expires_at", "created_at",
	}
	out := alias + "." + cols[0]
	for _, c := range cols[1:] {
		out += ", " + alias + "." + c
	}
	return out
}
