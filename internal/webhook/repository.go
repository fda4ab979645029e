package webhook

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

const selectColumns = `id, user_id, name, token, webhook_type, target_topic_id, target_application_id,
	template, enabled, direction, target_url, http_method, headers, body_template, max_retries,
	retry_delay_secs, created_at`

func scanConfig(row pgx.Row) (*Config, error) {
	var c Config
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Token, &c.WebhookType, &c.TargetTopicID, &c.TargetApplicationID,
		&c.Template, &c.Enabled, &c.Direction, &c.TargetURL, &c.HTTPMethod, &c.Headers,
		&c.BodyTemplate, &c.MaxRetries, &c.RetryDelaySecs, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan webhook config: %w", err)
	}
	return &c, nil
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPGRepository creates a new PostgreSQL-backed webhook repository.
func NewPGRepository(db *pgxpool.Pool, logger zerolog.Logger) *PGRepository {
	return &PGRepository{db: db, log: logger}
}

// Create inserts a new webhook config.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (*Config, error) {
	c, err := scanConfig(r.db.QueryRow(ctx,
		`INSERT INTO webhook_configs
			(user_id, name, token, webhook_type, target_topic_id, target_application_id, template,
			 enabled, direction, target_url, http_method, headers, body_template, max_retries, retry_delay_secs)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING `+selectColumns,
		params.UserID, params.Name, params.Token, params.WebhookType, params.TargetTopicID,
		params.TargetApplicationID, params.Template, params.Enabled, params.Direction,
		params.TargetURL, params.HTTPMethod, params.Headers, params.BodyTemplate,
		params.MaxRetries, params.RetryDelaySecs,
	))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert webhook config: %w", err)
	}
	return c, nil
}

// GetByID returns the webhook config matching the given ID.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Config, error) {
	c, err := scanConfig(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM webhook_configs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query webhook config by id: %w", err)
	}
	return c, nil
}

// GetByToken returns the webhook config matching the given token. This serves
// the incoming webhook endpoint.
func (r *PGRepository) GetByToken(ctx context.Context, token string) (*Config, error) {
	c, err := scanConfig(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM webhook_configs WHERE token = $1`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query webhook config by token: %w", err)
	}
	return c, nil
}

// ListByUser returns all webhook configs owned by the given user, ordered by id.
func (r *PGRepository) ListByUser(ctx context.Context, userID int64) ([]Config, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM webhook_configs WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query webhook configs: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// ListOutgoingForTopic returns the enabled outgoing configs whose target topic
// matches the given name.
func (r *PGRepository) ListOutgoingForTopic(ctx context.Context, topicName string) ([]Config, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+aliased("wc")+`
		 FROM webhook_configs wc
		 JOIN topics t ON wc.target_topic_id = t.id
		 WHERE wc.direction = 'outgoing' AND wc.enabled AND t.name = $1`,
		topicName,
	)
	if err != nil {
		return nil, fmt.Errorf("query outgoing webhooks: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// Update applies the non-nil fields in params to the config row and returns
// the updated config.
func (r *PGRepository) Update(ctx context.Context, id int64, params UpdateParams) (*Config, error) {
	var setClauses []string
	var args []any

	if params.Name != nil {
		args = append(args, *params.Name)
		setClauses = append(setClauses, "name = $"+strconv.Itoa(len(args)))
	}
	if params.Template != nil {
		args = append(args, *params.Template)
		setClauses = append(setClauses, "template = $"+strconv.Itoa(len(args)))
	}
	if params.Enabled != nil {
		args = append(args, *params.Enabled)
		setClauses = append(setClauses, "enabled = $"+strconv.Itoa(len(args)))
	}
	if params.TargetURL != nil {
		args = append(args, *params.TargetURL)
		setClauses = append(setClauses, "target_url = $"+strconv.Itoa(len(args)))
	}
	if params.BodyTemplate != nil {
		args = append(args, *params.BodyTemplate)
		setClauses = append(setClauses, "body_template = $"+strconv.Itoa(len(args)))
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	query := "UPDATE webhook_configs SET " + strings.Join(setClauses, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) +
		" RETURNING " + selectColumns

	c, err := scanConfig(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update webhook config: %w", err)
	}
	return c, nil
}

// Delete removes the webhook config.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM webhook_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete webhook config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collect(rows pgx.Rows) ([]Config, error) {
	var configs []Config
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *c)
	}
	return configs, rows.Err()
}

func aliased(alias string) string {
	cols := strings.Split(strings.ReplaceAll(selectColumns, "\n\t", " "), ",")
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(out, ", ")
}
