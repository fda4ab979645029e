package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Sentinel errors for the webhook package.
var (
	ErrNotFound      = errors.New("webhook config not found")
	ErrAlreadyExists = errors.New("webhook config already exists")
	ErrDisabled      = errors.New("webhook is disabled")
)

// Directions a webhook config can take.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Known incoming webhook payload types.
const (
	TypeGitHub  = "github"
	TypeGrafana = "grafana"
	TypeGeneric = "generic"
)

// Config describes a webhook. Incoming configs accept third-party payloads on
// the token endpoint and project them into messages; outgoing configs forward
// published topic messages to an external URL.
type Config struct {
	ID                  int64     `json:"id"`
	UserID              int64     `json:"user_id"`
	Name                string    `json:"name"`
	Token               string    `json:"token"`
	WebhookType         string    `json:"webhook_type"`
	TargetTopicID       *int64    `json:"target_topic_id"`
	TargetApplicationID *int64    `json:"target_application_id"`
	Template            string    `json:"template"`
	Enabled             bool      `json:"enabled"`
	Direction           string    `json:"direction"`
	TargetURL           *string   `json:"target_url"`
	HTTPMethod          string    `json:"http_method"`
	Headers             *string   `json:"headers"`
	BodyTemplate        *string   `json:"body_template"`
	MaxRetries          int       `json:"max_retries"`
	RetryDelaySecs      int       `json:"retry_delay_secs"`
	CreatedAt           time.Time `json:"created_at"`
}

// CreateParams groups the inputs for creating a webhook config.
type CreateParams struct {
	UserID              int64
	Name                string
	Token               string
	WebhookType         string
	TargetTopicID       *int64
	TargetApplicationID *int64
	Template            string
	Enabled             bool
	Direction           string
	TargetURL           *string
	HTTPMethod          string
	Headers             *string
	BodyTemplate        *string
	MaxRetries          int
	RetryDelaySecs      int
}

// UpdateParams groups the optional fields for updating a webhook config.
type UpdateParams struct {
	Name         *string
	Template     *string
	Enabled      *bool
	TargetURL    *string
	BodyTemplate *string
}

// Project derives (title, message) from an incoming webhook payload according
// to the config's webhook_type:
//
//   - github: title "GitHub: <action> on <repository.full_name>", body is the
//     pretty-printed payload
//   - grafana: title and message fields taken verbatim
//   - anything else: title and message fields when present, otherwise the
//     pretty-printed payload
func Project(webhookType string, payload map[string]any) (*string, string) {
	switch webhookType {
	case TypeGitHub:
		action := stringField(payload, "action")
		if action == "" {
			action = "event"
		}
		repo := "unknown"
		if r, ok := payload["repository"].(map[string]any); ok {
			if full := stringField(r, "full_name"); full != "" {
				repo = full
			}
		}
		title := "GitHub: " + action + " on " + repo
		return &title, prettyJSON(payload)

	case TypeGrafana:
		title := stringField(payload, "title")
		if title == "" {
			title = "Grafana Alert"
		}
		return &title, stringField(payload, "message")

	default:
		var title *string
		if t := stringField(payload, "title"); t != "" {
			title = &t
		}
		msg := stringField(payload, "message")
		if msg == "" {
			msg = prettyJSON(payload)
		}
		return title, msg
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func prettyJSON(payload map[string]any) string {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

// Repository defines the data-access contract for webhook configs.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Config, error)
	GetByID(ctx context.Context, id int64) (*Config, error)
	GetByToken(ctx context.Context, token string) (*Config, error)
	ListByUser(ctx context.Context, userID int64) ([]Config, error)
	ListOutgoingForTopic(ctx context.Context, topicName string) ([]Config, error)
	Update(ctx context.Context, id int64, params UpdateParams) (*Config, error)
	Delete(ctx context.Context, id int64) error
}
