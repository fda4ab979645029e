package message

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Sentinel errors for the message package.
var (
	ErrNotFound      = errors.New("message not found")
	ErrLength        = errors.New("message must be between 1 and 65536 bytes")
	ErrNotYours      = errors.New("not your message")
	ErrBadSchedule   = errors.New("unrecognised schedule value")
	ErrInvalidTarget = errors.New("message must target an application or a topic, not both")
)

// Pagination bounds for message listings.
const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// DefaultPriority is applied when a publish carries no priority and no
// application default applies.
const DefaultPriority = 5

// Message holds a row from the messages table. The tags, actions, and extras
// columns store JSON as text; they are deserialized when building a View.
type Message struct {
	ID            int64      `json:"id"`
	ApplicationID *int64     `json:"application_id"`
	TopicID       *int64     `json:"topic_id"`
	UserID        *int64     `json:"user_id"`
	Title         *string    `json:"title"`
	Message       string     `json:"message"`
	Priority      int        `json:"priority"`
	Tags          *string    `json:"tags"`
	ClickURL      *string    `json:"click_url"`
	IconURL       *string    `json:"icon_url"`
	Actions       *string    `json:"actions"`
	Extras        *string    `json:"extras"`
	ContentType   *string    `json:"content_type"`
	ScheduledFor  *time.Time `json:"scheduled_for"`
	DeliveredAt   *time.Time `json:"delivered_at"`
	ExpiresAt     *time.Time `json:"expires_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// View is the read-side projection of a message: JSON-string columns are
// deserialized and the topic name is filled in. This is the payload carried by
// the subscription fabric and returned from every publish and list endpoint.
type View struct {
	ID          int64           `json:"id"`
	AppID       *int64          `json:"appid,omitempty"`
	Topic       *string         `json:"topic,omitempty"`
	Title       *string         `json:"title,omitempty"`
	Message     string          `json:"message"`
	Priority    int             `json:"priority"`
	Tags        json.RawMessage `json:"tags,omitempty"`
	ClickURL    *string         `json:"click_url,omitempty"`
	IconURL     *string         `json:"icon_url,omitempty"`
	Actions     json.RawMessage `json:"actions,omitempty"`
	Extras      json.RawMessage `json:"extras,omitempty"`
	ContentType *string         `json:"content_type,omitempty"`
	Date        time.Time       `json:"date"`
}

// ToView builds the response projection for the message. topicName is the
// resolved name for topic messages and empty for application messages.
func (m *Message) ToView(topicName string) View {
	v := View{
		ID:          m.ID,
		AppID:       m.ApplicationID,
		Title:       m.Title,
		Message:     m.Message,
		Priority:    m.Priority,
		ClickURL:    m.ClickURL,
		IconURL:     m.IconURL,
		ContentType: m.ContentType,
		Date:        m.CreatedAt,
	}
	if topicName != "" {
		v.Topic = &topicName
	}
	v.Tags = rawJSON(m.Tags)
	v.Actions = rawJSON(m.Actions)
	v.Extras = rawJSON(m.Extras)
	return v
}

// rawJSON converts a JSON-string column into a RawMessage, dropping values
// that fail to parse so a corrupt column never breaks response encoding.
func rawJSON(s *string) json.RawMessage {
	if s == nil || *s == "" {
		return nil
	}
	if !json.Valid([]byte(*s)) {
		return nil
	}
	return json.RawMessage(*s)
}

// CreateParams groups the inputs for persisting a message. At most one of
// ApplicationID and TopicID may be set.
type CreateParams struct {
	ApplicationID *int64
	TopicID       *int64
	UserID        *int64
	Title         *string
	Message       string
	Priority      int
	Tags          *string
	ClickURL      *string
	IconURL       *string
	Actions       *string
	Extras        *string
	ContentType   *string
	ScheduledFor  *time.Time
}

// ValidateContent checks the byte-length bounds on a message body.
func ValidateContent(content string, maxSize int) error {
	if len(content) < 1 || len(content) > maxSize {
		return ErrLength
	}
	return nil
}

// ClampLimit constrains a requested page size to [1, MaxLimit], defaulting to
// DefaultLimit when the input is zero or negative.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Repository defines the data-access contract for message operations.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Message, error)
	GetByID(ctx context.Context, id int64) (*Message, error)
	ListByUserApps(ctx context.Context, userID int64, limit int, since int64) ([]Message, error)
	ListByApplication(ctx context.Context, appID int64, limit int, since int64) ([]Message, error)
	ListByTopic(ctx context.Context, topicID int64, limit int, since int64) ([]Message, error)
	DeleteByID(ctx context.Context, id int64) error
	DeleteAllForUser(ctx context.Context, userID int64) error
	DeleteAllForApplication(ctx context.Context, appID int64) error
	SetExpiresAt(ctx context.Context, id int64, expiresAt time.Time) error
	DeleteExpired(ctx context.Context) (int64, error)
	ClaimScheduled(ctx context.Context) ([]Message, error)
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}
