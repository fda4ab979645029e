package api

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/auth"
	"github.com/pushbin/pushbin-server/internal/httputil"
	"github.com/pushbin/pushbin-server/internal/message"
	"github.com/pushbin/pushbin-server/internal/permission"
	"github.com/pushbin/pushbin-server/internal/stream"
	"github.com/pushbin/pushbin-server/internal/topic"
	"github.com/pushbin/pushbin-server/internal/webhook"
)

// EmailSender sends a notification email. It is satisfied by the SMTP client;
// a nil sender disables the Email header.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// PublishHandler serves the catch-all POST|PUT /{topic} endpoint: the body is
// the message, metadata rides in headers.
type PublishHandler struct {
	topics     topic.Repository
	perms      permission.Repository
	messages   message.Repository
	hub        *stream.Hub
	dispatcher *webhook.Dispatcher
	email      EmailSender
	maxSize    int
	log        zerolog.Logger
}

// NewPublishHandler creates a catch-all publish handler. email may be nil when
// SMTP is not configured.
func NewPublishHandler(
	topics topic.Repository,
	perms permission.Repository,
	messages message.Repository,
	hub *stream.Hub,
	dispatcher *webhook.Dispatcher,
	email EmailSender,
	maxSize int,
	logger zerolog.Logger,
) *PublishHandler {
	return &PublishHandler{
		topics:     topics,
		perms:      perms,
		messages:   messages,
		hub:        hub,
		dispatcher: dispatcher,
		email:      email,
		maxSize:    maxSize,
		log:        logger,
	}
}

// Publish handles POST|PUT /{topic}. The raw body is decoded as UTF-8 (lossily
// for invalid sequences) and persisted with the header metadata; the created
// message view is returned.
func (h *PublishHandler) Publish(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)

	t, err := h.topics.GetByName(c.Context(), c.Params("topic"))
	if err != nil {
		return mapError(c, err)
	}

	if !p.IsAdmin() && !t.EveryoneWrite && (t.OwnerID == nil || *t.OwnerID != p.User.ID) {
		perms, err := h.perms.ListForUser(c.Context(), p.User.ID)
		if err != nil {
			return mapError(c, err)
		}
		if !permission.CanWrite(perms, t.Name) {
			return httputil.Fail(c, fiber.StatusForbidden, "No write permission for this topic")
		}
	}

	body := strings.ToValidUTF8(string(c.Body()), "�")
	if err := message.ValidateContent(body, h.maxSize); err != nil {
		return mapError(c, err)
	}

	now := time.Now()
	headers := ParsePublishHeaders(func(key string) string { return c.Get(key) }, now)

	priority := 3
	if headers.Priority != nil {
		priority = *headers.Priority
	}

	var tags *string
	if len(headers.Tags) > 0 {
		b, err := json.Marshal(headers.Tags)
		if err != nil {
			return mapError(c, err)
		}
		s := string(b)
		tags = &s
	}

	m, err := h.messages.Create(c.Context(), message.CreateParams{
		TopicID:      &t.ID,
		UserID:       &p.User.ID,
		Title:        headers.Title,
		Message:      body,
		Priority:     priority,
		Tags:         tags,
		ClickURL:     headers.ClickURL,
		IconURL:      headers.IconURL,
		Actions:      headers.Actions,
		ContentType:  headers.ContentType,
		ScheduledFor: headers.ScheduledFor,
	})
	if err != nil {
		return mapError(c, err)
	}

	if headers.CacheDuration != nil {
		if err := h.messages.SetExpiresAt(c.Context(), m.ID, now.Add(*headers.CacheDuration)); err != nil {
			h.log.Warn().Err(err).Int64("message_id", m.ID).Msg("Failed to set message expiry")
		} else {
			expires := now.Add(*headers.CacheDuration)
			m.ExpiresAt = &expires
		}
	}

	view := m.ToView(t.Name)

	if headers.ScheduledFor == nil {
		h.hub.BroadcastToTopic(t.Name, view)
		h.dispatcher.Fire(c.Context(), t.Name, view)
	}

	if headers.Email != nil && h.email != nil {
		h.sendEmail(*headers.Email, t.Name, headers.Title, body)
	}

	return c.JSON(view)
}

// sendEmail delivers the notification copy asynchronously. Failures are logged
// and never surface to the publisher.
func (h *PublishHandler) sendEmail(to, topicName string, title *string, body string) {
	subject := "Notification from " + topicName
	if title != nil && *title != "" {
		subject = *title
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.email.Send(ctx, to, subject, body); err != nil {
			h.log.Warn().Err(err).Str("to", to).Msg("Failed to send notification email")
		}
	}()
}
