package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	contribws "github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/pushbin/pushbin-server/internal/auth"
	"github.com/pushbin/pushbin-server/internal/httputil"
	"github.com/pushbin/pushbin-server/internal/message"
	"github.com/pushbin/pushbin-server/internal/permission"
	"github.com/pushbin/pushbin-server/internal/stream"
	"github.com/pushbin/pushbin-server/internal/topic"
	"github.com/pushbin/pushbin-server/internal/webhook"
)

// sseKeepAliveInterval is how often an idle event stream emits a comment so
// intermediaries do not drop the connection.
const sseKeepAliveInterval = 15 * time.Second

// TopicHandler serves topic CRUD, publish, and the per-topic streams.
type TopicHandler struct {
	topics     topic.Repository
	perms      permission.Repository
	messages   message.Repository
	hub        *stream.Hub
	dispatcher *webhook.Dispatcher
	maxSize    int
	log        zerolog.Logger
}

// NewTopicHandler creates a topic handler.
func NewTopicHandler(
	topics topic.Repository,
	perms permission.Repository,
	messages message.Repository,
	hub *stream.Hub,
	dispatcher *webhook.Dispatcher,
	maxSize int,
	logger zerolog.Logger,
) *TopicHandler {
	return &TopicHandler{
		topics:     topics,
		perms:      perms,
		messages:   messages,
		hub:        hub,
		dispatcher: dispatcher,
		maxSize:    maxSize,
		log:        logger,
	}
}

type createTopicRequest struct {
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	EveryoneRead  *bool   `json:"everyone_read"`
	EveryoneWrite *bool   `json:"everyone_write"`
}

// Create handles POST /api/topics.
func (h *TopicHandler) Create(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)

	var body createTopicRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	name, err := topic.ValidateName(body.Name)
	if err != nil {
		return mapError(c, err)
	}

	everyoneRead, everyoneWrite := true, true
	if body.EveryoneRead != nil {
		everyoneRead = *body.EveryoneRead
	}
	if body.EveryoneWrite != nil {
		everyoneWrite = *body.EveryoneWrite
	}

	t, err := h.topics.Create(c.Context(), topic.CreateParams{
		Name:          name,
		OwnerID:       &p.User.ID,
		Description:   body.Description,
		EveryoneRead:  everyoneRead,
		EveryoneWrite: everyoneWrite,
	})
	if err != nil {
		return mapError(c, err)
	}
	return httputil.JSONStatus(c, fiber.StatusCreated, t)
}

// List handles GET /api/topics. Admins see every topic; other users see the
// topics they can read.
func (h *TopicHandler) List(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)

	all, err := h.topics.List(c.Context())
	if err != nil {
		return mapError(c, err)
	}

	if p.IsAdmin() {
		return c.JSON(all)
	}

	perms, err := h.perms.ListForUser(c.Context(), p.User.ID)
	if err != nil {
		return mapError(c, err)
	}

	visible := make([]topic.Topic, 0, len(all))
	for _, t := range all {
		if t.EveryoneRead ||
			(t.OwnerID != nil && *t.OwnerID == p.User.ID) ||
			permission.CanRead(perms, t.Name) {
			visible = append(visible, t)
		}
	}
	return c.JSON(visible)
}

// Get handles GET /api/topics/{name}.
func (h *TopicHandler) Get(c fiber.Ctx) error {
	t, err := h.readableTopic(c)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(t)
}

// Delete handles DELETE /api/topics/{name} (owner or admin).
func (h *TopicHandler) Delete(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)

	t, err := h.topics.GetByName(c.Context(), c.Params("name"))
	if err != nil {
		return mapError(c, err)
	}

	if !p.IsAdmin() && (t.OwnerID == nil || *t.OwnerID != p.User.ID) {
		return httputil.Fail(c, fiber.StatusForbidden, "Not your topic")
	}

	if err := h.topics.Delete(c.Context(), t.ID); err != nil {
		return mapError(c, err)
	}
	return httputil.Success(c)
}

type publishTopicRequest struct {
	Title        *string         `json:"title"`
	Message      string          `json:"message"`
	Priority     *int            `json:"priority"`
	Tags         []string        `json:"tags"`
	ClickURL     *string         `json:"click_url"`
	IconURL      *string         `json:"icon_url"`
	Actions      json.RawMessage `json:"actions"`
	ScheduledFor *string         `json:"scheduled_for"`
}

// Publish handles POST /api/topics/{name}/publish. The message persists, then
// fans out to live subscribers unless scheduled, and fires outgoing webhooks
// asynchronously.
func (h *TopicHandler) Publish(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)

	t, err := h.writableTopic(c)
	if err != nil {
		return mapError(c, err)
	}

	var body publishTopicRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := message.ValidateContent(body.Message, h.maxSize); err != nil {
		return mapError(c, err)
	}

	priority := message.DefaultPriority
	if body.Priority != nil {
		priority = *body.Priority
	}

	var scheduledFor *time.Time
	if body.ScheduledFor != nil && *body.ScheduledFor != "" {
		st, err := message.ParseSchedule(*body.ScheduledFor, time.Now())
		if err != nil {
			return mapError(c, err)
		}
		scheduledFor = &st
	}

	var tags *string
	if len(body.Tags) > 0 {
		b, err := json.Marshal(body.Tags)
		if err != nil {
			return mapError(c, err)
		}
		s := string(b)
		tags = &s
	}

	var actions *string
	if len(body.Actions) > 0 {
		s := string(body.Actions)
		actions = &s
	}

	m, err := h.messages.Create(c.Context(), message.CreateParams{
		TopicID:      &t.ID,
		UserID:       &p.User.ID,
		Title:        body.Title,
		Message:      body.Message,
		Priority:     priority,
		Tags:         tags,
		ClickURL:     body.ClickURL,
		IconURL:      body.IconURL,
		Actions:      actions,
		ScheduledFor: scheduledFor,
	})
	if err != nil {
		return mapError(c, err)
	}

	view := m.ToView(t.Name)
	if scheduledFor == nil {
		h.hub.BroadcastToTopic(t.Name, view)
		h.dispatcher.Fire(c.Context(), t.Name, view)
	}

	return c.JSON(view)
}

// WebSocket handles GET /api/topics/{name}/ws.
func (h *TopicHandler) WebSocket(c fiber.Ctx) error {
	if !contribws.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	t, err := h.readableTopic(c)
	if err != nil {
		return mapError(c, err)
	}
	name := t.Name

	return contribws.New(func(conn *contribws.Conn) {
		sub := h.hub.SubscribeTopic(name)
		serveSubscription(conn.Conn, sub, h.log)
	})(c)
}

// SSE handles GET /api/topics/{name}/sse: a server-sent event stream with
// keep-alive comments while idle.
func (h *TopicHandler) SSE(c fiber.Ctx) error {
	t, err := h.readableTopic(c)
	if err != nil {
		return mapError(c, err)
	}
	name := t.Name

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	sub := h.hub.SubscribeTopic(name)
	log := h.log

	c.RequestCtx().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Close()

		for {
			waitCtx, cancel := context.WithTimeout(context.Background(), sseKeepAliveInterval)
			view, lagged, err := sub.Next(waitCtx)
			cancel()

			if errors.Is(err, context.DeadlineExceeded) {
				fmt.Fprint(w, ": keep-alive\n\n")
				if w.Flush() != nil {
					return
				}
				continue
			}
			if err != nil {
				return
			}
			if lagged > 0 {
				log.Debug().Uint64("skipped", lagged).Str("topic", name).Msg("Slow SSE consumer skipped frames")
			}

			data, err := json.Marshal(view)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			if w.Flush() != nil {
				return
			}
		}
	}))

	return nil
}

// ListMessages handles GET /api/topics/{name}/json and its /messages alias:
// the topic's history, paged by id.
func (h *TopicHandler) ListMessages(c fiber.Ctx) error {
	t, err := h.readableTopic(c)
	if err != nil {
		return mapError(c, err)
	}

	limit := message.ClampLimit(fiber.Query[int](c, "limit"))
	since := int64(fiber.Query[int](c, "since"))

	msgs, err := h.messages.ListByTopic(c.Context(), t.ID, limit, since)
	if err != nil {
		return mapError(c, err)
	}

	views := make([]message.View, len(msgs))
	for i := range msgs {
		views[i] = msgs[i].ToView(t.Name)
	}
	return c.JSON(views)
}

// readableTopic loads the topic from the name path parameter and enforces read
// access: admin, everyone_read, owner, or a matching can_read permission.
func (h *TopicHandler) readableTopic(c fiber.Ctx) (*topic.Topic, error) {
	return h.accessTopic(c, permission.CanRead, func(t *topic.Topic) bool { return t.EveryoneRead })
}

// writableTopic is the write-side analogue of readableTopic.
func (h *TopicHandler) writableTopic(c fiber.Ctx) (*topic.Topic, error) {
	return h.accessTopic(c, permission.CanWrite, func(t *topic.Topic) bool { return t.EveryoneWrite })
}

func (h *TopicHandler) accessTopic(
	c fiber.Ctx,
	allowed func([]permission.TopicPermission, string) bool,
	everyone func(*topic.Topic) bool,
) (*topic.Topic, error) {
	p := auth.PrincipalFrom(c)

	t, err := h.topics.GetByName(c.Context(), c.Params("name"))
	if err != nil {
		return nil, err
	}

	if p.IsAdmin() || everyone(t) || (t.OwnerID != nil && *t.OwnerID == p.User.ID) {
		return t, nil
	}

	perms, err := h.perms.ListForUser(c.Context(), p.User.ID)
	if err != nil {
		return nil, err
	}
	if allowed(perms, t.Name) {
		return t, nil
	}

	return nil, errNotOwner
}
