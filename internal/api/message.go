package api

import (
	"encoding/json"

	contribws "github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/application"
	"github.com/pushbin/pushbin-server/internal/auth"
	"github.com/pushbin/pushbin-server/internal/client"
	"github.com/pushbin/pushbin-server/internal/httputil"
	"github.com/pushbin/pushbin-server/internal/message"
	"github.com/pushbin/pushbin-server/internal/stream"
)

// MessageHandler serves the application-model publish, list, delete, and
// stream endpoints.
type MessageHandler struct {
	messages message.Repository
	apps     application.Repository
	clients  client.Repository
	hub      *stream.Hub
	maxSize  int
	log      zerolog.Logger
}

// NewMessageHandler creates a message handler.
func NewMessageHandler(messages message.Repository, apps application.Repository, clients client.Repository, hub *stream.Hub, maxSize int, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, apps: apps, clients: clients, hub: hub, maxSize: maxSize, log: logger}
}

type createAppMessageRequest struct {
	Title    *string         `json:"title"`
	Message  string          `json:"message"`
	Priority *int            `json:"priority"`
	Extras   json.RawMessage `json:"extras"`
}

// Create handles POST /message: structured publish authorized by an
// application token. Persistence happens before fan-out, so a subscriber that
// receives the frame can always fetch the message by id.
func (h *MessageHandler) Create(c fiber.Ctx) error {
	p := auth.AppPrincipalFrom(c)

	var body createAppMessageRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := message.ValidateContent(body.Message, h.maxSize); err != nil {
		return mapError(c, err)
	}

	priority := p.App.DefaultPriority
	if body.Priority != nil {
		priority = *body.Priority
	}

	var extras *string
	if len(body.Extras) > 0 {
		s := string(body.Extras)
		extras = &s
	}

	m, err := h.messages.Create(c.Context(), message.CreateParams{
		ApplicationID: &p.App.ID,
		UserID:        &p.User.ID,
		Title:         body.Title,
		Message:       body.Message,
		Priority:      priority,
		Extras:        extras,
	})
	if err != nil {
		return mapError(c, err)
	}

	view := m.ToView("")
	h.hub.BroadcastToUser(p.User.ID, view)

	return c.JSON(view)
}

// List handles GET /message: the authenticated user's aggregated application
// messages, paged by id.
func (h *MessageHandler) List(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)

	limit := message.ClampLimit(fiber.Query[int](c, "limit"))
	since := int64(fiber.Query[int](c, "since"))

	msgs, err := h.messages.ListByUserApps(c.Context(), p.User.ID, limit, since)
	if err != nil {
		return mapError(c, err)
	}

	views := make([]message.View, len(msgs))
	for i := range msgs {
		views[i] = msgs[i].ToView("")
	}

	return c.JSON(fiber.Map{
		"messages": views,
		"paging": fiber.Map{
			"size":  len(views),
			"since": since,
			"limit": limit,
		},
	})
}

// DeleteAll handles DELETE /message. It removes the user's application
// messages and the topic messages attributed to the user.
func (h *MessageHandler) DeleteAll(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)
	if err := h.messages.DeleteAllForUser(c.Context(), p.User.ID); err != nil {
		return mapError(c, err)
	}
	return httputil.Success(c)
}

// Delete handles DELETE /message/{id}. Admins may delete anything; otherwise
// ownership is checked through the message's application, or through the
// attributed user for topic messages.
func (h *MessageHandler) Delete(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)

	id, err := paramID(c, "id")
	if err != nil {
		return mapError(c, errInvalidID)
	}

	m, err := h.messages.GetByID(c.Context(), id)
	if err != nil {
		return mapError(c, err)
	}

	if !p.IsAdmin() {
		owned := false
		if m.ApplicationID != nil {
			app, err := h.apps.GetByID(c.Context(), *m.ApplicationID)
			if err == nil && app.UserID == p.User.ID {
				owned = true
			}
		} else if m.UserID != nil && *m.UserID == p.User.ID {
			owned = true
		}
		if !owned {
			return httputil.Fail(c, fiber.StatusForbidden, "Not your message")
		}
	}

	if err := h.messages.DeleteByID(c.Context(), id); err != nil {
		return mapError(c, err)
	}
	return httputil.Success(c)
}

// Stream handles GET /stream?token=CL_…: upgrades to a WebSocket carrying the
// owning user's aggregate stream. Authentication uses the client token from
// the query because browsers cannot set headers on WebSocket requests.
func (h *MessageHandler) Stream(c fiber.Ctx) error {
	if !contribws.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := auth.ExtractToken(c)
	if token == "" {
		return httputil.Fail(c, fiber.StatusUnauthorized, "Token required")
	}

	cl, err := h.clients.GetByToken(c.Context(), token)
	if err != nil {
		return httputil.Fail(c, fiber.StatusUnauthorized, "Invalid token")
	}
	userID := cl.UserID

	return contribws.New(func(conn *contribws.Conn) {
		sub := h.hub.SubscribeUser(userID)
		serveSubscription(conn.Conn, sub, h.log)
	})(c)
}
