package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/auth"
	"github.com/pushbin/pushbin-server/internal/httputil"
	"github.com/pushbin/pushbin-server/internal/message"
	"github.com/pushbin/pushbin-server/internal/stream"
	"github.com/pushbin/pushbin-server/internal/topic"
	"github.com/pushbin/pushbin-server/internal/webhook"
)

// WebhookHandler serves webhook config CRUD and the incoming webhook sink.
type WebhookHandler struct {
	webhooks   webhook.Repository
	topics     topic.Repository
	messages   message.Repository
	hub        *stream.Hub
	dispatcher *webhook.Dispatcher
	log        zerolog.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(
	webhooks webhook.Repository,
	topics topic.Repository,
	messages message.Repository,
	hub *stream.Hub,
	dispatcher *webhook.Dispatcher,
	logger zerolog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		webhooks:   webhooks,
		topics:     topics,
		messages:   messages,
		hub:        hub,
		dispatcher: dispatcher,
		log:        logger,
	}
}

type createWebhookRequest struct {
	Name                string          `json:"name"`
	WebhookType         string          `json:"webhook_type"`
	TargetTopicID       *int64          `json:"target_topic_id"`
	TargetApplicationID *int64          `json:"target_application_id"`
	Template            json.RawMessage `json:"template"`
	Enabled             *bool           `json:"enabled"`
	Direction           *string         `json:"direction"`
	TargetURL           *string         `json:"target_url"`
	HTTPMethod          *string         `json:"http_method"`
	Headers             *string         `json:"headers"`
	BodyTemplate        *string         `json:"body_template"`
	MaxRetries          *int            `json:"max_retries"`
	RetryDelaySecs      *int            `json:"retry_delay_secs"`
}

// Create handles POST /api/webhooks.
func (h *WebhookHandler) Create(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)

	var body createWebhookRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if body.Name == "" {
		return httputil.Fail(c, fiber.StatusBadRequest, "Webhook name must not be empty")
	}

	webhookType := body.WebhookType
	if webhookType == "" {
		webhookType = webhook.TypeGeneric
	}

	template := "{}"
	if len(body.Template) > 0 {
		template = string(body.Template)
	}

	params := webhook.CreateParams{
		UserID:              p.User.ID,
		Name:                body.Name,
		Token:               auth.NewWebhookToken(),
		WebhookType:         webhookType,
		TargetTopicID:       body.TargetTopicID,
		TargetApplicationID: body.TargetApplicationID,
		Template:            template,
		Enabled:             true,
		Direction:           webhook.DirectionIncoming,
		HTTPMethod:          "POST",
		MaxRetries:          3,
		RetryDelaySecs:      5,
	}
	if body.Enabled != nil {
		params.Enabled = *body.Enabled
	}
	if body.Direction != nil {
		params.Direction = *body.Direction
	}
	if body.HTTPMethod != nil {
		params.HTTPMethod = *body.HTTPMethod
	}
	if body.MaxRetries != nil {
		params.MaxRetries = *body.MaxRetries
	}
	if body.RetryDelaySecs != nil {
		params.RetryDelaySecs = *body.RetryDelaySecs
	}
	params.TargetURL = body.TargetURL
	params.Headers = body.Headers
	params.BodyTemplate = body.BodyTemplate

	cfg, err := h.webhooks.Create(c.Context(), params)
	if err != nil {
		return mapError(c, err)
	}
	return httputil.JSONStatus(c, fiber.StatusCreated, cfg)
}

// List handles GET /api/webhooks.
func (h *WebhookHandler) List(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)
	configs, err := h.webhooks.ListByUser(c.Context(), p.User.ID)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(configs)
}

type updateWebhookRequest struct {
	Name         *string         `json:"name"`
	Template     json.RawMessage `json:"template"`
	Enabled      *bool           `json:"enabled"`
	TargetURL    *string         `json:"target_url"`
	BodyTemplate *string         `json:"body_template"`
}

// Update handles PUT /api/webhooks/{id}.
func (h *WebhookHandler) Update(c fiber.Ctx) error {
	cfg, err := h.ownedWebhook(c)
	if err != nil {
		return mapError(c, err)
	}

	var body updateWebhookRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	var template *string
	if len(body.Template) > 0 {
		s := string(body.Template)
		template = &s
	}

	updated, err := h.webhooks.Update(c.Context(), cfg.ID, webhook.UpdateParams{
		Name:         body.Name,
		Template:     template,
		Enabled:      body.Enabled,
		TargetURL:    body.TargetURL,
		BodyTemplate: body.BodyTemplate,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(updated)
}

// Delete handles DELETE /api/webhooks/{id}.
func (h *WebhookHandler) Delete(c fiber.Ctx) error {
	cfg, err := h.ownedWebhook(c)
	if err != nil {
		return mapError(c, err)
	}

	if err := h.webhooks.Delete(c.Context(), cfg.ID); err != nil {
		return mapError(c, err)
	}
	return httputil.Success(c)
}

// Receive handles POST /api/wh/{token}: the incoming webhook sink. The token
// in the path is the credential; the payload is projected into a message by
// webhook type and published to the config's target.
func (h *WebhookHandler) Receive(c fiber.Ctx) error {
	cfg, err := h.webhooks.GetByToken(c.Context(), c.Params("token"))
	if err != nil {
		return mapError(c, err)
	}
	if !cfg.Enabled {
		return mapError(c, webhook.ErrDisabled)
	}

	var payload map[string]any
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid JSON payload")
	}

	title, text := webhook.Project(cfg.WebhookType, payload)

	m, err := h.messages.Create(c.Context(), message.CreateParams{
		ApplicationID: cfg.TargetApplicationID,
		TopicID:       cfg.TargetTopicID,
		UserID:        &cfg.UserID,
		Title:         title,
		Message:       text,
		Priority:      message.DefaultPriority,
	})
	if err != nil {
		return mapError(c, err)
	}

	if cfg.TargetTopicID != nil {
		if t, err := h.topics.GetByID(c.Context(), *cfg.TargetTopicID); err == nil {
			view := m.ToView(t.Name)
			h.hub.BroadcastToTopic(t.Name, view)
			h.dispatcher.Fire(c.Context(), t.Name, view)
		}
	} else {
		h.hub.BroadcastToUser(cfg.UserID, m.ToView(""))
	}

	return c.JSON(fiber.Map{"success": true, "message_id": m.ID})
}

// ownedWebhook loads the webhook config from the id path parameter and checks
// ownership.
func (h *WebhookHandler) ownedWebhook(c fiber.Ctx) (*webhook.Config, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, errInvalidID
	}

	cfg, err := h.webhooks.GetByID(c.Context(), id)
	if err != nil {
		return nil, err
	}

	p := auth.PrincipalFrom(c)
	if cfg.UserID != p.User.ID && !p.IsAdmin() {
		return nil, errNotOwner
	}

	return cfg, nil
}
