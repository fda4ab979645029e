package api

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/auth"
	"github.com/pushbin/pushbin-server/internal/httputil"
	"github.com/pushbin/pushbin-server/internal/push"
)

// PushHandler serves the push-relay endpoints: device registration and the
// opaque forwarding endpoint.
type PushHandler struct {
	registrations push.Repository
	forwarder     *push.Forwarder
	log           zerolog.Logger
}

// NewPushHandler creates a push handler.
func NewPushHandler(registrations push.Repository, forwarder *push.Forwarder, logger zerolog.Logger) *PushHandler {
	return &PushHandler{registrations: registrations, forwarder: forwarder, log: logger}
}

// Relay handles POST /UP?token=<opaque>. The body is forwarded to the
// registered endpoint; forwarding failures are logged but acknowledged with
// 200 because the relay is best-effort.
func (h *PushHandler) Relay(c fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return httputil.Fail(c, fiber.StatusBadRequest, "token query parameter required")
	}

	reg, err := h.registrations.GetByToken(c.Context(), token)
	if err != nil {
		return mapError(c, err)
	}

	body := make([]byte, len(c.Body()))
	copy(body, c.Body())
	go h.forwarder.Forward(context.Background(), reg, body)

	return httputil.Success(c)
}

type registerPushRequest struct {
	Endpoint string `json:"endpoint"`
}

// Register handles POST /api/up/register. The returned registration carries
// the server-minted token the device presents on the relay endpoint.
func (h *PushHandler) Register(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)

	var body registerPushRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if _, err := url.ParseRequestURI(body.Endpoint); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "endpoint must be a valid URL")
	}

	reg, err := h.registrations.Create(c.Context(), uuid.NewString(), &p.User.ID, body.Endpoint)
	if err != nil {
		return mapError(c, err)
	}
	return httputil.JSONStatus(c, fiber.StatusCreated, reg)
}

// List handles GET /api/up/registrations.
func (h *PushHandler) List(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)
	regs, err := h.registrations.ListByUser(c.Context(), p.User.ID)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(regs)
}

// Delete handles DELETE /api/up/registrations/{id}.
func (h *PushHandler) Delete(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapError(c, errInvalidID)
	}

	reg, err := h.registrations.GetByID(c.Context(), id)
	if err != nil {
		return mapError(c, err)
	}

	p := auth.PrincipalFrom(c)
	if (reg.UserID == nil || *reg.UserID != p.User.ID) && !p.IsAdmin() {
		return httputil.Fail(c, fiber.StatusForbidden, "Not your registration")
	}

	if err := h.registrations.Delete(c.Context(), id); err != nil {
		return mapError(c, err)
	}
	return httputil.Success(c)
}
