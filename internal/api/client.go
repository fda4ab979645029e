package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/auth"
	"github.com/pushbin/pushbin-server/internal/client"
	"github.com/pushbin/pushbin-server/internal/httputil"
)

// ClientHandler serves client CRUD.
type ClientHandler struct {
	clients client.Repository
	log     zerolog.Logger
}

// NewClientHandler creates a client handler.
func NewClientHandler(clients client.Repository, logger zerolog.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, log: logger}
}

// List handles GET /client.
func (h *ClientHandler) List(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)
	clients, err := h.clients.ListByUser(c.Context(), p.User.ID)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(clients)
}

type clientRequest struct {
	Name string `json:"name"`
}

// Create handles POST /client.
func (h *ClientHandler) Create(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)

	var body clientRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if body.Name == "" {
		return httputil.Fail(c, fiber.StatusBadRequest, "Client name must not be empty")
	}

	cl, err := h.clients.Create(c.Context(), p.User.ID, body.Name, auth.NewClientToken())
	if err != nil {
		return mapError(c, err)
	}
	return httputil.JSONStatus(c, fiber.StatusCreated, cl)
}

// Update handles PUT /client/{id}.
func (h *ClientHandler) Update(c fiber.Ctx) error {
	cl, err := h.ownedClient(c)
	if err != nil {
		return mapError(c, err)
	}

	var body clientRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if body.Name == "" {
		return httputil.Fail(c, fiber.StatusBadRequest, "Client name must not be empty")
	}

	updated, err := h.clients.Update(c.Context(), cl.ID, body.Name)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(updated)
}

// Delete handles DELETE /client/{id}.
func (h *ClientHandler) Delete(c fiber.Ctx) error {
	cl, err := h.ownedClient(c)
	if err != nil {
		return mapError(c, err)
	}

	if err := h.clients.Delete(c.Context(), cl.ID); err != nil {
		return mapError(c, err)
	}
	return httputil.Success(c)
}

// ownedClient loads the client from the id path parameter and checks ownership.
func (h *ClientHandler) ownedClient(c fiber.Ctx) (*client.Client, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, errInvalidID
	}

	cl, err := h.clients.GetByID(c.Context(), id)
	if err != nil {
		return nil, err
	}

	p := auth.PrincipalFrom(c)
	if cl.UserID != p.User.ID && !p.IsAdmin() {
		return nil, errNotOwner
	}

	return cl, nil
}
