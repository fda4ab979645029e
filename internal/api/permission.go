package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/auth"
	"github.com/pushbin/pushbin-server/internal/httputil"
	"github.com/pushbin/pushbin-server/internal/permission"
)

// PermissionHandler serves topic permission management.
type PermissionHandler struct {
	perms permission.Repository
	log   zerolog.Logger
}

// NewPermissionHandler creates a permission handler.
func NewPermissionHandler(perms permission.Repository, logger zerolog.Logger) *PermissionHandler {
	return &PermissionHandler{perms: perms, log: logger}
}

type createPermissionRequest struct {
	UserID       int64  `json:"user_id"`
	TopicPattern string `json:"topic_pattern"`
	CanRead      *bool  `json:"can_read"`
	CanWrite     *bool  `json:"can_write"`
}

// Create handles POST /api/permissions (admin).
func (h *PermissionHandler) Create(c fiber.Ctx) error {
	var body createPermissionRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if body.TopicPattern == "" {
		return httputil.Fail(c, fiber.StatusBadRequest, "topic_pattern must not be empty")
	}

	canRead, canWrite := false, false
	if body.CanRead != nil {
		canRead = *body.CanRead
	}
	if body.CanWrite != nil {
		canWrite = *body.CanWrite
	}

	p, err := h.perms.Create(c.Context(), body.UserID, body.TopicPattern, canRead, canWrite)
	if err != nil {
		return mapError(c, err)
	}
	return httputil.JSONStatus(c, fiber.StatusCreated, p)
}

// List handles GET /api/permissions. Admins see all permissions; other users
// see their own.
func (h *PermissionHandler) List(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)

	var (
		perms []permission.TopicPermission
		err   error
	)
	if p.IsAdmin() {
		perms, err = h.perms.List(c.Context())
	} else {
		perms, err = h.perms.ListForUser(c.Context(), p.User.ID)
	}
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(perms)
}

// Delete handles DELETE /api/permissions/{id} (admin).
func (h *PermissionHandler) Delete(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapError(c, errInvalidID)
	}
	if err := h.perms.Delete(c.Context(), id); err != nil {
		return mapError(c, err)
	}
	return httputil.Success(c)
}
