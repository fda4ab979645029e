package api

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/application"
	"github.com/pushbin/pushbin-server/internal/attachment"
	"github.com/pushbin/pushbin-server/internal/auth"
	"github.com/pushbin/pushbin-server/internal/httputil"
	"github.com/pushbin/pushbin-server/internal/message"
	"github.com/pushbin/pushbin-server/internal/storage"
)

// maxIconBytes caps application icon uploads.
const maxIconBytes = 1 << 20

// ApplicationHandler serves application CRUD and icon management.
type ApplicationHandler struct {
	apps     application.Repository
	messages message.Repository
	storage  storage.Provider
	log      zerolog.Logger
}

// NewApplicationHandler creates an application handler.
func NewApplicationHandler(apps application.Repository, messages message.Repository, store storage.Provider, logger zerolog.Logger) *ApplicationHandler {
	return &ApplicationHandler{apps: apps, messages: messages, storage: store, log: logger}
}

// List handles GET /application.
func (h *ApplicationHandler) List(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)
	apps, err := h.apps.ListByUser(c.Context(), p.User.ID)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(apps)
}

type createApplicationRequest struct {
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	DefaultPriority *int    `json:"default_priority"`
}

// Create handles POST /application.
func (h *ApplicationHandler) Create(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)

	var body createApplicationRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	name, err := application.ValidateName(body.Name)
	if err != nil {
		return mapError(c, err)
	}

	priority := message.DefaultPriority
	if body.DefaultPriority != nil {
		priority = *body.DefaultPriority
	}

	app, err := h.apps.Create(c.Context(), application.CreateParams{
		UserID:          p.User.ID,
		Name:            name,
		Description:     body.Description,
		Token:           auth.NewAppToken(),
		DefaultPriority: priority,
	})
	if err != nil {
		return mapError(c, err)
	}
	return httputil.JSONStatus(c, fiber.StatusCreated, app)
}

type updateApplicationRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	DefaultPriority *int    `json:"default_priority"`
}

// Update handles PUT /application/{id}.
func (h *ApplicationHandler) Update(c fiber.Ctx) error {
	app, err := h.ownedApplication(c)
	if err != nil {
		return mapError(c, err)
	}

	var body updateApplicationRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if body.Name != nil {
		name, err := application.ValidateName(*body.Name)
		if err != nil {
			return mapError(c, err)
		}
		body.Name = &name
	}

	updated, err := h.apps.Update(c.Context(), app.ID, application.UpdateParams{
		Name:            body.Name,
		Description:     body.Description,
		DefaultPriority: body.DefaultPriority,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(updated)
}

// Delete handles DELETE /application/{id}.
func (h *ApplicationHandler) Delete(c fiber.Ctx) error {
	app, err := h.ownedApplication(c)
	if err != nil {
		return mapError(c, err)
	}

	if app.Image != nil {
		_ = h.storage.Delete(c.Context(), *app.Image)
	}
	if err := h.apps.Delete(c.Context(), app.ID); err != nil {
		return mapError(c, err)
	}
	return httputil.Success(c)
}

// ListMessages handles GET /application/{id}/messages.
func (h *ApplicationHandler) ListMessages(c fiber.Ctx) error {
	app, err := h.ownedApplication(c)
	if err != nil {
		return mapError(c, err)
	}

	limit := message.ClampLimit(fiber.Query[int](c, "limit"))
	since := int64(fiber.Query[int](c, "since"))

	msgs, err := h.messages.ListByApplication(c.Context(), app.ID, limit, since)
	if err != nil {
		return mapError(c, err)
	}

	views := make([]message.View, len(msgs))
	for i := range msgs {
		views[i] = msgs[i].ToView("")
	}
	return c.JSON(views)
}

// UploadIcon handles POST /application/{id}/icon. The multipart file must be
// an image and is capped at 1 MiB.
func (h *ApplicationHandler) UploadIcon(c fiber.Ctx) error {
	app, err := h.ownedApplication(c)
	if err != nil {
		return mapError(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "No file provided")
	}
	if fh.Size > maxIconBytes {
		return httputil.Fail(c, fiber.StatusRequestEntityTooLarge, "Icon must not exceed 1 MiB")
	}
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
		return httputil.Fail(c, fiber.StatusBadRequest, "Icon must be an image")
	}

	f, err := fh.Open()
	if err != nil {
		return mapError(c, err)
	}
	defer func() { _ = f.Close() }()

	key := "icons/" + attachment.StorageKey(attachment.SanitizeFilename(fh.Filename))
	if err := h.storage.Put(c.Context(), key, f); err != nil {
		return mapError(c, err)
	}

	if app.Image != nil {
		_ = h.storage.Delete(c.Context(), *app.Image)
	}

	updated, err := h.apps.UpdateImage(c.Context(), app.ID, &key)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(updated)
}

// GetIcon handles GET /application/{id}/icon. Icons are publicly readable so
// clients can render them without credentials.
func (h *ApplicationHandler) GetIcon(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapError(c, errInvalidID)
	}

	app, err := h.apps.GetByID(c.Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	if app.Image == nil {
		return httputil.Fail(c, fiber.StatusNotFound, "Application has no icon")
	}

	rc, err := h.storage.Get(c.Context(), *app.Image)
	if err != nil {
		return mapError(c, err)
	}
	return c.SendStream(rc)
}

// DeleteIcon handles DELETE /application/{id}/icon.
func (h *ApplicationHandler) DeleteIcon(c fiber.Ctx) error {
	app, err := h.ownedApplication(c)
	if err != nil {
		return mapError(c, err)
	}

	if app.Image != nil {
		_ = h.storage.Delete(c.Context(), *app.Image)
	}
	if _, err := h.apps.UpdateImage(c.Context(), app.ID, nil); err != nil {
		return mapError(c, err)
	}
	return httputil.Success(c)
}

// ownedApplication loads the application from the id path parameter and checks
// that the principal owns it or is an admin.
func (h *ApplicationHandler) ownedApplication(c fiber.Ctx) (*application.Application, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, errInvalidID
	}

	app, err := h.apps.GetByID(c.Context(), id)
	if err != nil {
		return nil, err
	}

	p := auth.PrincipalFrom(c)
	if app.UserID != p.User.ID && !p.IsAdmin() {
		return nil, errNotOwner
	}

	return app, nil
}
