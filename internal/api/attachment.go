package api

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/attachment"
	"github.com/pushbin/pushbin-server/internal/httputil"
	"github.com/pushbin/pushbin-server/internal/message"
	"github.com/pushbin/pushbin-server/internal/storage"
)

// AttachmentHandler serves attachment upload and download.
type AttachmentHandler struct {
	attachments attachment.Repository
	messages    message.Repository
	storage     storage.Provider
	log         zerolog.Logger
}

// NewAttachmentHandler creates an attachment handler.
func NewAttachmentHandler(attachments attachment.Repository, messages message.Repository, store storage.Provider, logger zerolog.Logger) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments, messages: messages, storage: store, log: logger}
}

// Upload handles POST /api/messages/{id}/attachments. The stored filename is
// the sanitized client name behind a freshly minted opaque prefix, so
// concurrent uploads of the same name never collide.
func (h *AttachmentHandler) Upload(c fiber.Ctx) error {
	messageID, err := paramID(c, "id")
	if err != nil {
		return mapError(c, errInvalidID)
	}

	if _, err := h.messages.GetByID(c.Context(), messageID); err != nil {
		return mapError(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return mapError(c, attachment.ErrNoFile)
	}

	filename := attachment.SanitizeFilename(fh.Filename)
	key := attachment.StorageKey(filename)

	f, err := fh.Open()
	if err != nil {
		return mapError(c, err)
	}
	defer func() { _ = f.Close() }()

	if err := h.storage.Put(c.Context(), key, f); err != nil {
		return mapError(c, err)
	}

	var contentType *string
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		contentType = &ct
	}

	a, err := h.attachments.Create(c.Context(), attachment.CreateParams{
		MessageID:   messageID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   fh.Size,
		StorageType: storage.TypeLocal,
		StoragePath: key,
	})
	if err != nil {
		_ = h.storage.Delete(c.Context(), key)
		return mapError(c, err)
	}

	return httputil.JSONStatus(c, fiber.StatusCreated, a)
}

// Download handles GET /api/attachments/{id}. The Content-Disposition filename
// is re-sanitized so a row written by an older version cannot inject header
// content.
func (h *AttachmentHandler) Download(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return mapError(c, errInvalidID)
	}

	a, err := h.attachments.GetByID(c.Context(), id)
	if err != nil {
		return mapError(c, err)
	}

	rc, err := h.storage.Get(c.Context(), a.StoragePath)
	if err != nil {
		return mapError(c, err)
	}

	contentType := "application/octet-stream"
	if a.ContentType != nil && *a.ContentType != "" {
		contentType = *a.ContentType
	}
	c.Set("Content-Type", contentType)
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.SanitizeFilename(a.Filename)))

	return c.SendStream(rc)
}
