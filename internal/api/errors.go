package api

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/pushbin/pushbin-server/internal/application"
	"github.com/pushbin/pushbin-server/internal/attachment"
	"github.com/pushbin/pushbin-server/internal/client"
	"github.com/pushbin/pushbin-server/internal/httputil"
	"github.com/pushbin/pushbin-server/internal/message"
	"github.com/pushbin/pushbin-server/internal/permission"
	"github.com/pushbin/pushbin-server/internal/push"
	"github.com/pushbin/pushbin-server/internal/storage"
	"github.com/pushbin/pushbin-server/internal/topic"
	"github.com/pushbin/pushbin-server/internal/user"
	"github.com/pushbin/pushbin-server/internal/webhook"
)

// Request-level sentinels shared by the handlers.
var (
	errInvalidID = errors.New("invalid id")
	errNotOwner  = errors.New("forbidden")
)

// notFoundErrs and the slices below collect each domain package's sentinels so
// every handler can share one mapping to HTTP statuses.
var notFoundErrs = []error{
	user.ErrNotFound, application.ErrNotFound, client.ErrNotFound, topic.ErrNotFound,
	permission.ErrNotFound, message.ErrNotFound, attachment.ErrNotFound,
	webhook.ErrNotFound, push.ErrNotFound, storage.ErrKeyNotFound,
}

var conflictErrs = []error{
	user.ErrAlreadyExists, topic.ErrAlreadyExists, application.ErrAlreadyExists,
	client.ErrAlreadyExists, webhook.ErrAlreadyExists, push.ErrAlreadyExists,
}

var validationErrs = []error{
	user.ErrUsernameLength, user.ErrPasswordTooShort,
	application.ErrNameLength,
	topic.ErrNameLength, topic.ErrNameChars,
	message.ErrLength, message.ErrBadSchedule,
	attachment.ErrNoFile,
}

// mapError converts a domain error into the wire error shape. Unrecognised
// errors are treated as database/internal failures: the original is logged and
// the response message is scrubbed.
func mapError(c fiber.Ctx, err error) error {
	for _, sentinel := range notFoundErrs {
		if errors.Is(err, sentinel) {
			return httputil.Fail(c, fiber.StatusNotFound, sentinel.Error())
		}
	}
	for _, sentinel := range conflictErrs {
		if errors.Is(err, sentinel) {
			return httputil.Fail(c, fiber.StatusConflict, sentinel.Error())
		}
	}
	for _, sentinel := range validationErrs {
		if errors.Is(err, sentinel) {
			return httputil.Fail(c, fiber.StatusBadRequest, sentinel.Error())
		}
	}
	if errors.Is(err, webhook.ErrDisabled) {
		return httputil.Fail(c, fiber.StatusForbidden, webhook.ErrDisabled.Error())
	}
	if errors.Is(err, errInvalidID) {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid id")
	}
	if errors.Is(err, errNotOwner) {
		return httputil.Fail(c, fiber.StatusForbidden, "Forbidden")
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	return httputil.Fail(c, fiber.StatusInternalServerError, "Internal database error")
}
