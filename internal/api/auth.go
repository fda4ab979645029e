package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/auth"
	"github.com/pushbin/pushbin-server/internal/httputil"
	"github.com/pushbin/pushbin-server/internal/user"
)

// AuthHandler serves the login endpoint.
type AuthHandler struct {
	users     user.Repository
	jwtSecret string
	jwtTTL    time.Duration
	log       zerolog.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(users user.Repository, jwtSecret string, jwtTTL time.Duration, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, jwtTTL: jwtTTL, log: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login. It verifies the credentials and returns
// a session JWT.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body loginRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	u, err := h.users.GetByUsername(c.Context(), body.Username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.log.Warn().Str("username", body.Username).Msg("Login failed: unknown username")
			return httputil.Fail(c, fiber.StatusUnauthorized, "Invalid credentials")
		}
		return mapError(c, err)
	}

	valid, err := auth.VerifyPassword(body.Password, u.PasswordHash)
	if err != nil {
		return mapError(c, err)
	}
	if !valid {
		h.log.Warn().Str("username", body.Username).Msg("Login failed: wrong password")
		return httputil.Fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	token, err := auth.NewSessionToken(u.ID, u.Username, u.IsAdmin, h.jwtSecret, h.jwtTTL)
	if err != nil {
		return mapError(c, err)
	}

	h.log.Info().Str("username", u.Username).Int64("user_id", u.ID).Msg("Login successful")
	return c.JSON(fiber.Map{"token": token})
}
