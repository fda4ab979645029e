package api

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/auth"
	"github.com/pushbin/pushbin-server/internal/httputil"
	"github.com/pushbin/pushbin-server/internal/message"
	"github.com/pushbin/pushbin-server/internal/user"
)

// UserHandler serves current-user and admin user-management endpoints.
type UserHandler struct {
	users    user.Repository
	messages message.Repository
	log      zerolog.Logger
}

// NewUserHandler creates a user handler.
func NewUserHandler(users user.Repository, messages message.Repository, logger zerolog.Logger) *UserHandler {
	return &UserHandler{users: users, messages: messages, log: logger}
}

// GetCurrent handles GET /current/user.
func (h *UserHandler) GetCurrent(c fiber.Ctx) error {
	return c.JSON(auth.PrincipalFrom(c).User)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles POST /current/user/password.
func (h *UserHandler) ChangePassword(c fiber.Ctx) error {
	p := auth.PrincipalFrom(c)

	var body changePasswordRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	valid, err := auth.VerifyPassword(body.CurrentPassword, p.User.PasswordHash)
	if err != nil {
		return mapError(c, err)
	}
	if !valid {
		return httputil.Fail(c, fiber.StatusUnauthorized, "Current password is incorrect")
	}

	if err := user.ValidatePassword(body.NewPassword); err != nil {
		return mapError(c, err)
	}

	hash, err := auth.HashPassword(body.NewPassword)
	if err != nil {
		return mapError(c, err)
	}
	if err := h.users.UpdatePasswordHash(c.Context(), p.User.ID, hash); err != nil {
		return mapError(c, err)
	}

	return httputil.Success(c)
}

// List handles GET /user (admin).
func (h *UserHandler) List(c fiber.Ctx) error {
	users, err := h.users.List(c.Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(users)
}

// Get handles GET /user/{id} (admin).
func (h *UserHandler) Get(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid user id")
	}
	u, err := h.users.GetByID(c.Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(u)
}

type createUserRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    *string `json:"email"`
	IsAdmin  *bool   `json:"is_admin"`
}

// Create handles POST /user (admin).
func (h *UserHandler) Create(c fiber.Ctx) error {
	var body createUserRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	username, err := user.ValidateUsername(body.Username)
	if err != nil {
		return mapError(c, err)
	}
	if err := user.ValidatePassword(body.Password); err != nil {
		return mapError(c, err)
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		return mapError(c, err)
	}

	isAdmin := false
	if body.IsAdmin != nil {
		isAdmin = *body.IsAdmin
	}

	u, err := h.users.Create(c.Context(), user.CreateParams{
		Username:     username,
		PasswordHash: hash,
		Email:        body.Email,
		IsAdmin:      isAdmin,
	})
	if err != nil {
		return mapError(c, err)
	}

	return httputil.JSONStatus(c, fiber.StatusCreated, u)
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	IsAdmin  *bool   `json:"is_admin"`
}

// Update handles PUT /user/{id} (admin).
func (h *UserHandler) Update(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid user id")
	}

	var body updateUserRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if body.Username != nil {
		username, err := user.ValidateUsername(*body.Username)
		if err != nil {
			return mapError(c, err)
		}
		body.Username = &username
	}

	u, err := h.users.Update(c.Context(), id, user.UpdateParams{
		Username: body.Username,
		Email:    body.Email,
		IsAdmin:  body.IsAdmin,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(u)
}

// Delete handles DELETE /user/{id} (admin). Owned entities cascade; messages
// attributed to the user through its applications or topic publishes are
// removed explicitly first.
func (h *UserHandler) Delete(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "Invalid user id")
	}

	if err := h.messages.DeleteAllForUser(c.Context(), id); err != nil {
		return mapError(c, err)
	}
	if err := h.users.Delete(c.Context(), id); err != nil {
		return mapError(c, err)
	}
	return httputil.Success(c)
}

// paramID parses a numeric path parameter.
func paramID(c fiber.Ctx, name string) (int64, error) {
	return strconv.ParseInt(c.Params(name), 10, 64)
}
