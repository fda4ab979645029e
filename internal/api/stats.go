package api

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/message"
	"github.com/pushbin/pushbin-server/internal/topic"
	"github.com/pushbin/pushbin-server/internal/user"
)

// StatsHandler serves the admin dashboard statistics.
type StatsHandler struct {
	users    user.Repository
	topics   topic.Repository
	messages message.Repository
	log      zerolog.Logger
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(users user.Repository, topics topic.Repository, messages message.Repository, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{users: users, topics: topics, messages: messages, log: logger}
}

// Get handles GET /api/stats (admin).
func (h *StatsHandler) Get(c fiber.Ctx) error {
	users, err := h.users.Count(c.Context())
	if err != nil {
		return mapError(c, err)
	}
	topics, err := h.topics.Count(c.Context())
	if err != nil {
		return mapError(c, err)
	}
	messages, err := h.messages.Count(c.Context())
	if err != nil {
		return mapError(c, err)
	}
	last24h, err := h.messages.CountSince(c.Context(), time.Now().Add(-24*time.Hour))
	if err != nil {
		return mapError(c, err)
	}

	return c.JSON(fiber.Map{
		"users":             users,
		"topics":            topics,
		"messages":          messages,
		"messages_last_24h": last24h,
	})
}
