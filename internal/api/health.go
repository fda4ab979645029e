package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthHandler serves the liveness and version endpoints.
type HealthHandler struct {
	db      *pgxpool.Pool
	version string
	commit  string
	date    string
}

// NewHealthHandler creates a health handler. Version metadata comes from
// ldflags at build time.
func NewHealthHandler(db *pgxpool.Pool, version, commit, date string) *HealthHandler {
	return &HealthHandler{db: db, version: version, commit: commit, date: date}
}

// Health handles GET /health. It pings the database and reports green or red.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	dbStatus := "ok"
	health := "green"
	status := fiber.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		dbStatus = "error"
		health = "red"
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"health":   health,
		"database": dbStatus,
	})
}

// Version handles GET /version.
func (h *HealthHandler) Version(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":      "pushbin",
		"version":   h.version,
		"commit":    h.commit,
		"buildDate": h.date,
	})
}
