// Package bootstrap seeds a fresh database with the initial admin account.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/pushbin/pushbin-server/internal/auth"
	"github.com/pushbin/pushbin-server/internal/user"
)

// Default credentials seeded on first boot. Operators are expected to rotate
// the password immediately.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin"
)

// SeedAdmin creates the default admin account when the users table is empty.
// It logs a prominent warning because the seeded credentials are public
// knowledge.
func SeedAdmin(ctx context.Context, users user.Repository) error {
	count, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	u, err := users.Create(ctx, user.CreateParams{
		Username:     DefaultAdminUsername,
		PasswordHash: hash,
		IsAdmin:      true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	log.Warn().Int64("user_id", u.ID).
		Msg("Seeded default admin account (admin/admin). Change the password immediately.")
	return nil
}
