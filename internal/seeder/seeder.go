// Package seeder creates the bootstrap admin account at startup so a fresh
// deployment has a way to mint issuers.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"certledger/internal/identity/models"
	identityservice "certledger/internal/identity/service"
	dErrors "certledger/pkg/domain-errors"
)

// Config carries the bootstrap admin credentials, usually from the
// environment. An empty username disables seeding.
type Config struct {
	Username string
	Email    string
	Password string
}

// EnsureAdmin registers the bootstrap admin if it does not exist yet.
// Re-running against an existing account is a no-op, so it is safe on every
// startup.
func EnsureAdmin(ctx context.Context, identity *identityservice.Service, cfg Config, logger *slog.Logger) error {
	if cfg.Username == "" {
		return nil
	}

	_, err := identity.Register(ctx, identityservice.RegisterRequest{
		Username: cfg.Username,
		Email:    cfg.Email,
		Password: cfg.Password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			if logger != nil {
				logger.InfoContext(ctx, "bootstrap admin already present", "username", cfg.Username)
			}
			return nil
		}
		return fmt.Errorf("seed bootstrap admin: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "bootstrap admin created", "username", cfg.Username)
	}
	return nil
}
