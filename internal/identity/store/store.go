package store

import (
	"context"

	"certledger/internal/identity/models"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound (wrapped) when the requested user does not exist
// - Return sentinel.ErrConflict (wrapped) when a uniqueness constraint is violated
// - Return wrapped errors with context for infrastructure failures
//
// Usernames passed to the store are already lowercased by the service layer.
type Store interface {
	Save(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateRole(ctx context.Context, username string, role models.Role) error
	UpdateActive(ctx context.Context, username string, active bool) error
}
