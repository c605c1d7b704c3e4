package store

import (
	"context"

	"certledger/internal/credential/models"
)

// Error Contract:
// - FindByDigest returns sentinel.ErrNotFound (wrapped) when no record matches
// - Save returns wrapped infrastructure errors; digests are NOT unique, so a
//   repeated issuance of the same canonical payload stores a second record
// - List returns records in insertion order (oldest first)
type Store interface {
	Save(ctx context.Context, credential *models.Credential) error
	FindByDigest(ctx context.Context, digest string) (*models.Credential, error)
	List(ctx context.Context) ([]*models.Credential, error)
}
