package store

import (
	"context"
	"fmt"
	"sync"

	"certledger/internal/credential/models"
	"certledger/internal/sentinel"
)

// InMemoryStore stores credentials in memory. Used for tests and for running
// the service without a configured database.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []*models.Credential
}

// NewMemory constructs an empty in-memory credential store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Save(_ context.Context, credential *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *credential
	s.records = append(s.records, &clone)
	return nil
}

// FindByDigest returns the oldest record with the given digest. Digests are
// not unique, so duplicates resolve to the first issuance.
func (s *InMemoryStore) FindByDigest(_ context.Context, digest string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records {
		if record.Digest == digest {
			clone := *record
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Credential, 0, len(s.records))
	for _, record := range s.records {
		clone := *record
		out = append(out, &clone)
	}
	return out, nil
}

// Tamper overwrites a stored record in place. Exposed for integrity tests
// only; the service layer never mutates a stored credential.
func (s *InMemoryStore) Tamper(digest string, mutate func(*models.Credential)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.Digest == digest {
			mutate(record)
			return true
		}
	}
	return false
}
