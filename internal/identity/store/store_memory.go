package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"certledger/internal/identity/models"
	"certledger/internal/sentinel"
)

// InMemoryStore stores users in memory. Used for tests and for running the
// service without a configured database.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

// NewMemory constructs an empty in-memory user store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{users: make(map[string]*models.User)}
}

func (s *InMemoryStore) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return fmt.Errorf("username already exists: %w", sentinel.ErrConflict)
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return fmt.Errorf("email already exists: %w", sentinel.ErrConflict)
		}
	}
	clone := *user
	s.users[user.Username] = &clone
	return nil
}

func (s *InMemoryStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[username]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*models.User, 0, len(s.users))
	for _, user := range s.users {
		clone := *user
		users = append(users, &clone)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *InMemoryStore) UpdateRole(_ context.Context, username string, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user.Role = role
	return nil
}

func (s *InMemoryStore) UpdateActive(_ context.Context, username string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user.Active = active
	return nil
}
