package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certledger/internal/identity/models"
	"certledger/internal/sentinel"
)

func testUser(username string) *models.User {
	return &models.User{
		Username:     username,
		Email:        username + "@test.com",
		PasswordHash: "$2a$10$fakehash",
		Role:         models.RoleUser,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestMemorySaveAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Save(ctx, testUser("alice")))

	byName, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", byName.Username)

	byEmail, err := s.FindByEmail(ctx, "alice@test.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", byEmail.Username)
}

func TestMemoryFindNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = s.FindByEmail(ctx, "ghost@test.com")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemorySaveConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Save(ctx, testUser("alice")))

	err := s.Save(ctx, testUser("alice"))
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	sameEmail := testUser("bob")
	sameEmail.Email = "alice@test.com"
	err = s.Save(ctx, sameEmail)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestMemoryReturnsClones(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Save(ctx, testUser("alice")))

	first, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	first.Role = models.RoleAdmin // mutate the returned copy

	second, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, second.Role)
}

func TestMemoryUpdateRole(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Save(ctx, testUser("alice")))

	require.NoError(t, s.UpdateRole(ctx, "alice", models.RoleIssuer))

	user, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleIssuer, user.Role)

	assert.ErrorIs(t, s.UpdateRole(ctx, "ghost", models.RoleIssuer), sentinel.ErrNotFound)
}

func TestMemoryUpdateActive(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Save(ctx, testUser("alice")))

	require.NoError(t, s.UpdateActive(ctx, "alice", false))

	user, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, user.Active)

	assert.ErrorIs(t, s.UpdateActive(ctx, "ghost", false), sentinel.ErrNotFound)
}

func TestMemoryList(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Save(ctx, testUser("alice")))
	require.NoError(t, s.Save(ctx, testUser("bob")))

	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
