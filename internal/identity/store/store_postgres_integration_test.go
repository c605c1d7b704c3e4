//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certledger/internal/identity/models"
	"certledger/internal/identity/store"
	"certledger/internal/sentinel"
	"certledger/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) newUser(username string) *models.User {
	return &models.User{
		Username:     username,
		Email:        username + "@test.com",
		PasswordHash: "$2a$04$notarealhashnotarealhashnotarealhash",
		Role:         models.RoleUser,
		Active:       true,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestSaveAndFindRoundTrip() {
	ctx := context.Background()
	user := s.newUser("alice")

	s.Require().NoError(s.store.Save(ctx, user))

	found, err := s.store.FindByUsername(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(user.Username, found.Username)
	s.Equal(user.Email, found.Email)
	s.Equal(user.PasswordHash, found.PasswordHash)
	s.Equal(user.Role, found.Role)
	s.True(found.Active)
	s.WithinDuration(user.CreatedAt, found.CreatedAt, time.Second)
}

func (s *PostgresStoreSuite) TestSaveDuplicateUsernameConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.newUser("alice")))

	dup := s.newUser("alice")
	dup.Email = "other@test.com"
	s.ErrorIs(s.store.Save(ctx, dup), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestSaveDuplicateEmailConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.newUser("alice")))

	dup := s.newUser("bob")
	dup.Email = "alice@test.com"
	s.ErrorIs(s.store.Save(ctx, dup), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindByEmail() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.newUser("alice")))

	found, err := s.store.FindByEmail(ctx, "alice@test.com")
	s.Require().NoError(err)
	s.Equal("alice", found.Username)
}

func (s *PostgresStoreSuite) TestFindMissingUser() {
	ctx := context.Background()

	_, err := s.store.FindByUsername(ctx, "ghost")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByEmail(ctx, "ghost@test.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOrderedByUsername() {
	ctx := context.Background()
	for _, name := range []string{"carol", "alice", "bob"} {
		s.Require().NoError(s.store.Save(ctx, s.newUser(name)))
	}

	users, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 3)
	s.Equal("alice", users[0].Username)
	s.Equal("bob", users[1].Username)
	s.Equal("carol", users[2].Username)
}

func (s *PostgresStoreSuite) TestUpdateRole() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.newUser("alice")))

	s.Require().NoError(s.store.UpdateRole(ctx, "alice", models.RoleIssuer))

	found, err := s.store.FindByUsername(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(models.RoleIssuer, found.Role)
}

func (s *PostgresStoreSuite) TestUpdateActive() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.newUser("alice")))

	s.Require().NoError(s.store.UpdateActive(ctx, "alice", false))

	found, err := s.store.FindByUsername(ctx, "alice")
	s.Require().NoError(err)
	s.False(found.Active)
}

func (s *PostgresStoreSuite) TestUpdateMissingUser() {
	ctx := context.Background()

	s.ErrorIs(s.store.UpdateRole(ctx, "ghost", models.RoleAdmin), sentinel.ErrNotFound)
	s.ErrorIs(s.store.UpdateActive(ctx, "ghost", false), sentinel.ErrNotFound)
}
