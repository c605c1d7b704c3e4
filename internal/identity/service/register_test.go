package service

import (
	"context"
	"fmt"

	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"certledger/internal/audit"
	"certledger/internal/identity/models"
	"certledger/internal/sentinel"
	dErrors "certledger/pkg/domain-errors"
)

func (s *ServiceSuite) TestRegisterSuccess() {
	ctx := context.Background()

	s.mockStore.EXPECT().FindByUsername(ctx, "alice").Return(nil, sentinel.ErrNotFound)
	s.mockStore.EXPECT().FindByEmail(ctx, "alice@test.com").Return(nil, sentinel.ErrNotFound)
	s.mockStore.EXPECT().Save(ctx, gomock.Any()).Return(nil)
	s.mockAuditPublisher.EXPECT().Emit(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, event audit.Event) error {
			s.Equal(audit.ActionUserCreated, event.Action)
			s.Equal("alice", event.Subject)
			return nil
		})

	user, err := s.service.Register(ctx, RegisterRequest{
		Username: "alice",
		Email:    "alice@test.com",
		Password: "super-secret",
	})
	s.Require().NoError(err)

	s.Equal("alice", user.Username)
	s.Equal(models.RoleUser, user.Role)
	s.True(user.Active)
	s.NotEqual("super-secret", user.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("super-secret")))
}

func (s *ServiceSuite) TestRegisterLowercasesUsername() {
	ctx := context.Background()

	s.mockStore.EXPECT().FindByUsername(ctx, "mixedcase").Return(nil, sentinel.ErrNotFound)
	s.mockStore.EXPECT().FindByEmail(ctx, gomock.Any()).Return(nil, sentinel.ErrNotFound)
	s.mockStore.EXPECT().Save(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, user *models.User) error {
			s.Equal("mixedcase", user.Username)
			return nil
		})
	s.mockAuditPublisher.EXPECT().Emit(ctx, gomock.Any()).Return(nil)

	user, err := s.service.Register(ctx, RegisterRequest{
		Username: "MixedCase",
		Email:    "mixed@test.com",
		Password: "super-secret",
	})
	s.Require().NoError(err)
	s.Equal("mixedcase", user.Username)
}

func (s *ServiceSuite) TestRegisterValidation() {
	ctx := context.Background()

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{name: "short username", req: RegisterRequest{Username: "ab", Email: "a@b.com", Password: "super-secret"}},
		{name: "illegal characters", req: RegisterRequest{Username: "bad name!", Email: "a@b.com", Password: "super-secret"}},
		{name: "bad email", req: RegisterRequest{Username: "alice", Email: "not-an-email", Password: "super-secret"}},
		{name: "short password", req: RegisterRequest{Username: "alice", Email: "a@b.com", Password: "short"}},
		{name: "unknown role", req: RegisterRequest{Username: "alice", Email: "a@b.com", Password: "super-secret", Role: "superuser"}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Register(ctx, tt.req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "want validation error, got %v", err)
		})
	}
}

func (s *ServiceSuite) TestRegisterDuplicateUsername() {
	ctx := context.Background()

	s.mockStore.EXPECT().FindByUsername(ctx, "alice").Return(s.newTestUser("alice", models.RoleUser), nil)

	_, err := s.service.Register(ctx, RegisterRequest{
		Username: "alice",
		Email:    "other@test.com",
		Password: "super-secret",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestRegisterDuplicateEmail() {
	ctx := context.Background()

	s.mockStore.EXPECT().FindByUsername(ctx, "newuser").Return(nil, sentinel.ErrNotFound)
	s.mockStore.EXPECT().FindByEmail(ctx, "taken@test.com").Return(s.newTestUser("other", models.RoleUser), nil)

	_, err := s.service.Register(ctx, RegisterRequest{
		Username: "newuser",
		Email:    "taken@test.com",
		Password: "super-secret",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestRegisterStoreConflictRace() {
	// The precheck can pass and the store still reject on its unique
	// constraint; that surfaces as a conflict, not an internal error.
	ctx := context.Background()

	s.mockStore.EXPECT().FindByUsername(ctx, "alice").Return(nil, sentinel.ErrNotFound)
	s.mockStore.EXPECT().FindByEmail(ctx, gomock.Any()).Return(nil, sentinel.ErrNotFound)
	s.mockStore.EXPECT().Save(ctx, gomock.Any()).Return(fmt.Errorf("duplicate key: %w", sentinel.ErrConflict))

	_, err := s.service.Register(ctx, RegisterRequest{
		Username: "alice",
		Email:    "alice@test.com",
		Password: "super-secret",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestRegisterAuditFailureDoesNotFailRegistration() {
	ctx := context.Background()

	s.mockStore.EXPECT().FindByUsername(ctx, "alice").Return(nil, sentinel.ErrNotFound)
	s.mockStore.EXPECT().FindByEmail(ctx, gomock.Any()).Return(nil, sentinel.ErrNotFound)
	s.mockStore.EXPECT().Save(ctx, gomock.Any()).Return(nil)
	s.mockAuditPublisher.EXPECT().Emit(ctx, gomock.Any()).Return(fmt.Errorf("kafka down"))

	_, err := s.service.Register(ctx, RegisterRequest{
		Username: "alice",
		Email:    "alice@test.com",
		Password: "super-secret",
	})
	s.NoError(err)
}
