package service

import (
	"context"
	"fmt"

	"certledger/internal/audit"
	"certledger/internal/identity/models"
	"certledger/internal/sentinel"
	dErrors "certledger/pkg/domain-errors"
)

const uniformAuthMessage = "incorrect username or password"

func (s *ServiceSuite) TestAuthenticateSuccess() {
	ctx := context.Background()
	stored := s.newTestUser("alice", models.RoleIssuer)

	s.mockStore.EXPECT().FindByUsername(ctx, "alice").Return(stored, nil)

	user, err := s.service.Authenticate(ctx, "Alice", "correct-password")
	s.Require().NoError(err)
	s.Equal("alice", user.Username)
	s.Equal(models.RoleIssuer, user.Role)
}

func (s *ServiceSuite) TestAuthenticateUnknownUser() {
	ctx := context.Background()

	s.mockStore.EXPECT().FindByUsername(ctx, "ghost").Return(nil, sentinel.ErrNotFound)
	s.mockAuditPublisher.EXPECT().Emit(ctx, eventWithAction(audit.ActionLoginFailed)).Return(nil)

	_, err := s.service.Authenticate(ctx, "ghost", "whatever-password")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Equal(uniformAuthMessage, err.Error())
}

func (s *ServiceSuite) TestAuthenticateWrongPassword() {
	ctx := context.Background()
	stored := s.newTestUser("alice", models.RoleUser)

	s.mockStore.EXPECT().FindByUsername(ctx, "alice").Return(stored, nil)
	s.mockAuditPublisher.EXPECT().Emit(ctx, eventWithAction(audit.ActionLoginFailed)).Return(nil)

	_, err := s.service.Authenticate(ctx, "alice", "wrong-password")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Equal(uniformAuthMessage, err.Error())
}

func (s *ServiceSuite) TestAuthenticateUniformFailureMessage() {
	// Unknown user and wrong password must be indistinguishable to the caller.
	ctx := context.Background()
	stored := s.newTestUser("alice", models.RoleUser)

	s.mockStore.EXPECT().FindByUsername(ctx, "ghost").Return(nil, sentinel.ErrNotFound)
	s.mockStore.EXPECT().FindByUsername(ctx, "alice").Return(stored, nil)
	s.mockAuditPublisher.EXPECT().Emit(ctx, eventWithAction(audit.ActionLoginFailed)).Return(nil).Times(2)

	_, unknownErr := s.service.Authenticate(ctx, "ghost", "whatever")
	_, wrongErr := s.service.Authenticate(ctx, "alice", "wrong-password")

	s.Require().Error(unknownErr)
	s.Require().Error(wrongErr)
	s.Equal(unknownErr.Error(), wrongErr.Error())
}

func (s *ServiceSuite) TestAuthenticateDeactivatedUserStillVerifies() {
	// The active flag is enforced at token consumption, not here.
	ctx := context.Background()
	stored := s.newTestUser("alice", models.RoleUser)
	stored.Active = false

	s.mockStore.EXPECT().FindByUsername(ctx, "alice").Return(stored, nil)

	user, err := s.service.Authenticate(ctx, "alice", "correct-password")
	s.Require().NoError(err)
	s.False(user.Active)
}

func (s *ServiceSuite) TestAuthenticateStoreOutage() {
	ctx := context.Background()

	s.mockStore.EXPECT().FindByUsername(ctx, "alice").Return(nil, fmt.Errorf("connection refused"))

	_, err := s.service.Authenticate(ctx, "alice", "correct-password")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}
