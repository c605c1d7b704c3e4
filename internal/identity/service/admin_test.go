package service

import (
	"context"
	"fmt"

	"certledger/internal/audit"
	"certledger/internal/identity/models"
	"certledger/internal/sentinel"
	dErrors "certledger/pkg/domain-errors"
)

func (s *ServiceSuite) TestSetRoleSuccess() {
	ctx := context.Background()

	s.mockStore.EXPECT().UpdateRole(ctx, "alice", models.RoleIssuer).Return(nil)
	s.mockAuditPublisher.EXPECT().Emit(ctx, eventWithAction(audit.ActionRoleChanged)).Return(nil)

	s.NoError(s.service.SetRole(ctx, "admin", "Alice", models.RoleIssuer))
}

func (s *ServiceSuite) TestSetRoleUnknownRole() {
	err := s.service.SetRole(context.Background(), "admin", "alice", "superuser")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestSetRoleUnknownUser() {
	ctx := context.Background()

	s.mockStore.EXPECT().UpdateRole(ctx, "ghost", models.RoleIssuer).Return(sentinel.ErrNotFound)

	err := s.service.SetRole(ctx, "admin", "ghost", models.RoleIssuer)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestSetActiveDeactivates() {
	ctx := context.Background()

	s.mockStore.EXPECT().UpdateActive(ctx, "alice", false).Return(nil)
	s.mockAuditPublisher.EXPECT().Emit(ctx, eventWithAction(audit.ActionUserDeactivated)).Return(nil)

	s.NoError(s.service.SetActive(ctx, "admin", "alice", false))
}

func (s *ServiceSuite) TestSetActiveReactivates() {
	ctx := context.Background()

	s.mockStore.EXPECT().UpdateActive(ctx, "alice", true).Return(nil)
	s.mockAuditPublisher.EXPECT().Emit(ctx, eventWithAction(audit.ActionUserActivated)).Return(nil)

	s.NoError(s.service.SetActive(ctx, "admin", "alice", true))
}

func (s *ServiceSuite) TestSetActiveUnknownUser() {
	ctx := context.Background()

	s.mockStore.EXPECT().UpdateActive(ctx, "ghost", false).Return(sentinel.ErrNotFound)

	err := s.service.SetActive(ctx, "admin", "ghost", false)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestGetUnknownUser() {
	ctx := context.Background()

	s.mockStore.EXPECT().FindByUsername(ctx, "ghost").Return(nil, sentinel.ErrNotFound)

	_, err := s.service.Get(ctx, "ghost")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestResolveReturnsStoreFreshIdentity() {
	ctx := context.Background()
	stored := s.newTestUser("alice", models.RoleIssuer)
	stored.Active = false

	s.mockStore.EXPECT().FindByUsername(ctx, "alice").Return(stored, nil)

	identity, err := s.service.Resolve(ctx, "alice")
	s.Require().NoError(err)
	s.Equal("alice", identity.Username)
	s.Equal(models.RoleIssuer, identity.Role)
	s.False(identity.Active)
}

func (s *ServiceSuite) TestListStoreOutage() {
	ctx := context.Background()

	s.mockStore.EXPECT().List(ctx).Return(nil, fmt.Errorf("connection refused"))

	_, err := s.service.List(ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}
