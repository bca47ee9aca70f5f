// Package mocks provides a testify mock of identity.Provider.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/acme/outline-api/identity"
	"github.com/acme/outline-api/models"
	"github.com/stretchr/testify/mock"
)

// Provider is a mock of identity.Provider
type Provider struct {
	mock.Mock
}

var _ identity.Provider = (*Provider)(nil)

func (m *Provider) SignUp(ctx context.Context, email, password, name string) (*identity.AuthResult, error) {
	args := m.Called(ctx, email, password, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.AuthResult), args.Error(1)
}

func (m *Provider) SignIn(ctx context.Context, email, password string) (*identity.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.AuthResult), args.Error(1)
}

func (m *Provider) SignOut(ctx context.Context, sessionID uuid.UUID) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *Provider) ResolveSession(ctx context.Context, token string) (models.AuthContext, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(models.AuthContext), args.Error(1)
}

func (m *Provider) CurrentSession(ctx context.Context, caller models.AuthContext) (*identity.SessionView, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.SessionView), args.Error(1)
}

func (m *Provider) CreateOrganization(ctx context.Context, caller models.AuthContext, name, slug string) (*models.Organization, error) {
	args := m.Called(ctx, caller, name, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *Provider) ListOrganizations(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Organization), args.Error(1)
}

func (m *Provider) SetActiveOrganization(ctx context.Context, caller models.AuthContext, orgID uuid.UUID) error {
	return m.Called(ctx, caller, orgID).Error(0)
}

func (m *Provider) CreateInvitation(ctx context.Context, caller models.AuthContext, orgID uuid.UUID, email string, role models.MemberRole) (*models.Invitation, error) {
	args := m.Called(ctx, caller, orgID, email, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *Provider) AcceptInvitation(ctx context.Context, caller models.AuthContext, invitationID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, caller, invitationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *Provider) UpdateMemberRole(ctx context.Context, orgID, memberID uuid.UUID, role models.MemberRole) (*models.MemberWithUser, error) {
	args := m.Called(ctx, orgID, memberID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MemberWithUser), args.Error(1)
}

func (m *Provider) RemoveMember(ctx context.Context, orgID, memberID uuid.UUID) error {
	return m.Called(ctx, orgID, memberID).Error(0)
}

func (m *Provider) Close() error {
	return nil
}
