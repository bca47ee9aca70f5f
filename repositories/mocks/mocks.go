// Package mocks provides testify mocks of the repository interfaces for service tests.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/repositories"
	"github.com/stretchr/testify/mock"
)

// MembershipRepository is a mock of repositories.MembershipRepository
type MembershipRepository struct {
	mock.Mock
}

func (m *MembershipRepository) Create(ctx context.Context, mem *models.Membership) error {
	return m.Called(ctx, mem).Error(0)
}

func (m *MembershipRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MembershipRepository) GetByUserAndOrganization(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, userID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MembershipRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.MemberWithUser, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MemberWithUser), args.Error(1)
}

func (m *MembershipRepository) FindFirstOwner(ctx context.Context, orgID uuid.UUID) (*models.MemberWithUser, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MemberWithUser), args.Error(1)
}

func (m *MembershipRepository) FindFirstOwnedByUser(ctx context.Context, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MembershipRepository) CountByRole(ctx context.Context, orgID uuid.UUID, role models.MemberRole) (int, error) {
	args := m.Called(ctx, orgID, role)
	return args.Int(0), args.Error(1)
}

func (m *MembershipRepository) UpdateRole(ctx context.Context, orgID, memberID uuid.UUID, role models.MemberRole) error {
	return m.Called(ctx, orgID, memberID, role).Error(0)
}

func (m *MembershipRepository) Delete(ctx context.Context, orgID, memberID uuid.UUID) error {
	return m.Called(ctx, orgID, memberID).Error(0)
}

// OutlineRepository is a mock of repositories.OutlineRepository
type OutlineRepository struct {
	mock.Mock
}

func (m *OutlineRepository) Create(ctx context.Context, o *models.Outline) error {
	return m.Called(ctx, o).Error(0)
}

func (m *OutlineRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Outline, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Outline), args.Error(1)
}

func (m *OutlineRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Outline, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Outline), args.Error(1)
}

func (m *OutlineRepository) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error) {
	args := m.Called(ctx, orgID)
	return args.Int(0), args.Error(1)
}

func (m *OutlineRepository) Update(ctx context.Context, o *models.Outline) error {
	return m.Called(ctx, o).Error(0)
}

func (m *OutlineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// OrganizationRepository is a mock of repositories.OrganizationRepository
type OrganizationRepository struct {
	mock.Mock
}

func (m *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	return m.Called(ctx, org).Error(0)
}

func (m *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *OrganizationRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Organization), args.Error(1)
}

// UserRepository is a mock of repositories.UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// InvitationRepository is a mock of repositories.InvitationRepository
type InvitationRepository struct {
	mock.Mock
}

func (m *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *InvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *InvitationRepository) FindPending(ctx context.Context, orgID uuid.UUID, email string) (*models.Invitation, error) {
	args := m.Called(ctx, orgID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *InvitationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.InvitationStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

// SessionRepository is a mock of repositories.SessionRepository
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *SessionRepository) SetActiveOrganization(ctx context.Context, sessionID, orgID uuid.UUID) error {
	return m.Called(ctx, sessionID, orgID).Error(0)
}

func (m *SessionRepository) ClearActiveOrganization(ctx context.Context, userID, orgID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// TransactionManager runs callbacks inline without a database
type TransactionManager struct {
	mock.Mock
}

func (m *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repositories.Transaction), args.Error(1)
}

// InTransaction invokes fn directly. Register an expectation only when a test
// needs to simulate a begin failure; otherwise it is not recorded.
func (m *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if len(m.ExpectedCalls) > 0 {
		if err := m.Called(ctx).Error(0); err != nil {
			return err
		}
	}
	return fn(ctx, nil)
}

var (
	_ repositories.MembershipRepository   = (*MembershipRepository)(nil)
	_ repositories.OutlineRepository      = (*OutlineRepository)(nil)
	_ repositories.OrganizationRepository = (*OrganizationRepository)(nil)
	_ repositories.UserRepository         = (*UserRepository)(nil)
	_ repositories.InvitationRepository   = (*InvitationRepository)(nil)
	_ repositories.SessionRepository      = (*SessionRepository)(nil)
	_ repositories.TransactionManager     = (*TransactionManager)(nil)
)
