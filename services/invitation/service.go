// Package invitation implements the owner-only team mutations: inviting,
// changing roles and removing members. Each operation passes the same gate
// before delegating to the identity provider.
package invitation

import (
	"context"

	"github.com/google/uuid"
	"github.com/acme/outline-api/identity"
	"github.com/acme/outline-api/internal/observability"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/services"
	"github.com/acme/outline-api/utils"
	"go.uber.org/zap"
)

// PermissionChecker resolves a role capability for a user in an organization
type PermissionChecker interface {
	CheckPermission(ctx context.Context, userID, orgID uuid.UUID, capability models.Capability) (*models.Membership, error)
}

// InviteInput is the invite payload. Role defaults to member.
type InviteInput struct {
	Email string            `json:"email" validate:"required,email,max=254"`
	Role  models.MemberRole `json:"role" validate:"omitempty,member_role"`
}

// UpdateRoleInput is the role change payload
type UpdateRoleInput struct {
	Role models.MemberRole `json:"role" validate:"required,member_role"`
}

// RemoveResult acknowledges a removal
type RemoveResult struct {
	Success bool `json:"success"`
}

// Service gates and delegates team mutations
type Service struct {
	provider identity.Provider
	guard    PermissionChecker
	logger   *zap.Logger
}

// NewService creates a new invitation service
func NewService(provider identity.Provider, guard PermissionChecker, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		guard:    guard,
		logger:   logger,
	}
}

// Invite creates a pending invitation for email in orgID
func (s *Service) Invite(ctx context.Context, caller models.AuthContext, orgID uuid.UUID, input InviteInput) (*models.Invitation, error) {
	if err := s.gate(ctx, caller, orgID, models.CapMemberCreate, services.ErrOwnerRequiredInvite); err != nil {
		return nil, err
	}
	if err := validate(input); err != nil {
		return nil, err
	}
	if input.Role == "" {
		input.Role = models.RoleMember
	}

	inv, err := s.provider.CreateInvitation(ctx, caller, orgID, input.Email, input.Role)
	if err != nil {
		return nil, err
	}

	observability.ForRequest(ctx, s.logger).Info("member invited",
		zap.String("organization_id", orgID.String()),
		zap.String("invitation_id", inv.ID.String()),
		zap.String("role", string(inv.Role)))
	return inv, nil
}

// UpdateRole changes memberID's role. Callers may change their own role.
func (s *Service) UpdateRole(ctx context.Context, caller models.AuthContext, orgID, memberID uuid.UUID, input UpdateRoleInput) (*models.MemberWithUser, error) {
	if err := s.gate(ctx, caller, orgID, models.CapMemberUpdate, services.ErrOwnerRequiredUpdate); err != nil {
		return nil, err
	}
	if err := validate(input); err != nil {
		return nil, err
	}

	m, err := s.provider.UpdateMemberRole(ctx, orgID, memberID, input.Role)
	if err != nil {
		return nil, err
	}

	observability.ForRequest(ctx, s.logger).Info("member role updated",
		zap.String("organization_id", orgID.String()),
		zap.String("member_id", memberID.String()),
		zap.String("role", string(input.Role)))
	return m, nil
}

// RemoveMember deletes memberID from orgID. Outlines are unaffected.
func (s *Service) RemoveMember(ctx context.Context, caller models.AuthContext, orgID, memberID uuid.UUID) (*RemoveResult, error) {
	if err := s.gate(ctx, caller, orgID, models.CapMemberDelete, services.ErrOwnerRequiredRemove); err != nil {
		return nil, err
	}

	if err := s.provider.RemoveMember(ctx, orgID, memberID); err != nil {
		return nil, err
	}
	return &RemoveResult{Success: true}, nil
}

// gate requires orgID to be the session's active organization and the caller
// to hold capability there. Any denial by the guard is reported as denied.
func (s *Service) gate(ctx context.Context, caller models.AuthContext, orgID uuid.UUID, capability models.Capability, denied *services.DomainError) error {
	if !caller.IsActiveOrganization(orgID) {
		return services.ErrNotMember
	}

	if _, err := s.guard.CheckPermission(ctx, caller.UserID, orgID, capability); err != nil {
		if services.IsForbiddenError(err) {
			return denied
		}
		return err
	}
	return nil
}

func validate(v interface{}) error {
	err := utils.ValidateStruct(v)
	if err == nil {
		return nil
	}
	domainErr := services.ErrInvalidInput.WithCause(err)
	for field, msg := range utils.GetValidationFields(err) {
		domainErr.Details[field] = msg
	}
	return domainErr
}
