// Package outline implements organization-scoped outline CRUD. Every
// operation verifies the caller's membership before touching a record.
package outline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/acme/outline-api/internal/observability"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/repositories"
	"github.com/acme/outline-api/services"
	"github.com/acme/outline-api/utils"
	"go.uber.org/zap"
)

// MembershipChecker verifies that a user belongs to an organization
type MembershipChecker interface {
	CheckMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error)
}

// CreateInput is the payload for a new outline. OrganizationID falls back to
// the caller's active organization when omitted.
type CreateInput struct {
	Header         string                `json:"header" validate:"required,max=500"`
	SectionType    models.SectionType    `json:"sectionType" validate:"required,section_type"`
	Status         *models.OutlineStatus `json:"status" validate:"omitempty,outline_status"`
	Target         *int                  `json:"target" validate:"omitempty,gte=0,lte=1000"`
	Limit          *int                  `json:"limit" validate:"omitempty,gte=0,lte=1000"`
	Reviewer       *models.Reviewer      `json:"reviewer" validate:"omitempty,reviewer"`
	OrganizationID uuid.UUID             `json:"organizationId"`
}

// ReviewerPatch distinguishes an absent reviewer from an explicit null
type ReviewerPatch struct {
	Set   bool
	Value *models.Reviewer
}

// UnmarshalJSON records that the field was present
func (p *ReviewerPatch) UnmarshalJSON(b []byte) error {
	p.Set = true
	if string(b) == "null" {
		p.Value = nil
		return nil
	}
	var r models.Reviewer
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	p.Value = &r
	return nil
}

// UpdateInput is a partial outline. Nil fields are left untouched.
type UpdateInput struct {
	Header         *string               `json:"header" validate:"omitempty,min=1,max=500"`
	SectionType    *models.SectionType   `json:"sectionType" validate:"omitempty,section_type"`
	Status         *models.OutlineStatus `json:"status" validate:"omitempty,outline_status"`
	Target         *int                  `json:"target" validate:"omitempty,gte=0,lte=1000"`
	Limit          *int                  `json:"limit" validate:"omitempty,gte=0,lte=1000"`
	Reviewer       ReviewerPatch         `json:"reviewer" validate:"-"`
	OrganizationID *uuid.UUID            `json:"organizationId"`
}

// Service manages outlines
type Service struct {
	outlines repositories.OutlineRepository
	guard    MembershipChecker
	logger   *zap.Logger
}

// NewService creates a new outline service
func NewService(outlines repositories.OutlineRepository, guard MembershipChecker, logger *zap.Logger) *Service {
	return &Service{
		outlines: outlines,
		guard:    guard,
		logger:   logger,
	}
}

// Create validates the payload, checks membership in the target organization and persists the outline
func (s *Service) Create(ctx context.Context, caller models.AuthContext, input CreateInput) (*models.Outline, error) {
	if input.OrganizationID == uuid.Nil && caller.HasActiveOrganization() {
		input.OrganizationID = *caller.ActiveOrganizationID
	}
	if err := validate(input); err != nil {
		return nil, err
	}
	if input.OrganizationID == uuid.Nil {
		return nil, services.ErrInvalidOutline.WithDetail("organizationId", "organizationId is required")
	}

	if _, err := s.guard.CheckMembership(ctx, caller.UserID, input.OrganizationID); err != nil {
		return nil, err
	}

	o := models.NewOutline(input.OrganizationID, input.Header, input.SectionType)
	if input.Status != nil {
		o.Status = *input.Status
	}
	if input.Target != nil {
		o.Target = *input.Target
	}
	if input.Limit != nil {
		o.Limit = *input.Limit
	}
	o.Reviewer = input.Reviewer

	if err := s.outlines.Create(ctx, o); err != nil {
		return nil, services.WrapInternal("failed to create outline", err)
	}

	observability.ForRequest(ctx, s.logger).Info("outline created",
		zap.String("outline_id", o.ID.String()),
		zap.String("organization_id", o.OrganizationID.String()),
		zap.String("user_id", caller.UserID.String()))
	return o, nil
}

// ListByOrganization returns every outline of orgID after verifying membership
func (s *Service) ListByOrganization(ctx context.Context, caller models.AuthContext, orgID uuid.UUID) ([]*models.Outline, error) {
	if _, err := s.guard.CheckMembership(ctx, caller.UserID, orgID); err != nil {
		return nil, err
	}

	outlines, err := s.outlines.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, services.WrapInternal("failed to list outlines", err)
	}
	return outlines, nil
}

// GetByID loads an outline and verifies membership in the outline's own organization
func (s *Service) GetByID(ctx context.Context, caller models.AuthContext, id uuid.UUID) (*models.Outline, error) {
	return s.loadAuthorized(ctx, caller, id)
}

// Update applies a partial update. Any status transition is accepted.
func (s *Service) Update(ctx context.Context, caller models.AuthContext, id uuid.UUID, patch UpdateInput) (*models.Outline, error) {
	o, err := s.loadAuthorized(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if err := validate(patch); err != nil {
		return nil, err
	}
	if patch.Reviewer.Value != nil && !patch.Reviewer.Value.IsValid() {
		return nil, services.ErrInvalidOutline.WithDetail("reviewer", "reviewer must be one of: Assim Bini Mami")
	}
	if patch.OrganizationID != nil && *patch.OrganizationID != o.OrganizationID {
		return nil, services.ErrInvalidOutline.WithDetail("organizationId", "organizationId cannot be changed")
	}

	if patch.Header != nil {
		o.Header = *patch.Header
	}
	if patch.SectionType != nil {
		o.SectionType = *patch.SectionType
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.Target != nil {
		o.Target = *patch.Target
	}
	if patch.Limit != nil {
		o.Limit = *patch.Limit
	}
	if patch.Reviewer.Set {
		o.Reviewer = patch.Reviewer.Value
	}
	o.UpdatedAt = time.Now().UTC()

	if err := s.outlines.Update(ctx, o); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrOutlineNotFound
		}
		return nil, services.WrapInternal("failed to update outline", err)
	}

	observability.ForRequest(ctx, s.logger).Debug("outline updated", zap.String("outline_id", o.ID.String()))
	return o, nil
}

// Remove deletes an outline after verifying membership in its organization
func (s *Service) Remove(ctx context.Context, caller models.AuthContext, id uuid.UUID) error {
	o, err := s.loadAuthorized(ctx, caller, id)
	if err != nil {
		return err
	}

	if err := s.outlines.Delete(ctx, o.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrOutlineNotFound
		}
		return services.WrapInternal("failed to delete outline", err)
	}

	observability.ForRequest(ctx, s.logger).Info("outline deleted",
		zap.String("outline_id", o.ID.String()),
		zap.String("user_id", caller.UserID.String()))
	return nil
}

// loadAuthorized fetches an outline and checks the caller against the outline's
// organization. A record in another organization yields Forbidden, never NotFound.
func (s *Service) loadAuthorized(ctx context.Context, caller models.AuthContext, id uuid.UUID) (*models.Outline, error) {
	o, err := s.outlines.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrOutlineNotFound
		}
		return nil, services.WrapInternal("failed to load outline", err)
	}

	if _, err := s.guard.CheckMembership(ctx, caller.UserID, o.OrganizationID); err != nil {
		return nil, err
	}
	return o, nil
}

// validate converts struct validation failures into a domain validation error
func validate(v interface{}) error {
	err := utils.ValidateStruct(v)
	if err == nil {
		return nil
	}
	domainErr := services.ErrInvalidOutline.WithCause(err)
	for field, msg := range utils.GetValidationFields(err) {
		domainErr.Details[field] = msg
	}
	return domainErr
}
