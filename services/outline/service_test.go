package outline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/repositories"
	"github.com/acme/outline-api/repositories/mocks"
	"github.com/acme/outline-api/services"
	"github.com/acme/outline-api/services/access"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	svc         *Service
	outlines    *mocks.OutlineRepository
	memberships *mocks.MembershipRepository
	caller      models.AuthContext
	orgID       uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	outlines := new(mocks.OutlineRepository)
	memberships := new(mocks.MembershipRepository)
	logger := zaptest.NewLogger(t)
	orgID := uuid.New()
	return &fixture{
		svc:         NewService(outlines, access.NewGuard(memberships, nil, logger), logger),
		outlines:    outlines,
		memberships: memberships,
		caller:      models.AuthContext{UserID: uuid.New(), SessionID: uuid.New(), ActiveOrganizationID: &orgID},
		orgID:       orgID,
	}
}

func (f *fixture) member(orgID uuid.UUID) {
	f.memberships.On("GetByUserAndOrganization", mock.Anything, f.caller.UserID, orgID).
		Return(models.NewMembership(f.caller.UserID, orgID, models.RoleMember), nil)
}

func (f *fixture) stranger(orgID uuid.UUID) {
	f.memberships.On("GetByUserAndOrganization", mock.Anything, f.caller.UserID, orgID).
		Return(nil, repositories.ErrNotFound)
}

func intPtr(v int) *int { return &v }

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults status and counts", func(t *testing.T) {
		f := newFixture(t)
		f.member(f.orgID)
		f.outlines.On("Create", ctx, mock.AnythingOfType("*models.Outline")).Return(nil)

		o, err := f.svc.Create(ctx, f.caller, CreateInput{
			Header:         "Executive Summary",
			SectionType:    models.SectionExecutiveSummary,
			OrganizationID: f.orgID,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, o.Status)
		assert.Equal(t, 0, o.Target)
		assert.Equal(t, 0, o.Limit)
		assert.Nil(t, o.Reviewer)
		assert.Equal(t, f.orgID, o.OrganizationID)
		f.outlines.AssertExpectations(t)
	})

	t.Run("falls back to active organization", func(t *testing.T) {
		f := newFixture(t)
		f.member(f.orgID)
		f.outlines.On("Create", ctx, mock.AnythingOfType("*models.Outline")).Return(nil)

		reviewer := models.ReviewerBini
		o, err := f.svc.Create(ctx, f.caller, CreateInput{
			Header:      "Scope",
			SectionType: models.SectionTechnicalApproach,
			Target:      intPtr(10),
			Limit:       intPtr(1000),
			Reviewer:    &reviewer,
		})
		require.NoError(t, err)
		assert.Equal(t, f.orgID, o.OrganizationID)
		assert.Equal(t, 1000, o.Limit)
		assert.Equal(t, &reviewer, o.Reviewer)
	})

	t.Run("rejects out of range counts without touching the store", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, f.caller, CreateInput{
			Header:         "Scope",
			SectionType:    models.SectionTechnicalApproach,
			Target:         intPtr(1001),
			Limit:          intPtr(-1),
			OrganizationID: f.orgID,
		})
		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))
		details := services.GetErrorDetails(err)
		assert.Contains(t, details, "target")
		assert.Contains(t, details, "limit")
		f.outlines.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown section type", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, f.caller, CreateInput{
			Header:         "Scope",
			SectionType:    "Appendix",
			OrganizationID: f.orgID,
		})
		assert.True(t, services.IsValidationError(err))
		assert.Contains(t, services.GetErrorDetails(err), "sectionType")
	})

	t.Run("requires an organization", func(t *testing.T) {
		f := newFixture(t)
		f.caller.ActiveOrganizationID = nil
		_, err := f.svc.Create(ctx, f.caller, CreateInput{Header: "Scope", SectionType: models.SectionTechnicalApproach})
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("non-member is forbidden", func(t *testing.T) {
		f := newFixture(t)
		other := uuid.New()
		f.stranger(other)
		_, err := f.svc.Create(ctx, f.caller, CreateInput{
			Header:         "Scope",
			SectionType:    models.SectionTechnicalApproach,
			OrganizationID: other,
		})
		assert.ErrorIs(t, err, services.ErrNotMember)
		f.outlines.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestService_ListByOrganization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(f.orgID)
	f.outlines.On("ListByOrganization", ctx, f.orgID).Return([]*models.Outline{}, nil)

	got, err := f.svc.ListByOrganization(ctx, f.caller, f.orgID)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	other := uuid.New()
	f.stranger(other)
	_, err = f.svc.ListByOrganization(ctx, f.caller, other)
	assert.True(t, services.IsForbiddenError(err))
}

func TestService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("missing outline", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.outlines.On("GetByID", ctx, id).Return(nil, repositories.ErrNotFound)

		_, err := f.svc.GetByID(ctx, f.caller, id)
		assert.ErrorIs(t, err, services.ErrOutlineNotFound)
	})

	t.Run("other organization is forbidden, not hidden", func(t *testing.T) {
		f := newFixture(t)
		other := uuid.New()
		o := models.NewOutline(other, "Pricing", models.SectionCapabilities)
		f.outlines.On("GetByID", ctx, o.ID).Return(o, nil)
		f.stranger(other)

		_, err := f.svc.GetByID(ctx, f.caller, o.ID)
		assert.ErrorIs(t, err, services.ErrNotMember)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.outlines.On("GetByID", ctx, id).Return(nil, errors.New("boom"))

		_, err := f.svc.GetByID(ctx, f.caller, id)
		assert.True(t, services.IsInternalError(err))
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("applies only present fields", func(t *testing.T) {
		f := newFixture(t)
		o := models.NewOutline(f.orgID, "Pricing", models.SectionCapabilities)
		reviewer := models.ReviewerMami
		o.Reviewer = &reviewer
		o.Status = models.StatusCompleted
		f.outlines.On("GetByID", ctx, o.ID).Return(o, nil)
		f.outlines.On("Update", ctx, o).Return(nil)
		f.member(f.orgID)

		var patch UpdateInput
		require.NoError(t, json.Unmarshal([]byte(`{"status":"Pending","target":5}`), &patch))

		got, err := f.svc.Update(ctx, f.caller, o.ID, patch)
		require.NoError(t, err)
		assert.Equal(t, "Pricing", got.Header)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.Equal(t, 5, got.Target)
		assert.Equal(t, &reviewer, got.Reviewer)
	})

	t.Run("explicit null clears reviewer", func(t *testing.T) {
		f := newFixture(t)
		o := models.NewOutline(f.orgID, "Pricing", models.SectionCapabilities)
		reviewer := models.ReviewerAssim
		o.Reviewer = &reviewer
		f.outlines.On("GetByID", ctx, o.ID).Return(o, nil)
		f.outlines.On("Update", ctx, o).Return(nil)
		f.member(f.orgID)

		var patch UpdateInput
		require.NoError(t, json.Unmarshal([]byte(`{"reviewer":null}`), &patch))

		got, err := f.svc.Update(ctx, f.caller, o.ID, patch)
		require.NoError(t, err)
		assert.Nil(t, got.Reviewer)
	})

	t.Run("organization cannot move", func(t *testing.T) {
		f := newFixture(t)
		o := models.NewOutline(f.orgID, "Pricing", models.SectionCapabilities)
		f.outlines.On("GetByID", ctx, o.ID).Return(o, nil)
		f.member(f.orgID)

		other := uuid.New()
		_, err := f.svc.Update(ctx, f.caller, o.ID, UpdateInput{OrganizationID: &other})
		assert.True(t, services.IsValidationError(err))
		f.outlines.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("invalid reviewer", func(t *testing.T) {
		f := newFixture(t)
		o := models.NewOutline(f.orgID, "Pricing", models.SectionCapabilities)
		f.outlines.On("GetByID", ctx, o.ID).Return(o, nil)
		f.member(f.orgID)

		var patch UpdateInput
		require.NoError(t, json.Unmarshal([]byte(`{"reviewer":"Nobody"}`), &patch))
		_, err := f.svc.Update(ctx, f.caller, o.ID, patch)
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("row vanished during update", func(t *testing.T) {
		f := newFixture(t)
		o := models.NewOutline(f.orgID, "Pricing", models.SectionCapabilities)
		f.outlines.On("GetByID", ctx, o.ID).Return(o, nil)
		f.outlines.On("Update", ctx, o).Return(repositories.ErrNotFound)
		f.member(f.orgID)

		_, err := f.svc.Update(ctx, f.caller, o.ID, UpdateInput{Limit: intPtr(3)})
		assert.ErrorIs(t, err, services.ErrOutlineNotFound)
	})
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("member deletes", func(t *testing.T) {
		f := newFixture(t)
		o := models.NewOutline(f.orgID, "Pricing", models.SectionCapabilities)
		f.outlines.On("GetByID", ctx, o.ID).Return(o, nil)
		f.outlines.On("Delete", ctx, o.ID).Return(nil)
		f.member(f.orgID)

		require.NoError(t, f.svc.Remove(ctx, f.caller, o.ID))
		f.outlines.AssertExpectations(t)
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		f := newFixture(t)
		other := uuid.New()
		o := models.NewOutline(other, "Pricing", models.SectionCapabilities)
		f.outlines.On("GetByID", ctx, o.ID).Return(o, nil)
		f.stranger(other)

		err := f.svc.Remove(ctx, f.caller, o.ID)
		assert.True(t, services.IsForbiddenError(err))
		f.outlines.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
