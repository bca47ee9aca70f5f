// Package team assembles the read-only team overview of the caller's active
// organization.
package team

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/acme/outline-api/internal/observability"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/repositories"
	"github.com/acme/outline-api/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MembershipChecker verifies that a user belongs to an organization
type MembershipChecker interface {
	CheckMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error)
}

// Statistics are counts derived from one snapshot
type Statistics struct {
	TotalMembers  int `json:"totalMembers"`
	Owners        int `json:"owners"`
	Members       int `json:"members"`
	TotalOutlines int `json:"totalOutlines"`
}

// Owner identifies the organization's first owner
type Owner struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Organization is the organization metadata plus derived data
type Organization struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Slug       string     `json:"slug"`
	CreatedAt  time.Time  `json:"createdAt"`
	Statistics Statistics `json:"statistics"`
	Owner      *Owner     `json:"owner"`
}

// MemberUser is a roster user annotated for the caller
type MemberUser struct {
	models.UserProfile
	IsCurrentUser bool `json:"isCurrentUser"`
}

// Member is one roster entry
type Member struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"userId"`
	OrganizationID uuid.UUID         `json:"organizationId"`
	Role           models.MemberRole `json:"role"`
	CreatedAt      time.Time         `json:"createdAt"`
	User           MemberUser        `json:"user"`
}

// Snapshot is the best-effort point-in-time team view
type Snapshot struct {
	Organization    Organization       `json:"organization"`
	Members         []Member           `json:"members"`
	CurrentUserRole *models.MemberRole `json:"currentUserRole"`
}

// Service builds team snapshots
type Service struct {
	organizations repositories.OrganizationRepository
	memberships   repositories.MembershipRepository
	outlines      repositories.OutlineRepository
	guard         MembershipChecker
	logger        *zap.Logger
}

// NewService creates a new team service
func NewService(
	organizations repositories.OrganizationRepository,
	memberships repositories.MembershipRepository,
	outlines repositories.OutlineRepository,
	guard MembershipChecker,
	logger *zap.Logger,
) *Service {
	return &Service{
		organizations: organizations,
		memberships:   memberships,
		outlines:      outlines,
		guard:         guard,
		logger:        logger,
	}
}

// GetTeamSnapshot reads the organization, roster, outline count and first
// owner concurrently and composes them. The reads are not mutually atomic.
func (s *Service) GetTeamSnapshot(ctx context.Context, caller models.AuthContext) (*Snapshot, error) {
	if !caller.HasActiveOrganization() {
		return nil, services.ErrNoActiveOrganization
	}
	orgID := *caller.ActiveOrganizationID

	if _, err := s.guard.CheckMembership(ctx, caller.UserID, orgID); err != nil {
		return nil, err
	}

	var (
		org          *models.Organization
		roster       []*models.MemberWithUser
		outlineCount int
		firstOwner   *models.MemberWithUser
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		org, err = s.organizations.GetByID(gctx, orgID)
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrOrganizationNotFound
		}
		return err
	})
	g.Go(func() error {
		var err error
		roster, err = s.memberships.ListByOrganization(gctx, orgID)
		return err
	})
	g.Go(func() error {
		var err error
		outlineCount, err = s.outlines.CountByOrganization(gctx, orgID)
		return err
	})
	g.Go(func() error {
		var err error
		firstOwner, err = s.memberships.FindFirstOwner(gctx, orgID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		if services.IsNotFoundError(err) {
			return nil, err
		}
		return nil, services.WrapInternal("failed to load team", err)
	}

	snapshot := compose(org, roster, outlineCount, firstOwner, caller.UserID)
	if snapshot.CurrentUserRole == nil {
		observability.ForRequest(ctx, s.logger).Warn("caller missing from roster of active organization",
			zap.String("user_id", caller.UserID.String()),
			zap.String("organization_id", orgID.String()))
	}
	return snapshot, nil
}

func compose(org *models.Organization, roster []*models.MemberWithUser, outlineCount int, firstOwner *models.MemberWithUser, callerID uuid.UUID) *Snapshot {
	snapshot := &Snapshot{
		Organization: Organization{
			ID:        org.ID,
			Name:      org.Name,
			Slug:      org.Slug,
			CreatedAt: org.CreatedAt,
			Statistics: Statistics{
				TotalMembers:  len(roster),
				TotalOutlines: outlineCount,
			},
		},
		Members: make([]Member, 0, len(roster)),
	}

	if firstOwner != nil {
		snapshot.Organization.Owner = &Owner{
			ID:    firstOwner.User.ID,
			Name:  firstOwner.User.Name,
			Email: firstOwner.User.Email,
		}
	}

	for _, m := range roster {
		switch m.Role {
		case models.RoleOwner:
			snapshot.Organization.Statistics.Owners++
		case models.RoleMember:
			snapshot.Organization.Statistics.Members++
		}

		current := m.UserID == callerID
		if current {
			role := m.Role
			snapshot.CurrentUserRole = &role
		}

		snapshot.Members = append(snapshot.Members, Member{
			ID:             m.ID,
			UserID:         m.UserID,
			OrganizationID: m.OrganizationID,
			Role:           m.Role,
			CreatedAt:      m.CreatedAt,
			User:           MemberUser{UserProfile: m.User, IsCurrentUser: current},
		})
	}
	return snapshot
}
