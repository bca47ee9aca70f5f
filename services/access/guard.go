// Package access answers "may this user act on this organization?" from the
// membership store and the role capability table. It never writes.
package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/acme/outline-api/internal/observability"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/repositories"
	"github.com/acme/outline-api/services"
	"go.uber.org/zap"
)

// Denial reasons used as metric labels
const (
	ReasonNotMember        = "not_member"
	ReasonInsufficientRole = "insufficient_role"
)

// Guard checks membership and role capabilities
type Guard struct {
	memberships repositories.MembershipRepository
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewGuard creates a new Guard. metrics may be nil.
func NewGuard(memberships repositories.MembershipRepository, metrics *observability.Metrics, logger *zap.Logger) *Guard {
	return &Guard{
		memberships: memberships,
		metrics:     metrics,
		logger:      logger,
	}
}

// CheckMembership returns the caller's membership in orgID. An unknown
// organization is reported exactly like a non-membership.
func (g *Guard) CheckMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	m, err := g.memberships.GetByUserAndOrganization(ctx, userID, orgID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			g.deny(ctx, ReasonNotMember, userID, orgID)
			return nil, services.ErrNotMember
		}
		return nil, services.WrapInternal("failed to verify membership", err)
	}
	return m, nil
}

// CheckPermission verifies membership and that the member's role grants capability
func (g *Guard) CheckPermission(ctx context.Context, userID, orgID uuid.UUID, capability models.Capability) (*models.Membership, error) {
	m, err := g.CheckMembership(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if !m.Role.Can(capability) {
		g.deny(ctx, ReasonInsufficientRole, userID, orgID, zap.String("capability", string(capability)), zap.String("role", string(m.Role)))
		return nil, services.ErrInsufficientPermissions.WithDetail("capability", string(capability))
	}
	return m, nil
}

func (g *Guard) deny(ctx context.Context, reason string, userID, orgID uuid.UUID, fields ...zap.Field) {
	g.metrics.RecordAuthzDenial(reason)
	fields = append(fields,
		zap.String("reason", reason),
		zap.String("user_id", userID.String()),
		zap.String("organization_id", orgID.String()))
	observability.ForRequest(ctx, g.logger).Warn("access denied", fields...)
}
