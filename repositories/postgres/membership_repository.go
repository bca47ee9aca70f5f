package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/repositories"
	"go.uber.org/zap"
)

// MembershipRepository implements the repositories.MembershipRepository interface
type MembershipRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB, logger *zap.Logger) repositories.MembershipRepository {
	return &MembershipRepository{
		db:     db,
		logger: logger,
	}
}

const membershipColumns = `id, user_id, organization_id, role, created_at`

// memberWithUserSelect joins a membership with its user's public profile
const memberWithUserSelect = `
	SELECT m.id, m.user_id, m.organization_id, m.role, m.created_at,
	       u.id, u.email, u.name, u.created_at
	FROM memberships m
	JOIN users u ON u.id = m.user_id
`

func scanMembership(row scanner) (*models.Membership, error) {
	m := &models.Membership{}
	if err := row.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.CreatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

func scanMemberWithUser(row scanner) (*models.MemberWithUser, error) {
	m := &models.MemberWithUser{}
	err := row.Scan(
		&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.CreatedAt,
		&m.User.ID, &m.User.Email, &m.User.Name, &m.User.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Create creates a new membership
func (r *MembershipRepository) Create(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO memberships (id, user_id, organization_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, m.ID, m.UserID, m.OrganizationID, m.Role, m.CreatedAt); err != nil {
		return translateError(err, "create membership")
	}

	r.logger.Debug("membership created",
		zap.String("id", m.ID.String()),
		zap.String("organization_id", m.OrganizationID.String()),
		zap.String("role", string(m.Role)))
	return nil
}

// GetByID retrieves a membership by ID
func (r *MembershipRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id = $1`

	m, err := scanMembership(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError(err, "get membership")
	}
	return m, nil
}

// GetByUserAndOrganization looks up the membership keyed by the unique (user, organization) pair
func (r *MembershipRepository) GetByUserAndOrganization(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE user_id = $1 AND organization_id = $2`

	m, err := scanMembership(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, userID, orgID))
	if err != nil {
		return nil, translateError(err, "get membership")
	}
	return m, nil
}

// ListByOrganization returns the roster, newest member first
func (r *MembershipRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.MemberWithUser, error) {
	query := memberWithUserSelect + `
		WHERE m.organization_id = $1
		ORDER BY m.created_at DESC, m.id
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*models.MemberWithUser{}
	for rows.Next() {
		m, err := scanMemberWithUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}

	return members, nil
}

// FindFirstOwner returns the earliest owner, ties broken by id
func (r *MembershipRepository) FindFirstOwner(ctx context.Context, orgID uuid.UUID) (*models.MemberWithUser, error) {
	query := memberWithUserSelect + `
		WHERE m.organization_id = $1 AND m.role = 'owner'
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT 1
	`

	m, err := scanMemberWithUser(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, orgID))
	if err != nil {
		return nil, translateError(err, "find first owner")
	}
	return m, nil
}

// FindFirstOwnedByUser returns the user's earliest owner membership
func (r *MembershipRepository) FindFirstOwnedByUser(ctx context.Context, userID uuid.UUID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + `
		FROM memberships
		WHERE user_id = $1 AND role = 'owner'
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`

	m, err := scanMembership(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, translateError(err, "find owned organization")
	}
	return m, nil
}

// CountByRole counts the memberships of an organization holding role
func (r *MembershipRepository) CountByRole(ctx context.Context, orgID uuid.UUID, role models.MemberRole) (int, error) {
	query := `SELECT COUNT(*) FROM memberships WHERE organization_id = $1 AND role = $2`

	var count int
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, orgID, role).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

// UpdateRole sets the role of a membership that belongs to orgID
func (r *MembershipRepository) UpdateRole(ctx context.Context, orgID, memberID uuid.UUID, role models.MemberRole) error {
	query := `UPDATE memberships SET role = $3 WHERE id = $1 AND organization_id = $2`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, memberID, orgID, role)
	if err != nil {
		return translateError(err, "update member role")
	}
	if err := expectAffected(result, "update member role"); err != nil {
		return err
	}

	r.logger.Debug("member role updated", zap.String("id", memberID.String()), zap.String("role", string(role)))
	return nil
}

// Delete removes a membership that belongs to orgID
func (r *MembershipRepository) Delete(ctx context.Context, orgID, memberID uuid.UUID) error {
	query := `DELETE FROM memberships WHERE id = $1 AND organization_id = $2`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, memberID, orgID)
	if err != nil {
		return translateError(err, "delete membership")
	}
	if err := expectAffected(result, "delete membership"); err != nil {
		return err
	}

	r.logger.Debug("membership deleted", zap.String("id", memberID.String()))
	return nil
}
