package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/repositories"
	"go.uber.org/zap"
)

// InvitationRepository implements the repositories.InvitationRepository interface
type InvitationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *DB, logger *zap.Logger) repositories.InvitationRepository {
	return &InvitationRepository{
		db:     db,
		logger: logger,
	}
}

const invitationColumns = `id, organization_id, email, role, status, inviter_id, expires_at, created_at`

func scanInvitation(row scanner) (*models.Invitation, error) {
	inv := &models.Invitation{}
	err := row.Scan(
		&inv.ID,
		&inv.OrganizationID,
		&inv.Email,
		&inv.Role,
		&inv.Status,
		&inv.InviterID,
		&inv.ExpiresAt,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Create creates a new invitation
func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (` + invitationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		inv.ID,
		inv.OrganizationID,
		inv.Email,
		inv.Role,
		inv.Status,
		inv.InviterID,
		inv.ExpiresAt,
		inv.CreatedAt,
	)
	if err != nil {
		return translateError(err, "create invitation")
	}

	r.logger.Debug("invitation created",
		zap.String("id", inv.ID.String()),
		zap.String("organization_id", inv.OrganizationID.String()))
	return nil
}

// GetByID retrieves an invitation by ID
func (r *InvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`

	inv, err := scanInvitation(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError(err, "get invitation")
	}
	return inv, nil
}

// FindPending returns the newest unexpired pending invitation for email in orgID
func (r *InvitationRepository) FindPending(ctx context.Context, orgID uuid.UUID, email string) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + `
		FROM invitations
		WHERE organization_id = $1 AND email = $2 AND status = 'pending' AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	inv, err := scanInvitation(GetExecutor(ctx, r.db).
		QueryRowContext(ctx, query, orgID, models.NormalizeEmail(email), time.Now().UTC()))
	if err != nil {
		return nil, translateError(err, "find pending invitation")
	}
	return inv, nil
}

// UpdateStatus moves an invitation to status
func (r *InvitationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.InvitationStatus) error {
	result, err := GetExecutor(ctx, r.db).
		ExecContext(ctx, `UPDATE invitations SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return translateError(err, "update invitation status")
	}
	return expectAffected(result, "update invitation status")
}
