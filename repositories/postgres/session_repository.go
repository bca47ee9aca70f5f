package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/repositories"
	"go.uber.org/zap"
)

// SessionRepository implements the repositories.SessionRepository interface
type SessionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB, logger *zap.Logger) repositories.SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, active_organization_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		s.ID,
		s.UserID,
		uuidPtrValue(s.ActiveOrganizationID),
		s.ExpiresAt,
		s.CreatedAt,
	)
	if err != nil {
		return translateError(err, "create session")
	}

	r.logger.Debug("session created", zap.String("id", s.ID.String()), zap.String("user_id", s.UserID.String()))
	return nil
}

// GetByID retrieves a session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := `
		SELECT id, user_id, active_organization_id, expires_at, created_at
		FROM sessions
		WHERE id = $1
	`

	s := &models.Session{}
	var active uuid.NullUUID
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&active,
		&s.ExpiresAt,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err, "get session")
	}
	if active.Valid {
		orgID := active.UUID
		s.ActiveOrganizationID = &orgID
	}
	return s, nil
}

// SetActiveOrganization points a session at orgID
func (r *SessionRepository) SetActiveOrganization(ctx context.Context, sessionID, orgID uuid.UUID) error {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx,
		`UPDATE sessions SET active_organization_id = $2 WHERE id = $1`, sessionID, orgID)
	if err != nil {
		return translateError(err, "set active organization")
	}
	return expectAffected(result, "set active organization")
}

// ClearActiveOrganization nulls the active pointer of userID's sessions aimed at orgID
func (r *SessionRepository) ClearActiveOrganization(ctx context.Context, userID, orgID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		UPDATE sessions SET active_organization_id = NULL
		WHERE user_id = $1 AND active_organization_id = $2
		RETURNING id
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, userID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear active organization: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return ids, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return translateError(err, "delete session")
	}
	r.logger.Debug("session deleted", zap.String("id", id.String()))
	return nil
}

func uuidPtrValue(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
