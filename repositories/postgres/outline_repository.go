package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/repositories"
	"go.uber.org/zap"
)

// OutlineRepository implements the repositories.OutlineRepository interface
type OutlineRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewOutlineRepository creates a new outline repository
func NewOutlineRepository(db *DB, logger *zap.Logger) repositories.OutlineRepository {
	return &OutlineRepository{
		db:     db,
		logger: logger,
	}
}

const outlineColumns = `id, header, section_type, status, target, "limit", reviewer, organization_id, created_at, updated_at`

func scanOutline(row scanner) (*models.Outline, error) {
	o := &models.Outline{}
	var reviewer sql.NullString
	err := row.Scan(
		&o.ID,
		&o.Header,
		&o.SectionType,
		&o.Status,
		&o.Target,
		&o.Limit,
		&reviewer,
		&o.OrganizationID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reviewer.Valid {
		rv := models.Reviewer(reviewer.String)
		o.Reviewer = &rv
	}
	return o, nil
}

func reviewerValue(r *models.Reviewer) sql.NullString {
	if r == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*r), Valid: true}
}

// Create creates a new outline
func (r *OutlineRepository) Create(ctx context.Context, o *models.Outline) error {
	query := `
		INSERT INTO outlines (` + outlineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		o.ID,
		o.Header,
		o.SectionType,
		o.Status,
		o.Target,
		o.Limit,
		reviewerValue(o.Reviewer),
		o.OrganizationID,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return translateError(err, "create outline")
	}

	r.logger.Debug("outline created",
		zap.String("id", o.ID.String()),
		zap.String("organization_id", o.OrganizationID.String()))
	return nil
}

// GetByID retrieves an outline by ID
func (r *OutlineRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Outline, error) {
	query := `SELECT ` + outlineColumns + ` FROM outlines WHERE id = $1`

	o, err := scanOutline(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError(err, "get outline")
	}
	return o, nil
}

// ListByOrganization returns every outline of an organization, newest first
func (r *OutlineRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Outline, error) {
	query := `SELECT ` + outlineColumns + `
		FROM outlines
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outlines: %w", err)
	}
	defer rows.Close()

	outlines := []*models.Outline{}
	for rows.Next() {
		o, err := scanOutline(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outline: %w", err)
		}
		outlines = append(outlines, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outline rows: %w", err)
	}

	return outlines, nil
}

// CountByOrganization counts the outlines of an organization
func (r *OutlineRepository) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	err := GetExecutor(ctx, r.db).
		QueryRowContext(ctx, `SELECT COUNT(*) FROM outlines WHERE organization_id = $1`, orgID).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count outlines: %w", err)
	}
	return count, nil
}

// Update persists the mutable fields of an outline. organization_id is never rewritten.
func (r *OutlineRepository) Update(ctx context.Context, o *models.Outline) error {
	query := `
		UPDATE outlines
		SET header = $2,
		    section_type = $3,
		    status = $4,
		    target = $5,
		    "limit" = $6,
		    reviewer = $7,
		    updated_at = $8
		WHERE id = $1
	`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		o.ID,
		o.Header,
		o.SectionType,
		o.Status,
		o.Target,
		o.Limit,
		reviewerValue(o.Reviewer),
		o.UpdatedAt,
	)
	if err != nil {
		return translateError(err, "update outline")
	}
	if err := expectAffected(result, "update outline"); err != nil {
		return err
	}

	r.logger.Debug("outline updated", zap.String("id", o.ID.String()))
	return nil
}

// Delete deletes an outline
func (r *OutlineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM outlines WHERE id = $1`, id)
	if err != nil {
		return translateError(err, "delete outline")
	}
	if err := expectAffected(result, "delete outline"); err != nil {
		return err
	}

	r.logger.Debug("outline deleted", zap.String("id", id.String()))
	return nil
}
