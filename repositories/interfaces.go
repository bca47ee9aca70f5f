package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/acme/outline-api/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write violates a uniqueness constraint
	ErrConflict = errors.New("record conflicts with an existing row")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user; ErrConflict when the email is taken
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by (normalized) email
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// OrganizationRepository handles organization data operations
type OrganizationRepository interface {
	// Create creates a new organization; ErrConflict when the slug is taken
	Create(ctx context.Context, org *models.Organization) error

	// GetByID retrieves an organization by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)

	// GetBySlug retrieves an organization by slug
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// ListByUserID lists organizations the user is a member of, oldest membership first
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error)
}

// MembershipRepository is the (user, organization) -> role store
type MembershipRepository interface {
	// Create creates a membership; ErrConflict when the pair already exists
	Create(ctx context.Context, m *models.Membership) error

	// GetByID retrieves a membership by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error)

	// GetByUserAndOrganization looks up the unique membership of a user in an organization
	GetByUserAndOrganization(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error)

	// ListByOrganization returns the roster joined with user profiles, newest first
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.MemberWithUser, error)

	// FindFirstOwner returns the earliest owner of an organization with their profile
	FindFirstOwner(ctx context.Context, orgID uuid.UUID) (*models.MemberWithUser, error)

	// FindFirstOwnedByUser returns the earliest membership where the user is owner
	FindFirstOwnedByUser(ctx context.Context, userID uuid.UUID) (*models.Membership, error)

	// CountByRole counts memberships of an organization holding role
	CountByRole(ctx context.Context, orgID uuid.UUID, role models.MemberRole) (int, error)

	// UpdateRole sets the role of a membership scoped to orgID
	UpdateRole(ctx context.Context, orgID, memberID uuid.UUID, role models.MemberRole) error

	// Delete removes a membership scoped to orgID
	Delete(ctx context.Context, orgID, memberID uuid.UUID) error
}

// OutlineRepository handles outline data operations. Listing is always organization-filtered.
type OutlineRepository interface {
	// Create creates a new outline
	Create(ctx context.Context, outline *models.Outline) error

	// GetByID retrieves an outline by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Outline, error)

	// ListByOrganization returns all outlines of an organization, newest first
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Outline, error)

	// CountByOrganization counts outlines of an organization
	CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error)

	// Update persists every mutable field of an outline
	Update(ctx context.Context, outline *models.Outline) error

	// Delete deletes an outline
	Delete(ctx context.Context, id uuid.UUID) error
}

// InvitationRepository handles invitation data operations
type InvitationRepository interface {
	// Create creates a new invitation
	Create(ctx context.Context, inv *models.Invitation) error

	// GetByID retrieves an invitation by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error)

	// FindPending returns the unexpired pending invitation for an email in an organization
	FindPending(ctx context.Context, orgID uuid.UUID, email string) (*models.Invitation, error)

	// UpdateStatus moves an invitation to a new status
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.InvitationStatus) error
}

// SessionRepository handles session data operations
type SessionRepository interface {
	// Create creates a new session
	Create(ctx context.Context, s *models.Session) error

	// GetByID retrieves a session by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)

	// SetActiveOrganization points a session at an organization
	SetActiveOrganization(ctx context.Context, sessionID uuid.UUID, orgID uuid.UUID) error

	// ClearActiveOrganization nulls the pointer on every session of userID aimed at orgID
	// and returns the affected session IDs
	ClearActiveOrganization(ctx context.Context, userID, orgID uuid.UUID) ([]uuid.UUID, error)

	// Delete removes a session
	Delete(ctx context.Context, id uuid.UUID) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users         UserRepository
	Organizations OrganizationRepository
	Memberships   MembershipRepository
	Outlines      OutlineRepository
	Invitations   InvitationRepository
	Sessions      SessionRepository
}
