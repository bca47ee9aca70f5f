package models

import (
	"time"

	"github.com/google/uuid"
)

// MemberRole represents the role of a user within an organization
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

// IsValid reports whether r is a known role
func (r MemberRole) IsValid() bool {
	return r == RoleOwner || r == RoleMember
}

// Membership binds a user to an organization with a role.
// At most one membership exists per (user, organization) pair.
type Membership struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         uuid.UUID  `json:"userId" db:"user_id"`
	OrganizationID uuid.UUID  `json:"organizationId" db:"organization_id"`
	Role           MemberRole `json:"role" db:"role"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
}

// TableName returns the table name for the Membership model
func (Membership) TableName() string {
	return "memberships"
}

// NewMembership creates a new Membership instance
func NewMembership(userID, orgID uuid.UUID, role MemberRole) *Membership {
	return &Membership{
		ID:             uuid.New(),
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		CreatedAt:      time.Now().UTC(),
	}
}

// IsOwner returns true if the membership carries the owner role
func (m *Membership) IsOwner() bool {
	return m.Role == RoleOwner
}

// MemberWithUser is a membership joined with the member's user profile
type MemberWithUser struct {
	Membership
	User UserProfile `json:"user"`
}
