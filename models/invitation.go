package models

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the lifecycle state of an invitation
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationCanceled InvitationStatus = "canceled"
	InvitationExpired  InvitationStatus = "expired"
)

// DefaultInvitationTTL is how long an invitation stays acceptable
const DefaultInvitationTTL = 7 * 24 * time.Hour

// Invitation is a pending offer of membership sent to an email address
type Invitation struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	OrganizationID uuid.UUID        `json:"organizationId" db:"organization_id"`
	Email          string           `json:"email" db:"email"`
	Role           MemberRole       `json:"role" db:"role"`
	Status         InvitationStatus `json:"status" db:"status"`
	InviterID      uuid.UUID        `json:"inviterId" db:"inviter_id"`
	ExpiresAt      time.Time        `json:"expiresAt" db:"expires_at"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
}

// TableName returns the table name for the Invitation model
func (Invitation) TableName() string {
	return "invitations"
}

// NewInvitation creates a pending invitation expiring after ttl
func NewInvitation(orgID, inviterID uuid.UUID, email string, role MemberRole, ttl time.Duration) *Invitation {
	now := time.Now().UTC()
	return &Invitation{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Email:          NormalizeEmail(email),
		Role:           role,
		Status:         InvitationPending,
		InviterID:      inviterID,
		ExpiresAt:      now.Add(ttl),
		CreatedAt:      now,
	}
}

// IsExpired reports whether the invitation has passed its expiry at time now
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsAcceptable reports whether the invitation can still be accepted
func (i *Invitation) IsAcceptable(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsExpired(now)
}
