package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a signed-in device. The active organization is a property of
// the session, so concurrent sessions of one user may point at different orgs.
type Session struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	UserID               uuid.UUID  `json:"userId" db:"user_id"`
	ActiveOrganizationID *uuid.UUID `json:"activeOrganizationId" db:"active_organization_id"`
	ExpiresAt            time.Time  `json:"expiresAt" db:"expires_at"`
	CreatedAt            time.Time  `json:"createdAt" db:"created_at"`
}

// TableName returns the table name for the Session model
func (Session) TableName() string {
	return "sessions"
}

// NewSession creates a session for userID that expires after ttl
func NewSession(userID uuid.UUID, activeOrgID *uuid.UUID, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:                   uuid.New(),
		UserID:               userID,
		ActiveOrganizationID: activeOrgID,
		ExpiresAt:            now.Add(ttl),
		CreatedAt:            now,
	}
}

// IsExpired reports whether the session has expired at time now
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AuthContext is the typed caller identity resolved once at the transport
// boundary and passed explicitly into every service call.
type AuthContext struct {
	UserID               uuid.UUID
	SessionID            uuid.UUID
	ActiveOrganizationID *uuid.UUID
}

// HasActiveOrganization reports whether the session points at an organization
func (a AuthContext) HasActiveOrganization() bool {
	return a.ActiveOrganizationID != nil && *a.ActiveOrganizationID != uuid.Nil
}

// IsActiveOrganization reports whether orgID is the session's active organization
func (a AuthContext) IsActiveOrganization(orgID uuid.UUID) bool {
	return a.HasActiveOrganization() && *a.ActiveOrganizationID == orgID
}
