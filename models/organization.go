package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// slugPattern matches lower-case, hyphen-separated organization slugs
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Organization is the tenant boundary; every outline and membership belongs to exactly one
type Organization struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"` // URL-friendly identifier
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// TableName returns the table name for the Organization model
func (Organization) TableName() string {
	return "organizations"
}

// NewOrganization creates a new Organization instance
func NewOrganization(name, slug string) *Organization {
	return &Organization{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Slug:      strings.ToLower(strings.TrimSpace(slug)),
		CreatedAt: time.Now().UTC(),
	}
}

// IsValidSlug reports whether slug is a well-formed organization slug
func IsValidSlug(slug string) bool {
	if len(slug) < 3 || len(slug) > 64 {
		return false
	}
	return slugPattern.MatchString(slug)
}
