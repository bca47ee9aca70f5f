package models

import (
	"time"

	"github.com/google/uuid"
)

// SectionType is the kind of proposal section an outline describes
type SectionType string

const (
	SectionTableOfContents   SectionType = "Table_of_Contents"
	SectionExecutiveSummary  SectionType = "Executive_Summary"
	SectionTechnicalApproach SectionType = "Technical_Approach"
	SectionDesign            SectionType = "Design"
	SectionCapabilities      SectionType = "Capabilities"
	SectionFocusDocument     SectionType = "Focus_Document"
	SectionNarrative         SectionType = "Narrative"
)

// OutlineStatus is the caller-set progress marker of an outline.
// Any transition between values is allowed.
type OutlineStatus string

const (
	StatusPending    OutlineStatus = "Pending"
	StatusInProgress OutlineStatus = "In_Progress"
	StatusCompleted  OutlineStatus = "Completed"
)

// Reviewer is the closed set of people who review outlines
type Reviewer string

const (
	ReviewerAssim Reviewer = "Assim"
	ReviewerBini  Reviewer = "Bini"
	ReviewerMami  Reviewer = "Mami"
)

// Bounds for Outline.Target and Outline.Limit
const (
	MinOutlineCount = 0
	MaxOutlineCount = 1000
)

// Outline is a proposal section record scoped to one organization
type Outline struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	Header         string        `json:"header" db:"header"`
	SectionType    SectionType   `json:"sectionType" db:"section_type"`
	Status         OutlineStatus `json:"status" db:"status"`
	Target         int           `json:"target" db:"target"`
	Limit          int           `json:"limit" db:"limit"`
	Reviewer       *Reviewer     `json:"reviewer" db:"reviewer"`
	OrganizationID uuid.UUID     `json:"organizationId" db:"organization_id"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time     `json:"updatedAt" db:"updated_at"`
}

// TableName returns the table name for the Outline model
func (Outline) TableName() string {
	return "outlines"
}

// NewOutline creates a new Outline with status Pending
func NewOutline(orgID uuid.UUID, header string, sectionType SectionType) *Outline {
	now := time.Now().UTC()
	return &Outline{
		ID:             uuid.New(),
		Header:         header,
		SectionType:    sectionType,
		Status:         StatusPending,
		OrganizationID: orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsValid reports whether s is a known section type
func (s SectionType) IsValid() bool {
	switch s {
	case SectionTableOfContents, SectionExecutiveSummary, SectionTechnicalApproach,
		SectionDesign, SectionCapabilities, SectionFocusDocument, SectionNarrative:
		return true
	}
	return false
}

// IsValid reports whether s is a known status
func (s OutlineStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// IsValid reports whether r is a known reviewer
func (r Reviewer) IsValid() bool {
	switch r {
	case ReviewerAssim, ReviewerBini, ReviewerMami:
		return true
	}
	return false
}
