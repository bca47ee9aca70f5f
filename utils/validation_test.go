package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outlineInput struct {
	Header      string  `json:"header" validate:"required,max=500"`
	SectionType string  `json:"sectionType" validate:"required,section_type"`
	Status      string  `json:"status" validate:"omitempty,outline_status"`
	Target      *int    `json:"target" validate:"omitempty,gte=0,lte=1000"`
	Reviewer    *string `json:"reviewer" validate:"omitempty,reviewer"`
}

type inviteInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,member_role"`
	Slug  string `json:"slug" validate:"omitempty,slug"`
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name       string
		input      interface{}
		wantFields []string
	}{
		{
			name:  "valid outline",
			input: outlineInput{Header: "Intro", SectionType: "Executive_Summary", Status: "In_Progress", Target: intPtr(1000), Reviewer: strPtr("Bini")},
		},
		{
			name:       "missing header and section type",
			input:      outlineInput{},
			wantFields: []string{"header", "sectionType"},
		},
		{
			name:       "unknown enums",
			input:      outlineInput{Header: "x", SectionType: "Appendix", Status: "Done", Reviewer: strPtr("Nobody")},
			wantFields: []string{"sectionType", "status", "reviewer"},
		},
		{
			name:       "target out of range",
			input:      outlineInput{Header: "x", SectionType: "Design", Target: intPtr(1001)},
			wantFields: []string{"target"},
		},
		{
			name:       "negative target",
			input:      outlineInput{Header: "x", SectionType: "Design", Target: intPtr(-1)},
			wantFields: []string{"target"},
		},
		{
			name:       "bad email role and slug",
			input:      inviteInput{Email: "nope", Role: "admin", Slug: "Bad Slug"},
			wantFields: []string{"email", "role", "slug"},
		},
		{
			name:  "valid invite",
			input: inviteInput{Email: "bob@example.com", Role: "owner", Slug: "acme-corp"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			fields := GetValidationFields(err)
			assert.Len(t, fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestValidationMessages(t *testing.T) {
	err := ValidateStruct(outlineInput{SectionType: "Design", Target: intPtr(5000)})
	fields := GetValidationFields(err)

	assert.Equal(t, "header is required", fields["header"])
	assert.Equal(t, "target must be less than or equal to 1000", fields["target"])
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(&ValidationError{Message: "Validation failed"}))
	assert.False(t, IsValidationError(errors.New("plain")))
	assert.Nil(t, GetValidationFields(errors.New("plain")))
}

func TestParseUUID(t *testing.T) {
	id, err := ParseUUID("550e8400-e29b-41d4-a716-446655440000", "id")
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())

	_, err = ParseUUID("not-a-uuid", "memberId")
	require.Error(t, err)
	assert.Equal(t, "memberId must be a valid UUID", err.Error())
}
