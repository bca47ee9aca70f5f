package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acme/outline-api/services"
	"github.com/acme/outline-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:            "not found",
			err:             services.ErrOutlineNotFound,
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "Outline not found",
		},
		{
			name:            "validation",
			err:             services.ErrInvalidSlug,
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "bad_request",
			expectedMessage: "invalid slug format",
		},
		{
			name:            "unauthorized",
			err:             services.ErrSessionExpired,
			expectedStatus:  http.StatusUnauthorized,
			expectedError:   "unauthorized",
			expectedMessage: "session expired",
		},
		{
			name:            "forbidden",
			err:             services.ErrOwnerRequiredInvite,
			expectedStatus:  http.StatusForbidden,
			expectedError:   "forbidden",
			expectedMessage: "Only owners can invite members",
		},
		{
			name:            "conflict",
			err:             services.ErrLastOwner,
			expectedStatus:  http.StatusConflict,
			expectedError:   "conflict",
			expectedMessage: "organization must keep at least one owner",
		},
		{
			name:            "internal hides the cause",
			err:             services.WrapInternal("failed to load", errors.New("pq: relation missing")),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An internal error occurred",
		},
		{
			name:            "plain error",
			err:             errors.New("boom"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			HandleServiceError(w, r, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedMessage, response.Message)
		})
	}
}

func TestHandleServiceError_Details(t *testing.T) {
	err := services.ErrInvalidOutline.WithDetail("header", "header is required")

	w := httptest.NewRecorder()
	HandleServiceError(w, httptest.NewRequest(http.MethodPost, "/", nil), err, zap.NewNop())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "header is required", response.Details["header"])
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil, zap.NewNop())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestHandleValidationError(t *testing.T) {
	type body struct {
		Email string `json:"email" validate:"required,email"`
	}

	w := httptest.NewRecorder()
	HandleValidationError(w, utils.ValidateStruct(body{Email: "nope"}), zap.NewNop())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "Validation failed", response.Message)
	assert.Contains(t, response.Details, "email")
}
