package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/acme/outline-api/middleware"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/services/invitation"
	"github.com/acme/outline-api/services/outline"
	"github.com/acme/outline-api/services/ratelimit"
	"github.com/acme/outline-api/services/team"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOutlineService struct {
	mock.Mock
}

func (m *mockOutlineService) Create(ctx context.Context, caller models.AuthContext, input outline.CreateInput) (*models.Outline, error) {
	args := m.Called(ctx, caller, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Outline), args.Error(1)
}

func (m *mockOutlineService) ListByOrganization(ctx context.Context, caller models.AuthContext, orgID uuid.UUID) ([]*models.Outline, error) {
	args := m.Called(ctx, caller, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Outline), args.Error(1)
}

func (m *mockOutlineService) GetByID(ctx context.Context, caller models.AuthContext, id uuid.UUID) (*models.Outline, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Outline), args.Error(1)
}

func (m *mockOutlineService) Update(ctx context.Context, caller models.AuthContext, id uuid.UUID, patch outline.UpdateInput) (*models.Outline, error) {
	args := m.Called(ctx, caller, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Outline), args.Error(1)
}

func (m *mockOutlineService) Remove(ctx context.Context, caller models.AuthContext, id uuid.UUID) error {
	return m.Called(ctx, caller, id).Error(0)
}

type mockTeamService struct {
	mock.Mock
}

func (m *mockTeamService) GetTeamSnapshot(ctx context.Context, caller models.AuthContext) (*team.Snapshot, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*team.Snapshot), args.Error(1)
}

type mockInvitationService struct {
	mock.Mock
}

func (m *mockInvitationService) Invite(ctx context.Context, caller models.AuthContext, orgID uuid.UUID, input invitation.InviteInput) (*models.Invitation, error) {
	args := m.Called(ctx, caller, orgID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *mockInvitationService) UpdateRole(ctx context.Context, caller models.AuthContext, orgID, memberID uuid.UUID, input invitation.UpdateRoleInput) (*models.MemberWithUser, error) {
	args := m.Called(ctx, caller, orgID, memberID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MemberWithUser), args.Error(1)
}

func (m *mockInvitationService) RemoveMember(ctx context.Context, caller models.AuthContext, orgID, memberID uuid.UUID) (*invitation.RemoveResult, error) {
	args := m.Called(ctx, caller, orgID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invitation.RemoveResult), args.Error(1)
}

func testCaller() models.AuthContext {
	orgID := uuid.New()
	return models.AuthContext{
		UserID:               uuid.New(),
		SessionID:            uuid.New(),
		ActiveOrganizationID: &orgID,
	}
}

// newRequest builds a request carrying caller (when non-nil) and chi URL params
func newRequest(t *testing.T, method, target string, body interface{}, caller *models.AuthContext, params map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")

	ctx := r.Context()
	if caller != nil {
		ctx = middleware.WithAuthContext(ctx, *caller)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return r.WithContext(ctx)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Check(ctx context.Context, key string) (*ratelimit.Result, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ratelimit.Result), args.Error(1)
}

func (m *mockLimiter) Record(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockLimiter) Reset(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
