package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/acme/outline-api/identity"
	idmocks "github.com/acme/outline-api/identity/mocks"
	"github.com/acme/outline-api/middleware"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/services"
	"github.com/acme/outline-api/services/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func authResult() *identity.AuthResult {
	user := models.NewUser("ada@acme.test", "Ada", "hash")
	return &identity.AuthResult{
		Token:   "signed.jwt.token",
		User:    user,
		Session: models.NewSession(user.ID, nil, time.Hour),
	}
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.AuthCookieName {
			return c
		}
	}
	return nil
}

func TestAuthHandler_SignUp(t *testing.T) {
	t.Run("creates the account and sets the cookie", func(t *testing.T) {
		provider := new(idmocks.Provider)
		h := NewAuthHandler(provider, nil, true, zap.NewNop())

		res := authResult()
		provider.On("SignUp", mock.Anything, "ada@acme.test", "correct-horse", "Ada").Return(res, nil)

		body := map[string]string{"email": "ada@acme.test", "password": "correct-horse", "name": "Ada"}
		w := httptest.NewRecorder()
		h.HandleSignUp(w, newRequest(t, http.MethodPost, "/auth/sign-up", body, nil, nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		cookie := sessionCookie(w)
		require.NotNil(t, cookie)
		assert.Equal(t, "signed.jwt.token", cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)

		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "signed.jwt.token", data["token"])
		assert.NotContains(t, data["user"].(map[string]interface{}), "passwordHash")
		provider.AssertExpectations(t)
	})

	t.Run("invalid email is rejected before the provider", func(t *testing.T) {
		provider := new(idmocks.Provider)
		h := NewAuthHandler(provider, nil, false, zap.NewNop())

		body := map[string]string{"email": "not-an-email", "password": "correct-horse", "name": "Ada"}
		w := httptest.NewRecorder()
		h.HandleSignUp(w, newRequest(t, http.MethodPost, "/auth/sign-up", body, nil, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["details"], "email")
		provider.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate email is 409", func(t *testing.T) {
		provider := new(idmocks.Provider)
		h := NewAuthHandler(provider, nil, false, zap.NewNop())
		provider.On("SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, services.ErrDuplicateEmail)

		body := map[string]string{"email": "ada@acme.test", "password": "correct-horse", "name": "Ada"}
		w := httptest.NewRecorder()
		h.HandleSignUp(w, newRequest(t, http.MethodPost, "/auth/sign-up", body, nil, nil))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Nil(t, sessionCookie(w))
	})
}

func TestAuthHandler_SignIn(t *testing.T) {
	t.Run("returns 200 and sets the cookie", func(t *testing.T) {
		provider := new(idmocks.Provider)
		h := NewAuthHandler(provider, nil, false, zap.NewNop())
		provider.On("SignIn", mock.Anything, "ada@acme.test", "correct-horse").Return(authResult(), nil)

		body := map[string]string{"email": "ada@acme.test", "password": "correct-horse"}
		w := httptest.NewRecorder()
		h.HandleSignIn(w, newRequest(t, http.MethodPost, "/auth/sign-in", body, nil, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, sessionCookie(w))
	})

	t.Run("bad credentials are 401", func(t *testing.T) {
		provider := new(idmocks.Provider)
		h := NewAuthHandler(provider, nil, false, zap.NewNop())
		provider.On("SignIn", mock.Anything, mock.Anything, mock.Anything).Return(nil, services.ErrInvalidCredentials)

		body := map[string]string{"email": "ada@acme.test", "password": "wrong"}
		w := httptest.NewRecorder()
		h.HandleSignIn(w, newRequest(t, http.MethodPost, "/auth/sign-in", body, nil, nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid email or password", decodeBody(t, w)["message"])
	})
}

func TestAuthHandler_SignOut(t *testing.T) {
	caller := testCaller()
	provider := new(idmocks.Provider)
	h := NewAuthHandler(provider, nil, false, zap.NewNop())
	provider.On("SignOut", mock.Anything, caller.SessionID).Return(nil)

	w := httptest.NewRecorder()
	h.HandleSignOut(w, newRequest(t, http.MethodPost, "/auth/sign-out", nil, &caller, nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
	provider.AssertExpectations(t)
}

func TestAuthHandler_Session(t *testing.T) {
	caller := testCaller()

	t.Run("returns the current session", func(t *testing.T) {
		provider := new(idmocks.Provider)
		h := NewAuthHandler(provider, nil, false, zap.NewNop())

		user := models.NewUser("ada@acme.test", "Ada", "hash")
		session := models.NewSession(user.ID, caller.ActiveOrganizationID, time.Hour)
		provider.On("CurrentSession", mock.Anything, caller).Return(&identity.SessionView{User: user, Session: session}, nil)

		w := httptest.NewRecorder()
		h.HandleSession(w, newRequest(t, http.MethodGet, "/auth/session", nil, &caller, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, caller.ActiveOrganizationID.String(), data["session"].(map[string]interface{})["activeOrganizationId"])
	})

	t.Run("requires authentication", func(t *testing.T) {
		h := NewAuthHandler(new(idmocks.Provider), nil, false, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleSession(w, newRequest(t, http.MethodGet, "/auth/session", nil, nil, nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_SignInThrottling(t *testing.T) {
	body := map[string]string{"email": "Ada@acme.test", "password": "correct-horse"}
	key := "signin:ada@acme.test"

	t.Run("throttled caller gets 429 without reaching the provider", func(t *testing.T) {
		provider := new(idmocks.Provider)
		limiter := new(mockLimiter)
		h := NewAuthHandler(provider, limiter, false, zap.NewNop())
		limiter.On("Check", mock.Anything, key).Return(&ratelimit.Result{Allowed: false, RetryAfter: 90 * time.Second}, nil)

		w := httptest.NewRecorder()
		h.HandleSignIn(w, newRequest(t, http.MethodPost, "/auth/sign-in", body, nil, nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "90", w.Header().Get("Retry-After"))
		assert.Equal(t, "rate_limit_exceeded", decodeBody(t, w)["error"])
		provider.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad credentials are recorded", func(t *testing.T) {
		provider := new(idmocks.Provider)
		limiter := new(mockLimiter)
		h := NewAuthHandler(provider, limiter, false, zap.NewNop())
		limiter.On("Check", mock.Anything, key).Return(&ratelimit.Result{Allowed: true, Remaining: 4}, nil)
		limiter.On("Record", mock.Anything, key).Return(nil)
		provider.On("SignIn", mock.Anything, "Ada@acme.test", "correct-horse").Return(nil, services.ErrInvalidCredentials)

		w := httptest.NewRecorder()
		h.HandleSignIn(w, newRequest(t, http.MethodPost, "/auth/sign-in", body, nil, nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		limiter.AssertExpectations(t)
		limiter.AssertNotCalled(t, "Reset", mock.Anything, mock.Anything)
	})

	t.Run("success resets the counter", func(t *testing.T) {
		provider := new(idmocks.Provider)
		limiter := new(mockLimiter)
		h := NewAuthHandler(provider, limiter, false, zap.NewNop())
		limiter.On("Check", mock.Anything, key).Return(&ratelimit.Result{Allowed: true, Remaining: 4}, nil)
		limiter.On("Reset", mock.Anything, key).Return(nil)
		provider.On("SignIn", mock.Anything, "Ada@acme.test", "correct-horse").Return(authResult(), nil)

		w := httptest.NewRecorder()
		h.HandleSignIn(w, newRequest(t, http.MethodPost, "/auth/sign-in", body, nil, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		limiter.AssertExpectations(t)
		limiter.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("limiter failure does not block sign-in", func(t *testing.T) {
		provider := new(idmocks.Provider)
		limiter := new(mockLimiter)
		h := NewAuthHandler(provider, limiter, false, zap.NewNop())
		limiter.On("Check", mock.Anything, key).Return(nil, errors.New("db down"))
		limiter.On("Reset", mock.Anything, key).Return(errors.New("db down"))
		provider.On("SignIn", mock.Anything, mock.Anything, mock.Anything).Return(authResult(), nil)

		w := httptest.NewRecorder()
		h.HandleSignIn(w, newRequest(t, http.MethodPost, "/auth/sign-in", body, nil, nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
