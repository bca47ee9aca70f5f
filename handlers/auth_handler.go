package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/acme/outline-api/identity"
	"github.com/acme/outline-api/internal/observability"
	"github.com/acme/outline-api/middleware"
	"github.com/acme/outline-api/services"
	"github.com/acme/outline-api/services/ratelimit"
	"github.com/acme/outline-api/utils"
	"go.uber.org/zap"
)

// signInAction scopes sign-in attempts in the limiter
const signInAction = "signin"

// AttemptLimiter throttles failed sign-ins
type AttemptLimiter interface {
	Check(ctx context.Context, key string) (*ratelimit.Result, error)
	Record(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// SignUpRequest is the body of POST /auth/sign-up. bcrypt caps passwords at 72 bytes.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

// SignInRequest is the body of POST /auth/sign-in
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthHandler handles account and session requests
type AuthHandler struct {
	provider     identity.Provider
	limiter      AttemptLimiter
	cookieSecure bool
	logger       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. limiter may be nil.
func NewAuthHandler(provider identity.Provider, limiter AttemptLimiter, cookieSecure bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		provider:     provider,
		limiter:      limiter,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// HandleSignUp handles POST /auth/sign-up
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	res, err := h.provider.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	h.setSessionCookie(w, res.Token, res.Session.ExpiresAt)
	_ = utils.WriteCreated(w, res)
}

// HandleSignIn handles POST /auth/sign-in
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	key := ratelimit.ScopeKey(signInAction, req.Email)
	if !h.allowAttempt(w, r, key) {
		return
	}

	res, err := h.provider.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if services.IsUnauthorizedError(err) {
			h.recordFailure(r, key)
		}
		HandleServiceError(w, r, err, h.logger)
		return
	}
	h.resetAttempts(r, key)

	h.setSessionCookie(w, res.Token, res.Session.ExpiresAt)
	_ = utils.WriteOK(w, res)
}

// allowAttempt writes 429 when key is throttled. Limiter failures let the attempt through.
func (h *AuthHandler) allowAttempt(w http.ResponseWriter, r *http.Request, key string) bool {
	if h.limiter == nil {
		return true
	}

	res, err := h.limiter.Check(r.Context(), key)
	if err != nil {
		observability.ForRequest(r.Context(), h.logger).Warn("sign-in limiter unavailable", zap.Error(err))
		return true
	}
	if res.Allowed {
		return true
	}

	w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Round(time.Second)/time.Second)))
	_ = utils.WriteError(w, http.StatusTooManyRequests, "Too many sign-in attempts, try again later", nil)
	return false
}

func (h *AuthHandler) recordFailure(r *http.Request, key string) {
	if h.limiter == nil {
		return
	}
	if err := h.limiter.Record(r.Context(), key); err != nil {
		observability.ForRequest(r.Context(), h.logger).Warn("failed to record sign-in attempt", zap.Error(err))
	}
}

func (h *AuthHandler) resetAttempts(r *http.Request, key string) {
	if h.limiter == nil {
		return
	}
	if err := h.limiter.Reset(r.Context(), key); err != nil {
		observability.ForRequest(r.Context(), h.logger).Warn("failed to reset sign-in attempts", zap.Error(err))
	}
}

// HandleSignOut handles POST /auth/sign-out
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	if err := h.provider.SignOut(r.Context(), caller.SessionID); err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	h.clearSessionCookie(w)
	utils.WriteNoContent(w)
}

// HandleSession handles GET /auth/session
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	view, err := h.provider.CurrentSession(r.Context(), caller)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, view)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
