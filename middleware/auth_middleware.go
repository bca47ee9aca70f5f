package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/acme/outline-api/internal/observability"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/services"
	"github.com/acme/outline-api/utils"
	"go.uber.org/zap"
)

// SessionResolver turns a bearer token into the caller's identity
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (models.AuthContext, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	resolver SessionResolver
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(resolver SessionResolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		logger:   logger,
	}
}

// AuthCookieName is the cookie carrying the session token. The Authorization
// header takes precedence when both are present.
const AuthCookieName = "auth_token"

// sessionCookieName is accepted for clients that still send the legacy cookie
const sessionCookieName = "session"

// RequireAuth rejects requests without a valid session and stores the
// resolved models.AuthContext in the request context
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := observability.ForRequest(ctx, m.logger)

		token := extractToken(r)
		if token == "" {
			logger.Debug("missing token")
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		auth, err := m.resolver.ResolveSession(ctx, token)
		if err != nil {
			if !services.IsUnauthorizedError(err) {
				logger.Error("session resolution failed", zap.Error(err))
				_ = utils.WriteInternalServerError(w, "An internal error occurred")
				return
			}
			logger.Warn("session rejected", zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired session")
			return
		}

		logger.Debug("authentication successful",
			zap.String("user_id", auth.UserID.String()),
			zap.String("session_id", auth.SessionID.String()))

		next.ServeHTTP(w, r.WithContext(WithAuthContext(ctx, auth)))
	})
}

// extractToken reads the Authorization header ("Bearer TOKEN") first, then the auth cookies
func extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	for _, name := range []string{AuthCookieName, sessionCookieName} {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
