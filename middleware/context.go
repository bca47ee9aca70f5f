package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/acme/outline-api/models"
)

type contextKey string

// AuthContextKey is the context key for the resolved caller identity
const AuthContextKey contextKey = "auth_context"

// GetRequestIDFromContext returns the id assigned by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// WithAuthContext stores the caller identity in ctx
func WithAuthContext(ctx context.Context, auth models.AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, auth)
}

// GetAuthContext returns the caller identity stored by RequireAuth
func GetAuthContext(ctx context.Context) (models.AuthContext, bool) {
	auth, ok := ctx.Value(AuthContextKey).(models.AuthContext)
	return auth, ok
}
