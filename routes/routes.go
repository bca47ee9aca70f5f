package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/acme/outline-api/app"
	authmw "github.com/acme/outline-api/middleware"
	"github.com/acme/outline-api/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmw.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if deps.Config.Server.RequestTimeout > 0 {
			r.Use(middleware.Timeout(deps.Config.Server.RequestTimeout))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/sign-up", deps.AuthHandler.HandleSignUp)
			r.Post("/sign-in", deps.AuthHandler.HandleSignIn)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireAuth)
				r.Post("/sign-out", deps.AuthHandler.HandleSignOut)
				r.Get("/session", deps.AuthHandler.HandleSession)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)

			r.Route("/organizations", func(r chi.Router) {
				r.Get("/", deps.OrganizationHandler.HandleList)
				r.Post("/", deps.OrganizationHandler.HandleCreate)
				r.Post("/active", deps.OrganizationHandler.HandleSetActive)
				r.Post("/invitations/{invitationId}/accept", deps.OrganizationHandler.HandleAcceptInvitation)
			})

			r.Route("/outlines", func(r chi.Router) {
				r.Get("/", deps.OutlineHandler.HandleList)
				r.Post("/", deps.OutlineHandler.HandleCreate)
				r.Get("/{id}", deps.OutlineHandler.HandleGet)
				r.Patch("/{id}", deps.OutlineHandler.HandleUpdate)
				r.Delete("/{id}", deps.OutlineHandler.HandleDelete)
			})

			r.Route("/team", func(r chi.Router) {
				r.Get("/", deps.TeamHandler.HandleGetTeam)
				r.Post("/{orgId}/invite", deps.TeamHandler.HandleInvite)
				r.Patch("/{orgId}/members/{memberId}/role", deps.TeamHandler.HandleUpdateRole)
				r.Delete("/{orgId}/members/{memberId}", deps.TeamHandler.HandleRemoveMember)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
