package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acme/outline-api/config"
	"github.com/acme/outline-api/handlers"
	"github.com/acme/outline-api/identity"
	"github.com/acme/outline-api/internal/observability"
	"github.com/acme/outline-api/middleware"
	"github.com/acme/outline-api/notification"
	"github.com/acme/outline-api/repositories"
	"github.com/acme/outline-api/repositories/postgres"
	"github.com/acme/outline-api/services/access"
	"github.com/acme/outline-api/services/invitation"
	"github.com/acme/outline-api/services/outline"
	"github.com/acme/outline-api/services/ratelimit"
	"github.com/acme/outline-api/services/team"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Dependencies holds every wired component of the API.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Logger  *zap.Logger
	Metrics *observability.Metrics

	RepoFactory *postgres.RepositoryFactory
	Repos       *repositories.Repositories
	TxManager   repositories.TransactionManager

	// Domain
	Limiter     *ratelimit.Limiter
	Dispatcher  *notification.Dispatcher
	Identity    identity.Provider
	Guard       *access.Guard
	Outlines    *outline.Service
	Team        *team.Service
	Invitations *invitation.Service

	// HTTP
	AuthMiddleware      *middleware.AuthMiddleware
	AuthHandler         *handlers.AuthHandler
	OrganizationHandler *handlers.OrganizationHandler
	OutlineHandler      *handlers.OutlineHandler
	TeamHandler         *handlers.TeamHandler
	HealthHandler       *handlers.HealthHandler

	stopWorkers context.CancelFunc
}

// NewDependencies connects to PostgreSQL and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	db := factory.GetDB()
	if cfg.Database.AutoMigrate {
		if err := db.InitSchema(ctx); err != nil {
			_ = factory.Close()
			return nil, fmt.Errorf("failed to initialize database: schema: %w", err)
		}
		logger.Info("database schema ensured")
	}

	deps, err := Wire(cfg, logger, factory.NewRepositories(), factory.GetTransactionManager(), db)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	deps.RepoFactory = factory

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// Wire builds the domain and HTTP layers on top of already-open repositories.
// db is optional; without it readiness reports not_configured and sign-ins are not throttled.
func Wire(cfg *config.Config, logger *zap.Logger, repos *repositories.Repositories, txMgr repositories.TransactionManager, db *postgres.DB) (*Dependencies, error) {
	d := &Dependencies{
		Config:    cfg,
		DB:        db,
		Logger:    logger,
		Repos:     repos,
		TxManager: txMgr,
	}

	if cfg.Observability.MetricsEnabled {
		d.Metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	if err := d.initNotifications(); err != nil {
		return nil, fmt.Errorf("failed to initialize notifications: %w", err)
	}

	provider, err := identity.New(cfg, identity.Deps{
		Repos:     repos,
		TxManager: txMgr,
		Notifier:  d.Dispatcher,
		Metrics:   d.Metrics,
		Logger:    logger.Named("identity"),
	})
	if err != nil {
		_ = d.Dispatcher.Stop(cfg.Server.ShutdownTimeout)
		return nil, fmt.Errorf("failed to initialize identity provider: %w", err)
	}
	d.Identity = provider

	d.initLimiter()

	d.Guard = access.NewGuard(repos.Memberships, d.Metrics, logger.Named("access"))
	d.Outlines = outline.NewService(repos.Outlines, d.Guard, logger.Named("outline"))
	d.Team = team.NewService(repos.Organizations, repos.Memberships, repos.Outlines, d.Guard, logger.Named("team"))
	d.Invitations = invitation.NewService(provider, d.Guard, logger.Named("invitation"))

	d.initHTTP()
	return d, nil
}

func (d *Dependencies) initNotifications() error {
	mailer, err := notification.NewMailer(d.Config, d.Logger.Named("mailer"))
	if err != nil {
		return err
	}
	d.Dispatcher = notification.NewDispatcher(mailer, d.Config.Notify, d.Metrics, d.Logger.Named("notify"))
	return d.Dispatcher.Start()
}

// initLimiter enables sign-in throttling when a database is available
func (d *Dependencies) initLimiter() {
	if d.DB == nil || d.Config.Auth.SignInMaxAttempts <= 0 {
		d.Logger.Info("sign-in throttling disabled")
		return
	}

	d.Limiter = ratelimit.NewLimiter(d.DB.DB, ratelimit.Window{
		Limit:  d.Config.Auth.SignInMaxAttempts,
		Period: d.Config.Auth.SignInWindow,
	}, d.Logger.Named("ratelimit"))

	ctx, cancel := context.WithCancel(context.Background())
	d.stopWorkers = cancel
	go d.Limiter.StartCleanupWorker(ctx, d.Config.Auth.SignInWindow)
}

func (d *Dependencies) initHTTP() {
	var limiter handlers.AttemptLimiter
	if d.Limiter != nil {
		limiter = d.Limiter
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Identity, d.Logger)
	d.AuthHandler = handlers.NewAuthHandler(d.Identity, limiter, d.Config.Auth.CookieSecure, d.Logger)
	d.OrganizationHandler = handlers.NewOrganizationHandler(d.Identity, d.Logger)
	d.OutlineHandler = handlers.NewOutlineHandler(d.Outlines, d.Logger)
	d.TeamHandler = handlers.NewTeamHandler(d.Team, d.Invitations, d.Logger)

	// a typed nil *postgres.DB must not reach the interface
	if d.DB != nil {
		d.HealthHandler = handlers.NewHealthHandler(d.DB, d.Logger)
	} else {
		d.HealthHandler = handlers.NewHealthHandler(nil, d.Logger)
	}
}

// Close drains pending notifications and releases the database.
// It is safe to call more than once.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.stopWorkers != nil {
		d.stopWorkers()
	}

	if d.Dispatcher != nil {
		timeout := d.Config.Server.ShutdownTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Dispatcher.Stop(timeout); err != nil && !errors.Is(err, notification.ErrNotRunning) {
			errs = append(errs, fmt.Errorf("failed to stop notification dispatcher: %w", err))
		}
	}

	if d.Identity != nil {
		if err := d.Identity.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close identity provider: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
