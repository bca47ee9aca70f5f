package app

import (
	"context"
	"testing"
	"time"

	"github.com/acme/outline-api/config"
	"github.com/acme/outline-api/repositories"
	"github.com/acme/outline-api/repositories/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWire(t *testing.T) {
	t.Run("builds every component", func(t *testing.T) {
		cfg := testConfig()
		deps, err := Wire(cfg, zaptest.NewLogger(t), testRepos(), &mocks.TransactionManager{}, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = deps.Close(context.Background()) })

		assert.NotNil(t, deps.Metrics)
		assert.NotNil(t, deps.Dispatcher)
		assert.NotNil(t, deps.Identity)
		assert.NotNil(t, deps.Guard)
		assert.NotNil(t, deps.Outlines)
		assert.NotNil(t, deps.Team)
		assert.NotNil(t, deps.Invitations)

		assert.NotNil(t, deps.AuthMiddleware)
		assert.NotNil(t, deps.AuthHandler)
		assert.NotNil(t, deps.OrganizationHandler)
		assert.NotNil(t, deps.OutlineHandler)
		assert.NotNil(t, deps.TeamHandler)
		assert.NotNil(t, deps.HealthHandler)
	})

	t.Run("metrics disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.Observability.MetricsEnabled = false

		deps, err := Wire(cfg, zaptest.NewLogger(t), testRepos(), &mocks.TransactionManager{}, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = deps.Close(context.Background()) })

		assert.Nil(t, deps.Metrics)
	})

	t.Run("missing session secret", func(t *testing.T) {
		cfg := testConfig()
		cfg.Auth.SessionSecret = ""

		deps, err := Wire(cfg, zaptest.NewLogger(t), testRepos(), &mocks.TransactionManager{}, nil)
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "identity provider")
	})
}

func TestNewDependencies_DatabaseUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = 1

	deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
	assert.Nil(t, deps)
	assert.Contains(t, err.Error(), "failed to initialize database")
}

func TestDependencies_CloseTwice(t *testing.T) {
	deps, err := Wire(testConfig(), zaptest.NewLogger(t), testRepos(), &mocks.TransactionManager{}, nil)
	require.NoError(t, err)

	assert.NoError(t, deps.Close(context.Background()))
	assert.NoError(t, deps.Close(context.Background()))
}

// Test helpers

func testRepos() *repositories.Repositories {
	return &repositories.Repositories{
		Users:         &mocks.UserRepository{},
		Organizations: &mocks.OrganizationRepository{},
		Memberships:   &mocks.MembershipRepository{},
		Outlines:      &mocks.OutlineRepository{},
		Invitations:   &mocks.InvitationRepository{},
		Sessions:      &mocks.SessionRepository{},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		FrontEndURL: "http://localhost:3000",
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 2 * time.Second,
		},
		Database: config.DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "outline",
			Password: "outline",
			Database: "outline_test",
			SSLMode:  "disable",
		},
		Auth: config.AuthConfig{
			SessionSecret:   "test-secret-with-enough-entropy",
			SessionTTL:      time.Hour,
			CacheSize:       16,
			CacheTTL:        time.Minute,
			BcryptCost:      4,
			MinPasswordSize: 8,
		},
		Invitations: config.InvitationConfig{TTL: 24 * time.Hour},
		Notify:      config.NotifyConfig{Workers: 1, BufferSize: 4},
		CORS:        config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Observability: config.ObservabilityConfig{
			LogLevel:       "debug",
			LogFormat:      "json",
			MetricsEnabled: true,
		},
	}
}
