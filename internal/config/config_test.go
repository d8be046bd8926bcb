package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "profile-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.True(t, cfg.Auth.RequireSession)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL())
	assert.False(t, cfg.Messages.ReportStoreErrors)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window())
	assert.Equal(t, 120, cfg.RateLimit.Requests)
	assert.Equal(t, 600, cfg.RateLimit.ForClients().Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.ForClients().Window())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/profiles")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("MESSAGES_REPORT_STORE_ERRORS", "true")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.True(t, cfg.Messages.ReportStoreErrors)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
}

func TestLoadRejectsMissingDriverSettings(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGO_URI", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")

	t.Setenv("STORE_DRIVER", "cassandra")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadRequiresSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	_, err = Load()
	require.NoError(t, err)
}

func TestInvalidRedisDB(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_DB", "x")

	_, err := Load()
	require.Error(t, err)
}
