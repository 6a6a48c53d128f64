package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/playledger/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "PlayLedger", cfg.App.Name)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, config.BackendPostgres, cfg.Remote.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Demo.Seed)
	assert.Empty(t, cfg.Local.Path)
	assert.Equal(t, 15*time.Second, cfg.Session.SignInTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, time.Minute, cfg.Session.EvictInterval)
	assert.Equal(t, "postgres://postgres:@localhost:5432/playledger?sslmode=disable", cfg.ConnectionString())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REMOTE_BACKEND", "memory")
	t.Setenv("LOCAL_DB_PATH", "/tmp/ledger.db")
	t.Setenv("AUTH_SECRET", "s3cret")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173,https://ledger.example.com")
	t.Setenv("DEMO_SEED", "false")
	t.Setenv("SESSION_IDLE_TIMEOUT", "5m")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, config.BackendMemory, cfg.Remote.Backend)
	assert.Equal(t, "/tmp/ledger.db", cfg.Local.Path)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, []string{"http://localhost:5173", "https://ledger.example.com"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Demo.Seed)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	type testCase struct {
		name string
		env  map[string]string
	}

	tests := []testCase{
		{name: "Unknown Backend", env: map[string]string{"REMOTE_BACKEND": "firestore"}},
		{name: "Zero TTL", env: map[string]string{"AUTH_TOKEN_TTL": "0s"}},
		{name: "Bad Port", env: map[string]string{"PORT": "eighty"}},
		{name: "Zero Idle Timeout", env: map[string]string{"SESSION_IDLE_TIMEOUT": "0s"}},
		{name: "Negative Evict Interval", env: map[string]string{"SESSION_EVICT_INTERVAL": "-1m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
