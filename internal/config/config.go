package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"PlayLedger"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"playledger"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	}

	// Local is the device-local store ephemeral ledgers live in. An empty
	// path keeps them in memory.
	Local struct {
		Path string `envconfig:"LOCAL_DB_PATH" default:""`
	}

	Remote struct {
		Backend string `envconfig:"REMOTE_BACKEND" default:"postgres"`
	}

	Auth struct {
		Secret   string        `envconfig:"AUTH_SECRET"`
		TokenTTL time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
	}

	Demo struct {
		Seed bool `envconfig:"DEMO_SEED" default:"true"`
	}

	// Session bounds how long a request may wait for a sign-in and how long
	// an unused session stays signed in on the server.
	Session struct {
		SignInTimeout time.Duration `envconfig:"SESSION_SIGNIN_TIMEOUT" default:"15s"`
		IdleTimeout   time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`
		EvictInterval time.Duration `envconfig:"SESSION_EVICT_INTERVAL" default:"1m"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func (c *Config) Validate() error {
	backends := []string{BackendPostgres, BackendMemory}
	if !slices.Contains(backends, c.Remote.Backend) {
		return fmt.Errorf("invalid remote backend %q: must be one of %v", c.Remote.Backend, backends)
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.Auth.TokenTTL)
	}

	if c.Session.IdleTimeout <= 0 || c.Session.EvictInterval <= 0 {
		return fmt.Errorf("session idle timeout and evict interval must be positive, got %s and %s",
			c.Session.IdleTimeout, c.Session.EvictInterval)
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
