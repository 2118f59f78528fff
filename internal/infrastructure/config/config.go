package config

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,           default=8080"`
	Env       string        `env:"ENV,            default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	JWTExpiry time.Duration `env:"JWT_EXPIRES_IN, default=168h"`
	LogLevel  string        `env:"LOG_LEVEL,      default=info"`

	Postgres  PostgresConfig
	Redis     RedisConfig
	Federated FederatedConfig
}

type PostgresConfig struct {
	DSN string `env:"DATABASE_URL, default=postgres://localhost:5432/campushub?sslmode=disable"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// FederatedConfig points at the upstream identity provider. All three values
// are required for federated login; leaving them unset disables it.
type FederatedConfig struct {
	Issuer   string `env:"FEDERATED_ISSUER"`
	Audience string `env:"FEDERATED_AUDIENCE"`
	JWKSURL  string `env:"FEDERATED_JWKS_URL"`
}

func (f FederatedConfig) Enabled() bool {
	return f.Issuer != "" && f.Audience != "" && f.JWKSURL != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
