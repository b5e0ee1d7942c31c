package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT"      envDefault:"8080"  validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`

	// Empty DATABASE_URL is only allowed locally; the server then falls back to the in-memory store.
	DatabaseURL   string `env:"DATABASE_URL"   validate:"required_unless=Env local"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"false"`

	DBMaxConns       int32         `env:"DB_MAX_CONNS"       envDefault:"10" validate:"min=1,max=100"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	// Signing secrets for emailed links. Not required at startup: a missing
	// key fails the affected requests with a config error instead.
	ActivationSecret string `env:"JWT_KEY"       validate:"omitempty,min=32"`
	ResetSecret      string `env:"JWT_RESET_KEY" validate:"omitempty,min=32"`
	SessionSecret    string `env:"SESSION_SECRET,required" validate:"required,min=32"`
	BcryptCost       int    `env:"BCRYPT_COST" envDefault:"10" validate:"min=4,max=31"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
	AppBaseURL   string `env:"APP_BASE_URL"   envDefault:"http://localhost:8080" validate:"required,url"`
	ClientURL    string `env:"CLIENT_URL"     envDefault:"http://localhost:3000" validate:"required,url"`

	EmailWorkers   int `env:"EMAIL_WORKERS"    envDefault:"2"   validate:"min=1,max=32"`
	EmailQueueSize int `env:"EMAIL_QUEUE_SIZE" envDefault:"100" validate:"min=1"`

	CleanupSchedule string `env:"CLEANUP_SCHEDULE" envDefault:"@every 10m" validate:"required"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
