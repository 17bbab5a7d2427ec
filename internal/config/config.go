package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"development"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	RedisURL  string `env:"REDIS_URL" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	LedgerBackend string `env:"LEDGER_BACKEND" envDefault:"redis"`
	PostgresDSN   string `env:"POSTGRES_DSN"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
	APIKey    string        `env:"API_KEY"`

	BotToken       string `env:"DISCORD_TOKEN"`
	DiscordGuildID string `env:"DISCORD_GUILD_ID"`

	RoundTimeout   time.Duration `env:"ROUND_TIMEOUT" envDefault:"5m"`
	SweepSchedule  string        `env:"SWEEP_SCHEDULE" envDefault:"@every 1m"`
	SettleMaxTries uint          `env:"SETTLE_MAX_TRIES" envDefault:"5"`
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case BackendRedis:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres ledger backend")
		}
	default:
		return fmt.Errorf("unknown ledger backend: %q", c.LedgerBackend)
	}
	if c.RoundTimeout <= 0 {
		return fmt.Errorf("ROUND_TIMEOUT must be positive, got %s", c.RoundTimeout)
	}
	if c.SettleMaxTries == 0 {
		return errors.New("SETTLE_MAX_TRIES must be at least 1")
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	return nil
}
