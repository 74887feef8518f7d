package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	goenv "github.com/Netflix/go-env"
)

// Config aggregates every runtime setting of the portal. Values come from
// the process environment; cmd/server loads a .env file first.
type Config struct {
	Addr          string `env:"PORT,default=3000"`
	StaticDir     string `env:"STATIC_DIR"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN,default=*"`
	LogLevel      string `env:"LOG_LEVEL,default=info"`

	JWTSecret     string        `env:"JWT_SECRET,default=fallback_secret_key_cambiar_en_produccion"`
	TokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	BadgerPath string `env:"BADGER_FILEPATH,default=data/portal"`

	HistoryLimit  int `env:"CHAT_HISTORY_LIMIT,default=100"`
	MaxMessageLen int `env:"CHAT_MAX_MESSAGE_LENGTH,default=500"`

	SweepInterval time.Duration `env:"PRESENCE_SWEEP_INTERVAL,default=5m"`
	IdleThreshold time.Duration `env:"PRESENCE_IDLE_THRESHOLD,default=5m"`

	AdminUsername string `env:"ADMIN_USERNAME,default=admin"`
	AdminEmail    string `env:"ADMIN_EMAIL,default=admin@portal.com"`
	AdminPassword string `env:"ADMIN_PASSWORD,default=admin123"`
}

// Load unmarshals the environment into a Config and normalizes it.
func Load() (*Config, error) {
	var cfg Config
	if _, err := goenv.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Accept either ":3000" / "127.0.0.1:3000" or a bare port number.
	if !strings.Contains(cfg.Addr, ":") {
		cfg.Addr = ":" + cfg.Addr
	}

	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}
	if cfg.MaxMessageLen <= 0 {
		cfg.MaxMessageLen = 500
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = 5 * time.Minute
	}

	return &cfg, nil
}

// SlogLevel maps the configured LOG_LEVEL string onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
