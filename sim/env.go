package sim

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds process settings shared by the commands.
type EnvConfig struct {
	TickRate      float64 `env:"COMPANION_TICK_RATE"      envDefault:"60"`
	DashboardAddr string  `env:"COMPANION_DASHBOARD_ADDR" envDefault:":8088"`
	PrefabDir     string  `env:"COMPANION_PREFAB_DIR"     envDefault:"prefabs"`
	Room          string  `env:"COMPANION_ROOM"           envDefault:"square"`
	Companions    int     `env:"COMPANION_COUNT"          envDefault:"1"`
	Watch         bool    `env:"COMPANION_WATCH"          envDefault:"true"`
	AutoInit      bool    `env:"COMPANION_AUTO_INIT"      envDefault:"true"`
	LogLevel      string  `env:"COMPANION_LOG_LEVEL"      envDefault:"info"`
}

func ParseEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TickRate <= 0 {
		return EnvConfig{}, fmt.Errorf("parse env: COMPANION_TICK_RATE must be positive, got %v", cfg.TickRate)
	}
	if cfg.Companions <= 0 {
		return EnvConfig{}, fmt.Errorf("parse env: COMPANION_COUNT must be positive, got %d", cfg.Companions)
	}
	return cfg, nil
}

// Level maps LogLevel to a slog level; unknown names mean info.
func (c EnvConfig) Level() slog.Level {
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

// NewLogger returns a text logger on stderr at the configured level.
func (c EnvConfig) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.Level()}))
}
