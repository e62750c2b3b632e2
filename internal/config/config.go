package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/escaperoom.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR"`

	// RedisURL enables cross-process change fan-out. Empty keeps the feed in-process.
	RedisURL     string `env:"REDIS_URL"`
	RedisChannel string `env:"REDIS_CHANNEL" envDefault:"escaperoom:changes"`

	TotalRooms    int    `env:"TOTAL_ROOMS" envDefault:"6"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"escaperoom2024"`
	PublicURL     string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	TimerPollInterval        time.Duration `env:"TIMER_POLL_INTERVAL" envDefault:"250ms"`
	LeaderboardSweepInterval time.Duration `env:"LEADERBOARD_SWEEP_INTERVAL" envDefault:"30s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.TotalRooms < 1 {
		return nil, fmt.Errorf("TOTAL_ROOMS must be at least 1, got %d", cfg.TotalRooms)
	}
	if cfg.TimerPollInterval <= 0 || cfg.TimerPollInterval > time.Second {
		return nil, fmt.Errorf("TIMER_POLL_INTERVAL must be in (0, 1s], got %s", cfg.TimerPollInterval)
	}
	return &cfg, nil
}
