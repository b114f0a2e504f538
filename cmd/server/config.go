package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type serverConfig struct {
	HTTPAddr      string        `env:"SOULFORGE_HTTP_ADDR"       envDefault:":8080"`
	DBDSN         string        `env:"SOULFORGE_DB_DSN"`
	HMACSecret    string        `env:"SOULFORGE_HMAC_SECRET,notEmpty"`
	TuningFile    string        `env:"SOULFORGE_TUNING_FILE"`
	MigrationsDir string        `env:"SOULFORGE_MIGRATIONS_DIR"`
	RateWindow    time.Duration `env:"SOULFORGE_RATE_WINDOW"`
	PruneEvery    time.Duration `env:"SOULFORGE_PRUNE_INTERVAL"  envDefault:"10m"`
	DebugExplain  bool          `env:"SOULFORGE_DEBUG_EXPLAIN"`
	CORSOrigin    string        `env:"SOULFORGE_CORS_ORIGIN"`
	LogLevel      string        `env:"SOULFORGE_LOG_LEVEL"       envDefault:"info"`
}

func loadConfig() (serverConfig, error) {
	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return serverConfig{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DBDSN = strings.TrimSpace(cfg.DBDSN)
	if cfg.RateWindow < 0 || cfg.PruneEvery < 0 {
		return serverConfig{}, errors.New("parse env: durations must not be negative")
	}
	return cfg, nil
}

func (c serverConfig) slogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
