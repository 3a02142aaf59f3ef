// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config filled with defaults.
// - Load layers a YAML file and BONK_* environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the score store: "sqlite" or "memory".
	StoreDriver string `koanf:"store_driver"`

	// DBPath is the sqlite database file used when StoreDriver is sqlite.
	DBPath string `koanf:"db_path"`

	// SlotCount is the number of holes a target can appear in.
	SlotCount int `koanf:"slot_count"`

	// RoundSeconds is the length of one round.
	RoundSeconds int `koanf:"round_seconds"`

	// MinSpawnDelayMS and MaxSpawnDelayMS bound the random wait between targets.
	MinSpawnDelayMS int `koanf:"min_spawn_delay_ms"`
	MaxSpawnDelayMS int `koanf:"max_spawn_delay_ms"`

	// TargetWindowMS is how long an unhit target stays visible.
	TargetWindowMS int `koanf:"target_window_ms"`

	// PromptDelayMS is the pause between round end and the score prompt.
	PromptDelayMS int `koanf:"prompt_delay_ms"`

	// DefaultTheme is the theme id selected at startup.
	DefaultTheme string `koanf:"default_theme"`

	// QueueSize bounds the score submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of submission workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the in-flight submission guard.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MetricsRefreshMS is how often the system and queue gauges are polled.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		StoreDriver:         "sqlite",
		DBPath:              "bonk.db",
		SlotCount:           6,
		RoundSeconds:        30,
		MinSpawnDelayMS:     500,
		MaxSpawnDelayMS:     2000,
		TargetWindowMS:      1500,
		PromptDelayMS:       2000,
		DefaultTheme:        "shiba7",
		QueueSize:           64,
		WorkerCount:         max(2, runtime.NumCPU()/2),
		DedupeSize:          1024,
		MaxLeaderboardLimit: 100,
		MetricsRefreshMS:    10000,
	}
}

// MinSpawnDelay returns MinSpawnDelayMS as a duration.
func (c *Config) MinSpawnDelay() time.Duration {
	return time.Duration(c.MinSpawnDelayMS) * time.Millisecond
}

// MaxSpawnDelay returns MaxSpawnDelayMS as a duration.
func (c *Config) MaxSpawnDelay() time.Duration {
	return time.Duration(c.MaxSpawnDelayMS) * time.Millisecond
}

// TargetWindow returns TargetWindowMS as a duration.
func (c *Config) TargetWindow() time.Duration {
	return time.Duration(c.TargetWindowMS) * time.Millisecond
}

// PromptDelay returns PromptDelayMS as a duration.
func (c *Config) PromptDelay() time.Duration {
	return time.Duration(c.PromptDelayMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != "sqlite" && c.StoreDriver != "memory":
		return fmt.Errorf("%w: store_driver must be sqlite or memory, got %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == "sqlite" && c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty for sqlite", ErrInvalidConfig)
	case c.SlotCount < 1:
		return fmt.Errorf("%w: slot_count must be positive", ErrInvalidConfig)
	case c.RoundSeconds < 1:
		return fmt.Errorf("%w: round_seconds must be positive", ErrInvalidConfig)
	case c.MinSpawnDelayMS < 0 || c.MaxSpawnDelayMS <= c.MinSpawnDelayMS:
		return fmt.Errorf("%w: spawn delay range [%d, %d) is empty", ErrInvalidConfig, c.MinSpawnDelayMS, c.MaxSpawnDelayMS)
	case c.TargetWindowMS < 1:
		return fmt.Errorf("%w: target_window_ms must be positive", ErrInvalidConfig)
	case c.PromptDelayMS < 0:
		return fmt.Errorf("%w: prompt_delay_ms must not be negative", ErrInvalidConfig)
	case c.MetricsRefreshMS < 1:
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}
	return nil
}
