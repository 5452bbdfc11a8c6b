// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

// Package config provides configuration management for SellerPulse.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (ORDERS_API_URL, ADS_POLL_INTERVAL, ...)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// The loaded struct is validated with go-playground/validator before use.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
	Security SecurityConfig `koanf:"security"`
	Sync     SyncConfig     `koanf:"sync"`
	Sources  SourcesConfig  `koanf:"sources"`
	Ads      AdsConfig      `koanf:"ads"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"gte=0"` // 0 = runtime.NumCPU()
}

// LoggingConfig holds logging settings consumed by internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// SecurityConfig holds authentication and rate limit settings.
//
// AppSecret signs API tokens and is the HKDF input for credential
// encryption; rotating it invalidates both.
type SecurityConfig struct {
	AuthMode        string        `koanf:"auth_mode" validate:"oneof=jwt none"`
	AppSecret       string        `koanf:"app_secret" validate:"required_if=AuthMode jwt,omitempty,min=32"`
	TokenTTL        time.Duration `koanf:"token_ttl" validate:"gt=0"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gt=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// SyncConfig holds the cursor-source sync engine settings.
type SyncConfig struct {
	// Interval is the scheduler period between automatic runs.
	Interval time.Duration `koanf:"interval" validate:"gt=0"`

	// BootstrapDays is the lookback window when a source has no cursor.
	BootstrapDays int `koanf:"bootstrap_days" validate:"gt=0"`

	// ReconcileDays is the trailing window the orders source re-fetches
	// every run to absorb late-arriving financial postings.
	ReconcileDays int `koanf:"reconcile_days" validate:"gte=0"`

	RetryAttempts int           `koanf:"retry_attempts" validate:"gt=0"`
	RetryDelay    time.Duration `koanf:"retry_delay" validate:"gt=0"`

	// Timezone anchors calendar-date math. Dates are computed at midday in
	// this zone so DST transitions never skip or repeat a day.
	Timezone string `koanf:"timezone" validate:"required"`
}

// SourceConfig holds one external reporting API endpoint.
type SourceConfig struct {
	URL     string        `koanf:"url" validate:"omitempty,http_url"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// SourcesConfig holds the per-source API endpoints.
type SourcesConfig struct {
	Orders     SourceConfig `koanf:"orders"`
	Traffic    SourceConfig `koanf:"traffic"`
	Engagement SourceConfig `koanf:"engagement"`
	Ads        SourceConfig `koanf:"ads"`
}

// AdsConfig holds the asynchronous report job engine settings.
type AdsConfig struct {
	// LookbackDays is the fixed report window; the ad platform only retains
	// report eligibility for recent dates, so the window is not gap-based.
	LookbackDays int `koanf:"lookback_days" validate:"gt=0"`

	// BatchSize bounds concurrent outstanding report jobs.
	BatchSize int `koanf:"batch_size" validate:"gt=0"`

	// BatchPause is the idle gap between report batches.
	BatchPause time.Duration `koanf:"batch_pause" validate:"gte=0"`

	// PollInterval is the delay between status sweeps over pending jobs.
	PollInterval time.Duration `koanf:"poll_interval" validate:"gt=0"`

	// BatchDeadline bounds one batch's request+poll cycle wall-clock time.
	BatchDeadline time.Duration `koanf:"batch_deadline" validate:"gt=0"`

	// RunDeadline bounds the whole ads sync; kept below the host's
	// execution-time limit.
	RunDeadline time.Duration `koanf:"run_deadline" validate:"gt=0"`

	// CreateRatePerSec paces create-report calls.
	CreateRatePerSec float64 `koanf:"create_rate_per_sec" validate:"gt=0"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8844,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/sellerpulse.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			AppSecret:       "",
			TokenTTL:        24 * time.Hour,
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
		},
		Sync: SyncConfig{
			Interval:      4 * time.Hour,
			BootstrapDays: 30,
			ReconcileDays: 3,
			RetryAttempts: 3,
			RetryDelay:    2 * time.Second,
			Timezone:      "UTC",
		},
		Sources: SourcesConfig{
			Orders:     SourceConfig{Timeout: 30 * time.Second},
			Traffic:    SourceConfig{Timeout: 30 * time.Second},
			Engagement: SourceConfig{Timeout: 30 * time.Second},
			Ads:        SourceConfig{Timeout: 60 * time.Second},
		},
		Ads: AdsConfig{
			LookbackDays:     14,
			BatchSize:        5,
			BatchPause:       2 * time.Second,
			PollInterval:     10 * time.Second,
			BatchDeadline:    3 * time.Minute,
			RunDeadline:      12 * time.Minute,
			CreateRatePerSec: 2,
		},
	}
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(c)
}
