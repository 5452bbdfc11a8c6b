// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sellerpulse/config.yaml",
	"/etc/sellerpulse/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if present)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, honoring CONFIG_PATH first.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps flat environment variable names to koanf config paths.
var envMappings = map[string]string{
	"host":             "server.host",
	"port":             "server.port",
	"server_timeout":   "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"auth_mode":         "security.auth_mode",
	"app_secret":        "security.app_secret",
	"token_ttl":         "security.token_ttl",
	"rate_limit_reqs":   "security.rate_limit_reqs",
	"rate_limit_window": "security.rate_limit_window",

	"sync_interval":       "sync.interval",
	"sync_bootstrap_days": "sync.bootstrap_days",
	"sync_reconcile_days": "sync.reconcile_days",
	"sync_retry_attempts": "sync.retry_attempts",
	"sync_retry_delay":    "sync.retry_delay",
	"sync_timezone":       "sync.timezone",

	"orders_api_url":         "sources.orders.url",
	"orders_api_timeout":     "sources.orders.timeout",
	"traffic_api_url":        "sources.traffic.url",
	"traffic_api_timeout":    "sources.traffic.timeout",
	"engagement_api_url":     "sources.engagement.url",
	"engagement_api_timeout": "sources.engagement.timeout",
	"ads_api_url":            "sources.ads.url",
	"ads_api_timeout":        "sources.ads.timeout",

	"ads_lookback_days":       "ads.lookback_days",
	"ads_batch_size":          "ads.batch_size",
	"ads_batch_pause":         "ads.batch_pause",
	"ads_poll_interval":       "ads.poll_interval",
	"ads_batch_deadline":      "ads.batch_deadline",
	"ads_run_deadline":        "ads.run_deadline",
	"ads_create_rate_per_sec": "ads.create_rate_per_sec",
}

// envTransformFunc transforms environment variable names to koanf paths.
// Unknown variables map to the empty string and are ignored, so unrelated
// environment noise never lands in the config tree.
//
// Examples:
//   - ORDERS_API_URL -> sources.orders.url
//   - ADS_POLL_INTERVAL -> ads.poll_interval
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}
