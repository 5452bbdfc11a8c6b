// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

// Package database implements the normalized performance store on DuckDB.
//
// One fact table per source, each keyed by (org_id, natural key, date) with
// native ON CONFLICT upserts so re-syncing a date is idempotent. The package
// also stores encrypted per-organization source credentials and a sync run
// audit trail for the status endpoint.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/sellerpulse/sellerpulse/internal/config"
)

// DB wraps the DuckDB connection and the store operations on it.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the DuckDB database and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Parent directory must exist before DuckDB can create the file.
	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	// Disable auto-install/auto-load of extensions to prevent hangs in
	// restricted network environments.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}

	// DuckDB is an in-process engine; a single writer connection avoids
	// transaction conflicts between concurrent source syncs.
	conn.SetMaxOpenConns(1)

	if err := db.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// NewMemory opens an in-memory database for tests.
func NewMemory() (*DB, error) {
	conn, err := sql.Open("duckdb", ":memory:?autoinstall_known_extensions=false&autoload_known_extensions=false")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	db := &DB{conn: conn, cfg: &config.DatabaseConfig{}}
	conn.SetMaxOpenConns(1)

	if err := db.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// schema holds the full DDL. Every fact table carries a unique key on
// (org_id, natural key, date) so upserts can rely on ON CONFLICT.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sales_facts (
		org_id BIGINT NOT NULL,
		marketplace VARCHAR NOT NULL,
		date DATE NOT NULL,
		order_count INTEGER NOT NULL DEFAULT 0,
		units_sold INTEGER NOT NULL DEFAULT 0,
		revenue DOUBLE NOT NULL DEFAULT 0,
		refunds DOUBLE NOT NULL DEFAULT 0,
		currency VARCHAR NOT NULL DEFAULT 'USD',
		attribution_tag VARCHAR,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (org_id, marketplace, date)
	)`,
	`CREATE TABLE IF NOT EXISTS traffic_facts (
		org_id BIGINT NOT NULL,
		asin VARCHAR NOT NULL,
		date DATE NOT NULL,
		page_views INTEGER NOT NULL DEFAULT 0,
		sessions INTEGER NOT NULL DEFAULT 0,
		buy_box_pct DOUBLE NOT NULL DEFAULT 0,
		conversion_rate DOUBLE NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (org_id, asin, date)
	)`,
	`CREATE TABLE IF NOT EXISTS engagement_facts (
		org_id BIGINT NOT NULL,
		campaign_id VARCHAR NOT NULL,
		date DATE NOT NULL,
		sends INTEGER NOT NULL DEFAULT 0,
		opens INTEGER NOT NULL DEFAULT 0,
		clicks INTEGER NOT NULL DEFAULT 0,
		unsubscribes INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (org_id, campaign_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS ad_spend_facts (
		org_id BIGINT NOT NULL,
		campaign_id VARCHAR NOT NULL,
		date DATE NOT NULL,
		impressions BIGINT NOT NULL DEFAULT 0,
		clicks BIGINT NOT NULL DEFAULT 0,
		spend DOUBLE NOT NULL DEFAULT 0,
		sales DOUBLE NOT NULL DEFAULT 0,
		orders INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (org_id, campaign_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS source_credentials (
		org_id BIGINT NOT NULL,
		source VARCHAR NOT NULL,
		encrypted_payload VARCHAR NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (org_id, source)
	)`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		run_id VARCHAR NOT NULL PRIMARY KEY,
		org_id BIGINT NOT NULL,
		success BOOLEAN NOT NULL,
		summary VARCHAR NOT NULL,
		results_json VARCHAR NOT NULL,
		started_at TIMESTAMP NOT NULL,
		duration_ms BIGINT NOT NULL
	)`,
}

// initSchema creates all tables if they do not exist yet.
func (db *DB) initSchema() error {
	for _, ddl := range schema {
		if _, err := db.conn.Exec(ddl); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
