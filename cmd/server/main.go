// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

// Package main is the entry point for the SellerPulse server.
//
// SellerPulse ingests daily performance data (sales, ad spend, traffic,
// engagement) from external marketplace reporting APIs into a normalized
// DuckDB store. The core is the incremental synchronization engine: per
// source it detects the missing date range, backfills it day by day with
// per-date error tolerance, and drives the ad platform's asynchronous
// report jobs under rate-limit and deadline constraints.
//
// Startup order:
//
//  1. Configuration: Koanf v2 layered load (defaults, config.yaml, env vars)
//  2. Logging: zerolog, JSON or console format
//  3. Database: DuckDB with the fact, credential, and run-audit schema
//  4. Source clients: circuit-breaker-wrapped HTTP clients per source
//  5. Sync engine and scheduler
//  6. HTTP API: manual trigger, status, health, metrics
//  7. Supervisor tree: suture keeps the scheduler and server alive
//
// The server shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sellerpulse/sellerpulse/internal/api"
	"github.com/sellerpulse/sellerpulse/internal/config"
	"github.com/sellerpulse/sellerpulse/internal/database"
	"github.com/sellerpulse/sellerpulse/internal/logging"
	"github.com/sellerpulse/sellerpulse/internal/sources"
	"github.com/sellerpulse/sellerpulse/internal/supervisor"
	"github.com/sellerpulse/sellerpulse/internal/supervisor/services"
	"github.com/sellerpulse/sellerpulse/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Dur("sync_interval", cfg.Sync.Interval).
		Msg("Starting SellerPulse")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	encryptor, err := config.NewCredentialEncryptor(cfg.Security.AppSecret)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize credential encryption")
	}

	creds := sources.NewCredentialsProvider(db, encryptor)
	engine, err := sync.NewEngine(db, creds,
		sources.NewOrdersClient(cfg.Sources.Orders),
		sources.NewTrafficClient(cfg.Sources.Traffic),
		sources.NewEngagementClient(cfg.Sources.Engagement),
		sources.NewAdsClient(cfg.Sources.Ads),
		cfg.Sync, cfg.Ads)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize sync engine")
	}

	manager := sync.NewManager(engine, db, cfg.Sync.Interval)

	handlers := api.NewHandlers(manager, db)
	router := api.NewRouter(handlers, cfg.Security)
	server := api.NewServer(cfg.Server, cfg.Ads.RunDeadline, router.Setup())

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddSyncService(services.NewSchedulerService(manager))
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
		os.Exit(1)
	}
	logging.Info().Msg("SellerPulse stopped")
}
