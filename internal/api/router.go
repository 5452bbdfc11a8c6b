// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

// Package api exposes the trigger surface over HTTP using the Chi router:
// a manual sync trigger, the last-run status, health, and metrics.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sellerpulse/sellerpulse/internal/config"
)

// Router assembles the HTTP surface from handlers and security settings.
type Router struct {
	handlers *Handlers
	security config.SecurityConfig
}

// NewRouter creates a router over the given handlers.
func NewRouter(handlers *Handlers, security config.SecurityConfig) *Router {
	return &Router{handlers: handlers, security: security}
}

// Setup wires all routes and the global middleware stack.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(metricsMiddleware)

	// Unauthenticated operational endpoints.
	r.Get("/healthz", rt.handlers.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.security.RateLimitReqs, rt.security.RateLimitWindow))
		r.Use(authenticate(rt.security))

		r.Post("/sync/{orgID}", rt.handlers.TriggerSync)
		r.Get("/sync/{orgID}/status", rt.handlers.SyncStatus)
	})

	return r
}

// NewServer builds the http.Server the supervisor runs. The write timeout
// must outlive a full manual sync: the trigger handler sends no bytes until
// the run finishes, which can take up to runCeiling (the ads run deadline
// dominates). A shorter write timeout would cut the response off mid-run.
func NewServer(cfg config.ServerConfig, runCeiling time.Duration, handler http.Handler) *http.Server {
	writeTimeout := cfg.Timeout
	if floor := runCeiling + time.Minute; writeTimeout < floor {
		writeTimeout = floor
	}
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: writeTimeout,
	}
}
