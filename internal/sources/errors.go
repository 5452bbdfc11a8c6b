// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

// Package sources implements the HTTP clients for the four external
// reporting APIs and the credentials provider that configures them per
// organization. Every client is wrapped in a circuit breaker; error
// conditions the sync engine must branch on are sentinel errors, never
// message strings.
package sources

import "errors"

var (
	// ErrRateLimited is the distinguished throttling signal from the ad
	// platform. The job engine stops all further network calls for the run
	// when a poll returns it; pending dates retry on the next scheduled run.
	ErrRateLimited = errors.New("rate limited by remote platform")

	// ErrNoCredentials means the organization has no credentials stored for
	// a source; the source is reported as skipped, not failed.
	ErrNoCredentials = errors.New("no settings configured")
)
