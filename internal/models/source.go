// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

// Package models defines the shared value types exchanged between the sync
// engine, the source clients, and the database layer: external source
// identifiers, normalized daily fact rows, and per-run result structures.
package models

// Source identifies an external reporting API feeding the normalized store.
type Source string

const (
	// SourceOrders is the marketplace sales/orders reporting API.
	SourceOrders Source = "orders"

	// SourceTraffic is the listing traffic reporting API.
	SourceTraffic Source = "traffic"

	// SourceEngagement is the customer engagement analytics API.
	// Its "today" figures are always incomplete, so syncs cap at yesterday.
	SourceEngagement Source = "engagement"

	// SourceAds is the advertising platform. Reports are produced by
	// asynchronous jobs that must be created, polled, and downloaded.
	SourceAds Source = "ads"
)

// AllSources lists every source in the order results are reported.
var AllSources = []Source{SourceOrders, SourceTraffic, SourceEngagement, SourceAds}

// DisplayName returns the human-readable name used in run summaries.
func (s Source) DisplayName() string {
	switch s {
	case SourceOrders:
		return "Orders"
	case SourceTraffic:
		return "Traffic"
	case SourceEngagement:
		return "Engagement"
	case SourceAds:
		return "Ads"
	default:
		return string(s)
	}
}
