// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package models

import "time"

// SalesFact is one normalized daily sales row, keyed by
// (org_id, marketplace, date). Measures are fully re-derived on every sync;
// AttributionTag is the one manually-set attribute preserved across re-syncs.
type SalesFact struct {
	OrgID          int64     `json:"org_id"`
	Marketplace    string    `json:"marketplace"`
	Date           time.Time `json:"date"`
	OrderCount     int       `json:"order_count"`
	UnitsSold      int       `json:"units_sold"`
	Revenue        float64   `json:"revenue"`
	Refunds        float64   `json:"refunds"`
	Currency       string    `json:"currency"`
	AttributionTag *string   `json:"attribution_tag,omitempty"`
}

// TrafficFact is one normalized daily traffic row, keyed by
// (org_id, asin, date).
type TrafficFact struct {
	OrgID          int64     `json:"org_id"`
	ASIN           string    `json:"asin"`
	Date           time.Time `json:"date"`
	PageViews      int       `json:"page_views"`
	Sessions       int       `json:"sessions"`
	BuyBoxPct      float64   `json:"buy_box_pct"`
	ConversionRate float64   `json:"conversion_rate"`
}

// EngagementFact is one normalized daily engagement row, keyed by
// (org_id, campaign_id, date).
type EngagementFact struct {
	OrgID        int64     `json:"org_id"`
	CampaignID   string    `json:"campaign_id"`
	Date         time.Time `json:"date"`
	Sends        int       `json:"sends"`
	Opens        int       `json:"opens"`
	Clicks       int       `json:"clicks"`
	Unsubscribes int       `json:"unsubscribes"`
}

// AdSpendFact is one normalized daily ad performance row, keyed by
// (org_id, campaign_id, date). Downloaded from completed ad platform
// report jobs.
type AdSpendFact struct {
	OrgID       int64     `json:"org_id"`
	CampaignID  string    `json:"campaign_id"`
	Date        time.Time `json:"date"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Spend       float64   `json:"spend"`
	Sales       float64   `json:"sales"`
	Orders      int       `json:"orders"`
}
