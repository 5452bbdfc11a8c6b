// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sellerpulse/sellerpulse/internal/metrics"
	"github.com/sellerpulse/sellerpulse/internal/models"
)

// factTables maps each source to its fact table and date column for cursor
// and presence queries.
var factTables = map[models.Source]string{
	models.SourceOrders:     "sales_facts",
	models.SourceTraffic:    "traffic_facts",
	models.SourceEngagement: "engagement_facts",
	models.SourceAds:        "ad_spend_facts",
}

// UpsertSalesFact writes one daily sales row. Measures are replaced
// wholesale; an existing attribution_tag is preserved because it is the one
// manually-set attribute on the row.
func (db *DB) UpsertSalesFact(ctx context.Context, f *models.SalesFact) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO sales_facts (
		org_id, marketplace, date, order_count, units_sold, revenue, refunds, currency, attribution_tag, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, now())
	ON CONFLICT (org_id, marketplace, date) DO UPDATE SET
		order_count = EXCLUDED.order_count,
		units_sold = EXCLUDED.units_sold,
		revenue = EXCLUDED.revenue,
		refunds = EXCLUDED.refunds,
		currency = EXCLUDED.currency,
		attribution_tag = COALESCE(attribution_tag, EXCLUDED.attribution_tag),
		updated_at = now()`,
		f.OrgID, f.Marketplace, f.Date, f.OrderCount, f.UnitsSold, f.Revenue, f.Refunds, f.Currency, f.AttributionTag)
	db.recordUpsert("sales_facts", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert sales fact: %w", err)
	}
	return nil
}

// UpsertTrafficFact writes one daily traffic row, replacing prior measures.
func (db *DB) UpsertTrafficFact(ctx context.Context, f *models.TrafficFact) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO traffic_facts (
		org_id, asin, date, page_views, sessions, buy_box_pct, conversion_rate, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, now())
	ON CONFLICT (org_id, asin, date) DO UPDATE SET
		page_views = EXCLUDED.page_views,
		sessions = EXCLUDED.sessions,
		buy_box_pct = EXCLUDED.buy_box_pct,
		conversion_rate = EXCLUDED.conversion_rate,
		updated_at = now()`,
		f.OrgID, f.ASIN, f.Date, f.PageViews, f.Sessions, f.BuyBoxPct, f.ConversionRate)
	db.recordUpsert("traffic_facts", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert traffic fact: %w", err)
	}
	return nil
}

// UpsertEngagementFact writes one daily engagement row, replacing prior measures.
func (db *DB) UpsertEngagementFact(ctx context.Context, f *models.EngagementFact) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO engagement_facts (
		org_id, campaign_id, date, sends, opens, clicks, unsubscribes, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, now())
	ON CONFLICT (org_id, campaign_id, date) DO UPDATE SET
		sends = EXCLUDED.sends,
		opens = EXCLUDED.opens,
		clicks = EXCLUDED.clicks,
		unsubscribes = EXCLUDED.unsubscribes,
		updated_at = now()`,
		f.OrgID, f.CampaignID, f.Date, f.Sends, f.Opens, f.Clicks, f.Unsubscribes)
	db.recordUpsert("engagement_facts", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert engagement fact: %w", err)
	}
	return nil
}

// UpsertAdSpendFact writes one daily ad performance row, replacing prior measures.
func (db *DB) UpsertAdSpendFact(ctx context.Context, f *models.AdSpendFact) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO ad_spend_facts (
		org_id, campaign_id, date, impressions, clicks, spend, sales, orders, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, now())
	ON CONFLICT (org_id, campaign_id, date) DO UPDATE SET
		impressions = EXCLUDED.impressions,
		clicks = EXCLUDED.clicks,
		spend = EXCLUDED.spend,
		sales = EXCLUDED.sales,
		orders = EXCLUDED.orders,
		updated_at = now()`,
		f.OrgID, f.CampaignID, f.Date, f.Impressions, f.Clicks, f.Spend, f.Sales, f.Orders)
	db.recordUpsert("ad_spend_facts", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert ad spend fact: %w", err)
	}
	return nil
}

// MaxFactDate returns the latest date persisted for (org, source), or nil
// when the source has no rows yet. This is the sync cursor.
func (db *DB) MaxFactDate(ctx context.Context, orgID int64, source models.Source) (*time.Time, error) {
	table, ok := factTables[source]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", source)
	}

	var maxDate sql.NullTime
	query := fmt.Sprintf("SELECT MAX(date) FROM %s WHERE org_id = ?", table)
	if err := db.conn.QueryRowContext(ctx, query, orgID).Scan(&maxDate); err != nil {
		return nil, fmt.Errorf("failed to query max date for %s: %w", source, err)
	}

	if !maxDate.Valid {
		return nil, nil
	}
	d := maxDate.Time
	return &d, nil
}

// DatesPresent returns the set of dates in [from, to] that already have rows
// for (org, source). The job engine uses this to avoid re-requesting reports
// for dates that are fully persisted.
func (db *DB) DatesPresent(ctx context.Context, orgID int64, source models.Source, from, to time.Time) (map[string]bool, error) {
	table, ok := factTables[source]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", source)
	}

	query := fmt.Sprintf("SELECT DISTINCT date FROM %s WHERE org_id = ? AND date BETWEEN ? AND ?", table)
	rows, err := db.conn.QueryContext(ctx, query, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query present dates for %s: %w", source, err)
	}
	defer func() { _ = rows.Close() }()

	present := make(map[string]bool)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		present[d.Format("2006-01-02")] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate present dates: %w", err)
	}

	return present, nil
}

// recordUpsert feeds the store metrics for one upsert attempt.
func (db *DB) recordUpsert(table string, start time.Time, err error) {
	metrics.UpsertDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpsertErrors.WithLabelValues(table).Inc()
	}
}
