// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package sources

import (
	"context"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sellerpulse/sellerpulse/internal/config"
	"github.com/sellerpulse/sellerpulse/internal/models"
)

// TrafficClient fetches per-ASIN daily page view and conversion aggregates.
type TrafficClient struct {
	api apiClient
	cb  *gobreaker.CircuitBreaker[any]
}

type trafficDayResponse struct {
	Date string            `json:"date"`
	Rows []trafficRowEntry `json:"rows"`
}

type trafficRowEntry struct {
	ASIN           string  `json:"asin"`
	PageViews      int     `json:"page_views"`
	Sessions       int     `json:"sessions"`
	BuyBoxPct      float64 `json:"buy_box_pct"`
	ConversionRate float64 `json:"conversion_rate"`
}

// NewTrafficClient creates a circuit-breaker-protected traffic client.
func NewTrafficClient(cfg config.SourceConfig) *TrafficClient {
	return &TrafficClient{
		api: newAPIClient(cfg.URL, cfg.Timeout),
		cb:  newBreaker("traffic-api"),
	}
}

// FetchDay retrieves per-ASIN traffic aggregates for one date.
func (c *TrafficClient) FetchDay(ctx context.Context, creds *Credentials, date time.Time) ([]models.TrafficFact, error) {
	resp, err := castResult[trafficDayResponse](executeBreaker(c.cb, func() (any, error) {
		out := &trafficDayResponse{}
		query := url.Values{"date": {date.Format(dateFormat)}}
		if err := c.api.getJSON(ctx, creds, "/v1/traffic/daily", query, out); err != nil {
			return nil, err
		}
		return out, nil
	}))
	if err != nil {
		return nil, err
	}

	facts := make([]models.TrafficFact, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		facts = append(facts, models.TrafficFact{
			ASIN:           row.ASIN,
			Date:           date,
			PageViews:      row.PageViews,
			Sessions:       row.Sessions,
			BuyBoxPct:      row.BuyBoxPct,
			ConversionRate: row.ConversionRate,
		})
	}
	return facts, nil
}
