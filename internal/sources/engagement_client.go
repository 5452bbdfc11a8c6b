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

// EngagementClient fetches per-campaign daily email engagement aggregates.
// The engagement platform finalizes a day's numbers only after the day
// closes, so the engine never requests the current date from it.
type EngagementClient struct {
	api apiClient
	cb  *gobreaker.CircuitBreaker[any]
}

type engagementDayResponse struct {
	Date string               `json:"date"`
	Rows []engagementRowEntry `json:"rows"`
}

type engagementRowEntry struct {
	CampaignID   string `json:"campaign_id"`
	Sends        int    `json:"sends"`
	Opens        int    `json:"opens"`
	Clicks       int    `json:"clicks"`
	Unsubscribes int    `json:"unsubscribes"`
}

// NewEngagementClient creates a circuit-breaker-protected engagement client.
func NewEngagementClient(cfg config.SourceConfig) *EngagementClient {
	return &EngagementClient{
		api: newAPIClient(cfg.URL, cfg.Timeout),
		cb:  newBreaker("engagement-api"),
	}
}

// FetchDay retrieves per-campaign engagement aggregates for one date.
func (c *EngagementClient) FetchDay(ctx context.Context, creds *Credentials, date time.Time) ([]models.EngagementFact, error) {
	resp, err := castResult[engagementDayResponse](executeBreaker(c.cb, func() (any, error) {
		out := &engagementDayResponse{}
		query := url.Values{"date": {date.Format(dateFormat)}}
		if err := c.api.getJSON(ctx, creds, "/v1/engagement/daily", query, out); err != nil {
			return nil, err
		}
		return out, nil
	}))
	if err != nil {
		return nil, err
	}

	facts := make([]models.EngagementFact, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		facts = append(facts, models.EngagementFact{
			CampaignID:   row.CampaignID,
			Date:         date,
			Sends:        row.Sends,
			Opens:        row.Opens,
			Clicks:       row.Clicks,
			Unsubscribes: row.Unsubscribes,
		})
	}
	return facts, nil
}
