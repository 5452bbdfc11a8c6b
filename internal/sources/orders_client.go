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

// OrdersClient fetches daily order and financial aggregates from the
// marketplace orders reporting API. Financial postings for a day can mutate
// for up to three days after the fact, so the engine re-fetches a trailing
// window every run with the same FetchDay call.
type OrdersClient struct {
	api apiClient
	cb  *gobreaker.CircuitBreaker[any]
}

// ordersDayResponse is the wire shape of GET /v1/orders/daily.
type ordersDayResponse struct {
	Date string           `json:"date"`
	Rows []ordersRowEntry `json:"rows"`
}

type ordersRowEntry struct {
	Marketplace string  `json:"marketplace"`
	OrderCount  int     `json:"order_count"`
	UnitsSold   int     `json:"units_sold"`
	Revenue     float64 `json:"revenue"`
	Refunds     float64 `json:"refunds"`
	Currency    string  `json:"currency"`
}

// NewOrdersClient creates a circuit-breaker-protected orders client.
func NewOrdersClient(cfg config.SourceConfig) *OrdersClient {
	return &OrdersClient{
		api: newAPIClient(cfg.URL, cfg.Timeout),
		cb:  newBreaker("orders-api"),
	}
}

// FetchDay retrieves the per-marketplace sales aggregates for one date.
// Returned facts have no org; the sync engine stamps it before persisting.
func (c *OrdersClient) FetchDay(ctx context.Context, creds *Credentials, date time.Time) ([]models.SalesFact, error) {
	resp, err := castResult[ordersDayResponse](executeBreaker(c.cb, func() (any, error) {
		out := &ordersDayResponse{}
		query := url.Values{"date": {date.Format(dateFormat)}}
		if err := c.api.getJSON(ctx, creds, "/v1/orders/daily", query, out); err != nil {
			return nil, err
		}
		return out, nil
	}))
	if err != nil {
		return nil, err
	}

	facts := make([]models.SalesFact, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		facts = append(facts, models.SalesFact{
			Marketplace: row.Marketplace,
			Date:        date,
			OrderCount:  row.OrderCount,
			UnitsSold:   row.UnitsSold,
			Revenue:     row.Revenue,
			Refunds:     row.Refunds,
			Currency:    row.Currency,
		})
	}
	return facts, nil
}
