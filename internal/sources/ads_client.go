// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package sources

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sellerpulse/sellerpulse/internal/config"
	"github.com/sellerpulse/sellerpulse/internal/models"
)

// AdsClient drives the asynchronous report workflow of the ad platform:
// request a report for one date, poll until the platform has generated it,
// then download the rows. The platform signals throttling either with HTTP
// 429 or with a THROTTLED report status; both surface as ErrRateLimited.
type AdsClient struct {
	api apiClient
	cb  *gobreaker.CircuitBreaker[any]
}

// ReportPoll is the outcome of one poll of a report job.
type ReportPoll struct {
	// Done is true when the report is generated and ready for download.
	Done bool
	// FailureReason is set when the platform terminally failed the report;
	// Done is false in that case.
	FailureReason string
}

type createReportRequest struct {
	ReportDate string `json:"report_date"`
}

type createReportResponse struct {
	ReportID string `json:"report_id"`
}

type pollReportResponse struct {
	ReportID      string `json:"report_id"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type downloadReportResponse struct {
	ReportID string        `json:"report_id"`
	Rows     []adsRowEntry `json:"rows"`
}

type adsRowEntry struct {
	CampaignID  string  `json:"campaign_id"`
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
	Spend       float64 `json:"spend"`
	Sales       float64 `json:"sales"`
	Orders      int     `json:"orders"`
}

// NewAdsClient creates a circuit-breaker-protected ads client.
func NewAdsClient(cfg config.SourceConfig) *AdsClient {
	return &AdsClient{
		api: newAPIClient(cfg.URL, cfg.Timeout),
		cb:  newBreaker("ads-api"),
	}
}

// CreateReport requests report generation for one date and returns the
// platform-assigned report ID. Callers pace these requests; the platform
// throttles aggressive report creation.
func (c *AdsClient) CreateReport(ctx context.Context, creds *Credentials, date time.Time) (string, error) {
	resp, err := castResult[createReportResponse](executeBreaker(c.cb, func() (any, error) {
		out := &createReportResponse{}
		body := createReportRequest{ReportDate: date.Format(dateFormat)}
		if err := c.api.postJSON(ctx, creds, "/v1/reports", body, out); err != nil {
			return nil, err
		}
		return out, nil
	}))
	if err != nil {
		return "", err
	}
	if resp.ReportID == "" {
		return "", fmt.Errorf("report for %s created without an id", date.Format(dateFormat))
	}
	return resp.ReportID, nil
}

// PollReport checks the generation status of one report job.
func (c *AdsClient) PollReport(ctx context.Context, creds *Credentials, reportID string) (*ReportPoll, error) {
	resp, err := castResult[pollReportResponse](executeBreaker(c.cb, func() (any, error) {
		out := &pollReportResponse{}
		if err := c.api.getJSON(ctx, creds, "/v1/reports/"+reportID, nil, out); err != nil {
			return nil, err
		}
		return out, nil
	}))
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case "PENDING", "IN_QUEUE", "PROCESSING":
		return &ReportPoll{}, nil
	case "COMPLETED", "SUCCESS":
		return &ReportPoll{Done: true}, nil
	case "THROTTLED":
		return nil, fmt.Errorf("report %s: %w", reportID, ErrRateLimited)
	case "FAILED", "CANCELLED":
		reason := resp.FailureReason
		if reason == "" {
			reason = "report generation failed"
		}
		return &ReportPoll{FailureReason: reason}, nil
	default:
		return nil, fmt.Errorf("report %s: unknown status %q", reportID, resp.Status)
	}
}

// DownloadReport fetches the rows of a completed report.
func (c *AdsClient) DownloadReport(ctx context.Context, creds *Credentials, reportID string, date time.Time) ([]models.AdSpendFact, error) {
	resp, err := castResult[downloadReportResponse](executeBreaker(c.cb, func() (any, error) {
		out := &downloadReportResponse{}
		if err := c.api.getJSON(ctx, creds, "/v1/reports/"+reportID+"/download", nil, out); err != nil {
			return nil, err
		}
		return out, nil
	}))
	if err != nil {
		return nil, err
	}

	facts := make([]models.AdSpendFact, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		facts = append(facts, models.AdSpendFact{
			CampaignID:  row.CampaignID,
			Date:        date,
			Impressions: int64(row.Impressions),
			Clicks:      int64(row.Clicks),
			Spend:       row.Spend,
			Sales:       row.Sales,
			Orders:      row.Orders,
		})
	}
	return facts, nil
}
