// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

const (
	defaultTimeout  = 30 * time.Second
	breakerInterval = time.Minute
	breakerTimeout  = 2 * time.Minute

	// dateFormat is the wire format for report dates on all four APIs.
	dateFormat = "2006-01-02"

	// maxErrorBodyBytes caps how much of a failed response body lands in an
	// error message.
	maxErrorBodyBytes = 512
)

// apiClient is the HTTP plumbing shared by the four source clients: base URL
// joining, bearer auth from credentials, JSON decoding, and mapping of HTTP
// 429 to the throttling sentinel.
type apiClient struct {
	http    *http.Client
	baseURL string
}

func newAPIClient(baseURL string, timeout time.Duration) apiClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return apiClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// getJSON performs a GET against path with the given query parameters and
// decodes the JSON response into out.
func (c *apiClient) getJSON(ctx context.Context, creds *Credentials, path string, query url.Values, out any) error {
	return c.doJSON(ctx, creds, http.MethodGet, path, query, nil, out)
}

// postJSON performs a POST with a JSON body and decodes the response into out.
func (c *apiClient) postJSON(ctx context.Context, creds *Credentials, path string, body, out any) error {
	return c.doJSON(ctx, creds, http.MethodPost, path, nil, body, out)
}

func (c *apiClient) doJSON(ctx context.Context, creds *Credentials, method, path string, query url.Values, body, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	if creds.AccountID != "" {
		req.Header.Set("X-Account-Id", creds.AccountID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s %s: %w", method, path, ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, string(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
