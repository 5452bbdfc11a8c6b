// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sellerpulse/sellerpulse/internal/config"
)

func testCreds() *Credentials {
	return &Credentials{APIKey: "test-key", AccountID: "acct-1"}
}

func testDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func TestAPIClientSetsAuthHeaders(t *testing.T) {
	var gotAuth, gotAccount string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccount = r.Header.Get("X-Account-Id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	api := newAPIClient(srv.URL, time.Second)
	var out struct{}
	if err := api.getJSON(context.Background(), testCreds(), "/v1/ping", nil, &out); err != nil {
		t.Fatalf("getJSON failed: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
	if gotAccount != "acct-1" {
		t.Errorf("X-Account-Id = %q, want %q", gotAccount, "acct-1")
	}
}

func TestAPIClientMapsTooManyRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	api := newAPIClient(srv.URL, time.Second)
	err := api.getJSON(context.Background(), testCreds(), "/v1/orders/daily", nil, &struct{}{})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestAPIClientReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	api := newAPIClient(srv.URL, time.Second)
	err := api.getJSON(context.Background(), testCreds(), "/v1/orders/daily", nil, &struct{}{})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Fatalf("500 must not map to ErrRateLimited: %v", err)
	}
}

func TestOrdersClientFetchDay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders/daily" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("date"); got != "2026-08-20" {
			t.Errorf("date = %q, want 2026-08-20", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"date":"2026-08-20","rows":[
			{"marketplace":"US","order_count":12,"units_sold":15,"revenue":310.5,"refunds":12.0,"currency":"USD"},
			{"marketplace":"DE","order_count":3,"units_sold":3,"revenue":88.2,"refunds":0,"currency":"EUR"}
		]}`))
	}))
	defer srv.Close()

	client := NewOrdersClient(config.SourceConfig{URL: srv.URL, Timeout: time.Second})
	facts, err := client.FetchDay(context.Background(), testCreds(), testDate(t, "2026-08-20"))
	if err != nil {
		t.Fatalf("FetchDay failed: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("got %d facts, want 2", len(facts))
	}
	if facts[0].Marketplace != "US" || facts[0].OrderCount != 12 || facts[0].Revenue != 310.5 {
		t.Errorf("unexpected first fact: %+v", facts[0])
	}
	if !facts[1].Date.Equal(testDate(t, "2026-08-20")) {
		t.Errorf("fact date = %v, want request date", facts[1].Date)
	}
}

func TestTrafficClientFetchDay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"date":"2026-08-20","rows":[
			{"asin":"B0TEST1","page_views":140,"sessions":92,"buy_box_pct":97.5,"conversion_rate":0.12}
		]}`))
	}))
	defer srv.Close()

	client := NewTrafficClient(config.SourceConfig{URL: srv.URL, Timeout: time.Second})
	facts, err := client.FetchDay(context.Background(), testCreds(), testDate(t, "2026-08-20"))
	if err != nil {
		t.Fatalf("FetchDay failed: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(facts))
	}
	if facts[0].ASIN != "B0TEST1" || facts[0].PageViews != 140 {
		t.Errorf("unexpected fact: %+v", facts[0])
	}
}

func TestEngagementClientFetchDay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"date":"2026-08-19","rows":[
			{"campaign_id":"welcome-flow","sends":500,"opens":210,"clicks":44,"unsubscribes":2}
		]}`))
	}))
	defer srv.Close()

	client := NewEngagementClient(config.SourceConfig{URL: srv.URL, Timeout: time.Second})
	facts, err := client.FetchDay(context.Background(), testCreds(), testDate(t, "2026-08-19"))
	if err != nil {
		t.Fatalf("FetchDay failed: %v", err)
	}
	if len(facts) != 1 || facts[0].CampaignID != "welcome-flow" || facts[0].Opens != 210 {
		t.Errorf("unexpected facts: %+v", facts)
	}
}
