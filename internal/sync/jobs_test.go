// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package sync

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sellerpulse/sellerpulse/internal/models"
	"github.com/sellerpulse/sellerpulse/internal/sources"
)

// seedAdsWindowExcept fills the 14-day lookback window ending 2024-05-15
// except the given dates, so exactly those dates are due.
func seedAdsWindowExcept(t *testing.T, f *fixture, missing ...string) {
	t.Helper()
	missingSet := make(map[string]bool, len(missing))
	for _, m := range missing {
		missingSet[m] = true
	}
	for _, d := range daysBetween(mustDate(t, "2024-05-02"), mustDate(t, "2024-05-15"), time.UTC) {
		key := d.Format("2006-01-02")
		if !missingSet[key] {
			f.store.seedAds(t, testOrgID, key)
		}
	}
}

func countErrorsContaining(errs []string, substr string) int {
	n := 0
	for _, e := range errs {
		if strings.Contains(e, substr) {
			n++
		}
	}
	return n
}

func TestJobEngineAllComplete(t *testing.T) {
	f := newFixture(t, "2024-05-15")
	seedAdsWindowExcept(t, f, "2024-05-13", "2024-05-14", "2024-05-15")

	result := f.engine.syncAdsSource(context.Background(), testOrgID)

	if result.Status != models.StatusOK {
		t.Fatalf("status = %s, want ok (errors: %v)", result.Status, result.Errors)
	}
	if result.DatesSynced != 3 {
		t.Errorf("datesSynced = %d, want 3", result.DatesSynced)
	}
	if result.CursorAfter == nil || result.CursorAfter.Format("2006-01-02") != "2024-05-15" {
		t.Errorf("cursorAfter = %v, want 2024-05-15", result.CursorAfter)
	}
}

func TestJobEngineSkipsPersistedDates(t *testing.T) {
	f := newFixture(t, "2024-05-15")
	seedAdsWindowExcept(t, f) // whole window present

	result := f.engine.syncAdsSource(context.Background(), testOrgID)

	if result.Status != models.StatusOK || result.DatesSynced != 0 {
		t.Fatalf("result = %+v, want ok with 0 dates", result)
	}
	if got := f.ads.callCount(); got != 0 {
		t.Errorf("made %d network calls for a fully persisted window, want 0", got)
	}
}

func TestJobEngineEmptyStoreRequestsWholeWindow(t *testing.T) {
	f := newFixture(t, "2024-05-15")

	result := f.engine.syncAdsSource(context.Background(), testOrgID)

	if result.Status != models.StatusOK {
		t.Fatalf("status = %s (errors: %v)", result.Status, result.Errors)
	}
	if result.DatesSynced != 14 {
		t.Errorf("datesSynced = %d, want the full 14-day lookback", result.DatesSynced)
	}
}

func TestJobEngineBatchDeadlineTimeout(t *testing.T) {
	f := newFixture(t, "2024-05-15")
	// 10 due dates in 2 batches of 5; batch 1 completes on the first poll,
	// batch 2 never leaves PROCESSING and must hit the 3-minute deadline.
	seedAdsWindowExcept(t, f,
		"2024-05-06", "2024-05-07", "2024-05-08", "2024-05-09", "2024-05-10",
		"2024-05-11", "2024-05-12", "2024-05-13", "2024-05-14", "2024-05-15")
	for _, date := range []string{"2024-05-11", "2024-05-12", "2024-05-13", "2024-05-14", "2024-05-15"} {
		f.ads.pollScripts[date] = []pollStep{{poll: &sources.ReportPoll{}}}
	}

	result := f.engine.syncAdsSource(context.Background(), testOrgID)

	if result.Status != models.StatusPartial {
		t.Fatalf("status = %s, want partial (errors: %v)", result.Status, result.Errors)
	}
	if result.DatesSynced != 5 {
		t.Errorf("datesSynced = %d, want 5 from the first batch", result.DatesSynced)
	}
	if got := countErrorsContaining(result.Errors, "timeout waiting for report"); got != 5 {
		t.Errorf("timeout errors = %d, want 5 (errors: %v)", got, result.Errors)
	}
}

func TestJobEngineRateLimitCircuitBreak(t *testing.T) {
	f := newFixture(t, "2024-05-15")
	f.engine.adsSettings.batchSize = 7
	seedAdsWindowExcept(t, f,
		"2024-05-09", "2024-05-10", "2024-05-11", "2024-05-12",
		"2024-05-13", "2024-05-14", "2024-05-15")
	// The third job's first poll raises the throttling signal.
	f.ads.pollScripts["2024-05-11"] = []pollStep{{err: sources.ErrRateLimited}}

	result := f.engine.syncAdsSource(context.Background(), testOrgID)

	if result.DatesSynced != 2 {
		t.Errorf("datesSynced = %d, want 2 completed before the trip", result.DatesSynced)
	}
	if got := countErrorsContaining(result.Errors, "still processing"); got != 5 {
		t.Errorf("still-processing errors = %d, want 5 (errors: %v)", got, result.Errors)
	}

	// 7 creates + 2 completed jobs (poll+download each) + the tripping poll.
	// Anything above proves calls after the circuit opened.
	if got := f.ads.callCount(); got != 12 {
		t.Errorf("network calls = %d, want exactly 12", got)
	}
}

func TestJobEngineRateLimitDuringCreate(t *testing.T) {
	f := newFixture(t, "2024-05-15")
	seedAdsWindowExcept(t, f, "2024-05-13", "2024-05-14", "2024-05-15")
	f.ads.createErr["2024-05-13"] = sources.ErrRateLimited

	result := f.engine.syncAdsSource(context.Background(), testOrgID)

	if result.DatesSynced != 0 {
		t.Errorf("datesSynced = %d, want 0", result.DatesSynced)
	}
	if got := f.ads.callCount(); got != 1 {
		t.Errorf("network calls = %d, want 1 (the tripping create)", got)
	}
	if got := countErrorsContaining(result.Errors, "still processing"); got != 1 {
		t.Errorf("still-processing errors = %d, want 1 (errors: %v)", got, result.Errors)
	}
}

func TestJobEngineTerminalFailureRecorded(t *testing.T) {
	f := newFixture(t, "2024-05-15")
	seedAdsWindowExcept(t, f, "2024-05-14", "2024-05-15")
	f.ads.pollScripts["2024-05-14"] = []pollStep{{poll: &sources.ReportPoll{FailureReason: "no data for date"}}}

	result := f.engine.syncAdsSource(context.Background(), testOrgID)

	if result.Status != models.StatusPartial {
		t.Fatalf("status = %s, want partial (errors: %v)", result.Status, result.Errors)
	}
	if result.DatesSynced != 1 {
		t.Errorf("datesSynced = %d, want 1", result.DatesSynced)
	}
	if got := countErrorsContaining(result.Errors, "2024-05-14: no data for date"); got != 1 {
		t.Errorf("errors = %v, want a terminal entry for 2024-05-14", result.Errors)
	}
}

func TestJobEngineCreateFailureIsPerDateError(t *testing.T) {
	f := newFixture(t, "2024-05-15")
	seedAdsWindowExcept(t, f, "2024-05-14", "2024-05-15")
	f.ads.createErr["2024-05-14"] = contextualError("quota exceeded")

	result := f.engine.syncAdsSource(context.Background(), testOrgID)

	if result.DatesSynced != 1 {
		t.Errorf("datesSynced = %d, want 1", result.DatesSynced)
	}
	if got := countErrorsContaining(result.Errors, "2024-05-14: quota exceeded"); got != 1 {
		t.Errorf("errors = %v, want a create failure for 2024-05-14", result.Errors)
	}
}

func TestJobEngineProcessingThenComplete(t *testing.T) {
	f := newFixture(t, "2024-05-15")
	seedAdsWindowExcept(t, f, "2024-05-15")
	f.ads.pollScripts["2024-05-15"] = []pollStep{
		{poll: &sources.ReportPoll{}},
		{poll: &sources.ReportPoll{}},
		{poll: &sources.ReportPoll{Done: true}},
	}

	result := f.engine.syncAdsSource(context.Background(), testOrgID)

	if result.Status != models.StatusOK || result.DatesSynced != 1 {
		t.Fatalf("result = %+v, want ok with 1 date", result)
	}
}

func TestJobEngineSkippedWithoutCredentials(t *testing.T) {
	f := newFixture(t, "2024-05-15")
	f.creds = newFakeCreds(models.SourceOrders)
	f.engine.creds = f.creds

	result := f.engine.syncAdsSource(context.Background(), testOrgID)

	if result.Status != models.StatusSkipped {
		t.Fatalf("status = %s, want skipped", result.Status)
	}
	if f.ads.callCount() != 0 {
		t.Errorf("skipped source made network calls")
	}
}

type contextualError string

func (e contextualError) Error() string { return string(e) }
