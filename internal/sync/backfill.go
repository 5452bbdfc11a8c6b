// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sellerpulse/sellerpulse/internal/logging"
	"github.com/sellerpulse/sellerpulse/internal/metrics"
	"github.com/sellerpulse/sellerpulse/internal/models"
	"github.com/sellerpulse/sellerpulse/internal/sources"
)

// errNoCredentialsMessage is the user-facing text for a skipped source.
const errNoCredentialsMessage = "No settings configured"

// daySyncFunc fetches and upserts one source's rows for a single date.
type daySyncFunc func(ctx context.Context, date time.Time) error

// backfillOutcome accumulates the fold over a gap: how many dates fully
// succeeded and the error per failed date.
type backfillOutcome struct {
	synced int
	errs   []string
}

// runBackfill walks the gap strictly in ascending order, invoking syncDay per
// date. One date's failure is recorded as "{date}: {message}" and the loop
// continues; the continue-on-error policy lives here, in one place, rather
// than in each source.
func runBackfill(ctx context.Context, dates []time.Time, syncDay daySyncFunc) backfillOutcome {
	outcome := backfillOutcome{}
	for _, date := range dates {
		if err := syncDay(ctx, date); err != nil {
			outcome.errs = append(outcome.errs, fmt.Sprintf("%s: %s", date.Format("2006-01-02"), err.Error()))
			continue
		}
		outcome.synced++
	}
	return outcome
}

// withRetry runs fn with exponential backoff for transient failures. A
// throttling sentinel is permanent: hammering a rate-limited API with
// retries makes the limiting worse.
func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	wrapped := func() error {
		err := fn()
		if errors.Is(err, sources.ErrRateLimited) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.syncCfg.RetryDelay
	return backoff.Retry(wrapped,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(e.syncCfg.RetryAttempts)), ctx))
}

// syncCursorSource runs the full cursor-based sync for one (org, source):
// credentials, gap detection, the backfill fold, and for orders the trailing
// reconciliation fetch.
func (e *Engine) syncCursorSource(ctx context.Context, orgID int64, source models.Source) models.SourceSyncResult {
	result := models.SourceSyncResult{Source: source}
	log := logging.With().Int64("org_id", orgID).Str("source", string(source)).Logger()

	creds, err := e.creds.Get(ctx, orgID, source)
	if errors.Is(err, sources.ErrNoCredentials) {
		result.Status = models.StatusSkipped
		result.Errors = []string{errNoCredentialsMessage}
		log.Debug().Msg("Source skipped, no credentials configured")
		return result
	}
	if err != nil {
		result.Status = models.StatusError
		result.Errors = []string{err.Error()}
		return result
	}

	gap, err := e.computeGap(ctx, orgID, source)
	if err != nil {
		result.Status = models.StatusError
		result.Errors = []string{err.Error()}
		metrics.SyncErrors.WithLabelValues(string(source), "cursor_query").Inc()
		log.Error().Err(err).Msg("Cursor query failed, aborting source sync")
		return result
	}
	result.CursorBefore = gap.Cursor

	outcome := runBackfill(ctx, gap.Dates, e.daySyncerFor(source, orgID, creds))

	// The orders reconciliation runs every sync regardless of gap outcome:
	// financial postings for a day keep mutating for a short trailing window
	// after it closes.
	if source == models.SourceOrders && e.syncCfg.ReconcileDays > 0 {
		e.reconcileOrders(ctx, orgID, creds, &outcome)
	}

	result.DatesSynced = outcome.synced
	result.Errors = outcome.errs
	result.Status = deriveStatus(outcome.synced, outcome.errs)
	if n := len(outcome.errs); n > 0 {
		metrics.SyncErrors.WithLabelValues(string(source), "date").Add(float64(n))
	}

	// Upserts are independent per date, so the cursor may have advanced past
	// failed dates; re-query rather than infer.
	cursorAfter, err := e.store.MaxFactDate(ctx, orgID, source)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("cursor re-query failed: %s", err.Error()))
	} else {
		result.CursorAfter = cursorAfter
	}

	log.Info().Str("status", string(result.Status)).Int("dates_synced", result.DatesSynced).
		Int("errors", len(result.Errors)).Msg("Source sync finished")
	return result
}

// daySyncerFor binds the per-date fetch+upsert closure for one cursor source.
func (e *Engine) daySyncerFor(source models.Source, orgID int64, creds *sources.Credentials) daySyncFunc {
	switch source {
	case models.SourceOrders:
		return func(ctx context.Context, date time.Time) error {
			return e.syncOrdersDay(ctx, orgID, creds, date)
		}
	case models.SourceTraffic:
		return func(ctx context.Context, date time.Time) error {
			return e.syncTrafficDay(ctx, orgID, creds, date)
		}
	case models.SourceEngagement:
		return func(ctx context.Context, date time.Time) error {
			return e.syncEngagementDay(ctx, orgID, creds, date)
		}
	default:
		return func(_ context.Context, _ time.Time) error {
			return fmt.Errorf("source %s has no day syncer", source)
		}
	}
}

func (e *Engine) syncOrdersDay(ctx context.Context, orgID int64, creds *sources.Credentials, date time.Time) error {
	var facts []models.SalesFact
	err := e.withRetry(ctx, func() error {
		var fetchErr error
		facts, fetchErr = e.orders.FetchDay(ctx, creds, date)
		return fetchErr
	})
	if err != nil {
		return err
	}
	for i := range facts {
		facts[i].OrgID = orgID
		if err := e.store.UpsertSalesFact(ctx, &facts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) syncTrafficDay(ctx context.Context, orgID int64, creds *sources.Credentials, date time.Time) error {
	var facts []models.TrafficFact
	err := e.withRetry(ctx, func() error {
		var fetchErr error
		facts, fetchErr = e.traffic.FetchDay(ctx, creds, date)
		return fetchErr
	})
	if err != nil {
		return err
	}
	for i := range facts {
		facts[i].OrgID = orgID
		if err := e.store.UpsertTrafficFact(ctx, &facts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) syncEngagementDay(ctx context.Context, orgID int64, creds *sources.Credentials, date time.Time) error {
	var facts []models.EngagementFact
	err := e.withRetry(ctx, func() error {
		var fetchErr error
		facts, fetchErr = e.engagement.FetchDay(ctx, creds, date)
		return fetchErr
	})
	if err != nil {
		return err
	}
	for i := range facts {
		facts[i].OrgID = orgID
		if err := e.store.UpsertEngagementFact(ctx, &facts[i]); err != nil {
			return err
		}
	}
	return nil
}

// reconcileOrders re-fetches the trailing reconciliation window ending today.
// Failures are appended to the run's error list but do not count toward
// datesSynced; the window overlaps dates the gap may have just fetched, which
// is harmless because upserts are idempotent.
func (e *Engine) reconcileOrders(ctx context.Context, orgID int64, creds *sources.Credentials, outcome *backfillOutcome) {
	today := middayAnchor(e.clock.Now(), e.loc)
	from := middayAnchor(today.Add(-time.Duration(e.syncCfg.ReconcileDays-1)*24*time.Hour), e.loc)

	for _, date := range daysBetween(from, today, e.loc) {
		if err := e.syncOrdersDay(ctx, orgID, creds, date); err != nil {
			outcome.errs = append(outcome.errs,
				fmt.Sprintf("reconcile %s: %s", date.Format("2006-01-02"), err.Error()))
		}
	}
}
