// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/sellerpulse/sellerpulse/internal/models"
)

// CursorQueryError marks a failed cursor read. It is a precondition failure:
// the whole source sync aborts with status error, unlike per-date failures
// which are tolerated.
type CursorQueryError struct {
	Source models.Source
	Err    error
}

func (e *CursorQueryError) Error() string {
	return fmt.Sprintf("cursor query for %s failed: %v", e.Source, e.Err)
}

func (e *CursorQueryError) Unwrap() error { return e.Err }

// Gap is the contiguous, ascending range of dates a source still needs.
// Computed fresh per run from the store cursor; never persisted.
type Gap struct {
	// Cursor is the latest date already persisted, nil on bootstrap.
	Cursor *time.Time
	// Dates are the days to fetch, strictly ascending, never overlapping
	// what the cursor already covers. Empty when the source is up to date.
	Dates []time.Time
}

// cutoffFor returns the last date a source may be asked for, relative to now.
// Orders and traffic tolerate same-day requests (the APIs return empty rows
// for a day with no data yet, which is safe to re-sync). Engagement numbers
// for the current day are guaranteed incomplete, so that source is capped at
// yesterday.
func cutoffFor(source models.Source, now time.Time, loc *time.Location) time.Time {
	anchor := middayAnchor(now, loc)
	if source == models.SourceEngagement {
		return middayAnchor(anchor.Add(-24*time.Hour), loc)
	}
	return anchor
}

// computeGap reads the cursor for (org, source) and derives the range of
// missing dates: (cursor, cutoff] when a cursor exists, or the bootstrap
// lookback window [cutoff-bootstrapDays, cutoff] when the source has never
// been synced.
func (e *Engine) computeGap(ctx context.Context, orgID int64, source models.Source) (*Gap, error) {
	cursor, err := e.store.MaxFactDate(ctx, orgID, source)
	if err != nil {
		return nil, &CursorQueryError{Source: source, Err: err}
	}

	now := e.clock.Now()
	cutoff := cutoffFor(source, now, e.loc)

	var from time.Time
	if cursor != nil {
		// Cursors are stored midnight-UTC; re-anchor by UTC date components
		// so the sync timezone cannot shift the day.
		cy, cm, cd := cursor.UTC().Date()
		cursorAnchor := time.Date(cy, cm, cd, 12, 0, 0, 0, e.loc)
		from = middayAnchor(cursorAnchor.Add(24*time.Hour), e.loc)
	} else {
		from = middayAnchor(cutoff.Add(-time.Duration(e.syncCfg.BootstrapDays)*24*time.Hour), e.loc)
	}

	return &Gap{
		Cursor: cursor,
		Dates:  daysBetween(from, cutoff, e.loc),
	}, nil
}
