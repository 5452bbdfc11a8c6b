// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

// Package sync implements the incremental synchronization engine: gap
// detection against the store cursor, the sequential backfill loop, the
// asynchronous ad report job engine, and the fork-join orchestrator that
// runs all sources for one organization.
package sync

import (
	"context"
	"time"
)

// Clock abstracts wall-clock reads so date math and deadlines are
// deterministic under test.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// sleepFunc suspends for d or until ctx is done. The engine injects a fake
// in tests so poll loops run without real delays.
type sleepFunc func(ctx context.Context, d time.Duration) error

func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// middayAnchor pins t to 12:00 local time on its calendar day. Day stepping
// from a midday anchor is immune to daylight-saving transitions, where a
// midnight anchor plus 24h can land on the same or a skipped day.
func middayAnchor(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 12, 0, 0, 0, loc)
}

// dateOnly normalizes an anchored day to its storable midnight-UTC form.
// All fact tables key dates in this form.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns every calendar day from from through to inclusive, in
// ascending order and normalized with dateOnly. Returns nil when from is
// after to.
func daysBetween(from, to time.Time, loc *time.Location) []time.Time {
	start := middayAnchor(from, loc)
	end := middayAnchor(to, loc)
	if start.After(end) {
		return nil
	}

	var days []time.Time
	for d := start; !d.After(end); d = middayAnchor(d.Add(24*time.Hour), loc) {
		days = append(days, dateOnly(d))
	}
	return days
}
