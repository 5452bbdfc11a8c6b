// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package sync

import (
	"fmt"
	"strings"

	"github.com/sellerpulse/sellerpulse/internal/models"
)

// deriveStatus maps a source's fold outcome to its status. Skipped and
// precondition failures are decided before the fold runs and never reach
// this function.
func deriveStatus(synced int, errs []string) models.SyncStatus {
	switch {
	case len(errs) == 0:
		return models.StatusOK
	case synced > 0:
		return models.StatusPartial
	default:
		return models.StatusError
	}
}

// allUpToDateMessage is the summary when no source had due work.
const allUpToDateMessage = "All sources up to date"

// buildSummary renders the human-readable run summary, listing only sources
// that synced at least one date, in stable source order.
func buildSummary(results map[models.Source]models.SourceSyncResult) string {
	var parts []string
	for _, source := range models.AllSources {
		result, ok := results[source]
		if !ok || result.DatesSynced == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %d day(s)", source.DisplayName(), result.DatesSynced))
	}
	if len(parts) == 0 {
		return allUpToDateMessage
	}
	return strings.Join(parts, ", ")
}

// runSucceeded reports whether every source ended ok or skipped.
func runSucceeded(results map[models.Source]models.SourceSyncResult) bool {
	for _, result := range results {
		if result.Status != models.StatusOK && result.Status != models.StatusSkipped {
			return false
		}
	}
	return true
}
