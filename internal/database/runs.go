// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/sellerpulse/sellerpulse/internal/models"
)

// InsertSyncRun records one completed run for the status endpoint. The
// per-source breakdown is stored as JSON; sync_runs is an audit trail, not a
// source of truth for the engine.
func (db *DB) InsertSyncRun(ctx context.Context, summary *models.SyncRunSummary) error {
	resultsJSON, err := json.Marshal(summary.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal run results: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `INSERT INTO sync_runs (
		run_id, org_id, success, summary, results_json, started_at, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.OrgID, summary.Success, summary.Summary,
		string(resultsJSON), summary.StartedAt, summary.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	return nil
}

// LastSyncRun returns the most recent run for an org, or nil when the org
// has never been synced.
func (db *DB) LastSyncRun(ctx context.Context, orgID int64) (*models.SyncRunSummary, error) {
	var (
		summary     models.SyncRunSummary
		resultsJSON string
	)
	err := db.conn.QueryRowContext(ctx, `SELECT run_id, org_id, success, summary, results_json, started_at, duration_ms
		FROM sync_runs WHERE org_id = ? ORDER BY started_at DESC LIMIT 1`, orgID).
		Scan(&summary.RunID, &summary.OrgID, &summary.Success, &summary.Summary,
			&resultsJSON, &summary.StartedAt, &summary.DurationMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last sync run: %w", err)
	}

	if err := json.Unmarshal([]byte(resultsJSON), &summary.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run results: %w", err)
	}

	return &summary, nil
}
