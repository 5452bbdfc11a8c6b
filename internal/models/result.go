// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package models

import "time"

// SyncStatus is the derived outcome of one (org, source) sync.
type SyncStatus string

const (
	// StatusOK means no errors and all due work completed (or nothing was due).
	StatusOK SyncStatus = "ok"

	// StatusSkipped means the source has no credentials configured for the org.
	StatusSkipped SyncStatus = "skipped"

	// StatusPartial means some dates succeeded and some failed.
	StatusPartial SyncStatus = "partial"

	// StatusError means zero dates succeeded with at least one attempted,
	// or the cursor precondition query failed.
	StatusError SyncStatus = "error"
)

// SourceSyncResult is the immutable per-(org, source) outcome of one run.
// It is a response value, never persisted as source of truth; the sync_runs
// table stores a serialized copy for the status endpoint only.
type SourceSyncResult struct {
	Source       Source     `json:"source"`
	Status       SyncStatus `json:"status"`
	CursorBefore *time.Time `json:"cursor_before,omitempty"`
	CursorAfter  *time.Time `json:"cursor_after,omitempty"`
	DatesSynced  int        `json:"dates_synced"`
	Errors       []string   `json:"errors,omitempty"`
}

// SyncRunSummary is the structured result of one whole-org sync run.
type SyncRunSummary struct {
	RunID      string                      `json:"run_id"`
	OrgID      int64                       `json:"org_id"`
	Success    bool                        `json:"success"`
	Summary    string                      `json:"summary"`
	StartedAt  time.Time                   `json:"started_at"`
	DurationMs int64                       `json:"duration_ms"`
	Results    map[Source]SourceSyncResult `json:"results"`
}

// ReportJobStatus tracks one in-flight ad platform report job.
type ReportJobStatus string

const (
	// JobRequested means the create call succeeded and the job has not yet
	// been observed in a terminal remote state.
	JobRequested ReportJobStatus = "requested"

	// JobProcessing means the last poll reported the job still running.
	JobProcessing ReportJobStatus = "processing"

	// JobCompleted means rows were downloaded and upserted.
	JobCompleted ReportJobStatus = "completed"

	// JobFailed means the remote platform reported a terminal failure.
	JobFailed ReportJobStatus = "failed"

	// JobTimeout means the run deadline passed with the job unresolved.
	// The date stays missing from the store, so the next run re-requests it.
	JobTimeout ReportJobStatus = "timeout"
)

// ReportJob represents one asynchronous ad platform extraction request.
// Jobs are never persisted; an unresolved job is simply re-requested on the
// next run because its date is still absent from the store.
type ReportJob struct {
	ReportDate  time.Time       `json:"report_date"`
	RemoteJobID string          `json:"remote_job_id"`
	Status      ReportJobStatus `json:"status"`
	Rows        int             `json:"rows"`
}
