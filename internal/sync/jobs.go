// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/sellerpulse/sellerpulse/internal/logging"
	"github.com/sellerpulse/sellerpulse/internal/metrics"
	"github.com/sellerpulse/sellerpulse/internal/models"
	"github.com/sellerpulse/sellerpulse/internal/sources"
)

// jobEngine drives the ad platform's asynchronous report workflow for one
// run: request a report per missing date in batches, poll the pending set on
// a fixed interval, download and upsert completed reports. Two guards bound
// the run: wall-clock deadlines (per batch and overall) and a rate-limit
// circuit break that stops every further network call for the run.
//
// Jobs are never persisted. An unresolved date is simply still missing from
// the store, so the next run requests it again.
type jobEngine struct {
	client adsAPI
	store  Store
	cfg    adsSettings
	clock  Clock
	sleep  sleepFunc
	// limiter paces create-report calls; the platform throttles bursts.
	limiter *rate.Limiter

	orgID int64
	creds *sources.Credentials
	loc   *time.Location

	// pending is the poll set, keyed by remote job ID.
	pending map[string]*models.ReportJob
	// rateLimited latches true on the first throttling signal; no network
	// call is made afterwards for the remainder of the run.
	rateLimited bool

	attempted int
	synced    int
	errs      []string
}

// adsSettings is the slice of config.AdsConfig the engine consumes.
type adsSettings struct {
	lookbackDays  int
	batchSize     int
	batchPause    time.Duration
	pollInterval  time.Duration
	batchDeadline time.Duration
	runDeadline   time.Duration
}

// run executes the whole request+poll cycle and returns the fold outcome
// plus the number of dates attempted.
func (j *jobEngine) run(ctx context.Context) (outcome backfillOutcome, attempted int, err error) {
	dates, err := j.dueDates(ctx)
	if err != nil {
		return backfillOutcome{}, 0, err
	}
	if len(dates) == 0 {
		return backfillOutcome{}, 0, nil
	}

	runDeadline := j.clock.Now().Add(j.cfg.runDeadline)
	log := logging.With().Int64("org_id", j.orgID).Logger()
	log.Info().Int("dates", len(dates)).Msg("Starting ad report run")

	for start := 0; start < len(dates); start += j.cfg.batchSize {
		if j.rateLimited {
			break
		}
		if !j.clock.Now().Before(runDeadline) {
			// Out of run budget; unrequested dates stay missing and are
			// picked up next run.
			break
		}

		end := start + j.cfg.batchSize
		if end > len(dates) {
			end = len(dates)
		}
		j.runBatch(ctx, dates[start:end], runDeadline)

		if end < len(dates) && !j.rateLimited && j.cfg.batchPause > 0 {
			if err := j.sleep(ctx, j.cfg.batchPause); err != nil {
				break
			}
		}
	}

	metrics.ReportJobsPending.Set(0)
	return backfillOutcome{synced: j.synced, errs: j.errs}, j.attempted, nil
}

// dueDates builds the run's date list: the fixed lookback window ending
// today, minus dates already fully persisted. The window is not gap-based
// because the platform retains report eligibility only for recent dates.
func (j *jobEngine) dueDates(ctx context.Context) ([]time.Time, error) {
	today := middayAnchor(j.clock.Now(), j.loc)
	from := middayAnchor(today.Add(-time.Duration(j.cfg.lookbackDays-1)*24*time.Hour), j.loc)
	window := daysBetween(from, today, j.loc)
	if len(window) == 0 {
		return nil, nil
	}

	present, err := j.store.DatesPresent(ctx, j.orgID, models.SourceAds, window[0], window[len(window)-1])
	if err != nil {
		return nil, &CursorQueryError{Source: models.SourceAds, Err: err}
	}

	var due []time.Time
	for _, date := range window {
		if !present[date.Format("2006-01-02")] {
			due = append(due, date)
		}
	}
	return due, nil
}

// runBatch requests one batch of reports and polls it to resolution or to
// its deadline. The batch deadline never extends past the run deadline.
func (j *jobEngine) runBatch(ctx context.Context, dates []time.Time, runDeadline time.Time) {
	batchDeadline := j.clock.Now().Add(j.cfg.batchDeadline)
	if batchDeadline.After(runDeadline) {
		batchDeadline = runDeadline
	}

	j.requestReports(ctx, dates)

	for len(j.pending) > 0 && !j.rateLimited {
		if !j.clock.Now().Before(batchDeadline) {
			j.expirePending()
			return
		}
		if err := j.sleep(ctx, j.cfg.pollInterval); err != nil {
			j.expirePending()
			return
		}
		j.tick(ctx)
	}
}

// requestReports issues one create call per date. A failed create is an
// immediate per-date error; it is not retried within the run.
func (j *jobEngine) requestReports(ctx context.Context, dates []time.Time) {
	for _, date := range dates {
		if j.rateLimited {
			return
		}
		j.attempted++

		if err := j.limiter.Wait(ctx); err != nil {
			j.errs = append(j.errs, fmt.Sprintf("%s: %s", date.Format("2006-01-02"), err.Error()))
			continue
		}

		jobID, err := j.client.CreateReport(ctx, j.creds, date)
		if errors.Is(err, sources.ErrRateLimited) {
			j.tripRateLimit(date)
			return
		}
		if err != nil {
			j.errs = append(j.errs, fmt.Sprintf("%s: %s", date.Format("2006-01-02"), err.Error()))
			metrics.ReportJobsTotal.WithLabelValues("request_failed").Inc()
			continue
		}

		j.pending[jobID] = &models.ReportJob{
			ReportDate:  date,
			RemoteJobID: jobID,
			Status:      models.JobRequested,
		}
		metrics.ReportJobsTotal.WithLabelValues("requested").Inc()
	}
	metrics.ReportJobsPending.Set(float64(len(j.pending)))
}

// tick performs one status sweep over the pending set, oldest date first.
func (j *jobEngine) tick(ctx context.Context) {
	metrics.ReportPollTicks.Inc()

	for _, job := range j.pendingByDate() {
		if j.rateLimited {
			return
		}

		poll, err := j.client.PollReport(ctx, j.creds, job.RemoteJobID)
		if errors.Is(err, sources.ErrRateLimited) {
			j.tripRateLimit(job.ReportDate)
			return
		}
		if err != nil {
			// Transient poll failure: leave the job pending for the next tick.
			logging.Warn().Err(err).Str("job_id", job.RemoteJobID).Msg("Report poll failed, will retry")
			continue
		}

		switch {
		case poll.Done:
			j.completeJob(ctx, job)
		case poll.FailureReason != "":
			job.Status = models.JobFailed
			delete(j.pending, job.RemoteJobID)
			j.errs = append(j.errs,
				fmt.Sprintf("%s: %s", job.ReportDate.Format("2006-01-02"), poll.FailureReason))
			metrics.ReportJobsTotal.WithLabelValues("failed").Inc()
		default:
			job.Status = models.JobProcessing
		}
	}
	metrics.ReportJobsPending.Set(float64(len(j.pending)))
}

// completeJob downloads a finished report and upserts its rows.
func (j *jobEngine) completeJob(ctx context.Context, job *models.ReportJob) {
	facts, err := j.client.DownloadReport(ctx, j.creds, job.RemoteJobID, job.ReportDate)
	if errors.Is(err, sources.ErrRateLimited) {
		j.tripRateLimit(job.ReportDate)
		return
	}
	if err != nil {
		delete(j.pending, job.RemoteJobID)
		j.errs = append(j.errs, fmt.Sprintf("%s: %s", job.ReportDate.Format("2006-01-02"), err.Error()))
		metrics.ReportJobsTotal.WithLabelValues("download_failed").Inc()
		return
	}

	for i := range facts {
		facts[i].OrgID = j.orgID
		if err := j.store.UpsertAdSpendFact(ctx, &facts[i]); err != nil {
			delete(j.pending, job.RemoteJobID)
			j.errs = append(j.errs, fmt.Sprintf("%s: %s", job.ReportDate.Format("2006-01-02"), err.Error()))
			return
		}
	}

	job.Status = models.JobCompleted
	job.Rows = len(facts)
	delete(j.pending, job.RemoteJobID)
	j.synced++
	metrics.ReportJobsTotal.WithLabelValues("completed").Inc()
}

// tripRateLimit latches the circuit open and reports every pending job as
// still processing. Their dates stay missing from the store, so the next
// scheduled run retries them; throttling is never a hard error.
func (j *jobEngine) tripRateLimit(date time.Time) {
	j.rateLimited = true
	metrics.RateLimitTrips.Inc()
	logging.Warn().Int64("org_id", j.orgID).Str("date", date.Format("2006-01-02")).
		Msg("Rate limit signal received, stopping all ad report calls for this run")

	triggerPending := false
	for _, job := range j.pendingByDate() {
		if job.ReportDate.Equal(date) {
			triggerPending = true
		}
		job.Status = models.JobProcessing
		j.errs = append(j.errs,
			fmt.Sprintf("%s: still processing", job.ReportDate.Format("2006-01-02")))
		delete(j.pending, job.RemoteJobID)
	}
	if !triggerPending {
		j.errs = append(j.errs, fmt.Sprintf("%s: still processing", date.Format("2006-01-02")))
	}
	metrics.ReportJobsPending.Set(0)
}

// expirePending marks every pending job as timed out without further
// network calls. A normal outcome, not an exception.
func (j *jobEngine) expirePending() {
	for _, job := range j.pendingByDate() {
		job.Status = models.JobTimeout
		j.errs = append(j.errs,
			fmt.Sprintf("%s: timeout waiting for report", job.ReportDate.Format("2006-01-02")))
		delete(j.pending, job.RemoteJobID)
		metrics.ReportJobsTotal.WithLabelValues("timeout").Inc()
	}
	metrics.ReportJobsPending.Set(0)
}

// pendingByDate returns the pending jobs ordered by report date so sweeps
// and terminal reporting are deterministic.
func (j *jobEngine) pendingByDate() []*models.ReportJob {
	jobs := make([]*models.ReportJob, 0, len(j.pending))
	for _, job := range j.pending {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(a, b int) bool {
		return jobs[a].ReportDate.Before(jobs[b].ReportDate)
	})
	return jobs
}

// syncAdsSource is the ads counterpart of syncCursorSource: same result
// shape, driven by the job engine instead of a gap backfill.
func (e *Engine) syncAdsSource(ctx context.Context, orgID int64) models.SourceSyncResult {
	result := models.SourceSyncResult{Source: models.SourceAds}

	creds, err := e.creds.Get(ctx, orgID, models.SourceAds)
	if errors.Is(err, sources.ErrNoCredentials) {
		result.Status = models.StatusSkipped
		result.Errors = []string{errNoCredentialsMessage}
		return result
	}
	if err != nil {
		result.Status = models.StatusError
		result.Errors = []string{err.Error()}
		return result
	}

	cursorBefore, err := e.store.MaxFactDate(ctx, orgID, models.SourceAds)
	if err != nil {
		result.Status = models.StatusError
		result.Errors = []string{(&CursorQueryError{Source: models.SourceAds, Err: err}).Error()}
		return result
	}
	result.CursorBefore = cursorBefore

	engine := &jobEngine{
		client:  e.ads,
		store:   e.store,
		cfg:     e.adsSettings,
		clock:   e.clock,
		sleep:   e.sleep,
		limiter: rate.NewLimiter(rate.Limit(e.createRatePerSec), 1),
		orgID:   orgID,
		creds:   creds,
		loc:     e.loc,
		pending: make(map[string]*models.ReportJob),
	}

	outcome, _, err := engine.run(ctx)
	if err != nil {
		result.Status = models.StatusError
		result.Errors = []string{err.Error()}
		return result
	}

	result.DatesSynced = outcome.synced
	result.Errors = outcome.errs
	result.Status = deriveStatus(outcome.synced, outcome.errs)

	cursorAfter, err := e.store.MaxFactDate(ctx, orgID, models.SourceAds)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("cursor re-query failed: %s", err.Error()))
	} else {
		result.CursorAfter = cursorAfter
	}
	return result
}
