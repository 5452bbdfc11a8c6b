// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sellerpulse/sellerpulse/internal/config"
	"github.com/sellerpulse/sellerpulse/internal/logging"
	"github.com/sellerpulse/sellerpulse/internal/metrics"
	"github.com/sellerpulse/sellerpulse/internal/models"
	"github.com/sellerpulse/sellerpulse/internal/sources"
)

// Store is the slice of the database the engine writes and reads.
// *database.DB satisfies it.
type Store interface {
	MaxFactDate(ctx context.Context, orgID int64, source models.Source) (*time.Time, error)
	DatesPresent(ctx context.Context, orgID int64, source models.Source, from, to time.Time) (map[string]bool, error)
	UpsertSalesFact(ctx context.Context, f *models.SalesFact) error
	UpsertTrafficFact(ctx context.Context, f *models.TrafficFact) error
	UpsertEngagementFact(ctx context.Context, f *models.EngagementFact) error
	UpsertAdSpendFact(ctx context.Context, f *models.AdSpendFact) error
	InsertSyncRun(ctx context.Context, summary *models.SyncRunSummary) error
}

// credentialsGetter resolves per-(org, source) API credentials.
type credentialsGetter interface {
	Get(ctx context.Context, orgID int64, source models.Source) (*sources.Credentials, error)
}

type ordersFetcher interface {
	FetchDay(ctx context.Context, creds *sources.Credentials, date time.Time) ([]models.SalesFact, error)
}

type trafficFetcher interface {
	FetchDay(ctx context.Context, creds *sources.Credentials, date time.Time) ([]models.TrafficFact, error)
}

type engagementFetcher interface {
	FetchDay(ctx context.Context, creds *sources.Credentials, date time.Time) ([]models.EngagementFact, error)
}

// adsAPI is the asynchronous report workflow of the ad platform.
type adsAPI interface {
	CreateReport(ctx context.Context, creds *sources.Credentials, date time.Time) (string, error)
	PollReport(ctx context.Context, creds *sources.Credentials, reportID string) (*sources.ReportPoll, error)
	DownloadReport(ctx context.Context, creds *sources.Credentials, reportID string, date time.Time) ([]models.AdSpendFact, error)
}

// Engine runs the four source syncs for an organization: fork-join across
// sources, each source fully independent (disjoint rows, own credentials,
// own error accounting).
type Engine struct {
	store      Store
	creds      credentialsGetter
	orders     ordersFetcher
	traffic    trafficFetcher
	engagement engagementFetcher
	ads        adsAPI

	syncCfg          config.SyncConfig
	adsSettings      adsSettings
	createRatePerSec float64

	clock Clock
	sleep sleepFunc
	loc   *time.Location
}

// NewEngine wires the engine from its collaborators and configuration.
func NewEngine(store Store, creds credentialsGetter, orders ordersFetcher, traffic trafficFetcher,
	engagement engagementFetcher, ads adsAPI, syncCfg config.SyncConfig, adsCfg config.AdsConfig) (*Engine, error) {
	loc, err := time.LoadLocation(syncCfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid sync timezone %q: %w", syncCfg.Timezone, err)
	}

	return &Engine{
		store:      store,
		creds:      creds,
		orders:     orders,
		traffic:    traffic,
		engagement: engagement,
		ads:        ads,
		syncCfg:    syncCfg,
		adsSettings: adsSettings{
			lookbackDays:  adsCfg.LookbackDays,
			batchSize:     adsCfg.BatchSize,
			batchPause:    adsCfg.BatchPause,
			pollInterval:  adsCfg.PollInterval,
			batchDeadline: adsCfg.BatchDeadline,
			runDeadline:   adsCfg.RunDeadline,
		},
		createRatePerSec: adsCfg.CreateRatePerSec,
		clock:            realClock{},
		sleep:            ctxSleep,
		loc:              loc,
	}, nil
}

// RunSync syncs every source for one organization concurrently and returns
// the aggregated summary. Per-source failures land in the result structure;
// the call itself fails only on a defect in the orchestrator's own plumbing,
// never on remote errors.
func (e *Engine) RunSync(ctx context.Context, orgID int64) *models.SyncRunSummary {
	started := e.clock.Now()
	log := logging.With().Int64("org_id", orgID).Logger()
	log.Info().Msg("Starting sync run")

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[models.Source]models.SourceSyncResult, len(models.AllSources))
	)

	for _, source := range models.AllSources {
		wg.Add(1)
		go func(source models.Source) {
			defer wg.Done()
			sourceStart := time.Now()

			var result models.SourceSyncResult
			if source == models.SourceAds {
				result = e.syncAdsSource(ctx, orgID)
			} else {
				result = e.syncCursorSource(ctx, orgID, source)
			}

			metrics.RecordSourceSync(string(source), time.Since(sourceStart),
				result.DatesSynced, len(result.Errors))

			mu.Lock()
			results[source] = result
			mu.Unlock()
		}(source)
	}
	wg.Wait()

	summary := &models.SyncRunSummary{
		RunID:      uuid.NewString(),
		OrgID:      orgID,
		Success:    runSucceeded(results),
		Summary:    buildSummary(results),
		StartedAt:  started,
		DurationMs: e.clock.Now().Sub(started).Milliseconds(),
		Results:    results,
	}

	if summary.Success {
		metrics.SyncRunsTotal.WithLabelValues("success").Inc()
	} else {
		metrics.SyncRunsTotal.WithLabelValues("failure").Inc()
	}

	// The audit insert must not fail the run; the summary is already complete.
	if err := e.store.InsertSyncRun(ctx, summary); err != nil {
		log.Error().Err(err).Str("run_id", summary.RunID).Msg("Failed to record sync run")
	}

	log.Info().Str("run_id", summary.RunID).Bool("success", summary.Success).
		Str("summary", summary.Summary).Int64("duration_ms", summary.DurationMs).
		Msg("Sync run finished")
	return summary
}
