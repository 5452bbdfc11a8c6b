// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package sync

import (
	"context"
	"sync"
	"time"

	"github.com/sellerpulse/sellerpulse/internal/logging"
	"github.com/sellerpulse/sellerpulse/internal/models"
)

// orgLister enumerates organizations with at least one configured source.
type orgLister interface {
	ConfiguredOrgs(ctx context.Context) ([]int64, error)
}

// Manager is the scheduler: it syncs every configured organization on a
// fixed interval and serializes manual triggers against scheduled runs per
// organization, so two runs never race on the same org's rows.
type Manager struct {
	engine   *Engine
	orgs     orgLister
	interval time.Duration

	mu       sync.Mutex
	orgLocks map[int64]*sync.Mutex
}

// NewManager creates a scheduler over the given engine.
func NewManager(engine *Engine, orgs orgLister, interval time.Duration) *Manager {
	return &Manager{
		engine:   engine,
		orgs:     orgs,
		interval: interval,
		orgLocks: make(map[int64]*sync.Mutex),
	}
}

// Serve runs the scheduling loop until ctx is cancelled. It satisfies
// suture.Service; an immediate first sweep runs before the first tick.
func (m *Manager) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", m.interval).Msg("Sync scheduler started")

	m.syncAll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Sync scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			m.syncAll(ctx)
		}
	}
}

// TriggerSync runs one organization's sync immediately, waiting for any
// in-flight run for the same org to finish first.
func (m *Manager) TriggerSync(ctx context.Context, orgID int64) *models.SyncRunSummary {
	lock := m.lockFor(orgID)
	lock.Lock()
	defer lock.Unlock()
	return m.engine.RunSync(ctx, orgID)
}

// syncAll sweeps every configured organization sequentially. Sources within
// one org already run concurrently; fanning out across orgs as well would
// multiply pressure on the shared store and the remote rate limits.
func (m *Manager) syncAll(ctx context.Context) {
	orgs, err := m.orgs.ConfiguredOrgs(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list configured orgs, skipping sweep")
		return
	}
	if len(orgs) == 0 {
		logging.Debug().Msg("No organizations configured, nothing to sync")
		return
	}

	for _, orgID := range orgs {
		if ctx.Err() != nil {
			return
		}
		m.TriggerSync(ctx, orgID)
	}
}

func (m *Manager) lockFor(orgID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.orgLocks[orgID]
	if !ok {
		lock = &sync.Mutex{}
		m.orgLocks[orgID] = lock
	}
	return lock
}
