// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package services

import (
	"context"
)

// Scheduler is the sync scheduling loop. Satisfied by *sync.Manager.
type Scheduler interface {
	Serve(ctx context.Context) error
}

// SchedulerService supervises the sync scheduler.
type SchedulerService struct {
	scheduler Scheduler
}

// NewSchedulerService wraps the scheduler as a supervised service.
func NewSchedulerService(scheduler Scheduler) *SchedulerService {
	return &SchedulerService{scheduler: scheduler}
}

// Serve implements suture.Service by delegating to the scheduler loop.
func (s *SchedulerService) Serve(ctx context.Context) error {
	return s.scheduler.Serve(ctx)
}

// String identifies the service in supervisor logs.
func (s *SchedulerService) String() string { return "sync-scheduler" }
