// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type mockServer struct {
	listenErr   error
	shutdownErr error
	started     chan struct{}
	release     chan struct{}
	shutdowns   int
}

func newMockServer() *mockServer {
	return &mockServer{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (m *mockServer) ListenAndServe() error {
	close(m.started)
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.release
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(_ context.Context) error {
	m.shutdowns++
	close(m.release)
	return m.shutdownErr
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	srv := newMockServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	if srv.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", srv.shutdowns)
	}
}

func TestHTTPServiceStartFailure(t *testing.T) {
	srv := newMockServer()
	srv.listenErr = errors.New("port in use")
	svc := NewHTTPService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.listenErr) {
		t.Fatalf("Serve returned %v, want wrapped listen error", err)
	}
}

func TestSchedulerServiceDelegates(t *testing.T) {
	called := false
	svc := NewSchedulerService(schedulerFunc(func(ctx context.Context) error {
		called = true
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = svc.Serve(ctx)

	if !called {
		t.Error("scheduler was not invoked")
	}
	if svc.String() != "sync-scheduler" {
		t.Errorf("String() = %q", svc.String())
	}
}

type schedulerFunc func(ctx context.Context) error

func (f schedulerFunc) Serve(ctx context.Context) error { return f(ctx) }
