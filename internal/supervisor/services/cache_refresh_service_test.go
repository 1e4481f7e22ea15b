// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/transitsync/internal/cachevalidity"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
	ch    chan struct{}
}

func (c *countingRefresher) Refresh(context.Context) (cachevalidity.RefreshResult, error) {
	c.calls.Add(1)
	select {
	case c.ch <- struct{}{}:
	default:
	}
	if c.err != nil {
		return cachevalidity.RefreshResult{}, c.err
	}
	return cachevalidity.RefreshResult{
		Check:     cachevalidity.Result{Reason: cachevalidity.ReasonMissingVersion, LatestVersion: "2026-10-14"},
		Refreshed: true,
	}, nil
}

func waitRefresh(t *testing.T, c *countingRefresher) {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("refresh not called (calls=%d)", c.calls.Load())
	}
}

func TestCacheRefreshService_RefreshesAtStartAndOnTick(t *testing.T) {
	r := &countingRefresher{ch: make(chan struct{}, 1)}
	svc := NewCacheRefreshService(r, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	waitRefresh(t, r) // startup
	waitRefresh(t, r) // first tick
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if r.calls.Load() < 2 {
		t.Errorf("calls = %d, want >= 2", r.calls.Load())
	}
}

func TestCacheRefreshService_FailuresDoNotStopService(t *testing.T) {
	r := &countingRefresher{ch: make(chan struct{}, 1), err: cachevalidity.ErrCircuitOpen}
	svc := NewCacheRefreshService(r, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	for i := 0; i < 3; i++ {
		waitRefresh(t, r)
	}
	select {
	case err := <-errCh:
		t.Fatalf("Serve returned early: %v", err)
	default:
	}
	cancel()
	<-errCh
}

func TestNewCacheRefreshService_DefaultInterval(t *testing.T) {
	svc := NewCacheRefreshService(&countingRefresher{}, 0)
	if svc.interval != time.Hour {
		t.Errorf("interval = %v, want 1h", svc.interval)
	}
	if svc.String() != "cache-refresh" {
		t.Errorf("String() = %q", svc.String())
	}
}
