// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/transitsync/internal/cachevalidity"
	"github.com/tomtom215/transitsync/internal/logging"
)

// Refresher checks and refreshes the static dataset cache.
type Refresher interface {
	Refresh(ctx context.Context) (cachevalidity.RefreshResult, error)
}

// CacheRefreshService runs one refresh at startup and then one per
// interval. Refresh failures are logged and retried on the next tick
// rather than returned, so a dead dataset source never restarts the layer.
type CacheRefreshService struct {
	refresher Refresher
	interval  time.Duration
	log       zerolog.Logger
}

// NewCacheRefreshService creates the service. A non-positive interval
// defaults to one hour.
func NewCacheRefreshService(r Refresher, interval time.Duration) *CacheRefreshService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CacheRefreshService{
		refresher: r,
		interval:  interval,
		log:       logging.WithComponent("cache-refresh"),
	}
}

// Serve implements suture.Service.
func (s *CacheRefreshService) Serve(ctx context.Context) error {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *CacheRefreshService) runOnce(ctx context.Context) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	start := time.Now()

	res, err := s.refresher.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.Ctx(ctx).Warn().Err(err).
			Bool("circuit_open", cachevalidity.IsCircuitOpen(err)).
			Msg("static dataset refresh failed")
		return
	}

	event := s.log.Debug()
	if res.Refreshed {
		event = s.log.Info()
	}
	event.
		Str("reason", res.Check.Reason).
		Str("version", res.Check.LatestVersion).
		Bool("refreshed", res.Refreshed).
		Int("rows", res.RowsWritten).
		Dur("duration", time.Since(start)).
		Msg("static dataset cache checked")
}

// String implements fmt.Stringer for suture.
func (s *CacheRefreshService) String() string {
	return "cache-refresh"
}
