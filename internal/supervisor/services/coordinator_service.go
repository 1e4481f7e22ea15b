// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/transitsync/internal/coordinator"
)

// StartStopper is the coordinator lifecycle.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop() error
}

// CoordinatorService runs the sync coordinator under suture.
//
// Start subscribes and returns at once; the transport owns its goroutines
// and reconnects on its own, so this service only fails if Start or Stop
// fail.
type CoordinatorService struct {
	coord StartStopper
}

// NewCoordinatorService wraps coord.
func NewCoordinatorService(coord StartStopper) *CoordinatorService {
	return &CoordinatorService{coord: coord}
}

// Serve implements suture.Service.
func (s *CoordinatorService) Serve(ctx context.Context) error {
	if err := s.coord.Start(ctx); err != nil {
		return fmt.Errorf("coordinator start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.coord.Stop(); err != nil && !errors.Is(err, coordinator.ErrNotStarted) {
		return fmt.Errorf("coordinator stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture.
func (s *CoordinatorService) String() string {
	return "sync-coordinator"
}
