// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package api

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/transitsync/internal/cachevalidity"
	"github.com/tomtom215/transitsync/internal/models"
	"github.com/tomtom215/transitsync/internal/registry"
)

// VehicleSource is the read side of the sync coordinator.
type VehicleSource interface {
	GetAll() *registry.Registry
	LastUpdate() time.Time
	Status() models.SyncStatus
}

// CacheRefresher runs and reports static dataset cache refreshes.
type CacheRefresher interface {
	Refresh(ctx context.Context) (cachevalidity.RefreshResult, error)
	Last() *cachevalidity.RefreshResult
}

// LiveHub accepts upgraded websocket connections for live updates.
type LiveHub interface {
	Attach(conn *websocket.Conn) bool
	GetClientCount() int
}

// Handler holds the dependencies of every HTTP handler.
type Handler struct {
	vehicles  VehicleSource
	refresher CacheRefresher
	hub       LiveHub
	origins   []string
	startTime time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRefresher enables POST /api/v1/cache/refresh and the cache section of
// the status report.
func WithRefresher(r CacheRefresher) HandlerOption {
	return func(h *Handler) { h.refresher = r }
}

// WithLiveHub enables GET /api/v1/ws. Browser origins are checked against
// allowedOrigins; "*" allows any origin.
func WithLiveHub(hub LiveHub, allowedOrigins []string) HandlerOption {
	return func(h *Handler) {
		h.hub = hub
		h.origins = allowedOrigins
	}
}

// NewHandler creates a Handler reading vehicles from src.
func NewHandler(src VehicleSource, opts ...HandlerOption) *Handler {
	h := &Handler{vehicles: src, startTime: time.Now()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
