// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

/*
Package services provides suture.Service wrappers for transitsync components.

Each wrapper translates a component lifecycle into suture's context-aware
Serve(ctx) error and names itself through fmt.Stringer for the event log.

# Available Services

Sync Coordinator (CoordinatorService):
  - Start subscribes to the vehicle stream, Stop unsubscribes
  - The transport reconnects on its own; the service only fails if the
    lifecycle calls fail

Cache Refresh (CacheRefreshService):
  - One validity check and refresh at startup, then one per interval
  - Failures are logged, never returned, so a dead dataset source does not
    cause restart storms (the fetcher's circuit breaker backs off instead)

HTTP Server (HTTPServerService):
  - Binds the listener inside Serve so a busy port is a retryable error
  - Graceful Shutdown with its own timeout on cancellation

The websocket hub implements suture.Service itself and needs no wrapper.

# Usage

	tree.AddSyncService(services.NewCoordinatorService(coord))
	tree.AddSyncService(services.NewCacheRefreshService(refresher, cfg.Cache.RefreshInterval))
	tree.AddAPIService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Supervisor.ShutdownTimeout))
*/
package services
