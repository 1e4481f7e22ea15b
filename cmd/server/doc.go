// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

/*
Package main is the entry point for the transitsync server.

Transitsync keeps one long-lived subscription to an upstream vehicle
position stream, maintains an in-memory registry of the fleet and serves it
through a read API and a live websocket feed.

# Application Architecture

	RootSupervisor ("transitsync")
	├── SyncSupervisor ("sync-layer")
	│   ├── Sync coordinator (stream subscription, registry merge)
	│   └── Cache refresh (static dataset validity, optional)
	└── APISupervisor ("api-layer")
	    ├── WebSocket hub (live registry deltas)
	    └── HTTP server (chi router)

Initialization order:

 1. Configuration: Koanf v2 with defaults, YAML file and environment
 2. Logging: zerolog with JSON or console output
 3. Cache store: BadgerDB, Redis or memory
 4. Transport and sync coordinator
 5. WebSocket hub wired to coordinator change notifications
 6. Cache validity oracle and refresher (when CACHE_DATASET_URL is set)
 7. Supervisor tree and HTTP server

# Configuration

Core environment variables:

	STREAM_URL=wss://stream.example.org/v1/vehicles
	STREAM_SUBSCRIPTION_KEY=...
	STREAM_FILTER=vehicles
	LIVENESS_MAX_PINGS=3
	CACHE_BACKEND=badger           # badger, redis, memory
	CACHE_DATASET_URL=https://...  # static GTFS zip
	HTTP_PORT=3857
	LOG_LEVEL=info

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests, the coordinator unsubscribes and the cache store is closed.
*/
package main
