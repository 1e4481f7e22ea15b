// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

/*
Package websocket pushes vehicle registry changes to map clients.

It uses gorilla/websocket with the hub-client pattern: one Hub goroutine owns
the client set and every Client runs a readPump and a writePump.

	┌──────────┐
	│   Hub    │ ← Publish(registry) from the coordinator
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│ Client1  │ Client2 │ Client3 │
	└──────────┴─────────┴─────────┘

Message Types:

  - snapshot: sent once on connect; data is {count, vehicles}
  - vehicles: sent on every registry change; data is {count, updated, removed}
  - ping / pong: application keep-alive initiated by the client

Publish keeps only the newest registry, so a slow hub coalesces bursts
instead of queueing them. A client that cannot keep up is disconnected and
resyncs from a new snapshot when it reconnects.

Usage:

	hub := websocket.NewHub()
	coord.OnChange(hub.Publish)
	supervisor.AddAPIService(hub)

	// in an HTTP handler, after upgrading:
	hub.Attach(conn)
*/
package websocket
