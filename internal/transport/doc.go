// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

/*
Package transport keeps one streaming websocket subscription alive.

A Transport dials the configured endpoint, sends the subscription payload
as soon as each connection opens, and hands decoded frames to the data
handler. It reconnects at a fixed interval with no retry limit.

Silent connection death (open socket, no traffic) is detected with an
application-level ping/pong exchange driven by internal/liveness: after a
randomized idle delay the transport sends up to MaxPings ping tokens, and if
none is answered it closes the socket, reports a *LivenessError to the error
handler and reconnects.

Connection states:

	closed --subscribe--> connecting --opened--> open
	open --idle_timeout--> awaiting_pong --pong--> open
	awaiting_pong --liveness_failed--> failed --reconnect--> connecting
	open/awaiting_pong --dropped--> connecting
	any --unsubscribe--> closed

Send failures are logged and counted but never returned; malformed frames
are logged (throttled) and dropped.
*/
package transport
