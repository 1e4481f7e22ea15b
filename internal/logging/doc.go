// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

/*
Package logging wraps zerolog behind a small set of package-level helpers so
every component of transitsync logs the same way.

Initialise once from main:

	logging.Init(logging.Config{Level: "info", Format: "json"})

Component loggers carry a "component" field:

	log := logging.WithComponent("transport")
	log.Info().Str("url", url).Msg("stream connected")

Each streaming subscription session runs under a correlation ID so a
connect/ping/reconnect cycle can be followed across log lines:

	ctx = logging.ContextWithNewCorrelationID(ctx)
	logging.Ctx(ctx).Warn().Msg("liveness budget exhausted")

NewSlogLogger bridges zerolog to log/slog for libraries that want an
*slog.Logger, which is how suture supervisor events reach the same output.

Environment variables (read by internal/config):

  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json, console (default: json)
  - LOG_CALLER: include file:line (default: false)
*/
package logging
