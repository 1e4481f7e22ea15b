// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

/*
Package middleware provides the HTTP middleware shared by the read API.

Key Components:

  - RequestID: request and correlation IDs for log tracing
  - PrometheusMetrics: request count, latency and in-flight gauge, labelled by
    chi route pattern
  - AccessLog: one structured zerolog line per request

All middleware uses the func(http.Handler) http.Handler shape so it plugs
into chi's Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog)

Metrics must be installed with Use on the router (not wrapped around it) so
the route pattern is resolved by the time the handler returns.
*/
package middleware
