// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

/*
Package api serves the read API over the vehicle registry using the Chi router.

Routes:

	GET  /health                 overall health, always 200
	GET  /health/live            liveness probe
	GET  /health/ready           readiness probe, 503 unless the stream is open
	GET  /api/v1/vehicles        all vehicles, sorted by id (?route=, ?unscheduled=)
	GET  /api/v1/vehicles/{id}   one vehicle or 404
	GET  /api/v1/status          stream connection, last error, last cache refresh
	POST /api/v1/cache/refresh   validity check plus refresh when stale
	GET  /api/v1/ws              live snapshot and deltas over websocket
	GET  /metrics                Prometheus exposition

Every JSON body uses the models.APIResponse envelope encoded with goccy/go-json.

Middleware stack, in order: request ID, real IP, access log, panic recovery,
CORS (go-chi/cors), Prometheus metrics, then per-group rate limits
(go-chi/httprate) and gzip for JSON.

Handlers read through small interfaces (VehicleSource, CacheRefresher,
LiveHub) so tests can substitute fakes:

	h := api.NewHandler(coord,
	    api.WithRefresher(refresher),
	    api.WithLiveHub(hub, cfg.Server.CORSOrigins),
	)
	srv := &http.Server{Handler: api.NewRouter(h, mwConfig).SetupChi()}
*/
package api
