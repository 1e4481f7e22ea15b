// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

// Package metrics holds the Prometheus instrumentation for transitsync.
//
// Collectors are package-level promauto globals registered on the default
// registry; the Record* helpers keep label values consistent at call sites.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stream transport
	StreamConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transitsync_stream_connection_state",
			Help: "Stream connection state (0=closed, 1=connecting, 2=open, 3=awaiting_pong, 4=failed)",
		},
	)

	StreamFramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitsync_stream_frames_received_total",
			Help: "Total inbound stream frames by kind",
		},
		[]string{"kind"}, // data, pong, malformed, discarded
	)

	StreamPingsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transitsync_stream_pings_sent_total",
			Help: "Total liveness pings sent",
		},
	)

	StreamLivenessFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transitsync_stream_liveness_failures_total",
			Help: "Total connections declared dead by the liveness protocol",
		},
	)

	StreamReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transitsync_stream_reconnect_attempts_total",
			Help: "Total dial attempts after the first",
		},
	)

	StreamSendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitsync_stream_send_failures_total",
			Help: "Total outbound frames that failed to send",
		},
		[]string{"frame"}, // subscribe, ping
	)

	// Vehicle registry
	RegistryVehicles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transitsync_registry_vehicles",
			Help: "Vehicles in the published registry",
		},
	)

	RegistryMergeEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitsync_registry_merge_entries_total",
			Help: "Batch entries processed by merge, by mode and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: accepted, stale, unchanged, invalid
	)

	RegistryMergeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transitsync_registry_merge_duration_seconds",
			Help:    "Time spent merging one batch",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
		[]string{"mode"},
	)

	RegistryLastUpdate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transitsync_registry_last_update_timestamp_seconds",
			Help: "Unix time of the last registry change",
		},
	)

	// Static dataset cache
	CacheChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitsync_cache_checks_total",
			Help: "Cache validity checks by result",
		},
		[]string{"result"}, // valid, missing_version, empty, version_mismatch, error
	)

	CacheRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitsync_cache_refreshes_total",
			Help: "Static dataset refreshes by outcome",
		},
		[]string{"outcome"}, // skipped, success, fetch_error, store_error
	)

	CacheRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transitsync_cache_rows",
			Help: "Rows written by the last successful refresh",
		},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "transitsync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitsync_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitsync_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transitsync_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transitsync_api_active_requests",
			Help: "HTTP requests currently being served",
		},
	)

	// Live push
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transitsync_websocket_clients",
			Help: "Connected live-update websocket clients",
		},
	)

	WebSocketMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitsync_websocket_messages_dropped_total",
			Help: "Live-update messages dropped by reason",
		},
		[]string{"reason"}, // hub_full, slow_client
	)
)

// RecordFrame counts one inbound frame.
func RecordFrame(kind string) {
	StreamFramesReceived.WithLabelValues(kind).Inc()
}

// RecordSendFailure counts one failed outbound frame.
func RecordSendFailure(frame string) {
	StreamSendFailures.WithLabelValues(frame).Inc()
}

// RecordMerge records the outcome of merging one batch.
func RecordMerge(mode string, accepted, stale, unchanged, invalid int, duration time.Duration) {
	RegistryMergeDuration.WithLabelValues(mode).Observe(duration.Seconds())
	add := func(outcome string, n int) {
		if n > 0 {
			RegistryMergeEntries.WithLabelValues(mode, outcome).Add(float64(n))
		}
	}
	add("accepted", accepted)
	add("stale", stale)
	add("unchanged", unchanged)
	add("invalid", invalid)
}

// RecordRegistryPublished updates the registry gauges after a change.
func RecordRegistryPublished(vehicles int, at time.Time) {
	RegistryVehicles.Set(float64(vehicles))
	RegistryLastUpdate.Set(float64(at.Unix()))
}

// RecordCacheCheck counts one validity check.
func RecordCacheCheck(result string) {
	CacheChecks.WithLabelValues(result).Inc()
}

// RecordCacheRefresh counts one refresh; rows is only used on success.
func RecordCacheRefresh(outcome string, rows int) {
	CacheRefreshes.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		CacheRows.Set(float64(rows))
	}
}

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}
