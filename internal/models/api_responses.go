// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package models

import "time"

// APIResponse is the envelope for every HTTP response.
//
// Status is "success" or "error"; Error is set only on failures.
//
//	{
//	  "status": "success",
//	  "data": {"count": 2, "vehicles": [...]},
//	  "metadata": {"timestamp": "2026-10-14T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`

	// LastUpdate is when the vehicle registry last changed, if known.
	LastUpdate *time.Time `json:"last_update,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// VehicleList is the body of GET /api/v1/vehicles.
type VehicleList struct {
	Count    int             `json:"count"`
	Vehicles []VehicleUpdate `json:"vehicles"`
}

// SyncStatus is the stream half of GET /api/v1/status.
type SyncStatus struct {
	ConnectionState string     `json:"connection_state"`
	Vehicles        int        `json:"vehicles"`
	LastUpdate      *time.Time `json:"last_update,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	LastErrorAt     *time.Time `json:"last_error_at,omitempty"`
	Reconnecting    bool       `json:"reconnecting"`
}

// CacheStatus reports the outcome of a cache validity check or refresh.
type CacheStatus struct {
	Valid         bool   `json:"valid"`
	Reason        string `json:"reason,omitempty"`
	LatestVersion string `json:"latest_version"`
	StoredVersion string `json:"stored_version,omitempty"`
	RowCount      int    `json:"row_count"`
	Refreshed     bool   `json:"refreshed"`
	RowsWritten   int    `json:"rows_written,omitempty"`
}

// StatusReport is the body of GET /api/v1/status.
type StatusReport struct {
	Sync  SyncStatus   `json:"sync"`
	Cache *CacheStatus `json:"cache,omitempty"`
	// LiveClients is the number of connected websocket clients.
	LiveClients int `json:"live_clients"`
}

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status          string     `json:"status"` // healthy, degraded
	ConnectionState string     `json:"connection_state"`
	Vehicles        int        `json:"vehicles"`
	LastUpdate      *time.Time `json:"last_update,omitempty"`
	Uptime          float64    `json:"uptime_seconds"`
}
