// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package models

import "time"

// CacheVersionRecord names the dataset edition the persisted static rows belong to.
type CacheVersionRecord struct {
	Version    string    `json:"version"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RowKind distinguishes the static tables persisted in the cache.
type RowKind string

const (
	RowKindStop  RowKind = "stop"
	RowKindRoute RowKind = "route"
)

// StaticDatasetRow is one persisted stop or route. Stops are the primary
// dataset whose count decides cache validity.
type StaticDatasetRow struct {
	Kind      RowKind `json:"kind"`
	ID        string  `json:"id"`
	Code      string  `json:"code,omitempty"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat,omitempty"`
	Longitude float64 `json:"lon,omitempty"`
	Color     string  `json:"color,omitempty"`
	Version   string  `json:"version"`
}

// Key returns the row's identity within the cache.
func (r *StaticDatasetRow) Key() string {
	return string(r.Kind) + ":" + r.ID
}
