// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package registry

import (
	"maps"
	"slices"

	"github.com/tomtom215/transitsync/internal/models"
)

// MergeStats counts what happened to each entry of a batch.
type MergeStats struct {
	Accepted  int
	Added     int // subset of Accepted with no prior entry
	Stale     int // timestamp not strictly newer
	Unchanged int // incremental entries with an unchanged position
}

// Merge folds batch into existing and returns the resulting registry.
// existing is never modified. When nothing is accepted the same pointer is
// returned.
func Merge(existing *Registry, batch []models.VehicleUpdate, mode models.BatchMode) *Registry {
	r, _ := MergeWithStats(existing, batch, mode)
	return r
}

// MergeWithStats is Merge plus per-entry accounting.
//
// Entries are folded left to right, so a later entry for the same vehicle is
// compared against the earlier one if that was accepted. The rules:
//
//   - an entry is accepted only if no entry exists for the vehicle or its
//     timestamp is strictly greater than the stored one
//   - incremental entries must also change the position
//   - accepted snapshot entries inherit the unscheduled tag and route from
//     the entry they replace when they do not carry the tag themselves
//
// Nothing is ever removed.
func MergeWithStats(existing *Registry, batch []models.VehicleUpdate, mode models.BatchMode) (*Registry, MergeStats) {
	var stats MergeStats
	if existing == nil {
		existing = Empty()
	}
	if len(batch) == 0 {
		return existing, stats
	}

	var next map[string]models.VehicleUpdate
	lookup := func(id string) (models.VehicleUpdate, bool) {
		if next != nil {
			u, ok := next[id]
			return u, ok
		}
		u, ok := existing.vehicles[id]
		return u, ok
	}

	for i := range batch {
		incoming := &batch[i]
		prev, found := lookup(incoming.VehicleID)

		if found {
			if incoming.Timestamp <= prev.Timestamp {
				stats.Stale++
				continue
			}
			if mode == models.Incremental && models.SamePosition(prev.Position, incoming.Position) {
				stats.Unchanged++
				continue
			}
		}

		accepted := incoming.Clone()
		if found && mode == models.Snapshot {
			carryUnscheduled(&prev, &accepted)
		}

		if next == nil {
			next = maps.Clone(existing.vehicles)
			if next == nil {
				next = make(map[string]models.VehicleUpdate, len(batch))
			}
		}
		next[accepted.VehicleID] = accepted
		stats.Accepted++
		if !found {
			stats.Added++
		}
	}

	if next == nil {
		return existing, stats
	}
	return &Registry{vehicles: next}, stats
}

// carryUnscheduled copies the sticky unscheduled marker and its route from
// prev onto next when next lacks the marker.
func carryUnscheduled(prev, next *models.VehicleUpdate) {
	if !prev.IsUnscheduled() || next.IsUnscheduled() {
		return
	}
	next.Tags = append(slices.Clone(next.Tags), models.TagUnscheduled)
	if prev.Route != nil {
		r := *prev.Route
		next.Route = &r
	}
}
