// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

// Package registry holds the per-vehicle most-recent-wins state.
//
// A *Registry is immutable once built. Merge is a pure function that
// returns a new registry when a batch changes anything and the input
// pointer otherwise, so a single writer can publish registries to any
// number of readers without locking them:
//
//	next := registry.Merge(current, batch.Updates, batch.Mode)
//	if next != current {
//	    published.Store(next)
//	}
package registry
