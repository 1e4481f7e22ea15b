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

// Registry is an immutable vehicleId -> latest accepted update map.
// The zero value and nil are both valid empty registries.
type Registry struct {
	vehicles map[string]models.VehicleUpdate
}

var empty = &Registry{}

// Empty returns the shared empty registry.
func Empty() *Registry {
	return empty
}

// Len returns the number of vehicles.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.vehicles)
}

// Get returns a copy of the stored update for id.
func (r *Registry) Get(id string) (models.VehicleUpdate, bool) {
	if r == nil {
		return models.VehicleUpdate{}, false
	}
	u, ok := r.vehicles[id]
	if !ok {
		return models.VehicleUpdate{}, false
	}
	return u.Clone(), true
}

// IDs returns the vehicle ids in sorted order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.vehicles))
}

// All returns a copy of every stored update keyed by vehicle id.
func (r *Registry) All() map[string]models.VehicleUpdate {
	out := make(map[string]models.VehicleUpdate, r.Len())
	r.Range(func(id string, u models.VehicleUpdate) bool {
		out[id] = u.Clone()
		return true
	})
	return out
}

// Sorted returns copies of every stored update ordered by vehicle id.
func (r *Registry) Sorted() []models.VehicleUpdate {
	ids := r.IDs()
	out := make([]models.VehicleUpdate, 0, len(ids))
	for _, id := range ids {
		u := r.vehicles[id]
		out = append(out, u.Clone())
	}
	return out
}

// Range calls fn for each vehicle until fn returns false. fn must not
// retain or modify nested pointers of u.
func (r *Registry) Range(fn func(id string, u models.VehicleUpdate) bool) {
	if r == nil {
		return
	}
	for id, u := range r.vehicles {
		if !fn(id, u) {
			return
		}
	}
}
