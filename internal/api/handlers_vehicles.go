// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/transitsync/internal/models"
	"github.com/tomtom215/transitsync/internal/validation"
)

// VehiclesQuery holds the optional filters of GET /api/v1/vehicles.
type VehiclesQuery struct {
	Route       string `json:"route" validate:"omitempty,max=64"`
	Unscheduled string `json:"unscheduled" validate:"omitempty,oneof=true false"`
}

func (q VehiclesQuery) match(u *models.VehicleUpdate) bool {
	if q.Unscheduled != "" && u.IsUnscheduled() != (q.Unscheduled == "true") {
		return false
	}
	if q.Route == "" {
		return true
	}
	if u.Trip != nil && u.Trip.RouteID == q.Route {
		return true
	}
	return u.Route != nil && u.Route.RouteID == q.Route
}

// Vehicles returns every vehicle in the current registry, sorted by id.
//
// Query parameters:
//   - route: only vehicles whose trip or route descriptor has this route id
//   - unscheduled: "true" or "false" to filter on the unscheduled tag
func (h *Handler) Vehicles(w http.ResponseWriter, r *http.Request) {
	q := VehiclesQuery{
		Route:       strings.TrimSpace(r.URL.Query().Get("route")),
		Unscheduled: r.URL.Query().Get("unscheduled"),
	}
	if verr := validation.ValidateStruct(q); verr != nil {
		respondValidationError(w, r, verr.Details())
		return
	}

	// One registry pointer serves the whole response, so the list is a
	// consistent point-in-time view.
	reg := h.vehicles.GetAll()
	all := reg.Sorted()
	out := all[:0]
	for i := range all {
		if q.match(&all[i]) {
			out = append(out, all[i])
		}
	}
	if out == nil {
		out = []models.VehicleUpdate{}
	}

	respondSuccess(w, r, models.VehicleList{Count: len(out), Vehicles: out}, h.vehicles.LastUpdate())
}

// Vehicle returns one vehicle by id, or 404.
func (h *Handler) Vehicle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, ok := h.vehicles.GetAll().Get(id)
	if !ok {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Vehicle not found", nil)
		return
	}
	respondSuccess(w, r, u, h.vehicles.LastUpdate())
}
