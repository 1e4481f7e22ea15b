// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/transitsync/internal/cachevalidity"
	"github.com/tomtom215/transitsync/internal/models"
	"github.com/tomtom215/transitsync/internal/transport"
)

// Status reports the stream connection and the last cache refresh.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	report := models.StatusReport{Sync: h.vehicles.Status()}
	if h.refresher != nil {
		if last := h.refresher.Last(); last != nil {
			cs := last.Status()
			report.Cache = &cs
		}
	}
	if h.hub != nil {
		report.LiveClients = h.hub.GetClientCount()
	}
	respondSuccess(w, r, report, h.vehicles.LastUpdate())
}

// RefreshCache runs a validity check and refreshes the static dataset when
// it is stale. A valid cache is left untouched and reported as such.
func (h *Handler) RefreshCache(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		respondError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Static dataset cache is not configured", nil)
		return
	}

	res, err := h.refresher.Refresh(r.Context())
	switch {
	case err == nil:
		respondSuccess(w, r, res.Status(), time.Time{})
	case cachevalidity.IsCircuitOpen(err):
		w.Header().Set("Retry-After", "60")
		respondError(w, r, http.StatusServiceUnavailable, "CIRCUIT_OPEN", "Dataset source is unavailable, retry later", err)
	case errors.Is(err, cachevalidity.ErrNoRows):
		respondError(w, r, http.StatusBadGateway, "EMPTY_DATASET", "Dataset source returned no stops", err)
	default:
		respondError(w, r, http.StatusBadGateway, "REFRESH_FAILED", "Static dataset refresh failed", err)
	}
}

// Health reports overall health. It always answers 200; Status is
// "degraded" while the stream is not open.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, h.health(), h.vehicles.LastUpdate())
}

// HealthLive is the liveness probe: the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Time{})
}

// HealthReady is the readiness probe: 200 only while the stream is open.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	health := h.health()
	if health.Status != "healthy" {
		respondJSON(w, r, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     health,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error: &models.APIError{
				Code:    "NOT_READY",
				Message: "Vehicle stream is " + health.ConnectionState,
			},
		})
		return
	}
	respondSuccess(w, r, health, h.vehicles.LastUpdate())
}

func (h *Handler) health() models.HealthStatus {
	st := h.vehicles.Status()
	status := "healthy"
	if st.ConnectionState != string(transport.StateOpen) && st.ConnectionState != string(transport.StateAwaitingPong) {
		status = "degraded"
	}
	return models.HealthStatus{
		Status:          status,
		ConnectionState: st.ConnectionState,
		Vehicles:        st.Vehicles,
		LastUpdate:      st.LastUpdate,
		Uptime:          time.Since(h.startTime).Seconds(),
	}
}
