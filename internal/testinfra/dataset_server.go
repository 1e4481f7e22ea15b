// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

//go:build integration

package testinfra

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockDatasetServer serves a static dataset archive and counts downloads.
type MockDatasetServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	status   int
	body     []byte
	requests int
}

// NewMockDatasetServer serves body with 200 OK until told otherwise.
func NewMockDatasetServer(t *testing.T, body []byte) *MockDatasetServer {
	t.Helper()

	m := &MockDatasetServer{status: http.StatusOK, body: body}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		m.mu.Lock()
		m.requests++
		status, body := m.status, m.body
		m.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Write(body) //nolint:errcheck
	}))
	t.Cleanup(m.Server.Close)
	return m
}

// URL returns the dataset URL.
func (m *MockDatasetServer) URL() string {
	return m.Server.URL + "/gtfs.zip"
}

// Fail makes subsequent downloads answer with status.
func (m *MockDatasetServer) Fail(status int) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

// Requests returns the number of downloads served so far.
func (m *MockDatasetServer) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}
