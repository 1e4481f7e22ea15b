// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package transport

import (
	"fmt"

	"github.com/goccy/go-json"
)

// SubscriptionRequest is the descriptor sent after every successful open.
// The endpoint owns the schema; the transport only ever sends the encoded
// bytes.
type SubscriptionRequest struct {
	Key    string          `json:"key"`
	Filter map[string]bool `json:"filter,omitempty"`
	Query  string          `json:"query,omitempty"`
}

// Encode serializes the request for Subscribe.
func (r SubscriptionRequest) Encode() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode subscription request: %w", err)
	}
	return b, nil
}
