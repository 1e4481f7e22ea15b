// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package models

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/transitsync/internal/validation"
)

// ErrMalformedFrame is returned when a frame cannot be parsed at all.
var ErrMalformedFrame = errors.New("malformed frame")

// BatchMode selects the merge policy for a batch.
type BatchMode int

const (
	// Incremental batches carry only vehicles that changed.
	Incremental BatchMode = iota
	// Snapshot batches describe the whole fleet as the source knows it.
	Snapshot
)

func (m BatchMode) String() string {
	switch m {
	case Snapshot:
		return "snapshot"
	case Incremental:
		return "incremental"
	default:
		return "unknown"
	}
}

// ParseBatchMode accepts the envelope "type" values seen on the wire.
// An empty value means incremental.
func ParseBatchMode(s string) (BatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "incremental", "delta", "differential":
		return Incremental, nil
	case "snapshot", "full", "full_dataset":
		return Snapshot, nil
	default:
		return Incremental, fmt.Errorf("%w: unknown batch type %q", ErrMalformedFrame, s)
	}
}

// Batch is one decoded frame.
type Batch struct {
	Mode    BatchMode
	Updates []VehicleUpdate

	// Dropped counts entries that were present but failed validation.
	Dropped int
}

// flexInt64 accepts both 1700000000 and "1700000000"; GTFS-RT JSON
// encoders emit uint64 fields as strings.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(bytes.Trim(b, `"`))
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*f = flexInt64(n)
	return nil
}

type wireVehicle struct {
	VehicleID       string          `json:"vehicleId"`
	Timestamp       flexInt64       `json:"timestamp"`
	Position        *Position       `json:"position"`
	Trip            *Trip           `json:"trip"`
	OccupancyStatus OccupancyStatus `json:"occupancyStatus"`
	Tags            []string        `json:"tags"`
	Route           *Route          `json:"route"`
}

func (w *wireVehicle) update() VehicleUpdate {
	return VehicleUpdate{
		VehicleID:       w.VehicleID,
		Timestamp:       int64(w.Timestamp),
		Position:        w.Position,
		Trip:            w.Trip,
		OccupancyStatus: w.OccupancyStatus,
		Tags:            w.Tags,
		Route:           w.Route,
	}
}

// wireEntity is either {"id": ..., "vehicle": {...}} or a bare vehicle object.
type wireEntity struct {
	ID      string       `json:"id"`
	Vehicle *wireVehicle `json:"vehicle"`
	wireVehicle
}

func (e *wireEntity) update() VehicleUpdate {
	if e.Vehicle == nil {
		return e.wireVehicle.update()
	}
	u := e.Vehicle.update()
	if u.VehicleID == "" {
		u.VehicleID = e.ID
	}
	return u
}

type wireEnvelope struct {
	Type     *string           `json:"type"`
	Entities []json.RawMessage `json:"entities"`
}

// DecodeFrame decodes one inbound frame. Binary frames are GTFS-Realtime
// FeedMessages; text frames are one of:
//
//	{"type": "snapshot", "entities": [{"id": "1", "vehicle": {...}}, ...]}
//	[{"vehicleId": "1", ...}, ...]
//	{"id": "1", "vehicle": {...}}
//	{"vehicleId": "1", ...}
//
// Only the envelope form can be a snapshot.
func DecodeFrame(data []byte, binary bool) (Batch, error) {
	if binary {
		return DecodeFeedMessage(data)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Batch{}, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}

	switch data[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return Batch{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return decodeEntities(Incremental, raw)
	case '{':
		var env wireEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return Batch{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if env.Type == nil && env.Entities == nil {
			return decodeEntities(Incremental, []json.RawMessage{data})
		}
		mode := Incremental
		if env.Type != nil {
			m, err := ParseBatchMode(*env.Type)
			if err != nil {
				return Batch{}, err
			}
			mode = m
		}
		return decodeEntities(mode, env.Entities)
	default:
		return Batch{}, fmt.Errorf("%w: unexpected leading byte %q", ErrMalformedFrame, data[0])
	}
}

func decodeEntities(mode BatchMode, raw []json.RawMessage) (Batch, error) {
	batch := Batch{Mode: mode, Updates: make([]VehicleUpdate, 0, len(raw))}
	for _, r := range raw {
		var e wireEntity
		if err := json.Unmarshal(r, &e); err != nil {
			batch.Dropped++
			continue
		}
		u := e.update()
		if verr := validation.ValidateStruct(&u); verr != nil {
			batch.Dropped++
			continue
		}
		batch.Updates = append(batch.Updates, u)
	}
	if len(raw) > 0 && len(batch.Updates) == 0 {
		return batch, fmt.Errorf("%w: no valid vehicle in frame", ErrMalformedFrame)
	}
	return batch, nil
}
