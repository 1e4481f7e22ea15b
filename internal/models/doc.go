// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

/*
Package models defines the data shared across transitsync: vehicle
observations, update batches, static dataset rows, and HTTP response
envelopes.

# Vehicle updates

A VehicleUpdate is one observation of a vehicle at a point in time. Optional
sub-structures are pointers so "absent" and "zero" stay distinct:

	VehicleUpdate
	├── VehicleID        identity key
	├── Timestamp        seconds since epoch, untrusted
	├── Position         *Position (lat, lon, bearing)
	├── Trip             *Trip
	├── OccupancyStatus  GTFS-RT occupancy name, "" when absent
	├── Tags             labels; TagUnscheduled marks unscheduled service
	└── Route            *Route, meaningful only with TagUnscheduled

# Frames

DecodeFrame turns one inbound stream frame into a Batch. Text frames are
JSON; binary frames are GTFS-Realtime FeedMessage protobufs. Entries are
validated at this boundary and invalid entries are dropped, so the merge
logic downstream only ever sees well-formed updates.
*/
package models
