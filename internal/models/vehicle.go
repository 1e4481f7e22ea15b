// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package models

import (
	"slices"
)

// TagUnscheduled marks a vehicle running unscheduled service.
const TagUnscheduled = "UNSCHEDULED"

// OccupancyStatus mirrors the GTFS-Realtime VehiclePosition.OccupancyStatus names.
type OccupancyStatus string

const (
	OccupancyEmpty                   OccupancyStatus = "EMPTY"
	OccupancyManySeatsAvailable      OccupancyStatus = "MANY_SEATS_AVAILABLE"
	OccupancyFewSeatsAvailable       OccupancyStatus = "FEW_SEATS_AVAILABLE"
	OccupancyStandingRoomOnly        OccupancyStatus = "STANDING_ROOM_ONLY"
	OccupancyCrushedStandingRoomOnly OccupancyStatus = "CRUSHED_STANDING_ROOM_ONLY"
	OccupancyFull                    OccupancyStatus = "FULL"
	OccupancyNotAcceptingPassengers  OccupancyStatus = "NOT_ACCEPTING_PASSENGERS"
	OccupancyNoDataAvailable         OccupancyStatus = "NO_DATA_AVAILABLE"
	OccupancyNotBoardable            OccupancyStatus = "NOT_BOARDABLE"
)

// Position is a WGS84 fix with an optional bearing in degrees.
type Position struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Bearing   float64 `json:"bearing,omitempty" validate:"gte=0,lte=360"`
}

// Trip identifies the scheduled trip a vehicle is serving.
type Trip struct {
	TripID      string `json:"tripId,omitempty"`
	RouteID     string `json:"routeId,omitempty"`
	StartTime   string `json:"startTime,omitempty" validate:"omitempty,gtfs_time"`
	StartDate   string `json:"startDate,omitempty" validate:"omitempty,gtfs_date"`
	DirectionID *int   `json:"directionId,omitempty" validate:"omitempty,oneof=0 1"`
}

// Route is a denormalized route descriptor attached to unscheduled vehicles.
type Route struct {
	RouteID   string `json:"routeId"`
	ShortName string `json:"shortName,omitempty"`
	LongName  string `json:"longName,omitempty"`
	Color     string `json:"color,omitempty"`
	TextColor string `json:"textColor,omitempty"`
}

// VehicleUpdate is one observation of a vehicle's state.
type VehicleUpdate struct {
	VehicleID       string          `json:"vehicleId" validate:"required"`
	Timestamp       int64           `json:"timestamp" validate:"gt=0"`
	Position        *Position       `json:"position,omitempty"`
	Trip            *Trip           `json:"trip,omitempty"`
	OccupancyStatus OccupancyStatus `json:"occupancyStatus,omitempty" validate:"omitempty,oneof=EMPTY MANY_SEATS_AVAILABLE FEW_SEATS_AVAILABLE STANDING_ROOM_ONLY CRUSHED_STANDING_ROOM_ONLY FULL NOT_ACCEPTING_PASSENGERS NO_DATA_AVAILABLE NOT_BOARDABLE"`
	Tags            []string        `json:"tags,omitempty"`
	Route           *Route          `json:"route,omitempty"`
}

// HasTag reports whether the update carries tag.
func (u *VehicleUpdate) HasTag(tag string) bool {
	return slices.Contains(u.Tags, tag)
}

// IsUnscheduled reports whether the update carries TagUnscheduled.
func (u *VehicleUpdate) IsUnscheduled() bool {
	return u.HasTag(TagUnscheduled)
}

// Clone returns a deep copy that shares no pointers or slices with u.
func (u *VehicleUpdate) Clone() VehicleUpdate {
	c := *u
	if u.Position != nil {
		p := *u.Position
		c.Position = &p
	}
	if u.Trip != nil {
		t := *u.Trip
		if u.Trip.DirectionID != nil {
			d := *u.Trip.DirectionID
			t.DirectionID = &d
		}
		c.Trip = &t
	}
	if u.Route != nil {
		r := *u.Route
		c.Route = &r
	}
	if u.Tags != nil {
		c.Tags = slices.Clone(u.Tags)
	}
	return c
}

// SamePosition reports whether a and b describe the same fix. Two absent
// positions are the same; an absent and a present position differ.
func SamePosition(a, b *Position) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Latitude == b.Latitude && a.Longitude == b.Longitude && a.Bearing == b.Bearing
}
