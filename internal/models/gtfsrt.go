// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package models

import (
	"fmt"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/tomtom215/transitsync/internal/validation"
)

// DecodeFeedMessage decodes a GTFS-Realtime FeedMessage. FULL_DATASET feeds
// become snapshots and DIFFERENTIAL feeds become incremental batches. Only
// vehicle position entities are used; deleted entities are skipped.
func DecodeFeedMessage(data []byte) (Batch, error) {
	var feed gtfs.FeedMessage
	if err := proto.Unmarshal(data, &feed); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	mode := Snapshot
	if feed.GetHeader().GetIncrementality() == gtfs.FeedHeader_DIFFERENTIAL {
		mode = Incremental
	}
	headerTS := int64(feed.GetHeader().GetTimestamp()) //nolint:gosec // epoch seconds fit int64

	batch := Batch{Mode: mode, Updates: make([]VehicleUpdate, 0, len(feed.GetEntity()))}
	for _, entity := range feed.GetEntity() {
		vp := entity.GetVehicle()
		if vp == nil || entity.GetIsDeleted() {
			continue
		}
		u := updateFromVehiclePosition(entity.GetId(), vp, headerTS)
		if verr := validation.ValidateStruct(&u); verr != nil {
			batch.Dropped++
			continue
		}
		batch.Updates = append(batch.Updates, u)
	}
	return batch, nil
}

func updateFromVehiclePosition(entityID string, vp *gtfs.VehiclePosition, headerTS int64) VehicleUpdate {
	u := VehicleUpdate{
		VehicleID: vp.GetVehicle().GetId(),
		Timestamp: int64(vp.GetTimestamp()), //nolint:gosec // epoch seconds fit int64
	}
	if u.VehicleID == "" {
		u.VehicleID = entityID
	}
	if u.Timestamp == 0 {
		u.Timestamp = headerTS
	}

	if pos := vp.GetPosition(); pos != nil {
		u.Position = &Position{
			Latitude:  float64(pos.GetLatitude()),
			Longitude: float64(pos.GetLongitude()),
			Bearing:   float64(pos.GetBearing()),
		}
	}

	if td := vp.GetTrip(); td != nil {
		u.Trip = &Trip{
			TripID:    td.GetTripId(),
			RouteID:   td.GetRouteId(),
			StartTime: td.GetStartTime(),
			StartDate: td.GetStartDate(),
		}
		if td.DirectionId != nil {
			d := int(td.GetDirectionId())
			u.Trip.DirectionID = &d
		}
		switch td.GetScheduleRelationship() {
		case gtfs.TripDescriptor_ADDED, gtfs.TripDescriptor_UNSCHEDULED:
			u.Tags = []string{TagUnscheduled}
			u.Route = &Route{RouteID: td.GetRouteId()}
		}
	}

	if vp.OccupancyStatus != nil {
		u.OccupancyStatus = OccupancyStatus(vp.GetOccupancyStatus().String())
	}
	return u
}
