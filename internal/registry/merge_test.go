// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package registry

import (
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/tomtom215/transitsync/internal/models"
)

var (
	p1 = &models.Position{Latitude: 41.8781, Longitude: -87.6298, Bearing: 90}
	p2 = &models.Position{Latitude: 41.8790, Longitude: -87.6300, Bearing: 95}
)

func upd(id string, ts int64, pos *models.Position) models.VehicleUpdate {
	u := models.VehicleUpdate{VehicleID: id, Timestamp: ts}
	if pos != nil {
		p := *pos
		u.Position = &p
	}
	return u
}

func seed(t *testing.T, updates ...models.VehicleUpdate) *Registry {
	t.Helper()
	r := Merge(Empty(), updates, models.Snapshot)
	if r.Len() != len(updates) {
		t.Fatalf("seed: expected %d vehicles, got %d", len(updates), r.Len())
	}
	return r
}

func mustGet(t *testing.T, r *Registry, id string) models.VehicleUpdate {
	t.Helper()
	u, ok := r.Get(id)
	if !ok {
		t.Fatalf("vehicle %q missing", id)
	}
	return u
}

func TestMerge_SnapshotNonRegression(t *testing.T) {
	r := seed(t, upd("A", 10, p1))

	got := Merge(r, []models.VehicleUpdate{upd("A", 5, p2)}, models.Snapshot)

	if got != r {
		t.Error("expected the same registry when nothing is accepted")
	}
	if a := mustGet(t, got, "A"); a.Timestamp != 10 || !models.SamePosition(a.Position, p1) {
		t.Errorf("A = %+v, want ts=10 at p1", a)
	}
}

func TestMerge_SnapshotCarriesUnscheduledTag(t *testing.T) {
	start := upd("A", 10, p1)
	start.Tags = []string{models.TagUnscheduled}
	start.Route = &models.Route{RouteID: "R1"}
	r := seed(t, start)

	got := Merge(r, []models.VehicleUpdate{{VehicleID: "A", Timestamp: 20, Tags: []string{}}}, models.Snapshot)

	a := mustGet(t, got, "A")
	if a.Timestamp != 20 {
		t.Errorf("timestamp = %d, want 20", a.Timestamp)
	}
	if !a.IsUnscheduled() {
		t.Errorf("tags = %v, want UNSCHEDULED carried over", a.Tags)
	}
	if a.Route == nil || a.Route.RouteID != "R1" {
		t.Errorf("route = %+v, want R1", a.Route)
	}

	// The input registry is untouched.
	if old := mustGet(t, r, "A"); old.Timestamp != 10 {
		t.Errorf("input registry mutated: %+v", old)
	}
}

func TestMerge_SnapshotKeepsIncomingUnscheduledRoute(t *testing.T) {
	start := upd("A", 10, nil)
	start.Tags = []string{models.TagUnscheduled}
	start.Route = &models.Route{RouteID: "R1"}
	r := seed(t, start)

	in := upd("A", 20, nil)
	in.Tags = []string{models.TagUnscheduled}
	in.Route = &models.Route{RouteID: "R2"}
	got := Merge(r, []models.VehicleUpdate{in}, models.Snapshot)

	a := mustGet(t, got, "A")
	if a.Route == nil || a.Route.RouteID != "R2" {
		t.Errorf("route = %+v, want incoming R2", a.Route)
	}
	if len(a.Tags) != 1 {
		t.Errorf("tags = %v, want a single UNSCHEDULED", a.Tags)
	}
}

func TestMerge_IncrementalNoOpSuppression(t *testing.T) {
	r := seed(t, upd("A", 10, p1))

	got := Merge(r, []models.VehicleUpdate{upd("A", 20, p1)}, models.Incremental)

	if got != r {
		t.Error("expected the same registry for an unchanged position")
	}
	if a := mustGet(t, got, "A"); a.Timestamp != 10 {
		t.Errorf("timestamp = %d, want 10", a.Timestamp)
	}
}

func TestMerge_IncrementalPositionChange(t *testing.T) {
	r := seed(t, upd("A", 10, p1))

	got, stats := MergeWithStats(r, []models.VehicleUpdate{upd("A", 20, p2)}, models.Incremental)

	a := mustGet(t, got, "A")
	if a.Timestamp != 20 || !models.SamePosition(a.Position, p2) {
		t.Errorf("A = %+v, want ts=20 at p2", a)
	}
	if stats.Accepted != 1 || stats.Added != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMerge_IncrementalPositionAppearing(t *testing.T) {
	r := seed(t, upd("A", 10, nil))

	got := Merge(r, []models.VehicleUpdate{upd("A", 20, p1)}, models.Incremental)
	if a := mustGet(t, got, "A"); a.Timestamp != 20 {
		t.Errorf("absent -> present position should be a change, got ts=%d", a.Timestamp)
	}

	same := Merge(r, []models.VehicleUpdate{upd("A", 30, nil)}, models.Incremental)
	if same != r {
		t.Error("absent -> absent position should be a no-op")
	}
}

func TestMerge_IncrementalClearsUnscheduled(t *testing.T) {
	start := upd("A", 10, p1)
	start.Tags = []string{models.TagUnscheduled}
	start.Route = &models.Route{RouteID: "R1"}
	r := seed(t, start)

	got := Merge(r, []models.VehicleUpdate{upd("A", 20, p2)}, models.Incremental)

	a := mustGet(t, got, "A")
	if a.IsUnscheduled() || a.Route != nil {
		t.Errorf("incremental replacement should clear the flag, got tags=%v route=%+v", a.Tags, a.Route)
	}
}

func TestMerge_NewVehicleAdmission(t *testing.T) {
	for _, mode := range []models.BatchMode{models.Snapshot, models.Incremental} {
		t.Run(mode.String(), func(t *testing.T) {
			r := seed(t, upd("A", 100, p1))

			got, stats := MergeWithStats(r, []models.VehicleUpdate{
				upd("B", 1, nil),
				upd("C", 2, p1),
			}, mode)

			if got.Len() != 3 {
				t.Errorf("Len = %d, want 3", got.Len())
			}
			if stats.Added != 2 || stats.Accepted != 2 {
				t.Errorf("stats = %+v", stats)
			}
			if r.Len() != 1 {
				t.Error("input registry mutated")
			}
		})
	}
}

func TestMerge_EmptyBatchIsIdentity(t *testing.T) {
	r := seed(t, upd("A", 10, p1), upd("B", 11, p2))
	before := r.All()

	for _, mode := range []models.BatchMode{models.Snapshot, models.Incremental} {
		for _, batch := range [][]models.VehicleUpdate{nil, {}} {
			got := Merge(r, batch, mode)
			if got != r {
				t.Errorf("%v: expected same pointer for empty batch", mode)
			}
			if !reflect.DeepEqual(got.All(), before) {
				t.Errorf("%v: registry changed", mode)
			}
		}
	}

	if Merge(nil, nil, models.Snapshot) != Empty() {
		t.Error("merging nothing into nil should yield Empty()")
	}
}

func TestMerge_FoldsBatchLeftToRight(t *testing.T) {
	r := seed(t, upd("A", 10, p1))

	got, stats := MergeWithStats(r, []models.VehicleUpdate{
		upd("A", 30, p2), // accepted
		upd("A", 20, p1), // older than the entry folded above
		upd("A", 30, p1), // tie with the folded entry
		upd("N", 5, p1),  // new
		upd("N", 5, p2),  // tie with the new entry
	}, models.Snapshot)

	if a := mustGet(t, got, "A"); a.Timestamp != 30 || !models.SamePosition(a.Position, p2) {
		t.Errorf("A = %+v, want ts=30 at p2", a)
	}
	if n := mustGet(t, got, "N"); !models.SamePosition(n.Position, p1) {
		t.Errorf("N = %+v, want first entry kept", n)
	}
	if stats.Accepted != 2 || stats.Stale != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMerge_DoesNotAliasBatch(t *testing.T) {
	batch := []models.VehicleUpdate{upd("A", 10, p1)}
	batch[0].Tags = []string{"x"}
	r := Merge(Empty(), batch, models.Snapshot)

	batch[0].Position.Latitude = 0
	batch[0].Tags[0] = "y"

	a := mustGet(t, r, "A")
	if a.Position.Latitude != p1.Latitude || a.Tags[0] != "x" {
		t.Errorf("registry aliases the input batch: %+v", a)
	}
}

// TestMerge_Monotonicity replays random batches and checks that no vehicle's
// stored timestamp ever decreases and that nothing at or below the stored
// timestamp is accepted.
func TestMerge_Monotonicity(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	ids := []string{"a", "b", "c", "d"}
	positions := []*models.Position{nil, p1, p2}

	r := Empty()
	for round := 0; round < 500; round++ {
		mode := models.Incremental
		if rng.IntN(2) == 0 {
			mode = models.Snapshot
		}
		batch := make([]models.VehicleUpdate, rng.IntN(6))
		for i := range batch {
			batch[i] = upd(ids[rng.IntN(len(ids))], int64(rng.IntN(50)+1), positions[rng.IntN(len(positions))])
		}

		next := Merge(r, batch, mode)
		for _, id := range ids {
			before, had := r.Get(id)
			after, has := next.Get(id)
			if had && !has {
				t.Fatalf("round %d: vehicle %s removed", round, id)
			}
			if had && after.Timestamp < before.Timestamp {
				t.Fatalf("round %d: %s went from %d to %d", round, id, before.Timestamp, after.Timestamp)
			}
			if had && after.Timestamp == before.Timestamp && !reflect.DeepEqual(after, before) {
				t.Fatalf("round %d: %s replaced by an entry with an equal timestamp", round, id)
			}
		}
		r = next
	}
}
