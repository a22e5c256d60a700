// README: Ranked radius query tests for the driver index.
package geo

import (
	"reflect"
	"testing"

	"mealdrop/internal/types"
)

// kmNorth places a point roughly km kilometres north of the origin
// (1 degree of latitude ~= 111.19 km).
func kmNorth(km float64) (lat, lng float64) {
	return km / 111.19, 0
}

func TestFindCandidates_RadiusFilter(t *testing.T) {
	x := NewIndex()
	origin := types.Point{Lat: 0, Lng: 0}

	for id, km := range map[types.ID]float64{"d2": 2, "d4": 4, "d9": 9} {
		lat, lng := kmNorth(km)
		x.UpdateLocation(id, lat, lng)
		x.SetAvailable(id, true)
	}
	// d4 has the better rating and must outrank the closer d2.
	x.AddRatingSample("d4", 5)
	x.AddRatingSample("d2", 3)

	got := x.FindCandidates(origin, 5)
	ids := make([]types.ID, len(got))
	for i, c := range got {
		ids[i] = c.DriverID
	}
	want := []types.ID{"d4", "d2"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("FindCandidates() = %v, want %v", ids, want)
	}
}

func TestFindCandidates_TieBreaks(t *testing.T) {
	x := NewIndex()
	origin := types.Point{Lat: 0, Lng: 0}

	// Same rating: closer driver first.
	latA, lngA := kmNorth(1)
	latB, lngB := kmNorth(3)
	x.UpdateLocation("near", latA, lngA)
	x.UpdateLocation("far", latB, lngB)
	x.SetAvailable("near", true)
	x.SetAvailable("far", true)
	x.AddRatingSample("near", 4)
	x.AddRatingSample("far", 4)

	// Same rating and same distance: id order for determinism.
	x.UpdateLocation("twin-b", latB, lngB)
	x.UpdateLocation("twin-a", latB, lngB)
	x.SetAvailable("twin-a", true)
	x.SetAvailable("twin-b", true)
	x.AddRatingSample("twin-a", 4)
	x.AddRatingSample("twin-b", 4)

	got := x.FindCandidates(origin, 10)
	ids := make([]types.ID, len(got))
	for i, c := range got {
		ids[i] = c.DriverID
	}
	want := []types.ID{"near", "far", "twin-a", "twin-b"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("FindCandidates() = %v, want %v", ids, want)
	}
}

func TestFindCandidates_ExcludesOfflineAndUnknownPosition(t *testing.T) {
	x := NewIndex()
	lat, lng := kmNorth(1)

	x.UpdateLocation("offline", lat, lng)
	x.SetAvailable("offline", false)

	// Online but has never pinged a position.
	x.SetAvailable("no-pos", true)

	if got := x.FindCandidates(types.Point{}, 10); len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestFindCandidates_EmptyIndex(t *testing.T) {
	x := NewIndex()
	got := x.FindCandidates(types.Point{Lat: 40.7, Lng: -74.0}, 10)
	if len(got) != 0 {
		t.Errorf("expected empty result on cold start, got %v", got)
	}
}

func TestIsAvailable(t *testing.T) {
	x := NewIndex()
	if x.IsAvailable("ghost") {
		t.Error("unknown driver must not be available")
	}
	x.SetAvailable("d1", true)
	if !x.IsAvailable("d1") {
		t.Error("expected d1 available")
	}
	x.SetAvailable("d1", false)
	if x.IsAvailable("d1") {
		t.Error("expected d1 offline")
	}
}
