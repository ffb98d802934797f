package reduce

import (
	"testing"

	"github.com/google/earthenterprise-sub002/internal/geomtypes"
	"github.com/paulmach/orb"
)

func TestOverlapEpsilonDisabledAtLevel13(t *testing.T) {
	if OverlapEpsilon(13) != 0 {
		t.Fatal("overlap removal must be disabled at level 13")
	}
	if OverlapEpsilon(12) == 0 {
		t.Fatal("overlap removal must be enabled below level 13")
	}
}

func TestRemoveOverlappingSegmentsClearsCoincidentRoad(t *testing.T) {
	eps := OverlapEpsilon(5)
	offset := eps / 2
	a := &Road{Geometry: orb.LineString{{0, 0}, {1, 0}}}
	b := &Road{Geometry: orb.LineString{{0, offset}, {1, offset}}}
	list := []*Road{a, b}
	RemoveOverlappingSegments(list, 5)
	if !a.Removed && !b.Removed {
		t.Fatal("one of two near-coincident roads should be cleared")
	}
	if a.Removed && b.Removed {
		t.Fatal("both roads removed: nothing left to compare against")
	}
}

func TestRemoveOverlappingSegmentsKeepsDistinctRoads(t *testing.T) {
	a := &Road{Geometry: orb.LineString{{0, 0}, {1, 0}}}
	b := &Road{Geometry: orb.LineString{{0, 10}, {1, 10}}}
	list := []*Road{a, b}
	RemoveOverlappingSegments(list, 5)
	if a.Removed || b.Removed {
		t.Fatal("distinct roads should not be cleared")
	}
}

func TestReducePolygonDropsBelowMinVertices(t *testing.T) {
	triangle := geomtypes.NewPolygon(orb.Polygon{{{0, 0}, {1, 0}, {0, 1}}})
	if ReducePolygon(triangle) {
		t.Fatal("a 3-vertex ring should be dropped (MinCycleVertices=4)")
	}
	square := geomtypes.NewPolygon(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}})
	if !ReducePolygon(square) {
		t.Fatal("a 4-vertex ring should be kept")
	}
}

func TestReducePolylineDropsSinglePoint(t *testing.T) {
	single := geomtypes.NewPolyline(orb.LineString{{0, 0}})
	if ReducePolyline(single) {
		t.Fatal("a single-point line should be dropped")
	}
}

func TestRemoveDuplicateSitesKeysOnPositionAndName(t *testing.T) {
	sites := []Site{
		{Position: orb.Point{0, 0}, Name: "Cafe", FeatureID: 1},
		{Position: orb.Point{0, 0}, Name: "Cafe", FeatureID: 2},
		{Position: orb.Point{0, 0}, Name: "Bakery", FeatureID: 3},
		{Position: orb.Point{1, 1}, Name: "Cafe", FeatureID: 4},
	}
	out := RemoveDuplicateSites(sites)
	if len(out) != 3 {
		t.Fatalf("expected 3 unique sites, got %d", len(out))
	}
	if out[0].FeatureID != 1 {
		t.Fatalf("expected first occurrence kept, got FeatureID %d", out[0].FeatureID)
	}
}
