// Package reduce implements the geometry-preparation steps that run after
// clipping and joining and before simplification: road overlap removal,
// minimum-vertex-count polygon/polyline reduction, and duplicate site-point
// removal.
//
// Grounded on earth_enterprise/src/fusion/gst (road dedup in the vectorprep
// fuse pass) and gstSite.h for the Site type.
package reduce

import (
	"math"

	"github.com/google/earthenterprise-sub002/internal/geomtypes"
	"github.com/paulmach/orb"
)

const (
	// MinCycleVertices is the minimum ring length kept by polygon reduction.
	MinCycleVertices = 4
	// MinPolylineVertices is the minimum point count kept by polyline reduction.
	MinPolylineVertices = 2
	// overlapDisableLevel is the first level at which overlap removal is
	// skipped outright -- coarse levels are where road overlaps matter for
	// rendering density, fine levels are not.
	overlapDisableLevel = 13
)

// OverlapEpsilon returns the per-coordinate distance, in normalized space,
// below which two road segments at level are considered the same road.
// Levels at or above overlapDisableLevel report 0, signaling "disabled".
func OverlapEpsilon(level int) float64 {
	if level >= overlapDisableLevel {
		return 0
	}
	return math.Ldexp(1, -(level + 28))
}

// Road is a named polyline road candidate for overlap removal.
type Road struct {
	Geometry orb.LineString
	Removed  bool
}

// RemoveOverlappingSegments clears (marks Removed) any road in list whose
// every segment lies within epsilon of some other (not-yet-removed) road's
// segments, at the given level. A no-op when the level is at or above
// overlapDisableLevel.
func RemoveOverlappingSegments(list []*Road, level int) {
	eps := OverlapEpsilon(level)
	if eps <= 0 {
		return
	}
	for i, road := range list {
		if road.Removed || len(road.Geometry) < 2 {
			continue
		}
		if coveredByOthers(list, i, eps) {
			road.Removed = true
		}
	}
}

func coveredByOthers(list []*Road, self int, eps float64) bool {
	geom := list[self].Geometry
	for s := 0; s < len(geom)-1; s++ {
		a, b := geom[s], geom[s+1]
		if !anyOtherRoadCoversSegment(list, self, a, b, eps) {
			return false
		}
	}
	return true
}

func anyOtherRoadCoversSegment(list []*Road, self int, a, b orb.Point, eps float64) bool {
	for j, other := range list {
		if j == self || other.Removed || len(other.Geometry) < 2 {
			continue
		}
		if segmentWithinEpsilonOfRoad(a, b, other.Geometry, eps) {
			return true
		}
	}
	return false
}

// segmentWithinEpsilonOfRoad reports whether both endpoints of (a,b) lie
// within eps of the directed point-to-segment distance to some segment of
// road.
func segmentWithinEpsilonOfRoad(a, b orb.Point, road orb.LineString, eps float64) bool {
	return pointWithinEpsilon(a, road, eps) && pointWithinEpsilon(b, road, eps)
}

func pointWithinEpsilon(p orb.Point, line orb.LineString, eps float64) bool {
	best := math.MaxFloat64
	for i := 0; i < len(line)-1; i++ {
		d := pointToSegmentDistance(p, line[i], line[i+1])
		if d < best {
			best = d
		}
	}
	return best <= eps
}

func pointToSegmentDistance(p, a, b orb.Point) float64 {
	ax, ay := a[0], a[1]
	bx, by := b[0], b[1]
	px, py := p[0], p[1]
	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	cx, cy := ax+t*dx, ay+t*dy
	return math.Hypot(px-cx, py-cy)
}

// ReducePolygon reports whether a polygon Geode has enough vertices in its
// outer ring to keep; callers drop the Geode when this returns false.
func ReducePolygon(g geomtypes.Geode) bool {
	poly, ok := g.Geometry.(orb.Polygon)
	if !ok || len(poly) == 0 {
		return false
	}
	return len(poly[0]) >= MinCycleVertices
}

// ReducePolyline reports whether a polyline Geode has enough vertices to
// keep.
func ReducePolyline(g geomtypes.Geode) bool {
	ls, ok := g.Geometry.(orb.LineString)
	if !ok {
		return false
	}
	return len(ls) >= MinPolylineVertices
}

// Site is a labeled point placed by a display rule: a feature's label
// anchor plus the name text used for deduplication.
//
// Grounded on gstSite.h, restored per SPEC_FULL.md since spec.md
// references site-point deduplication without typing the site itself.
type Site struct {
	Position  orb.Point
	Name      string
	FeatureID int
}

type siteKey struct {
	x, y float64
	name string
}

// RemoveDuplicateSites drops sites sharing the same (position, name) key
// within one layer's site set, keeping the first occurrence in input order.
func RemoveDuplicateSites(sites []Site) []Site {
	seen := make(map[siteKey]bool, len(sites))
	out := make([]Site, 0, len(sites))
	for _, s := range sites {
		k := siteKey{s.Position[0], s.Position[1], s.Name}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
