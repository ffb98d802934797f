// Package geomtypes defines Geode, the tagged-union geometry value that
// flows through clipping, reduction, and simplification: an orb.Geometry
// plus a per-vertex/per-edge classification the rest of the pipeline needs
// to preserve (which edges came from the original feature vs. from a
// tile-boundary or hole cut).
//
// Grounded on earth_enterprise/src/fusion/gst/gstGeode.h (geometry variant
// dispatch) as described by the pipeline's clipping and simplification
// components.
package geomtypes

import "github.com/paulmach/orb"

// Dimension classifies how a Geode's coordinates should be interpreted
// downstream (e.g. whether Z carries elevation).
type Dimension int

const (
	Dim2D Dimension = iota
	Dim25D
	Dim3D
)

// EdgeFlag classifies one edge of a polygon ring or polyline, so later
// simplification passes know which edges must never be removed.
type EdgeFlag uint8

const (
	// NormalEdge is an edge from the original feature geometry.
	NormalEdge EdgeFlag = iota
	// QuadCutEdge was introduced by clipping against a tile boundary.
	QuadCutEdge
	// HoleCutEdge was introduced by bridging a polygon hole to its
	// outer ring (a "keyhole" cut), and must never be mistaken for
	// feature-authored geometry.
	HoleCutEdge
)

// Type enumerates the geometry kinds a Geode may carry, mirroring orb's
// geometry variants restricted to what the pipeline accepts.
type Type int

const (
	TypePoint Type = iota
	TypePolyline
	TypePolygon
	TypeMultiPolygon
)

// Geode is a tagged geometry value: an orb.Geometry plus, for linear and
// areal types, a parallel per-edge classification array (one EdgeFlag per
// edge of each ring/line, outer ring first for polygons).
type Geode struct {
	Type      Type
	Dimension Dimension
	Geometry  orb.Geometry
	// EdgeFlags holds one slice of flags per ring/line in Geometry, in the
	// same ring/part order orb would enumerate them. Point geometries
	// leave this nil.
	EdgeFlags [][]EdgeFlag
}

// NewPoint builds a point Geode.
func NewPoint(p orb.Point) Geode {
	return Geode{Type: TypePoint, Dimension: Dim2D, Geometry: p}
}

// NewPolyline builds a polyline Geode with all-normal edge flags.
func NewPolyline(ls orb.LineString) Geode {
	return Geode{
		Type:      TypePolyline,
		Dimension: Dim2D,
		Geometry:  ls,
		EdgeFlags: [][]EdgeFlag{flagsOfLen(max(0, len(ls)-1))},
	}
}

// NewPolygon builds a polygon Geode (outer ring plus holes) with all-normal
// edge flags.
func NewPolygon(p orb.Polygon) Geode {
	flags := make([][]EdgeFlag, len(p))
	for i, ring := range p {
		flags[i] = flagsOfLen(max(0, len(ring)-1))
	}
	return Geode{Type: TypePolygon, Dimension: Dim2D, Geometry: p, EdgeFlags: flags}
}

// NewMultiPolygon builds a multi-polygon Geode, concatenating each part's
// ring edge flags in part order.
func NewMultiPolygon(mp orb.MultiPolygon) Geode {
	var flags [][]EdgeFlag
	for _, p := range mp {
		for _, ring := range p {
			flags = append(flags, flagsOfLen(max(0, len(ring)-1)))
		}
	}
	return Geode{Type: TypeMultiPolygon, Dimension: Dim2D, Geometry: mp, EdgeFlags: flags}
}

func flagsOfLen(n int) []EdgeFlag {
	f := make([]EdgeFlag, n)
	for i := range f {
		f[i] = NormalEdge
	}
	return f
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Empty reports whether the Geode carries no geometry worth keeping: a
// polyline with fewer than 2 points, or a polygon/multipolygon with no
// rings.
func (g Geode) Empty() bool {
	switch v := g.Geometry.(type) {
	case orb.LineString:
		return len(v) < 2
	case orb.Polygon:
		return len(v) == 0 || len(v[0]) == 0
	case orb.MultiPolygon:
		for _, p := range v {
			if len(p) > 0 && len(p[0]) > 0 {
				return false
			}
		}
		return true
	case orb.Point:
		return false
	default:
		return true
	}
}

// Bound returns the geometry's axis-aligned bounding box in the same
// coordinate space it's stored in (normalized or projected, caller's
// choice of convention).
func (g Geode) Bound() orb.Bound { return g.Geometry.Bound() }
