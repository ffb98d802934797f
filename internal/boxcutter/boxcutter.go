// Package boxcutter clips a geomtypes.Geode against an axis-aligned
// rectangle: polylines are clipped and re-chained into pieces with
// paulmach/orb/clip, polygons (including holes) are clipped the same way
// and additionally checked for "completely covered" quads, where a single
// tile can be rendered as a solid fill without cutting the polygon at all.
//
// Grounded on earth_enterprise/src/fusion/gst/gstBoxCutter.{h,cc}; the
// original dispatches polylines to BBox::ClipLine (a Liang-Barsky line
// clipper) and polygons to a dedicated PolygonClipper. This port uses
// orb/clip for both, since it implements the same family of boundary-
// intersecting clip algorithms against an orb.Bound.
package boxcutter

import (
	"github.com/google/earthenterprise-sub002/internal/geomtypes"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
)

// BoxCutter clips Geodes against a single clipping rectangle. CutHoles
// controls whether a polygon's hole rings are clipped along with its outer
// ring (true) or dropped (false), matching the original's cut_holes flag.
type BoxCutter struct {
	box      orb.Bound
	cutHoles bool
}

// New builds a BoxCutter. Call SetClipRect before Run.
func New(cutHoles bool) *BoxCutter {
	return &BoxCutter{cutHoles: cutHoles}
}

// SetClipRect sets the clipping rectangle from west/east/south/north
// bounds.
func (c *BoxCutter) SetClipRect(west, east, south, north float64) {
	c.box = orb.Bound{Min: orb.Point{west, south}, Max: orb.Point{east, north}}
}

// SetClipBound sets the clipping rectangle directly from an orb.Bound.
func (c *BoxCutter) SetClipBound(b orb.Bound) { c.box = b }

// Run clips geode against the clip rectangle, returning the resulting
// pieces and whether the box lies entirely within the input polygon (in
// which case pieces is the box itself, unclipped). Polyline pieces carry
// per-edge NormalEdge/QuadCutEdge flags from clipEdgeFlags; polygon pieces
// carry all-NormalEdge flags, so their clip-introduced edges are not
// marked QuadCutEdge.
func (c *BoxCutter) Run(geode geomtypes.Geode) (pieces []geomtypes.Geode, completelyCovered bool, err error) {
	switch geode.Type {
	case geomtypes.TypePolyline:
		return c.clipPolyline(geode), false, nil
	case geomtypes.TypePolygon, geomtypes.TypeMultiPolygon:
		return c.clipPolygonal(geode)
	default:
		return nil, false, nil
	}
}

func (c *BoxCutter) clipPolyline(geode geomtypes.Geode) []geomtypes.Geode {
	ls, ok := geode.Geometry.(orb.LineString)
	if !ok {
		return nil
	}
	clipped := clip.LineString(c.box, ls)
	pieces := make([]geomtypes.Geode, 0, len(clipped))
	for _, piece := range clipped {
		if len(piece) < 2 {
			continue
		}
		pieces = append(pieces, geomtypes.Geode{
			Type:      geomtypes.TypePolyline,
			Dimension: geode.Dimension,
			Geometry:  piece,
			EdgeFlags: [][]geomtypes.EdgeFlag{clipEdgeFlags(ls, piece)},
		})
	}
	return pieces
}

// clipEdgeFlags marks an edge of a clipped piece as QuadCutEdge when it was
// newly introduced at the clip boundary (one endpoint doesn't match the
// original line's vertex set), NormalEdge otherwise. This approximates the
// original's per-segment provenance tracking without requiring it to carry
// source indices through orb/clip's output.
func clipEdgeFlags(original, piece orb.LineString) []geomtypes.EdgeFlag {
	onOriginal := make(map[orb.Point]bool, len(original))
	for _, p := range original {
		onOriginal[p] = true
	}
	flags := make([]geomtypes.EdgeFlag, max0(len(piece)-1))
	for i := range flags {
		if onOriginal[piece[i]] && onOriginal[piece[i+1]] {
			flags[i] = geomtypes.NormalEdge
		} else {
			flags[i] = geomtypes.QuadCutEdge
		}
	}
	return flags
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func (c *BoxCutter) clipPolygonal(geode geomtypes.Geode) ([]geomtypes.Geode, bool, error) {
	var polys orb.MultiPolygon
	switch v := geode.Geometry.(type) {
	case orb.Polygon:
		polys = orb.MultiPolygon{v}
	case orb.MultiPolygon:
		polys = v
	}

	if c.completelyCovers(polys) {
		boxRing := boundToRing(c.box)
		covered := geomtypes.NewPolygon(orb.Polygon{boxRing})
		return []geomtypes.Geode{covered}, true, nil
	}

	var out []geomtypes.Geode
	for _, poly := range polys {
		clippedPoly := c.clipPolygon(poly)
		if clippedPoly == nil {
			continue
		}
		out = append(out, geomtypes.NewPolygon(clippedPoly))
	}
	return out, false, nil
}

func (c *BoxCutter) clipPolygon(poly orb.Polygon) orb.Polygon {
	if len(poly) == 0 {
		return nil
	}
	outer := clip.Ring(c.box, poly[0])
	if len(outer) == 0 {
		return nil
	}
	result := orb.Polygon{outer}
	if c.cutHoles {
		for _, hole := range poly[1:] {
			clippedHole := clip.Ring(c.box, hole)
			if len(clippedHole) >= 4 {
				result = append(result, clippedHole)
			}
		}
	}
	return result
}

// completelyCovers reports whether every corner of the clip box lies
// inside the polygon set, meaning the box needn't be clipped at all -- it
// can be emitted whole as a covered tile.
func (c *BoxCutter) completelyCovers(polys orb.MultiPolygon) bool {
	if len(polys) == 0 {
		return false
	}
	corners := []orb.Point{
		{c.box.Min[0], c.box.Min[1]}, {c.box.Max[0], c.box.Min[1]},
		{c.box.Max[0], c.box.Max[1]}, {c.box.Min[0], c.box.Max[1]},
	}
	for _, corner := range corners {
		if !anyPolygonContains(polys, corner) {
			return false
		}
	}
	return true
}

func anyPolygonContains(polys orb.MultiPolygon, p orb.Point) bool {
	for _, poly := range polys {
		if planar.PolygonContains(poly, p) {
			return true
		}
	}
	return false
}

func boundToRing(b orb.Bound) orb.Ring {
	return orb.Ring{
		{b.Min[0], b.Min[1]}, {b.Max[0], b.Min[1]},
		{b.Max[0], b.Max[1]}, {b.Min[0], b.Max[1]},
		{b.Min[0], b.Min[1]},
	}
}
