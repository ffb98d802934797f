// Package simplify implements Douglas-Peucker line simplification with an
// earth-curvature correction term, plus the subpixel-feature culling tests
// used to drop geometry too small to affect a tile's display.
//
// Grounded on earth_enterprise/src/fusion/gst/gstSimplifier.cpp.
package simplify

import (
	"math"

	"github.com/google/earthenterprise-sub002/internal/geomtypes"
	"github.com/paulmach/orb"
)

const (
	// MinPolylineVertices is the fewest vertices a polyline keeps without
	// attempting simplification.
	MinPolylineVertices = 2
	// MinCycleVertices is the fewest vertices a closed polygon ring keeps.
	MinCycleVertices = 4
	// earthRadius is 1/(2*pi): the earth's radius in the pipeline's unit
	// parameterization, where the equator has circumference 1.0.
	earthRadius = 1.0 / (2.0 * math.Pi)
)

type vertex struct{ x, y float64 }

func dist2D(a, b vertex) float64 {
	dx, dy := a.x-b.x, a.y-b.y
	return math.Sqrt(dx*dx + dy*dy)
}

// distToLine2 is the squared perpendicular distance from p to the
// infinite line through v1,v2 (degenerating to squared distance-to-point
// when v1==v2).
func distToLine2(p, v1, v2 vertex) float64 {
	dx, dy := v2.x-v1.x, v2.y-v1.y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		d := dist2D(p, v1)
		return d * d
	}
	num := dy*p.x - dx*p.y + v2.x*v1.y - v2.y*v1.x
	return (num * num) / lenSq
}

// lineSegment is one candidate approximating chord between two vertex
// indices, tracking the worst-approximated vertex between them.
type lineSegment struct {
	start, end int
	maxDist    float64
	maxV       int
}

func (s *lineSegment) isSplittable() bool { return s.start+1 != s.end }

// update recomputes maxDist/maxV for vertices strictly between start and
// end, then applies the earth-curvature correction: the maximum error
// from approximating a great-circle chord as a straight line occurs at
// the chord's midpoint, and if that error exceeds the largest per-vertex
// error we blame it on whichever vertex falls closest to the midpoint.
func (s *lineSegment) update(verts []vertex) {
	s.maxDist = 0
	s.maxV = s.start
	if !s.isSplittable() {
		return
	}
	v1, v2 := verts[s.start], verts[s.end]
	for i := s.start + 1; i != s.end; i++ {
		d := math.Sqrt(distToLine2(verts[i], v1, v2))
		if d <= s.maxDist {
			continue
		}
		s.maxDist = d
		s.maxV = i
	}

	half := dist2D(v1, v2) / 2.0
	radicand := earthRadius*earthRadius - half*half
	if radicand < 0 {
		radicand = 0
	}
	curvatureError := earthRadius - math.Sqrt(radicand)
	if curvatureError <= s.maxDist {
		return
	}

	s.maxDist = curvatureError
	midpoint := vertex{v1.x + 0.5*(v2.x-v1.x), v1.y + 0.5*(v2.y-v1.y)}
	s.maxV = s.start + 1
	best := dist2D(verts[s.maxV], midpoint)
	for i := s.start + 2; i != s.end; i++ {
		d := dist2D(verts[i], midpoint)
		if d < best {
			best = d
			s.maxV = i
		}
	}
}

// split breaks the segment in two at maxV: the receiver shrinks to
// [start,maxV] and the returned segment covers [maxV,end], both re-updated.
func (s *lineSegment) split(verts []vertex) lineSegment {
	next := lineSegment{start: s.maxV, end: s.end}
	next.update(verts)
	s.end = s.maxV
	s.update(verts)
	return next
}

// Thresholds holds the strict and weak Douglas-Peucker error bounds used
// by one Simplify call.
type Thresholds struct {
	Strict float64
	Weak   float64
}

// ComputeThreshold derives the strict/weak thresholds for one pyramid
// level: error tolerance halves every level, loopcount gives a
// progressive fallback (each loop doubles the effective threshold) for
// destroying features when too many compete for one tile packet, and the
// weak threshold is 1/8th of the strict one (three more levels of slack
// before a vertex is considered visually insignificant).
func ComputeThreshold(allowableError float64, pixelsAtLevel0 uint32, level, loopcount int) Thresholds {
	strict := allowableError / 8.0 / float64(pixelsAtLevel0) / math.Pow(2.0, float64(level))
	strict *= math.Pow(2.0, float64(loopcount))
	return Thresholds{Strict: strict, Weak: strict / 8.0}
}

// Result is the outcome of simplifying one ring or polyline: the ordered
// vertex-index keep-list (a prefix of length n is the best n-vertex
// approximation) and the maximum residual error across the final keep-list.
type Result struct {
	Keep     []int
	MaxError float64
}

// SimplifyPolyline reduces an open line to a keep-list, always preserving
// both endpoints. Lines with MinPolylineVertices or fewer vertices are
// returned unsimplified.
func SimplifyPolyline(pts []orb.Point, th Thresholds) Result {
	verts := toVertices(pts)
	n := len(verts)
	if n <= MinPolylineVertices {
		return identityResult(n)
	}

	log := []int{0, n - 1}
	seg := lineSegment{start: 0, end: n - 1}
	seg.update(verts)
	segments := []lineSegment{seg}

	bound := orb.LineString(pts).Bound()
	edgeLengthThreshold := math.Min(bound.Max.X()-bound.Min.X(), bound.Max.Y()-bound.Min.Y()) / 8.0

	runSimplifyLoop(verts, &segments, &log, th, edgeLengthThreshold, false)
	return Result{Keep: log, MaxError: residualError(segments)}
}

// SimplifyRing reduces a closed polygon ring to a keep-list. Vertices
// bordering a QuadCutEdge or HoleCutEdge are always preserved (they lie on
// a tile boundary or hole bridge; removing them would open a crack in the
// tiled mosaic), and a polygon's result is never shorter than
// MinCycleVertices. pts must already be closed (first point == last
// point); edgeFlags has one entry per edge, i.e. len(pts)-1 entries.
func SimplifyRing(pts []orb.Point, edgeFlags []geomtypes.EdgeFlag, th Thresholds) Result {
	verts := toVertices(pts)
	n := len(verts)
	if n <= MinCycleVertices {
		return identityResult(n)
	}

	var log []int
	var segments []lineSegment
	start := 0
	haveStart := false
	for i := 0; i < n-1; i++ {
		if edgeFlags[i] == geomtypes.NormalEdge {
			if !haveStart {
				start = i
				haveStart = true
				log = append(log, i)
			}
			continue
		}
		log = append(log, i)
		if haveStart {
			if i-start > 1 {
				seg := lineSegment{start: start, end: i}
				seg.update(verts)
				segments = append(segments, seg)
			}
			haveStart = false
		}
	}
	if haveStart && start < n-2 {
		seg := lineSegment{start: start, end: n - 1}
		seg.update(verts)
		segments = append(segments, seg)
	}
	log = append(log, n-1)

	if len(segments) == 0 {
		return Result{Keep: log, MaxError: 0}
	}

	bound := orb.LineString(pts).Bound()
	edgeLengthThreshold := math.Min(bound.Max.X()-bound.Min.X(), bound.Max.Y()-bound.Min.Y()) / 8.0

	runSimplifyLoop(verts, &segments, &log, th, edgeLengthThreshold, true)
	if len(segments) == 0 {
		return Result{Keep: log, MaxError: 0}
	}
	best := bestSegment(segments)
	return Result{Keep: log, MaxError: segments[best].maxDist}
}

// runSimplifyLoop is the Douglas-Peucker refinement shared by polylines
// and polygon rings: repeatedly split the worst-approximated segment and
// insert its worst vertex until every remaining segment is within
// threshold — or, for a "weak" violation whose offending vertex sits on a
// sub-edge shorter than edgeLengthThreshold, the violation is tolerated
// anyway (introduced to stop oversimplification from chewing up right
// angles at low resolution). Polygon rings additionally keep splitting
// until the keep-list has at least MinCycleVertices entries.
func runSimplifyLoop(verts []vertex, segments *[]lineSegment, log *[]int, th Thresholds, edgeLengthThreshold float64, isPolygon bool) {
	if len(*segments) == 0 {
		return
	}
	best := bestSegment(*segments)
	for len(*segments) > 0 && shouldSplit(verts, (*segments)[best], th, edgeLengthThreshold, isPolygon, len(*log)) {
		s := &(*segments)[best]
		*log = append(*log, s.maxV)

		next := s.split(verts)

		if !s.isSplittable() {
			*segments = append((*segments)[:best], (*segments)[best+1:]...)
		}
		if next.isSplittable() {
			*segments = append(*segments, next)
		}
		if len(*segments) == 0 {
			break
		}
		best = bestSegment(*segments)
	}
}

// shouldSplit decides whether the worst-offending segment still needs
// splitting: a strict-threshold violation always needs it; a weak-only
// violation needs it only if one of the two candidate sub-edges it would
// create is longer than edgeLengthThreshold (short sub-edges near a right
// angle are tolerated as-is); and a polygon ring always keeps splitting
// until it has at least MinCycleVertices kept vertices.
func shouldSplit(verts []vertex, s lineSegment, th Thresholds, edgeLengthThreshold float64, isPolygon bool, logLen int) bool {
	if s.maxDist > th.Strict {
		return true
	}
	if s.maxDist > th.Weak {
		startEdge := dist2D(verts[s.start], verts[s.maxV])
		endEdge := dist2D(verts[s.end], verts[s.maxV])
		if startEdge > edgeLengthThreshold || endEdge > edgeLengthThreshold {
			return true
		}
	}
	if isPolygon && logLen < MinCycleVertices {
		return true
	}
	return false
}

func bestSegment(segments []lineSegment) int {
	best := 0
	for i := 1; i < len(segments); i++ {
		if segments[i].maxDist > segments[best].maxDist {
			best = i
		}
	}
	return best
}

func residualError(segments []lineSegment) float64 {
	if len(segments) == 0 {
		return 0
	}
	return segments[bestSegment(segments)].maxDist
}

func identityResult(n int) Result {
	keep := make([]int, n)
	for i := range keep {
		keep[i] = i
	}
	return Result{Keep: keep, MaxError: 0}
}

func toVertices(pts []orb.Point) []vertex {
	out := make([]vertex, len(pts))
	for i, p := range pts {
		out[i] = vertex{p.X(), p.Y()}
	}
	return out
}

// IsSubpixelFeature reports whether geometry's bounding-box diameter falls
// below threshold, meaning it is too small to visibly affect the tile and
// may be culled outright rather than simplified.
func IsSubpixelFeature(g geomtypes.Geode, threshold float64) bool {
	b := g.Bound()
	dx := b.Max.X() - b.Min.X()
	dy := b.Max.Y() - b.Min.Y()
	diameter := math.Sqrt(dx*dx + dy*dy)
	return diameter < threshold
}
