package simplify

import (
	"testing"

	"github.com/google/earthenterprise-sub002/internal/geomtypes"
	"github.com/paulmach/orb"
)

func zigzag(n int, amplitude float64) []orb.Point {
	pts := make([]orb.Point, n)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		y := 0.0
		if i%2 == 1 {
			y = amplitude
		}
		pts[i] = orb.Point{x, y}
	}
	return pts
}

func TestSimplifyPolylineKeepsEndpoints(t *testing.T) {
	pts := zigzag(11, 1e-6) // amplitude far below any sane threshold
	for i := range pts {
		pts[i][0] *= 1e-3 // a short span keeps the earth-curvature term below Weak
	}
	th := Thresholds{Strict: 1e-3, Weak: 1e-4}
	res := SimplifyPolyline(pts, th)
	if res.Keep[0] != 0 || res.Keep[1] != len(pts)-1 {
		t.Fatalf("Keep = %v, want endpoints 0 and %d first", res.Keep, len(pts)-1)
	}
	if len(res.Keep) >= len(pts) {
		t.Fatalf("expected simplification to drop vertices, got %d of %d kept", len(res.Keep), len(pts))
	}
}

func TestSimplifyPolylineShortLineUnsimplified(t *testing.T) {
	pts := []orb.Point{{0, 0}, {1, 1}}
	res := SimplifyPolyline(pts, Thresholds{Strict: 1e-9, Weak: 1e-10})
	if len(res.Keep) != 2 || res.Keep[0] != 0 || res.Keep[1] != 1 {
		t.Fatalf("2-vertex line must be returned unsimplified, got %v", res.Keep)
	}
}

func TestSimplifyPolylineLargeThresholdDropsToEndpointsOnly(t *testing.T) {
	pts := zigzag(11, 1e-9)
	res := SimplifyPolyline(pts, Thresholds{Strict: 1.0, Weak: 1.0})
	if len(res.Keep) != 2 {
		t.Fatalf("with a huge threshold only endpoints should remain, got %v", res.Keep)
	}
}

func TestSimplifyRingPreservesQuadCutVertices(t *testing.T) {
	// A ring with a vertex that barely deviates from its chord but sits on
	// a quad-cut edge boundary: it must survive even with a loose threshold.
	pts := []orb.Point{
		{0, 0}, {0.5, 1e-9}, {1, 0}, {1, 1}, {0, 1}, {0, 0},
	}
	flags := []geomtypes.EdgeFlag{
		geomtypes.QuadCutEdge, geomtypes.QuadCutEdge, geomtypes.NormalEdge,
		geomtypes.NormalEdge, geomtypes.NormalEdge,
	}
	res := SimplifyRing(pts, flags, Thresholds{Strict: 1.0, Weak: 1.0})
	found := false
	for _, idx := range res.Keep {
		if idx == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("quad-cut-bordered vertex must be preserved, keep list = %v", res.Keep)
	}
}

func TestSimplifyRingMinimumVertices(t *testing.T) {
	pts := []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	flags := make([]geomtypes.EdgeFlag, 4)
	res := SimplifyRing(pts, flags, Thresholds{Strict: 1.0, Weak: 1.0})
	if len(res.Keep) != MinCycleVertices {
		t.Fatalf("a square ring simplified with a loose threshold must stop at MinCycleVertices kept vertices, got %v", res.Keep)
	}
}

func TestIsSubpixelFeature(t *testing.T) {
	tiny := geomtypes.NewPolyline(orb.LineString{{0, 0}, {1e-9, 1e-9}})
	if !IsSubpixelFeature(tiny, 1e-3) {
		t.Fatalf("tiny feature should be subpixel at a coarse threshold")
	}
	big := geomtypes.NewPolyline(orb.LineString{{0, 0}, {1, 1}})
	if IsSubpixelFeature(big, 1e-3) {
		t.Fatalf("large feature should not be subpixel")
	}
}
