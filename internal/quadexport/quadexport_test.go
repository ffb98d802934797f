package quadexport

import (
	"context"
	"testing"

	"github.com/google/earthenterprise-sub002/internal/geoindex"
	"github.com/google/earthenterprise-sub002/internal/quadtree"
	"github.com/google/earthenterprise-sub002/internal/tilespace"
)

type recordingExporter struct {
	quads []quadtree.Path
}

func (r *recordingExporter) ExportQuad(ctx context.Context, quad quadtree.Path, selections map[int][]int, needLOD bool) error {
	r.quads = append(r.quads, quad)
	return nil
}

func buildIndex(ts tilespace.Tilespace) *geoindex.GeoIndex {
	idx := geoindex.New(ts, 0, 2)
	idx.Insert(1, geoindex.BBox{West: 0.1, East: 0.2, South: 0.1, North: 0.2})
	idx.Finalize()
	return idx
}

func TestRunExportsOnlyIntersectingQuads(t *testing.T) {
	ts := tilespace.ClientVectorTilespace
	set := &BuildSet{FilterID: 1, GeoIndex: buildIndex(ts), EndLevel: 2, MaxBuildLevel: 2}
	exporter := &recordingExporter{}
	qe := &QuadExporter{Tilespace: ts, Sets: []*BuildSet{set}, Exporter: exporter}
	if err := qe.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(exporter.quads) == 0 {
		t.Fatal("expected at least one exported quad")
	}
	for _, q := range exporter.quads {
		if q.Level() != 2 {
			t.Fatalf("exported quad at wrong level: %d", q.Level())
		}
		level, row, col := q.GetLevelRowCol()
		box := tileNormBox(ts, level, row, col)
		if box.East < 0.1 || box.West > 0.2 || box.North < 0.1 || box.South > 0.2 {
			t.Fatalf("exported quad %d/%d/%d does not intersect the feature's bbox", level, row, col)
		}
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	ts := tilespace.ClientVectorTilespace
	set := &BuildSet{FilterID: 1, GeoIndex: buildIndex(ts), EndLevel: 4, MaxBuildLevel: 4}
	exporter := &recordingExporter{}
	qe := &QuadExporter{Tilespace: ts, Sets: []*BuildSet{set}, Exporter: exporter}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := qe.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(exporter.quads) != 0 {
		t.Fatal("cancelled context should produce no exports")
	}
}
