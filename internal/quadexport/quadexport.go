// Package quadexport drives geometry production level by level: starting
// at the root quad, it recursively subdivides the tile pyramid, pruning
// BuildSets that can't intersect a quad via presence masks, splitting a
// BuildSet's GeoIndex into a finer sub-index when the traversal passes the
// index's built level, and invoking the full-resolution exporter once a
// quad reaches its target level.
//
// Grounded on the coverage-engine description in spec.md §4.6 and the
// BuildSet/QuadExporter split in earth_enterprise/src/fusion/gst
// (gstBuildSet.h, gstQuadExporter.cpp -- traversal pattern only; this
// package does not port tile-packet serialization, which the
// FullResExporter implementations in internal/tileexport do).
package quadexport

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/google/earthenterprise-sub002/internal/coverage"
	"github.com/google/earthenterprise-sub002/internal/geoindex"
	"github.com/google/earthenterprise-sub002/internal/pipelinestat"
	"github.com/google/earthenterprise-sub002/internal/quadtree"
	"github.com/google/earthenterprise-sub002/internal/tilespace"
)

// maxPresenceLevel bounds how many levels below its BeginLevel a BuildSet's
// PresenceMask is consulted; for quads deeper than that only the
// GeoIndex's own geometric intersection test runs.
const maxPresenceLevel = 8

// PrimType identifies the geometry kind a BuildSet produces, so the
// exporter can dispatch to the right geometry-preparation pipeline.
type PrimType int

const (
	PrimPoint PrimType = iota
	PrimPolyline
	PrimPolygon
)

// BuildSet is one filter's contribution to the quad-coverage pass: its
// spatial index, the presence mask recording where it has data, and the
// level range it participates in.
type BuildSet struct {
	FilterID      int
	GeoIndex      *geoindex.GeoIndex
	PresenceMask  *coverage.PresenceMask
	PrimType      PrimType
	EndLevel      uint32
	MaxBuildLevel uint32
}

// FullResExporter is invoked once a quad reaches its target level, given
// the feature ids each still-in-use BuildSet selected for that quad.
type FullResExporter interface {
	ExportQuad(ctx context.Context, quad quadtree.Path, selections map[int][]int, needLOD bool) error
}

// QuadExporter walks the pyramid defined by ts, invoking exporter at each
// quad that reaches its target level.
type QuadExporter struct {
	Tilespace tilespace.Tilespace
	Sets      []*BuildSet
	Exporter  FullResExporter

	quadsExported uint64
}

// Run starts the traversal at the root quad, logging a throughput line when
// it finishes, the Go realization of the original pipeline's practice of
// pairing every long pass with a khTimer.
func (q *QuadExporter) Run(ctx context.Context) error {
	timer := pipelinestat.Timer{}
	start := timer.Tick()

	use := make([]bool, len(q.Sets))
	for i := range use {
		use[i] = true
	}
	err := q.visit(ctx, quadtree.Root, use)

	log.WithFields(log.Fields{
		"quads_exported": q.quadsExported,
		"elapsed_ms":     timer.DeltaMillis(start, timer.Tick()),
	}).Info("quad export pass complete")
	return err
}

func (q *QuadExporter) visit(ctx context.Context, quad quadtree.Path, use []bool) error {
	if err := ctx.Err(); err != nil {
		return nil // cancellation is advisory: return early without error
	}

	level, row, col := quad.GetLevelRowCol()
	active, restoreSplits := q.prune(quad, level, row, col, use)
	defer restoreSplits()

	if !anyTrue(active) {
		return nil
	}

	if q.atTargetLevel(level) {
		return q.export(ctx, quad, active)
	}

	for i := uint32(0); i < 4; i++ {
		child := quad.Child(i)
		childActive := append([]bool(nil), active...)
		if err := q.visit(ctx, child, childActive); err != nil {
			return err
		}
	}
	return nil
}

// prune clears any set whose PresenceMask or GeoIndex reports no
// intersection with quad, and splits any set whose GeoIndex was built at
// this level into a finer sub-index, restored by the returned func when
// the caller is done with this quad's subtree.
func (q *QuadExporter) prune(quad quadtree.Path, level, row, col uint32, use []bool) ([]bool, func()) {
	active := append([]bool(nil), use...)
	var restores []func()

	for i, set := range q.Sets {
		if !active[i] {
			continue
		}
		if !q.intersects(set, level, row, col) {
			active[i] = false
			if set.PresenceMask != nil {
				set.PresenceMask.SetPresence(level, row, col, false)
			}
			continue
		}
		if set.GeoIndex != nil && set.GeoIndex.MaxLevel() == level && level < set.MaxBuildLevel {
			parent := set.GeoIndex
			targetCov := tilespace.NewLevelCoverage(level+1,
				tilespace.NewExtents[uint32](tilespace.RowColOrder, row*2, row*2+2, col*2, col*2+2))
			split := parent.SplitCell(row, col, targetCov)
			set.GeoIndex = split
			restores = append(restores, func() { set.GeoIndex = parent })
		}
	}

	return active, func() {
		for _, r := range restores {
			r()
		}
	}
}

func (q *QuadExporter) intersects(set *BuildSet, level, row, col uint32) bool {
	if set.PresenceMask != nil && uint(level) <= set.PresenceMask.BeginLevel()+maxPresenceLevel {
		if !set.PresenceMask.EstimatedPresence(level, row, col) {
			return false
		}
	}
	if set.GeoIndex == nil {
		return true
	}
	matches, _ := set.GeoIndex.Intersect(tileNormBox(q.Tilespace, level, row, col), false)
	return len(matches) > 0
}

// tileNormBox returns a single tile's normalized [0,1]x[0,1] bounding box.
func tileNormBox(ts tilespace.Tilespace, level, row, col uint32) geoindex.BBox {
	tiles := float64(ts.TilesAtLevel(uint(level)))
	return geoindex.BBox{
		West: float64(col) / tiles, East: float64(col+1) / tiles,
		South: float64(row) / tiles, North: float64(row+1) / tiles,
	}
}

func (q *QuadExporter) atTargetLevel(level uint32) bool {
	for _, set := range q.Sets {
		if level < set.EndLevel {
			return false
		}
	}
	return true
}

func (q *QuadExporter) export(ctx context.Context, quad quadtree.Path, active []bool) error {
	level := uint32(quad.Level())
	selections := make(map[int][]int)
	needLOD := false
	for i, set := range q.Sets {
		if !active[i] {
			continue
		}
		if set.GeoIndex != nil && set.GeoIndex.MaxLevel() > level {
			needLOD = true
		}
		if set.GeoIndex != nil {
			selections[set.FilterID] = set.GeoIndex.SelectAll()
		}
	}
	q.quadsExported++
	if q.Exporter == nil {
		return nil
	}
	return q.Exporter.ExportQuad(ctx, quad, selections, needLOD)
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}
	return false
}
