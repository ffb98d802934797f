// Package geoindex implements a per-layer spatial index: features are
// bucketed into a grid sized so roughly 100 features land in each cell, and
// each cell can be split further on demand into a finer sub-index.
//
// Grounded on earth_enterprise/src/fusion/gst/gstGeoIndex.cpp.
package geoindex

import (
	"math"
	"sort"

	"github.com/google/earthenterprise-sub002/internal/tilespace"
)

const (
	minBucketTotal = 100
	maxBucketTotal = 1_000_000
	splitStepSize  = 3
)

// BBox is a feature's normalized [0,1] bounding box, west/east/south/north.
type BBox struct {
	West, East, South, North float64
}

func (b BBox) valid() bool { return b.East >= b.West && b.North >= b.South }

func (b BBox) norm() tilespace.Extents[float64] {
	return tilespace.NewExtents(tilespace.XYOrder, b.West, b.East, b.South, b.North)
}

func (b BBox) grow(o BBox) BBox {
	if !b.valid() {
		return o
	}
	if !o.valid() {
		return b
	}
	return BBox{
		West:  math.Min(b.West, o.West),
		East:  math.Max(b.East, o.East),
		South: math.Min(b.South, o.South),
		North: math.Max(b.North, o.North),
	}
}

func (b BBox) intersect(o BBox) BBox {
	return BBox{
		West:  math.Max(b.West, o.West),
		East:  math.Min(b.East, o.East),
		South: math.Max(b.South, o.South),
		North: math.Min(b.North, o.North),
	}
}

func (b BBox) intersects(o BBox) bool {
	i := b.intersect(o)
	return i.valid()
}

func (b BBox) expandBy(norm float64) BBox {
	return BBox{West: b.West - norm, East: b.East + norm, South: b.South - norm, North: b.North + norm}
}

type featureHandle struct {
	featureID int
	box       BBox
}

// GeoIndex buckets feature ids by the grid cell their bounding box
// intersects, at a single pyramid level sized to balance bucket occupancy.
type GeoIndex struct {
	tilespace      tilespace.Tilespace
	oversizeFactor float64
	targetLevel    uint

	coverage tilespace.LevelCoverage
	grid     [][]int // indexed by (row-begin)*numCols+(col-begin); values index into *features

	features    *[]featureHandle // shared across a parent index and its SplitCell children
	boxIndex    []int            // indices into *features that are active in this index
	boundingBox BBox
}

// New creates an empty index with no pinned coverage, so Finalize chooses
// its level from the feature count and bounding box. targetLevel caps the
// finest level considered: targetLevel + TileSizeLog2 - PixelsAtLevel0Log2,
// or the tilespace's MaxLevel if that is lower.
func New(ts tilespace.Tilespace, oversizeFactor float64, targetLevel uint) *GeoIndex {
	return &GeoIndex{tilespace: ts, oversizeFactor: oversizeFactor, targetLevel: targetLevel, features: &[]featureHandle{}}
}

// NewAtCoverage creates an index pre-pinned to a specific level/extents, as
// used when splitting a coarse index's cell into a finer sub-index.
func NewAtCoverage(ts tilespace.Tilespace, oversizeFactor float64, cov tilespace.LevelCoverage) *GeoIndex {
	return &GeoIndex{tilespace: ts, oversizeFactor: oversizeFactor, coverage: cov, features: &[]featureHandle{}}
}

// Insert adds a feature id with its bounding box.
func (g *GeoIndex) Insert(featureID int, box BBox) {
	*g.features = append(*g.features, featureHandle{featureID: featureID, box: box})
	g.boxIndex = append(g.boxIndex, len(*g.features)-1)
	g.boundingBox = g.boundingBox.grow(box)
}

// Reset clears the index back to empty, ready for a new insert cycle.
func (g *GeoIndex) Reset() {
	g.boundingBox = BBox{}
	g.grid = nil
	g.features = &[]featureHandle{}
	g.boxIndex = nil
	g.coverage = tilespace.LevelCoverage{}
}

// Finalize picks a grid level (if one was not already pinned), sizes the
// grid, and buckets every inserted feature into every cell its expanded
// bounding box touches.
func (g *GeoIndex) Finalize() {
	if !g.boundingBox.valid() {
		return
	}
	if g.coverage.Extents.Empty() {
		g.coverage = g.chooseLevel()
	}

	rows := g.coverage.Extents.NumRows()
	cols := g.coverage.Extents.NumCols()
	g.grid = make([][]int, int(rows)*int(cols))

	for _, idx := range g.boxIndex {
		fh := (*g.features)[idx]
		thisCov := tilespace.FromNormExtentsWithOversizeFactor(
			g.tilespace, fh.box.norm(), g.coverage.Level, g.coverage.Level, g.oversizeFactor)
		tiles := tilespace.Intersection(g.coverage.Extents, thisCov.Extents)
		for row := tiles.BeginY(); row < tiles.EndY(); row++ {
			gridRow := row - g.coverage.Extents.BeginY()
			for col := tiles.BeginX(); col < tiles.EndX(); col++ {
				gridCol := col - g.coverage.Extents.BeginX()
				pos := int(gridRow)*int(cols) + int(gridCol)
				g.grid[pos] = append(g.grid[pos], idx)
			}
		}
	}
}

// chooseLevel picks the level whose tile count is closest to 100 per
// feature-density-estimated bucket, the same sqrt(N)*0.1 heuristic the
// original used, walking from a level where one oversized tile equals the
// oversize padding down to zero.
func (g *GeoIndex) chooseLevel() tilespace.LevelCoverage {
	size := uint32(math.Sqrt(float64(len(*g.features))) * 0.1)
	targetTotal := uint64(size) * uint64(size)

	normExtents := g.boundingBox.norm()
	levelWhereOversizeIsATile := int(g.targetLevel) + int(g.tilespace.TileSizeLog2) - int(g.tilespace.PixelsAtLevel0Log2)
	startLevel := int(g.tilespace.MaxLevel)
	if levelWhereOversizeIsATile < startLevel {
		startLevel = levelWhereOversizeIsATile
	}

	var chosen tilespace.LevelCoverage
	haveChosen := false
	for level := startLevel; level >= 0; level-- {
		tmp := tilespace.FromNormExtents(g.tilespace, normExtents, uint(level), uint(level)).CropToWorld(g.tilespace)
		numTiles := uint64(tmp.Extents.NumRows()) * uint64(tmp.Extents.NumCols())
		if numTiles > maxBucketTotal {
			continue
		}
		if numTiles < minBucketTotal {
			if !haveChosen {
				chosen = tmp
				haveChosen = true
			}
			break
		}
		if !haveChosen {
			chosen = tmp
			haveChosen = true
			continue
		}
		chosenTiles := uint64(chosen.Extents.NumRows()) * uint64(chosen.Extents.NumCols())
		if numTiles > targetTotal {
			chosen = tmp
		} else {
			myDiff := targetTotal - numTiles
			prevDiff := chosenTiles - targetTotal
			if myDiff < prevDiff {
				chosen = tmp
			}
			break
		}
	}
	if !haveChosen {
		chosen = tilespace.FromNormExtents(g.tilespace, normExtents, 0, 0)
	}
	return chosen
}

// Coverage returns the level/extents the grid was finalized at.
func (g *GeoIndex) Coverage() tilespace.LevelCoverage { return g.coverage }

// MaxLevel returns the pyramid level this index's grid was built at. A
// BuildSet needs a finer SplitCell (and sets need_lod) once the quad
// traversal passes this level.
func (g *GeoIndex) MaxLevel() uint32 { return uint32(g.coverage.Level) }

// Intersect returns every feature id whose bounding box intersects bbox,
// deduplicated, and (if wantIndexBoxes) one zero-valued BBox placeholder
// per grid cell probed; the cells' own boxes are not filled in.
func (g *GeoIndex) Intersect(bbox BBox, wantIndexBoxes bool) (matches []int, indexBoxes []BBox) {
	if !g.boundingBox.valid() {
		return nil, nil
	}
	ubox := bbox.intersect(g.boundingBox)
	if !ubox.valid() {
		return nil, nil
	}
	thisCov := tilespace.FromNormExtentsWithOversizeFactor(
		g.tilespace, ubox.norm(), g.coverage.Level, g.coverage.Level, g.oversizeFactor)
	tiles := tilespace.Intersection(g.coverage.Extents, thisCov.Extents)

	seen := map[int]bool{}
	cols := g.coverage.Extents.NumCols()
	for row := tiles.BeginY(); row < tiles.EndY(); row++ {
		gridRow := row - g.coverage.Extents.BeginY()
		for col := tiles.BeginX(); col < tiles.EndX(); col++ {
			gridCol := col - g.coverage.Extents.BeginX()
			pos := int(gridRow)*int(cols) + int(gridCol)
			for _, idx := range g.grid[pos] {
				fh := (*g.features)[idx]
				if ubox.intersects(fh.box) && !seen[fh.featureID] {
					seen[fh.featureID] = true
					matches = append(matches, fh.featureID)
				}
			}
			if wantIndexBoxes {
				indexBoxes = append(indexBoxes, BBox{}) // caller re-derives exact tile norm extents if needed
			}
		}
	}
	sort.Ints(matches)
	return matches, indexBoxes
}

// SelectAll returns every feature id ever inserted, in insertion order.
func (g *GeoIndex) SelectAll() []int {
	out := make([]int, 0, len(g.boxIndex))
	for _, idx := range g.boxIndex {
		out = append(out, (*g.features)[idx].featureID)
	}
	return out
}

// GetFeatureIdsFromBucket returns the feature ids bucketed at (row,col).
func (g *GeoIndex) GetFeatureIdsFromBucket(row, col uint32) []int {
	cols := g.coverage.Extents.NumCols()
	gridRow := row - g.coverage.Extents.BeginY()
	gridCol := col - g.coverage.Extents.BeginX()
	pos := int(gridRow)*int(cols) + int(gridCol)
	bucket := g.grid[pos]
	out := make([]int, len(bucket))
	for i, idx := range bucket {
		out[i] = (*g.features)[idx].featureID
	}
	return out
}

// GetFeatureIdsFromBuckets unions the feature ids from every cell in extents.
func (g *GeoIndex) GetFeatureIdsFromBuckets(extents tilespace.Extents[uint32]) []int {
	seen := map[int]bool{}
	cols := g.coverage.Extents.NumCols()
	for row := extents.BeginY(); row < extents.EndY(); row++ {
		gridRow := row - g.coverage.Extents.BeginY()
		for col := extents.BeginX(); col < extents.EndX(); col++ {
			gridCol := col - g.coverage.Extents.BeginX()
			pos := int(gridRow)*int(cols) + int(gridCol)
			for _, idx := range g.grid[pos] {
				seen[(*g.features)[idx].featureID] = true
			}
		}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// SplitCell builds a finer sub-index covering exactly the given grid cell,
// intersected with targetCov, stepping down by at most splitStepSize
// levels at a time (or straight to the target level if closer).
func (g *GeoIndex) SplitCell(row, col uint32, targetCov tilespace.LevelCoverage) *GeoIndex {
	if targetCov.Level <= g.coverage.Level {
		panic("geoindex: SplitCell requires a finer target level")
	}
	levelDiff := targetCov.Level - g.coverage.Level
	splitLevel := g.coverage.Level + splitStepSize
	if levelDiff <= splitStepSize {
		splitLevel = targetCov.Level
	}

	mySplitCov := tilespace.NewLevelCoverage(g.coverage.Level,
		tilespace.NewExtents[uint32](tilespace.RowColOrder, row, row+1, col, col+1)).MagnifiedToLevel(splitLevel)
	targetSplitCov := targetCov.MinifiedToLevel(splitLevel)
	splitExtents := tilespace.Intersection(mySplitCov.Extents, targetSplitCov.Extents)

	newIndex := NewAtCoverage(g.tilespace, g.oversizeFactor, tilespace.NewLevelCoverage(splitLevel, splitExtents))
	newIndex.features = g.features // share the backing feature slice

	cols := g.coverage.Extents.NumCols()
	gridRow := row - g.coverage.Extents.BeginY()
	gridCol := col - g.coverage.Extents.BeginX()
	pos := int(gridRow)*int(cols) + int(gridCol)
	for _, idx := range g.grid[pos] {
		newIndex.insertIndex(idx)
	}
	newIndex.Finalize()
	return newIndex
}

func (g *GeoIndex) insertIndex(idx int) {
	g.boxIndex = append(g.boxIndex, idx)
	g.boundingBox = g.boundingBox.grow((*g.features)[idx].box)
}
