package tilespace

// Tilespace is the immutable parameter pack describing a tile pyramid: tile
// pixel size, pixel count at level 0, the maximum valid level, and whether
// the pyramid is flat or mercator-projected. The core never stores a
// Tilespace itself — callers must thread it explicitly (see §3 of the
// design notes) — this type only carries the parameters.
type Tilespace struct {
	TileSizeLog2      uint
	PixelsAtLevel0Log2 uint
	MaxLevel          uint
	IsMercator        bool
}

// TileSize is 2^TileSizeLog2, the pixel width/height of one tile.
func (t Tilespace) TileSize() uint32 { return 1 << t.TileSizeLog2 }

// PixelsAtLevel0 is 2^PixelsAtLevel0Log2, the pixel span of the whole world
// at level 0.
func (t Tilespace) PixelsAtLevel0() uint32 { return 1 << t.PixelsAtLevel0Log2 }

// TilesAtLevel returns the number of tiles per axis at the given level.
func (t Tilespace) TilesAtLevel(level uint) uint32 {
	if level < t.TileSizeLog2-t.PixelsAtLevel0Log2 {
		return 1
	}
	shift := level + t.PixelsAtLevel0Log2 - t.TileSizeLog2
	return 1 << shift
}

// ClientVectorTilespace matches the Fusion client vector tilespace: 256px
// tiles, 256px at level 0 (one tile covers the world at level 0), flat
// (non-mercator) addressing used by the vector pipeline.
var ClientVectorTilespace = Tilespace{
	TileSizeLog2:       8,
	PixelsAtLevel0Log2: 8,
	MaxLevel:           24,
	IsMercator:         false,
}

// LevelCoverage is a (level, tile-row-extents, tile-col-extents) triple:
// the set of tiles a region occupies at one level.
type LevelCoverage struct {
	Level   uint
	Extents Extents[uint32]
}

// NewLevelCoverage builds a LevelCoverage directly from a row/col extent.
func NewLevelCoverage(level uint, extents Extents[uint32]) LevelCoverage {
	return LevelCoverage{Level: level, Extents: extents}
}

// FromNormExtents snaps normalized [0,1]x[0,1] extents to the tile grid at
// fullresLevel, then minifies (coarsens) the result to targetLevel. The
// minification always preserves a superset of the fullres tiles.
func FromNormExtents(ts Tilespace, normExtents Extents[float64], fullresLevel, targetLevel uint) LevelCoverage {
	return FromNormExtentsWithOversizeFactor(ts, normExtents, fullresLevel, targetLevel, 0)
}

// FromNormExtentsWithOversizeFactor is FromNormExtents but grows the
// normalized extents by tileSize*oversize/2 (normalized pixels) at the
// fullres level before snapping, so features whose labels/icons fall in an
// adjacent tile are still picked up by the coarser index.
func FromNormExtentsWithOversizeFactor(ts Tilespace, normExtents Extents[float64], fullresLevel, targetLevel uint, oversize float64) LevelCoverage {
	tilesAtFullres := float64(ts.TilesAtLevel(fullresLevel))
	oversizePixels := oversize / 2.0 / tilesAtFullres
	grown := normExtents
	if oversizePixels > 0 && !grown.Empty() {
		grown = NewExtents(XYOrder,
			grown.beginX-oversizePixels, grown.endX+oversizePixels,
			grown.beginY-oversizePixels, grown.endY+oversizePixels)
	}

	begCol := uint32(grown.beginX * tilesAtFullres)
	endCol := uint32(ceilMultiple(grown.endX*tilesAtFullres, 1))
	begRow := uint32(grown.beginY * tilesAtFullres)
	endRow := uint32(ceilMultiple(grown.endY*tilesAtFullres, 1))

	fullres := LevelCoverage{
		Level:   fullresLevel,
		Extents: NewExtents(RowColOrder, begRow, endRow, begCol, endCol),
	}
	if targetLevel <= fullresLevel {
		return fullres.MinifiedToLevel(targetLevel)
	}
	return fullres.MagnifiedToLevel(targetLevel)
}

func ceilMultiple(v float64, _ float64) float64 {
	iv := float64(int64(v))
	if v > iv {
		return iv + 1
	}
	return iv
}

// MagnifiedToLevel scales this coverage up (finer) to targetLevel by
// multiplying extents by 2^(targetLevel-Level) per axis.
func (lc LevelCoverage) MagnifiedToLevel(targetLevel uint) LevelCoverage {
	if targetLevel == lc.Level {
		return lc
	}
	if targetLevel < lc.Level {
		return lc.MinifiedToLevel(targetLevel)
	}
	shift := targetLevel - lc.Level
	mult := uint32(1) << shift
	e := lc.Extents
	return LevelCoverage{
		Level: targetLevel,
		Extents: NewExtents(RowColOrder,
			e.beginY*mult, e.endY*mult,
			e.beginX*mult, e.endX*mult),
	}
}

// MinifiedToLevel scales this coverage down (coarser) to targetLevel,
// preserving a superset via ceiling division of the "end" coordinates.
func (lc LevelCoverage) MinifiedToLevel(targetLevel uint) LevelCoverage {
	if targetLevel == lc.Level {
		return lc
	}
	if targetLevel > lc.Level {
		return lc.MagnifiedToLevel(targetLevel)
	}
	shift := lc.Level - targetLevel
	div := uint32(1) << shift
	e := lc.Extents
	beginRow := e.beginY / div
	endRow := (e.endY + div - 1) / div
	beginCol := e.beginX / div
	endCol := (e.endX + div - 1) / div
	return LevelCoverage{
		Level:   targetLevel,
		Extents: NewExtents(RowColOrder, beginRow, endRow, beginCol, endCol),
	}
}

// CropToWorld clamps the coverage to the valid row/column range for its
// level in the given tilespace.
func (lc LevelCoverage) CropToWorld(ts Tilespace) LevelCoverage {
	tiles := ts.TilesAtLevel(lc.Level)
	world := NewExtents[uint32](RowColOrder, 0, tiles, 0, tiles)
	return LevelCoverage{Level: lc.Level, Extents: Intersection(lc.Extents, world)}
}
