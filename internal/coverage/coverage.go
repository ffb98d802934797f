// Package coverage builds and narrows per-level tile coverage for an inset
// (a single source's footprint across the pyramid) and tracks, per tile,
// whether real data is present via a compact presence/coverage bitmask.
//
// Grounded on earth_enterprise/src/common/khInsetCoverage.h and
// khPresenceMask.cpp.
package coverage

import (
	"github.com/google/earthenterprise-sub002/internal/tilespace"
)

// InsetCoverage describes one inset's tile footprint across a contiguous
// range of levels: the extents at level vec0Level (the finest explicitly
// stored level) plus every level's extents derived from it by minification
// and magnification.
type InsetCoverage struct {
	vec0Level   uint
	beginLevel  uint
	endLevel    uint
	degreeExtents bool // whether extentsVec holds degree (lon/lat) units rather than pixel/tile units
	extentsVec  []tilespace.LevelCoverage // indexed by level - beginLevel
}

// NewInsetCoverageFromLevelCoverage builds an InsetCoverage spanning
// [beginLevel,endLevel) from a single full-resolution LevelCoverage,
// magnifying/minifying to populate every other level in range.
func NewInsetCoverageFromLevelCoverage(ts tilespace.Tilespace, full tilespace.LevelCoverage, beginLevel, endLevel uint) InsetCoverage {
	ic := InsetCoverage{
		vec0Level:  full.Level,
		beginLevel: beginLevel,
		endLevel:   endLevel,
		extentsVec: make([]tilespace.LevelCoverage, endLevel-beginLevel),
	}
	for level := beginLevel; level < endLevel; level++ {
		lc := full.MagnifiedToLevel(level)
		if level < full.Level {
			lc = full.MinifiedToLevel(level)
		}
		ic.extentsVec[level-beginLevel] = lc.CropToWorld(ts)
	}
	return ic
}

func (ic InsetCoverage) BeginLevel() uint { return ic.beginLevel }
func (ic InsetCoverage) EndLevel() uint   { return ic.endLevel }

// LevelExtents returns the tile-index extents this inset covers at level,
// or the zero Extents if level is out of [beginLevel,endLevel).
func (ic InsetCoverage) LevelExtents(level uint) tilespace.Extents[uint32] {
	if level < ic.beginLevel || level >= ic.endLevel {
		return tilespace.Extents[uint32]{}
	}
	return ic.extentsVec[level-ic.beginLevel].Extents
}

// Narrow intersects this inset's coverage, level by level, against
// another's, shrinking the overlapping level range. Levels outside the
// intersection of the two ranges are dropped. The degreeExtents flag
// chosen is this inset's own — narrowing never reinterprets units.
func (ic InsetCoverage) Narrow(other InsetCoverage) InsetCoverage {
	begin := ic.beginLevel
	if other.beginLevel > begin {
		begin = other.beginLevel
	}
	end := ic.endLevel
	if other.endLevel < end {
		end = other.endLevel
	}
	if begin >= end {
		return InsetCoverage{vec0Level: ic.vec0Level, beginLevel: begin, endLevel: begin, degreeExtents: ic.degreeExtents}
	}
	out := InsetCoverage{
		vec0Level:     ic.vec0Level,
		beginLevel:    begin,
		endLevel:      end,
		extentsVec:    make([]tilespace.LevelCoverage, end-begin),
		degreeExtents: ic.degreeExtents,
	}
	for level := begin; level < end; level++ {
		a := ic.LevelExtents(level)
		b := other.LevelExtents(level)
		out.extentsVec[level-begin] = tilespace.NewLevelCoverage(level, tilespace.Intersection(a, b))
	}
	return out
}

// GetSubset returns the extents at a single level, used when only one
// level's worth of work is needed (e.g. building a single quad-coverage
// pass).
func (ic InsetCoverage) GetSubset(level uint) tilespace.LevelCoverage {
	if level < ic.beginLevel || level >= ic.endLevel {
		return tilespace.LevelCoverage{Level: level}
	}
	return ic.extentsVec[level-ic.beginLevel]
}
