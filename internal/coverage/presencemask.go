package coverage

import (
	"github.com/google/earthenterprise-sub002/internal/quadtree"
	"github.com/google/earthenterprise-sub002/internal/tilespace"
)

// LevelPresenceMask is a dense bit-per-tile presence/coverage grid for one
// pyramid level, addressed by (row,col) within that level's extents.
type LevelPresenceMask struct {
	Level   uint
	Extents tilespace.Extents[uint32]
	bits    []uint64
}

func bitsWords(n int) int { return (n + 63) / 64 }

// NewLevelPresenceMask allocates a cleared (all-absent) mask covering extents.
func NewLevelPresenceMask(level uint, extents tilespace.Extents[uint32]) *LevelPresenceMask {
	n := int(extents.EndX()-extents.BeginX()) * int(extents.EndY()-extents.BeginY())
	return &LevelPresenceMask{Level: level, Extents: extents, bits: make([]uint64, bitsWords(n))}
}

func (m *LevelPresenceMask) index(row, col uint32) (int, bool) {
	if !m.Extents.ContainsRowCol(row, col) {
		return 0, false
	}
	width := m.Extents.EndX() - m.Extents.BeginX()
	r := row - m.Extents.BeginY()
	c := col - m.Extents.BeginX()
	return int(r*width + c), true
}

// Get reports whether (row,col) is marked present.
func (m *LevelPresenceMask) Get(row, col uint32) bool {
	idx, ok := m.index(row, col)
	if !ok {
		return false
	}
	return m.bits[idx/64]&(1<<uint(idx%64)) != 0
}

// Set marks (row,col) present or absent. A no-op outside Extents.
func (m *LevelPresenceMask) Set(row, col uint32, present bool) {
	idx, ok := m.index(row, col)
	if !ok {
		return
	}
	if present {
		m.bits[idx/64] |= 1 << uint(idx%64)
	} else {
		m.bits[idx/64] &^= 1 << uint(idx%64)
	}
}

// PresenceMask is a full pyramid's worth of per-level presence grids,
// indexed by level, grounded on khPresenceMask's cascading estimation
// semantics (a quad is "estimated present" if any descendant within range
// is present, or if an ancestor beyond the mask's stored range is present).
type PresenceMask struct {
	beginLevel uint
	levels     []*LevelPresenceMask // indexed by level-beginLevel; nil entries mean "all absent at this level"
}

// NewPresenceMask builds an empty PresenceMask spanning [beginLevel,endLevel).
func NewPresenceMask(beginLevel, endLevel uint) *PresenceMask {
	return &PresenceMask{beginLevel: beginLevel, levels: make([]*LevelPresenceMask, endLevel-beginLevel)}
}

func (p *PresenceMask) BeginLevel() uint { return p.beginLevel }
func (p *PresenceMask) EndLevel() uint   { return p.beginLevel + uint(len(p.levels)) }

// SetLevelMask installs (or replaces) the mask for a given level.
func (p *PresenceMask) SetLevelMask(level uint, m *LevelPresenceMask) {
	if level < p.beginLevel || level >= p.EndLevel() {
		return
	}
	p.levels[level-p.beginLevel] = m
}

func (p *PresenceMask) levelMask(level uint) *LevelPresenceMask {
	if level < p.beginLevel || level >= p.EndLevel() {
		return nil
	}
	return p.levels[level-p.beginLevel]
}

// SetPresenceCascade marks path present at its own level and marks every
// ancestor within [beginLevel,endLevel) present too, so coarse levels
// reflect "something is present below here" without re-scanning children.
func (p *PresenceMask) SetPresenceCascade(path quadtree.Path) {
	for lvl := path.Level(); ; {
		if uint(lvl) >= p.beginLevel && uint(lvl) < p.EndLevel() {
			_, row, col := ancestorAt(path, lvl)
			if m := p.levelMask(uint(lvl)); m != nil {
				m.Set(row, col, true)
			}
		}
		if lvl == 0 {
			break
		}
		lvl--
	}
}

func ancestorAt(path quadtree.Path, level uint32) (quadtree.Path, uint32, uint32) {
	cur := path
	for cur.Level() > level {
		cur = cur.Parent()
	}
	_, row, col := cur.GetLevelRowCol()
	return cur, row, col
}

// SetPresence marks (level,row,col) present or absent directly, a no-op if
// level falls outside the mask's stored range or no level mask was
// installed for it. Used by the quad-coverage engine to record "this
// BuildSet's source has no data under this quad" as it prunes.
func (p *PresenceMask) SetPresence(level, row, col uint32, present bool) {
	m := p.levelMask(uint(level))
	if m == nil {
		return
	}
	m.Set(row, col, present)
}

// EstimatedPresence reports whether data is believed present at (level,row,col):
//   - if level is within the mask's stored range, the bit is read directly;
//   - if level >= EndLevel(), look up to the ancestor at EndLevel()-1 (data
//     at a coarser level that was never refined down to `level` is assumed
//     to still cover it);
//   - if level < BeginLevel(), reach down to BeginLevel() and report true if
//     any covered descendant is present.
func (p *PresenceMask) EstimatedPresence(level, row, col uint32) bool {
	if len(p.levels) == 0 {
		return false
	}
	begin := uint32(p.beginLevel)
	end := uint32(p.EndLevel())
	switch {
	case level >= begin && level < end:
		m := p.levelMask(uint(level))
		return m != nil && m.Get(row, col)
	case level >= end:
		shift := level - (end - 1)
		return p.EstimatedPresence(end-1, row>>shift, col>>shift)
	default: // level < begin
		shift := begin - level
		span := uint32(1) << shift
		baseRow, baseCol := row<<shift, col<<shift
		for r := baseRow; r < baseRow+span; r++ {
			for c := baseCol; c < baseCol+span; c++ {
				if p.EstimatedPresence(begin, r, c) {
					return true
				}
			}
		}
		return false
	}
}
