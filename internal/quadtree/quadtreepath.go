// Package quadtree implements the packed quadtree-address representation:
// QuadtreePath packs a tile's (level,row,col) address into a uint64 as a
// sequence of 2-bit child digits plus a level field, and supports ordering,
// traversal, and the two subtile-geometry conventions the pipeline needs.
//
// Grounded on earth_enterprise/src/common/quadtreepath.h.
package quadtree

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxLevel is the deepest level a QuadtreePath can represent.
	MaxLevel = 24
	// levelBits is the number of bits used per quadtree digit.
	levelBits = 2
	// totalBits is the number of bits in the packed representation.
	totalBits = 64
	levelBitMask = 0x3
)

// pathMask is the top 48 bits (MaxLevel*levelBits), where digits live.
const pathMask = ^(^uint64(0) >> (MaxLevel * levelBits))

// levelMask is the remaining low bits, where the level count is stored.
const levelMask = ^pathMask

// Path is a packed quadtree address: up to 24 two-bit child digits in the
// upper 48 bits (root child first, most significant), plus a level count
// in the low bits.
type Path struct {
	bits uint64
}

// Root is the level-0 path (no digits).
var Root = Path{}

// pathMaskAtLevel returns the mask covering the digit bits for [0,level).
func pathMaskAtLevel(level uint32) uint64 {
	return pathMask << ((MaxLevel - level) * levelBits)
}

// New builds a Path from (level,row,col). Row/col are interpreted as
// Earth-standard quadrant-ordered tile coordinates at that level: bit i of
// row/col (from the most significant used bit) selects the next digit.
func New(level uint32, row, col uint32) Path {
	var bits uint64
	for i := uint32(0); i < level; i++ {
		shift := level - 1 - i
		r := (row >> shift) & 1
		c := (col >> shift) & 1
		digit := uint64(r<<1 | c) // matches LevelRowCol: digit bit1=row bit0=col
		bits |= digit << (totalBits - (i+1)*levelBits)
	}
	bits |= uint64(level)
	return Path{bits: bits}
}

// FromBranchList builds a Path from a sequence of decimal digit characters
// ('0'..'3'), one per level, e.g. "23121".
func FromBranchList(blist string) (Path, error) {
	if len(blist) > MaxLevel {
		return Path{}, fmt.Errorf("quadtree: branch list too long: %d > %d", len(blist), MaxLevel)
	}
	var bits uint64
	for i, ch := range blist {
		d, err := strconv.Atoi(string(ch))
		if err != nil || d < 0 || d > 3 {
			return Path{}, fmt.Errorf("quadtree: invalid branch digit %q", ch)
		}
		bits |= uint64(d) << (totalBits - uint(i+1)*levelBits)
	}
	bits |= uint64(len(blist))
	return Path{bits: bits}, nil
}

// Level returns the path's level (0..MaxLevel).
func (p Path) Level() uint32 { return uint32(p.bits & levelMask) }

// IsValid reports whether the level is in range and no stray bits are set.
func (p Path) IsValid() bool {
	level := p.Level()
	if level > MaxLevel {
		return false
	}
	return p.bits & ^(pathMaskAtLevel(level)|levelMask) == 0
}

// pathBits returns the digit bits, masked to the path's own level.
func (p Path) pathBits() uint64 {
	return p.bits & pathMaskAtLevel(p.Level())
}

// digitAt returns the 2-bit digit at the given 0-based position (root
// child first).
func (p Path) digitAt(position uint32) uint32 {
	return uint32((p.bits >> (totalBits - (position+1)*levelBits)) & levelBitMask)
}

// At returns the branch made at the given position, a synonym for digitAt
// exposed for callers (QuadtreePath::operator[] in the original).
func (p Path) At(position uint32) uint32 { return p.digitAt(position) }

// WhichChild returns the last digit: which child of its parent this path is.
func (p Path) WhichChild() uint32 {
	level := p.Level()
	if level == 0 {
		return 0
	}
	return uint32((p.bits >> (totalBits - level*levelBits)) & levelBitMask)
}

// Less implements the path ordering: lexicographic by digit, then by level
// when all shared digits agree (this is preorder).
func (p Path) Less(o Path) bool {
	if p.bits == o.bits {
		return false
	}
	minLevel := p.Level()
	if o.Level() < minLevel {
		minLevel = o.Level()
	}
	for i := uint32(0); i < minLevel; i++ {
		pd, od := p.digitAt(i), o.digitAt(i)
		if pd != od {
			return pd < od
		}
	}
	return p.Level() < o.Level()
}

func (p Path) Equal(o Path) bool { return p.bits == o.bits }

// GetLevelRowCol decodes back to (level,row,col).
func (p Path) GetLevelRowCol() (level, row, col uint32) {
	level = p.Level()
	for i := uint32(0); i < level; i++ {
		d := p.digitAt(i)
		row = row<<1 | (d >> 1)
		col = col<<1 | (d & 1)
	}
	return
}

// Parent returns the path one level up. Calling Parent on the root panics.
func (p Path) Parent() Path {
	level := p.Level()
	if level == 0 {
		panic("quadtree: Parent of root path")
	}
	newLevel := level - 1
	return Path{bits: p.pathBits() & pathMaskAtLevel(newLevel) | uint64(newLevel)}
}

// Child returns the i'th child (i in [0,3]) of this path.
func (p Path) Child(i uint32) Path {
	if i > 3 {
		panic("quadtree: child index out of range")
	}
	level := p.Level()
	if level >= MaxLevel {
		panic("quadtree: Child exceeds MaxLevel")
	}
	newLevel := level + 1
	bits := p.pathBits() | (uint64(i) << (totalBits - newLevel*levelBits)) | uint64(newLevel)
	return Path{bits: bits}
}

// IsAncestorOf reports whether p is an ancestor of other, inclusive (a path
// is its own ancestor).
func (p Path) IsAncestorOf(other Path) bool {
	if p.Level() > other.Level() {
		return false
	}
	mask := pathMaskAtLevel(p.Level())
	return p.bits&mask == other.bits&mask
}

// RelativePath returns the path of child relative to parent; panics unless
// parent.IsAncestorOf(child).
func RelativePath(parent, child Path) Path {
	if !parent.IsAncestorOf(child) {
		panic("quadtree: RelativePath requires parent.IsAncestorOf(child)")
	}
	relLevel := child.Level() - parent.Level()
	var bits uint64
	for i := uint32(0); i < relLevel; i++ {
		d := child.digitAt(parent.Level() + i)
		bits |= uint64(d) << (totalBits - (i+1)*levelBits)
	}
	bits |= uint64(relLevel)
	return Path{bits: bits}
}

// Concatenate appends sub's digits after p's, producing a path at level
// p.Level()+sub.Level(). Panics if the result would exceed MaxLevel.
func (p Path) Concatenate(sub Path) Path {
	newLevel := p.Level() + sub.Level()
	if newLevel > MaxLevel {
		panic("quadtree: Concatenate exceeds MaxLevel")
	}
	bits := p.pathBits()
	for i := uint32(0); i < sub.Level(); i++ {
		d := sub.digitAt(i)
		bits |= uint64(d) << (totalBits - (p.Level()+i+1)*levelBits)
	}
	bits |= uint64(newLevel)
	return Path{bits: bits}
}

// AsIndex converts the first `level` digits of the path into an array
// index: QuadtreePath("23121").AsIndex(4) == 0b10110110 == 182.
func (p Path) AsIndex(level uint32) uint64 {
	return p.bits >> (totalBits - level*levelBits)
}

// GenerationSequence returns the 48-bit path with each 2-bit digit
// bit-reversed, padded with zero digits out to MaxLevel — a storage-order
// key independent of the path's own level.
func (p Path) GenerationSequence() uint64 {
	var out uint64
	for i := uint32(0); i < p.Level(); i++ {
		d := p.digitAt(i)
		rev := (d>>1)&1 | (d&1)<<1
		out |= uint64(rev) << (totalBits - (i+1)*levelBits)
	}
	return out >> (totalBits - MaxLevel*levelBits)
}

// AdvanceInLevel moves to the next node at the same level in the same
// subtree scan order, returning false at the end of the level (path
// becomes the zero-digit path's successor does not exist; caller checks
// the bool).
func (p *Path) AdvanceInLevel() bool {
	level := p.Level()
	if level == 0 {
		return false
	}
	digits := make([]uint32, level)
	for i := uint32(0); i < level; i++ {
		digits[i] = p.digitAt(i)
	}
	i := int(level) - 1
	for i >= 0 {
		if digits[i] < 3 {
			digits[i]++
			break
		}
		digits[i] = 0
		i--
	}
	if i < 0 {
		return false
	}
	var bits uint64
	for idx, d := range digits {
		bits |= uint64(d) << (totalBits - uint(idx+1)*levelBits)
	}
	bits |= uint64(level)
	p.bits = bits
	return true
}

// Advance moves to the next node in preorder traversal bounded by
// maxLevel, returning false once traversal of all nodes <= maxLevel is
// complete.
func (p *Path) Advance(maxLevel uint32) bool {
	if p.Level() < maxLevel {
		*p = p.Child(0)
		return true
	}
	// at maxLevel: walk up until a sibling exists, or exhaust the tree.
	cur := *p
	for cur.Level() > 0 {
		which := cur.WhichChild()
		parent := cur.Parent()
		if which < 3 {
			*p = parent.Child(which + 1)
			return true
		}
		cur = parent
	}
	return false
}

// ChildTileCoordinates returns the (row,col,width) of the subtile that
// child occupies within a tile of tile_width pixels, per the Earth-standard
// quadrant layout {0:BL,1:BR,2:TR,3:TL}. Stops halving once subtile width
// reaches 1 pixel even if child is deeper. Returns false if child is not a
// descendant of p.
func (p Path) ChildTileCoordinates(tileWidth int, child Path) (row, col, width int, ok bool) {
	if !p.IsAncestorOf(child) {
		return 0, 0, 0, false
	}
	row, col, width = 0, 0, tileWidth
	depth := child.Level() - p.Level()
	for i := uint32(0); i < depth; i++ {
		if width <= 1 {
			break
		}
		half := width / 2
		switch child.digitAt(p.Level() + i) {
		case 0: // BL
			// row,col unchanged (already at bottom-left of this subtile)
		case 1: // BR
			col += half
		case 2: // TR
			row += half
			col += half
		case 3: // TL
			row += half
		}
		width = half
	}
	return row, col, width, true
}

// QuadToBufferOffset returns the pixel offset, within a parent cell's pixel
// buffer (ordered left-to-right then bottom-to-top), of the given quadrant
// using the PIXEL-BUFFER quadrant numbering {0:BL,1:BR,2:TL,3:TR} — the
// same row<<1|col numbering as Child() digits, but NOT the numbering
// ChildTileCoordinates uses. See package doc: the two conventions coexist
// and must not be mixed.
func QuadToBufferOffset(quad uint32, tileWidth, tileHeight uint32) uint32 {
	switch quad {
	case 0:
		return 0
	case 1:
		return tileWidth / 2
	case 2:
		return (tileHeight * tileWidth) / 2
	case 3:
		return ((tileHeight + 1) * tileWidth) / 2
	default:
		panic("quadtree: quad out of range")
	}
}

// MagnifyQuadAddr finds the tile, in the next level down (finer), that
// maps to the given quad of (inRow,inCol), using the pixel-buffer quadrant
// numbering {0:BL,1:BR,2:TL,3:TR} (same convention as QuadToBufferOffset).
func MagnifyQuadAddr(inRow, inCol, quad uint32) (outRow, outCol uint32) {
	switch quad {
	case 0:
		return inRow * 2, inCol * 2
	case 1:
		return inRow * 2, inCol*2 + 1
	case 2:
		return inRow*2 + 1, inCol * 2
	case 3:
		return inRow*2 + 1, inCol*2 + 1
	default:
		panic("quadtree: quad out of range")
	}
}

// String renders the path as its branch-digit string, e.g. "23121".
func (p Path) String() string {
	level := p.Level()
	if level == 0 {
		return ""
	}
	var b strings.Builder
	for i := uint32(0); i < level; i++ {
		b.WriteByte(byte('0' + p.digitAt(i)))
	}
	return b.String()
}
