// Package tilespace implements the tile-pyramid extents model: axis-aligned
// integer and floating extents, level coverage, and the immutable tilespace
// parameter pack that callers thread through the rest of the pipeline.
//
// Grounded on earth_enterprise/src/common/khExtents.h.
package tilespace

import (
	"math"
)

// Number is the set of coordinate types Extents supports: signed and
// unsigned integer tile addresses and float64 normalized/degree coordinates.
type Number interface {
	~int32 | ~uint32 | ~int64 | ~float64
}

// Extents is an axis-aligned rectangle. For integer T the interval is
// half-open [begin,end) on both axes; for float64 it is closed [begin,end].
// The zero value is the empty extent.
type Extents[T Number] struct {
	beginX, endX T
	beginY, endY T
}

// CoordOrder selects how NewExtents interprets its four scalar arguments.
type CoordOrder int

const (
	XYOrder CoordOrder = iota
	RowColOrder
	NSEWOrder
)

// NewExtents builds an Extents from four scalars in the given order.
// Invalid arguments (end < begin on either axis) collapse to empty.
func NewExtents[T Number](order CoordOrder, a, b, c, d T) Extents[T] {
	var e Extents[T]
	switch order {
	case XYOrder:
		e.beginX, e.endX, e.beginY, e.endY = a, b, c, d
	case RowColOrder:
		e.beginY, e.endY, e.beginX, e.endX = a, b, c, d
	case NSEWOrder:
		// a=north(endY) b=south(beginY) c=east(endX) d=west(beginX)
		e.endY, e.beginY, e.endX, e.beginX = a, b, c, d
	}
	if e.endX < e.beginX || e.endY < e.beginY {
		return Extents[T]{}
	}
	return e
}

// BeginX, EndX, BeginY, EndY expose the raw bounds.
func (e Extents[T]) BeginX() T { return e.beginX }
func (e Extents[T]) EndX() T   { return e.endX }
func (e Extents[T]) BeginY() T { return e.beginY }
func (e Extents[T]) EndY() T   { return e.endY }

func (e Extents[T]) North() T    { return e.endY }
func (e Extents[T]) South() T    { return e.beginY }
func (e Extents[T]) East() T     { return e.endX }
func (e Extents[T]) West() T     { return e.beginX }
func (e Extents[T]) BeginRow() T { return e.beginY }
func (e Extents[T]) EndRow() T   { return e.endY }
func (e Extents[T]) BeginCol() T { return e.beginX }
func (e Extents[T]) EndCol() T   { return e.endX }

// Width, Height give the raw axis spans (end-begin); for integer T this is
// the tile count, for float64 it includes both endpoints implicitly via
// the closed-interval semantics used elsewhere in this package.
func (e Extents[T]) Width() T  { return e.endX - e.beginX }
func (e Extents[T]) Height() T { return e.endY - e.beginY }
func (e Extents[T]) NumRows() T { return e.endY - e.beginY }
func (e Extents[T]) NumCols() T { return e.endX - e.beginX }

func (e Extents[T]) degenerate() bool {
	var zero T
	return e.Width() == zero || e.Height() == zero
}

// Empty reports whether the extent is empty: for integer T that means
// degenerate (zero width or height); for float64 it means all four
// coordinates equal zero.
func (e Extents[T]) Empty() bool {
	var zero T
	if isFloat[T]() {
		return e.beginX == zero && e.endX == zero && e.beginY == zero && e.endY == zero
	}
	return e.degenerate()
}

func isFloat[T Number]() bool {
	var z T
	switch any(z).(type) {
	case float64:
		return true
	default:
		return false
	}
}

func (e Extents[T]) Equal(o Extents[T]) bool {
	return e.beginX == o.beginX && e.endX == o.endX &&
		e.beginY == o.beginY && e.endY == o.endY
}

// ContainsRow reports whether row lies within [beginRow,endRow) for
// integer T, or [beginRow,endRow] for float64.
func (e Extents[T]) ContainsRow(row T) bool {
	if isFloat[T]() {
		return row >= e.beginY && row <= e.endY
	}
	return row >= e.beginY && row < e.endY
}

// ContainsCol is the column analogue of ContainsRow.
func (e Extents[T]) ContainsCol(col T) bool {
	if isFloat[T]() {
		return col >= e.beginX && col <= e.endX
	}
	return col >= e.beginX && col < e.endX
}

func (e Extents[T]) ContainsRowCol(row, col T) bool {
	return e.ContainsRow(row) && e.ContainsCol(col)
}

func (e Extents[T]) ContainsXY(x, y T) bool { return e.ContainsRowCol(y, x) }

// Contains reports whether o lies entirely within e.
func (e Extents[T]) Contains(o Extents[T]) bool {
	return e.beginX <= o.beginX && e.endX >= o.endX &&
		e.beginY <= o.beginY && e.endY >= o.endY
}

// Grow returns the union of e and o; empty operands are identities.
func (e Extents[T]) Grow(o Extents[T]) Extents[T] {
	if o.Empty() {
		return e
	}
	if e.Empty() {
		return o
	}
	r := e
	if o.beginX < r.beginX {
		r.beginX = o.beginX
	}
	if o.beginY < r.beginY {
		r.beginY = o.beginY
	}
	if o.endX > r.endX {
		r.endX = o.endX
	}
	if o.endY > r.endY {
		r.endY = o.endY
	}
	return r
}

func min[T Number](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func max[T Number](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Intersection returns the overlap of a and b, or the empty extent if they
// don't overlap. Uses strict comparisons for integer T (half-open) and
// non-strict for float64 (closed).
func Intersection[T Number](a, b Extents[T]) Extents[T] {
	newBeginX := max(a.beginX, b.beginX)
	newEndX := min(a.endX, b.endX)
	newBeginY := max(a.beginY, b.beginY)
	newEndY := min(a.endY, b.endY)
	if isFloat[T]() {
		if newEndX < newBeginX || newEndY < newBeginY {
			return Extents[T]{}
		}
	} else {
		if newEndX <= newBeginX || newEndY <= newBeginY {
			return Extents[T]{}
		}
	}
	return Extents[T]{beginX: newBeginX, endX: newEndX, beginY: newBeginY, endY: newEndY}
}

// Intersects reports whether a and b overlap (see Intersection semantics).
func Intersects[T Number](a, b Extents[T]) bool {
	if isFloat[T]() {
		return min(a.endX, b.endX) >= max(a.beginX, b.beginX) &&
			min(a.endY, b.endY) >= max(a.beginY, b.beginY)
	}
	return min(a.endX, b.endX) > max(a.beginX, b.beginX) &&
		min(a.endY, b.endY) > max(a.beginY, b.beginY)
}

// Connects reports whether a and b intersect or are immediately adjacent.
// For integer T this is well-defined. For float64 the source deliberately
// has no definition (a reimplementation must pick a tolerance at the call
// site) — ConnectsWithTolerance is that call-site tolerance.
func Connects[T Number](a, b Extents[T]) bool {
	if isFloat[T]() {
		panic("tilespace: Extents[float64].Connects has no defined tolerance; use ConnectsWithTolerance")
	}
	return min(a.endX, b.endX) >= max(a.beginX, b.beginX) &&
		min(a.endY, b.endY) >= max(a.beginY, b.beginY)
}

// ConnectsWithTolerance is the floating-point Connects the original source
// forces callers to define explicitly (see khExtents.h: the double
// specialization is declared but never defined, to force a tolerance
// choice). Two extents connect if they intersect when each is first grown
// by tol.
func ConnectsWithTolerance(a, b Extents[float64], tol float64) bool {
	ga := a.ExpandBy(tol)
	gb := b.ExpandBy(tol)
	return Intersects(ga, gb)
}

// ExpandBy grows each side by t, saturating at the type's min/max rather
// than overflowing.
func (e Extents[T]) ExpandBy(t T) Extents[T] {
	r := e
	r.beginX = satSub(r.beginX, t)
	r.endX = satAdd(r.endX, t)
	r.beginY = satSub(r.beginY, t)
	r.endY = satAdd(r.endY, t)
	return r
}

// NarrowBy shrinks each side by t, saturating and collapsing to empty if it
// would invert (end < begin).
func (e Extents[T]) NarrowBy(t T) Extents[T] {
	r := e
	r.beginX = satAdd(r.beginX, t)
	r.endX = satSub(r.endX, t)
	r.beginY = satAdd(r.beginY, t)
	r.endY = satSub(r.endY, t)
	if r.endX < r.beginX || r.endY < r.beginY {
		return Extents[T]{}
	}
	return r
}

// AlignBy snaps begin down and end up to multiples of t. Preserves an
// already-empty (all-zero) extent.
func (e Extents[T]) AlignBy(t T) Extents[T] {
	r := e
	r.beginX = r.beginX - mod(r.beginX, t)
	r.endX = r.endX + t - 1
	r.endX = r.endX - mod(r.endX, t)
	r.beginY = r.beginY - mod(r.beginY, t)
	r.endY = r.endY + t - 1
	r.endY = r.endY - mod(r.endY, t)
	return r
}

func mod[T Number](a, t T) T {
	if isFloat[T]() {
		return T(math.Mod(float64(a), float64(t)))
	}
	return T(int64(a) % int64(t))
}

func typeBounds[T Number]() (lo, hi T) {
	var z T
	switch any(z).(type) {
	case int32:
		return any(int32(math.MinInt32)).(T), any(int32(math.MaxInt32)).(T)
	case uint32:
		return 0, any(uint32(math.MaxUint32)).(T)
	case int64:
		return any(int64(math.MinInt64)).(T), any(int64(math.MaxInt64)).(T)
	case float64:
		return any(-math.MaxFloat64).(T), any(math.MaxFloat64).(T)
	default:
		return
	}
}

func satAdd[T Number](a, t T) T {
	lo, hi := typeBounds[T]()
	_ = lo
	if a > hi-t {
		return hi
	}
	return a + t
}

func satSub[T Number](a, t T) T {
	lo, hi := typeBounds[T]()
	_ = hi
	if a < lo+t {
		return lo
	}
	return a - t
}

// Subtract computes up to four axis-aligned remainders of a minus b
// (left, right, top, bottom) and appends the non-degenerate ones to out.
// Returns whether b intersects a at all.
func Subtract[T Number](a, b Extents[T], out []Extents[T]) (bool, []Extents[T]) {
	inter := Intersection(a, b)
	if inter.Empty() {
		return false, out
	}
	left := NewExtents(XYOrder, a.beginX, inter.beginX, a.beginY, a.endY)
	if !left.degenerate() {
		out = append(out, left)
	}
	right := NewExtents(XYOrder, inter.endX, a.endX, a.beginY, a.endY)
	if !right.degenerate() {
		out = append(out, right)
	}
	top := NewExtents(XYOrder, inter.beginX, inter.endX, inter.endY, a.endY)
	if !top.degenerate() {
		out = append(out, top)
	}
	bottom := NewExtents(XYOrder, inter.beginX, inter.endX, a.beginY, inter.beginY)
	if !bottom.degenerate() {
		out = append(out, bottom)
	}
	return true, out
}

// DegreeEqualer describes a cover that exposes its tile extents and can
// compare its "real" (e.g. degree) extents with another cover's. CoveredBy
// does not take this interface; it takes the result of that comparison as
// a per-cover bool.
type DegreeEqualer[T Number] interface {
	Extents() Extents[T]
	DegreeEquals(other DegreeEqualer[T]) bool
}

// CoveredBy reports whether e is fully consumed by repeated subtraction of
// others' extents; each cover is subtracted as-is, without narrowing.
// sameDegreeExtents[i] reports whether others[i]'s degree-space extents
// equal e's: a cover whose tile extents exactly equal e's (a common case at
// shared borders) short-circuits to "fully covered" only when it is true.
func CoveredBy[T Number](e Extents[T], others []Extents[T], sameDegreeExtents []bool) bool {
	targets := []Extents[T]{e}
	for i, o := range others {
		if len(targets) == 0 {
			break
		}
		subtr := o
		if subtr.Empty() {
			if e.Equal(o) && i < len(sameDegreeExtents) && sameDegreeExtents[i] {
				return true
			}
			continue
		}
		checkIdentical := true
		var remaining []Extents[T]
		for _, target := range targets {
			intersected, rem := Subtract(target, subtr, nil)
			if intersected {
				remaining = append(remaining, rem...)
				if checkIdentical && e.Equal(o) && i < len(sameDegreeExtents) && sameDegreeExtents[i] {
					return true
				}
				checkIdentical = false
			} else {
				remaining = append(remaining, target)
			}
		}
		targets = remaining
	}
	return len(targets) == 0
}
