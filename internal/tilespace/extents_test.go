package tilespace

import "testing"

func e32(order CoordOrder, a, b, c, d int32) Extents[int32] {
	return NewExtents(order, a, b, c, d)
}

func TestIntersectionSubsetAndCommutative(t *testing.T) {
	cases := [][2]Extents[int32]{
		{e32(XYOrder, 0, 10, 0, 10), e32(XYOrder, 5, 15, 5, 15)},
		{e32(XYOrder, 0, 4, 0, 4), e32(XYOrder, 4, 8, 4, 8)}, // touching, no overlap (half-open)
		{e32(XYOrder, 0, 10, 0, 10), e32(XYOrder, 20, 30, 20, 30)},
		{e32(XYOrder, 0, 10, 0, 10), e32(XYOrder, 2, 8, 2, 8)},
	}
	for _, c := range cases {
		a, b := c[0], c[1]
		i1 := Intersection(a, b)
		i2 := Intersection(b, a)
		if !i1.Equal(i2) {
			t.Fatalf("intersection not commutative: %+v vs %+v", i1, i2)
		}
		if !i1.Empty() {
			if !a.Contains(i1) || !b.Contains(i1) {
				t.Fatalf("intersection %+v not subset of both %+v %+v", i1, a, b)
			}
		}
	}
}

func TestGrowIdentityOnEmpty(t *testing.T) {
	a := e32(XYOrder, 1, 5, 1, 5)
	var empty Extents[int32]
	if !a.Grow(empty).Equal(a) {
		t.Fatalf("grow(a,empty) != a")
	}
	if !empty.Grow(a).Equal(a) {
		t.Fatalf("grow(empty,a) != a")
	}
}

func TestSubtractTilesExactly(t *testing.T) {
	a := e32(XYOrder, 0, 10, 0, 10)
	b := e32(XYOrder, 3, 7, 3, 7)
	ok, remainders := Subtract(a, b, nil)
	if !ok {
		t.Fatalf("expected intersection")
	}
	inter := Intersection(a, b)

	// Build a coverage grid and verify every cell of a is covered exactly
	// once by remainders+intersection.
	covered := map[[2]int32]int{}
	mark := func(e Extents[int32]) {
		for x := e.BeginX(); x < e.EndX(); x++ {
			for y := e.BeginY(); y < e.EndY(); y++ {
				covered[[2]int32{x, y}]++
			}
		}
	}
	mark(inter)
	for _, r := range remainders {
		mark(r)
	}
	for x := a.BeginX(); x < a.EndX(); x++ {
		for y := a.BeginY(); y < a.EndY(); y++ {
			if covered[[2]int32{x, y}] != 1 {
				t.Fatalf("cell (%d,%d) covered %d times, want 1", x, y, covered[[2]int32{x, y}])
			}
		}
	}
}

func TestExpandNarrowRoundTrip(t *testing.T) {
	a := e32(XYOrder, 10, 20, 10, 20)
	got := a.ExpandBy(5).NarrowBy(5)
	if !got.Equal(a) {
		t.Fatalf("expand/narrow round trip: got %+v want %+v", got, a)
	}
}

func TestAlignBy(t *testing.T) {
	a := e32(XYOrder, 3, 13, 7, 22)
	aligned := a.AlignBy(4)
	if aligned.BeginX()%4 != 0 || aligned.EndX()%4 != 0 {
		t.Fatalf("align by 4 left unaligned X: %+v", aligned)
	}
	if aligned.BeginY()%4 != 0 || aligned.EndY()%4 != 0 {
		t.Fatalf("align by 4 left unaligned Y: %+v", aligned)
	}

	var empty Extents[int32]
	alignedEmpty := empty.AlignBy(4)
	if !alignedEmpty.Empty() {
		t.Fatalf("align of empty must stay empty, got %+v", alignedEmpty)
	}
}

func TestCoveredByQuadrants(t *testing.T) {
	whole := e32(XYOrder, 0, 8, 0, 8)
	quads := []Extents[int32]{
		e32(XYOrder, 0, 4, 0, 4),
		e32(XYOrder, 4, 8, 0, 4),
		e32(XYOrder, 0, 4, 4, 8),
		e32(XYOrder, 4, 8, 4, 8),
	}
	sameDegree := make([]bool, len(quads))
	if !CoveredBy(whole, quads, sameDegree) {
		t.Fatalf("four quadrants should fully cover the whole extent")
	}
}

func TestCoveredByIncomplete(t *testing.T) {
	whole := e32(XYOrder, 0, 8, 0, 8)
	quads := []Extents[int32]{
		e32(XYOrder, 0, 4, 0, 4),
		e32(XYOrder, 4, 8, 0, 4),
		e32(XYOrder, 0, 4, 4, 8),
		// missing the fourth quadrant
	}
	sameDegree := make([]bool, len(quads))
	if CoveredBy(whole, quads, sameDegree) {
		t.Fatalf("three quadrants should not fully cover the whole extent")
	}
}

func TestEmptySemantics(t *testing.T) {
	var iz Extents[int32]
	if !iz.Empty() {
		t.Fatalf("zero-value integer extent must be empty")
	}
	degenerate := e32(XYOrder, 5, 5, 0, 10)
	if !degenerate.Empty() {
		t.Fatalf("zero-width integer extent must be empty")
	}

	var fz Extents[float64]
	if !fz.Empty() {
		t.Fatalf("zero-value float extent must be empty")
	}
	nonzeroDegenerate := NewExtents(XYOrder, 5.0, 5.0, 0.0, 10.0)
	if nonzeroDegenerate.Empty() {
		t.Fatalf("a degenerate-but-nonzero float extent must NOT be empty (float emptiness is all-coords-zero)")
	}
}

func TestContainsRowColHalfOpenVsClosed(t *testing.T) {
	i := e32(XYOrder, 0, 4, 0, 4)
	if i.ContainsCol(4) {
		t.Fatalf("integer extent end is exclusive")
	}
	if !i.ContainsCol(3) {
		t.Fatalf("integer extent should contain begin..end-1")
	}

	f := NewExtents(XYOrder, 0.0, 4.0, 0.0, 4.0)
	if !f.ContainsCol(4.0) {
		t.Fatalf("float extent end is inclusive")
	}
}
