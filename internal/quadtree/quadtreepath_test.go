package quadtree

import "testing"

func mustPath(t *testing.T, blist string) Path {
	t.Helper()
	p, err := FromBranchList(blist)
	if err != nil {
		t.Fatalf("FromBranchList(%q): %v", blist, err)
	}
	return p
}

func TestAsIndexWorkedExamples(t *testing.T) {
	if got := mustPath(t, "23121").AsIndex(4); got != 182 {
		t.Fatalf("AsIndex(4) = %d, want 182", got)
	}
	if got := mustPath(t, "31").AsIndex(2); got != 13 {
		t.Fatalf("AsIndex(2) = %d, want 13", got)
	}
}

func TestRoundTripLevelRowCol(t *testing.T) {
	for level := uint32(0); level <= 10; level++ {
		for row := uint32(0); row < 4 && row < 1<<level; row++ {
			for col := uint32(0); col < 4 && col < 1<<level; col++ {
				p := New(level, row, col)
				gl, gr, gc := p.GetLevelRowCol()
				if gl != level || gr != row || gc != col {
					t.Fatalf("round trip (%d,%d,%d) got (%d,%d,%d)", level, row, col, gl, gr, gc)
				}
			}
		}
	}
}

func TestParentOfChildIsSelf(t *testing.T) {
	root := mustPath(t, "231")
	for i := uint32(0); i < 4; i++ {
		child := root.Child(i)
		if !child.Parent().Equal(root) {
			t.Fatalf("Parent(Child(%d)) = %v, want %v", i, child.Parent(), root)
		}
		if child.WhichChild() != i {
			t.Fatalf("WhichChild() = %d, want %d", child.WhichChild(), i)
		}
	}
}

func TestIsAncestorOf(t *testing.T) {
	a := mustPath(t, "23")
	b := mustPath(t, "231")
	c := mustPath(t, "21")
	if !a.IsAncestorOf(b) {
		t.Fatalf("%v should be ancestor of %v", a, b)
	}
	if !a.IsAncestorOf(a) {
		t.Fatalf("a path must be its own ancestor")
	}
	if a.IsAncestorOf(c) {
		t.Fatalf("%v should not be ancestor of %v", a, c)
	}
	if b.IsAncestorOf(a) {
		t.Fatalf("child must not be ancestor of parent")
	}
}

func TestLessIsPreorderConsistent(t *testing.T) {
	root := mustPath(t, "")
	a := mustPath(t, "0")
	b := mustPath(t, "1")
	c := mustPath(t, "00")
	if !root.Less(a) {
		t.Fatalf("root should sort before any descendant")
	}
	if !a.Less(b) {
		t.Fatalf("digit 0 should sort before digit 1")
	}
	if !a.Less(c) {
		t.Fatalf("a shallower prefix should sort before its own descendant")
	}
}

func TestAdvancePreorderVisitsEveryNode(t *testing.T) {
	const maxLevel = 3
	seen := map[Path]bool{}
	p := Root
	seen[p] = true
	count := 1
	for p.Advance(maxLevel) {
		if seen[p] {
			t.Fatalf("node %v visited twice", p)
		}
		seen[p] = true
		count++
	}
	want := 0
	for l := 0; l <= maxLevel; l++ {
		n := 1
		for i := 0; i < l; i++ {
			n *= 4
		}
		want += n
	}
	if count != want {
		t.Fatalf("visited %d nodes, want %d", count, want)
	}
}

func TestAdvanceInLevelStaysAtLevel(t *testing.T) {
	p := mustPath(t, "00")
	level := p.Level()
	count := 1
	for p.AdvanceInLevel() {
		if p.Level() != level {
			t.Fatalf("AdvanceInLevel changed level to %d, want %d", p.Level(), level)
		}
		count++
	}
	if count != 16 { // 4^2 nodes at level 2
		t.Fatalf("AdvanceInLevel visited %d nodes at level 2, want 16", count)
	}
}

func TestGenerationSequenceOrdersByDepthFirstStorage(t *testing.T) {
	// A node's generation sequence must differ from its sibling's, and a
	// path and its child should not collide.
	a := mustPath(t, "0")
	b := mustPath(t, "1")
	if a.GenerationSequence() == b.GenerationSequence() {
		t.Fatalf("distinct siblings must have distinct generation sequences")
	}
	child := a.Child(2)
	if child.GenerationSequence() == a.GenerationSequence() {
		t.Fatalf("parent and child must have distinct generation sequences")
	}
}

func TestRelativePathAndConcatenateRoundTrip(t *testing.T) {
	parent := mustPath(t, "23")
	child := mustPath(t, "23102")
	rel := RelativePath(parent, child)
	if rel.String() != "102" {
		t.Fatalf("RelativePath = %q, want %q", rel.String(), "102")
	}
	recombined := parent.Concatenate(rel)
	if !recombined.Equal(child) {
		t.Fatalf("Concatenate(parent, RelativePath(parent,child)) = %v, want %v", recombined, child)
	}
}

func TestChildTileCoordinatesQuadrants(t *testing.T) {
	parent := mustPath(t, "")
	for child, want := range map[uint32][2]int{
		0: {0, 0},   // BL
		1: {0, 128}, // BR
		2: {128, 128}, // TR
		3: {128, 0}, // TL
	} {
		c := parent.Child(child)
		row, col, width, ok := parent.ChildTileCoordinates(256, c)
		if !ok {
			t.Fatalf("child %d: expected ok", child)
		}
		if width != 128 || row != want[0] || col != want[1] {
			t.Fatalf("child %d: got row=%d col=%d width=%d, want row=%d col=%d width=128", child, row, col, width, want[0], want[1])
		}
	}
}

func TestMagnifyQuadAddrCoversAllFour(t *testing.T) {
	seen := map[[2]uint32]bool{}
	for q := uint32(0); q < 4; q++ {
		r, c := MagnifyQuadAddr(3, 5, q)
		seen[[2]uint32{r, c}] = true
	}
	if len(seen) != 4 {
		t.Fatalf("MagnifyQuadAddr over all quads should produce 4 distinct tiles, got %d", len(seen))
	}
}
