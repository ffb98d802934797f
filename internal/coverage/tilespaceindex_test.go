package coverage

import (
	"testing"

	"github.com/google/earthenterprise-sub002/internal/quadtree"
)

func TestTilespaceIndexQueryCollectsAncestorsAndSubtree(t *testing.T) {
	idx := NewTilespaceIndex[string]()

	root := quadtree.Root
	child0 := root.Child(0)
	child01 := child0.Child(1)
	child012 := child01.Child(2)
	sibling := root.Child(3)

	idx.Add(root, "root-inset")
	idx.Add(child0, "level1-inset")
	idx.Add(child012, "deep-inset")
	idx.Add(sibling, "unrelated-inset")

	got := idx.Query(child01, 2)

	want := map[string]bool{"root-inset": true, "level1-inset": true, "deep-inset": true}
	if len(got) != len(want) {
		t.Fatalf("Query returned %v, want exactly %v", got, want)
	}
	for _, v := range got {
		if !want[v] {
			t.Fatalf("unexpected value %q in result %v", v, got)
		}
	}
}

func TestTilespaceIndexQueryRespectsStartLevel(t *testing.T) {
	idx := NewTilespaceIndex[int]()
	root := quadtree.Root
	child0 := root.Child(0)
	child01 := child0.Child(1)

	idx.Add(root, 1)
	idx.Add(child0, 2)

	got := idx.Query(child01, 0)
	if len(got) != 0 {
		t.Fatalf("Query with startLevel 0 should collect no ancestors, got %v", got)
	}
}

func TestTilespaceIndexEmpty(t *testing.T) {
	idx := NewTilespaceIndex[int]()
	if got := idx.Query(quadtree.Root, 5); len(got) != 0 {
		t.Fatalf("empty index Query = %v, want empty", got)
	}
}
