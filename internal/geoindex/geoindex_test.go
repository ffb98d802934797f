package geoindex

import (
	"sort"
	"testing"

	"github.com/google/earthenterprise-sub002/internal/tilespace"
)

func TestInsertFinalizeSelectAll(t *testing.T) {
	idx := New(tilespace.ClientVectorTilespace, 0.0, 10)
	idx.Insert(1, BBox{West: 0.0, East: 0.1, South: 0.0, North: 0.1})
	idx.Insert(2, BBox{West: 0.5, East: 0.6, South: 0.5, North: 0.6})
	idx.Insert(3, BBox{West: 0.9, East: 0.95, South: 0.9, North: 0.95})
	idx.Finalize()

	got := idx.SelectAll()
	sort.Ints(got)
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("SelectAll = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SelectAll = %v, want %v", got, want)
		}
	}
}

func TestIntersectFindsOverlappingFeatures(t *testing.T) {
	idx := New(tilespace.ClientVectorTilespace, 0.0, 10)
	idx.Insert(1, BBox{West: 0.0, East: 0.1, South: 0.0, North: 0.1})
	idx.Insert(2, BBox{West: 0.5, East: 0.6, South: 0.5, North: 0.6})
	idx.Finalize()

	matches, _ := idx.Intersect(BBox{West: 0.0, East: 0.2, South: 0.0, North: 0.2}, false)
	if len(matches) != 1 || matches[0] != 1 {
		t.Fatalf("Intersect near origin = %v, want [1]", matches)
	}

	matches, _ = idx.Intersect(BBox{West: 0.0, East: 1.0, South: 0.0, North: 1.0}, false)
	if len(matches) != 2 {
		t.Fatalf("Intersect over whole world = %v, want both features", matches)
	}
}

func TestSplitCellNarrowsCoverageAndKeepsFeatures(t *testing.T) {
	idx := New(tilespace.ClientVectorTilespace, 0.0, 4)
	idx.Insert(1, BBox{West: 0.1, East: 0.2, South: 0.1, North: 0.2})
	idx.Insert(2, BBox{West: 0.8, East: 0.9, South: 0.8, North: 0.9})
	idx.Finalize()

	cov := idx.Coverage()
	row, col := cov.Extents.BeginY(), cov.Extents.BeginX()

	targetCov := tilespace.NewLevelCoverage(cov.Level+5,
		tilespace.NewExtents[uint32](tilespace.RowColOrder, 0, 1<<(cov.Level+5), 0, 1<<(cov.Level+5)))
	sub := idx.SplitCell(row, col, targetCov)
	if sub.Coverage().Level <= cov.Level {
		t.Fatalf("split index level %d should be finer than parent %d", sub.Coverage().Level, cov.Level)
	}
}

func TestResetClearsState(t *testing.T) {
	idx := New(tilespace.ClientVectorTilespace, 0.0, 4)
	idx.Insert(1, BBox{West: 0, East: 0.1, South: 0, North: 0.1})
	idx.Finalize()
	idx.Reset()
	if len(idx.SelectAll()) != 0 {
		t.Fatalf("Reset should clear all features")
	}
}
