package selectionlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/earthenterprise-sub002/internal/geoindex"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "select.txt")
	want := &List{
		Bounds:     geoindex.BBox{West: -122.5, East: -122.0, South: 37.0, North: 37.9},
		FeatureIDs: []int{3, 1, 42, 7},
	}
	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Bounds != want.Bounds {
		t.Fatalf("Bounds = %+v, want %+v", got.Bounds, want.Bounds)
	}
	if len(got.FeatureIDs) != len(want.FeatureIDs) {
		t.Fatalf("FeatureIDs len = %d, want %d", len(got.FeatureIDs), len(want.FeatureIDs))
	}
	for i := range want.FeatureIDs {
		if got.FeatureIDs[i] != want.FeatureIDs[i] {
			t.Fatalf("FeatureIDs[%d] = %d, want %d", i, got.FeatureIDs[i], want.FeatureIDs[i])
		}
	}
}

func TestReadOldStyleFileWithoutExtentsHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.txt")
	if err := os.WriteFile(path, []byte("5\n9\n12\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Bounds != (geoindex.BBox{}) {
		t.Fatalf("Bounds = %+v, want zero value", got.Bounds)
	}
	if len(got.FeatureIDs) != 3 || got.FeatureIDs[2] != 12 {
		t.Fatalf("FeatureIDs = %v, want [5 9 12]", got.FeatureIDs)
	}
}

func TestReadRejectsMalformedExtents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(path, []byte("EXTENTS: 1, 2, 3\n5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Fatal("expected error for malformed EXTENTS line")
	}
}
