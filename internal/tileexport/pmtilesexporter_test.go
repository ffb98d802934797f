package tileexport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/google/earthenterprise-sub002/internal/pmtiles"
	"github.com/google/earthenterprise-sub002/internal/quadtree"
	"github.com/google/earthenterprise-sub002/internal/record"
)

func TestArchiveExporterWritesReadableHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pmtiles")
	src := &fakeSource{geoms: map[int]orb.Geometry{0: orb.Point{1, 2}}}
	e := &ArchiveExporter{Sources: map[int]record.Source{3: src}}
	if err := e.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}

	quad := quadtree.Root.Child(1)
	if err := e.ExportQuad(context.Background(), quad, map[int][]int{3: {0}}, false); err != nil {
		t.Fatalf("ExportQuad: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	header, err := pmtiles.DeserializeHeader(data[:pmtiles.HeaderV3LenBytes])
	if err != nil {
		t.Fatalf("DeserializeHeader: %v", err)
	}
	if header.AddressedTilesCount != 1 {
		t.Fatalf("AddressedTilesCount = %d, want 1", header.AddressedTilesCount)
	}
	if header.TileDataLength == 0 {
		t.Fatal("expected non-zero tile data length")
	}
}

func TestArchiveExporterSkipsQuadsWithNoSelections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pmtiles")
	e := &ArchiveExporter{Sources: map[int]record.Source{}}
	if err := e.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := e.ExportQuad(context.Background(), quadtree.Root, map[int][]int{}, false); err != nil {
		t.Fatalf("ExportQuad: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
