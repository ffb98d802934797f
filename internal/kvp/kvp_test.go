package kvp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/earthenterprise-sub002/internal/record"
)

func TestWriteThenReadVectorFileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.kvp")

	w, err := Create(path, PrimPolygon)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	recs := [][]byte{[]byte("geom-a"), []byte("geom-bb"), []byte("geom-ccc")}
	boxes := [][4]float64{
		{0, 0, 1, 1},
		{2, 2, 3, 3},
		{-1, -1, 0, 0},
	}
	for i, r := range recs {
		if err := w.AddRecord(r, boxes[i]); err != nil {
			t.Fatalf("AddRecord: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.Version != VersionV2 {
		t.Fatalf("Version = %d, want V2", f.Version)
	}
	if f.PrimType != PrimPolygon {
		t.Fatalf("PrimType = %d, want PrimPolygon", f.PrimType)
	}
	if f.NumRecords() != 3 {
		t.Fatalf("NumRecords = %d, want 3", f.NumRecords())
	}
	for i, want := range recs {
		if string(f.Record(i)) != string(want) {
			t.Fatalf("Record(%d) = %q, want %q", i, f.Record(i), want)
		}
	}
	if f.BBox[0] != -1 || f.BBox[2] != 3 {
		t.Fatalf("aggregate BBox = %v, want west/south=-1 east/north=3 extremes", f.BBox)
	}
}

func TestAttributeTableRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attrs.kvp")

	header := record.NewHeader([]record.FieldSpec{
		{Name: "name", Type: record.FieldString},
		{Name: "lanes", Type: record.FieldInt64, Multiplier: 1},
	})
	w, err := CreateAttributeTable(path, header)
	if err != nil {
		t.Fatalf("CreateAttributeTable: %v", err)
	}
	if err := w.AddRecord([]byte("row-one")); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	if err := w.AddRecord([]byte("row-two-longer")); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	table, err := ReadAttributeTable(path)
	if err != nil {
		t.Fatalf("ReadAttributeTable: %v", err)
	}
	if table.Header.NumColumns() != 2 {
		t.Fatalf("NumColumns = %d, want 2", table.Header.NumColumns())
	}
	if table.NumRecords() != 2 {
		t.Fatalf("NumRecords = %d, want 2", table.NumRecords())
	}
	if string(table.RawRecord(1)) != "row-two-longer" {
		t.Fatalf("RawRecord(1) = %q", table.RawRecord(1))
	}
	if table.Header.FieldPosByName("LANES") != 1 {
		t.Fatal("case-insensitive column lookup failed")
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.kvp")
	w, err := Create(path, PrimPoint)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Corrupt the magic in place.
	data, _ := os.ReadFile(path)
	data[0] ^= 0xff
	os.WriteFile(path, data, 0644)

	if _, err := Read(path); err == nil {
		t.Fatal("expected error for corrupted magic")
	}
}
