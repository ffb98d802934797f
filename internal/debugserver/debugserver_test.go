package debugserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/earthenterprise-sub002/internal/coverage"
	"github.com/google/earthenterprise-sub002/internal/coverage/presencefile"
	"github.com/google/earthenterprise-sub002/internal/pipelineconfig"
	"github.com/google/earthenterprise-sub002/internal/tilespace"
)

const sampleGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "properties": {"name": "a"}, "geometry": {"type": "Point", "coordinates": [0.1, 0.1]}},
		{"type": "Feature", "properties": {"name": "b"}, "geometry": {"type": "Point", "coordinates": [0.2, 0.2]}}
	]
}`

func writeSamplePresenceFile(t *testing.T, dir, name string) {
	t.Helper()
	mask := coverage.NewPresenceMask(2, 4)
	extents := tilespace.NewExtents[uint32](tilespace.RowColOrder, 0, 4, 0, 4)
	lm := coverage.NewLevelPresenceMask(2, extents)
	lm.Set(1, 1, true)
	mask.SetLevelMask(2, lm)
	if err := presencefile.Write(presencefile.PathFor(dir, name), mask, map[uint]tilespace.Extents[uint32]{2: extents}); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestGetPresenceReportsEstimatedPresence(t *testing.T) {
	dir := t.TempDir()
	writeSamplePresenceFile(t, dir, "roads")

	s := New(Config{Host: "127.0.0.1", Port: "0"}, nil, nil, pipelineconfig.Config{PresenceDir: dir})

	out, err := s.getPresence(context.Background(), &presenceInput{Inset: "roads", Tile: "2/1/1"})
	if err != nil {
		t.Fatalf("getPresence: %v", err)
	}
	if !out.Body.Present {
		t.Fatalf("Present = false, want true for the tile marked present")
	}
	if out.Body.BeginLevel != 2 || out.Body.EndLevel != 4 {
		t.Fatalf("level range = [%d,%d), want [2,4)", out.Body.BeginLevel, out.Body.EndLevel)
	}
}

func TestGetPresenceUnknownInsetReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	s := New(Config{Host: "127.0.0.1", Port: "0"}, nil, nil, pipelineconfig.Config{PresenceDir: dir})

	if _, err := s.getPresence(context.Background(), &presenceInput{Inset: "missing", Tile: "2/1/1"}); err == nil {
		t.Fatal("expected an error for an inset with no presence file")
	}
}

func TestGetPresenceNoDirConfiguredReturnsError(t *testing.T) {
	s := New(Config{Host: "127.0.0.1", Port: "0"}, nil, nil, pipelineconfig.Config{})
	if _, err := s.getPresence(context.Background(), &presenceInput{Inset: "roads", Tile: "2/1/1"}); err == nil {
		t.Fatal("expected an error when no presence directory is configured")
	}
}

func TestPostSelectRunsConfiguredSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.geojson")
	if err := os.WriteFile(path, []byte(sampleGeoJSON), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := pipelineconfig.Config{
		Sources: []pipelineconfig.SourceConfig{
			{Name: "points", Kind: "geojson", Path: path},
		},
		MaxSoftErrors: 10,
	}
	s := New(Config{Host: "127.0.0.1", Port: "0"}, nil, nil, cfg)

	input := &selectInput{Layer: "points"}
	input.Body.Column = "name"
	input.Body.Op = "="
	input.Body.Value = "a"

	out, err := s.postSelect(context.Background(), input)
	if err != nil {
		t.Fatalf("postSelect: %v", err)
	}
	if len(out.Body.FeatureIDs) != 1 || out.Body.FeatureIDs[0] != 0 {
		t.Fatalf("FeatureIDs = %v, want [0]", out.Body.FeatureIDs)
	}
}

func TestPostSelectUnknownLayerReturnsNotFound(t *testing.T) {
	s := New(Config{Host: "127.0.0.1", Port: "0"}, nil, nil, pipelineconfig.Config{})
	input := &selectInput{Layer: "missing"}
	if _, err := s.postSelect(context.Background(), input); err == nil {
		t.Fatal("expected an error for an unconfigured layer")
	}
}

func TestParseTileAddress(t *testing.T) {
	tile, err := parseTileAddress("4/2/3")
	if err != nil {
		t.Fatalf("parseTileAddress: %v", err)
	}
	if uint32(tile.Z) != 4 || tile.X != 2 || tile.Y != 3 {
		t.Fatalf("tile = %+v, want z=4 x=2 y=3", tile)
	}

	if _, err := parseTileAddress("not-a-tile"); err == nil {
		t.Fatal("expected an error for a malformed tile address")
	}
}
