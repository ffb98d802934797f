package pipelineconfig

import (
	"path/filepath"
	"testing"

	"github.com/google/earthenterprise-sub002/internal/coreerr"
)

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")

	cfg := Defaults()
	cfg.DataDir = "/var/data/fusion"
	cfg.Sources = []SourceConfig{{Name: "roads", Kind: "geojson", Path: "roads.geojson"}}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DataDir != cfg.DataDir {
		t.Fatalf("DataDir = %q, want %q", got.DataDir, cfg.DataDir)
	}
	if len(got.Sources) != 1 || got.Sources[0].Name != "roads" {
		t.Fatalf("Sources = %+v", got.Sources)
	}
	if got.Tilespace.MaxLevel != 24 {
		t.Fatalf("MaxLevel = %d, want default 24", got.Tilespace.MaxLevel)
	}
}

func TestLoadMissingFileReturnsIoFailure(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	if !coreerr.Of(err, coreerr.IoFailure) {
		t.Fatalf("Load error = %v, want IoFailure", err)
	}
}
