// Package pipelineconfig loads the pipeline's run configuration: tilespace
// parameters, data directories, cache sizing, and soft-error thresholds,
// from a YAML file via gopkg.in/yaml.v3.
//
// Grounded on the teacher's use of yaml.v3 for config/spec marshaling,
// generalized from one-shot OpenAPI export into a full config-file loader.
package pipelineconfig

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/google/earthenterprise-sub002/internal/coreerr"
)

// TilespaceConfig mirrors tilespace.Tilespace in a YAML-friendly shape.
type TilespaceConfig struct {
	TileSizeLog2       uint `yaml:"tile_size_log2"`
	PixelsAtLevel0Log2 uint `yaml:"pixels_at_level0_log2"`
	MaxLevel           uint `yaml:"max_level"`
	IsMercator         bool `yaml:"is_mercator"`
}

// SourceConfig names one layer's record source: either a GeoJSON file path
// or a DuckDB table.
type SourceConfig struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"` // "geojson" or "duckdb"
	Path   string `yaml:"path"`
	Table  string `yaml:"table,omitempty"`
	DBName string `yaml:"db_name,omitempty"`
}

// Config is the top-level pipeline run configuration.
type Config struct {
	Tilespace       TilespaceConfig `yaml:"tilespace"`
	DataDir         string          `yaml:"data_dir"`
	Sources         []SourceConfig  `yaml:"sources"`
	CacheSize       int             `yaml:"cache_size"`
	MaxSoftErrors   int             `yaml:"max_soft_errors"`
	OversizeFactor  float64         `yaml:"oversize_factor"`
	DebugServerAddr string          `yaml:"debug_server_addr,omitempty"`
	PresenceDir     string          `yaml:"presence_dir,omitempty"`
}

// Defaults returns a Config with the pipeline's baseline settings, used
// when no config file is given.
func Defaults() Config {
	return Config{
		Tilespace: TilespaceConfig{
			TileSizeLog2:       8,
			PixelsAtLevel0Log2: 8,
			MaxLevel:           24,
		},
		CacheSize:      4096,
		MaxSoftErrors:  1000,
		OversizeFactor: 0.5,
	}
}

// Load reads and parses a YAML config file, starting from Defaults so
// unset fields keep sensible values.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, coreerr.Wrap(coreerr.IoFailure, "pipelineconfig.Load", err).WithPath(path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, coreerr.Wrap(coreerr.InvalidFormat, "pipelineconfig.Load", err).WithPath(path)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return coreerr.Wrap(coreerr.InvalidFormat, "pipelineconfig.Save", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return coreerr.Wrap(coreerr.IoFailure, "pipelineconfig.Save", err).WithPath(path)
	}
	return nil
}
