// Package pipelinesrc opens a pipelineconfig.SourceConfig as a
// record.Source, the one lookup+open step both the gevectorquery CLI and
// the debug server need to reach a configured source by name.
package pipelinesrc

import (
	"github.com/google/earthenterprise-sub002/internal/coreerr"
	"github.com/google/earthenterprise-sub002/internal/db"
	"github.com/google/earthenterprise-sub002/internal/pipelineconfig"
	"github.com/google/earthenterprise-sub002/internal/record"
	"github.com/google/earthenterprise-sub002/internal/record/duckdbsource"
	"github.com/google/earthenterprise-sub002/internal/record/geojsonsource"
)

// Open opens sc as a DuckDB table or a GeoJSON file source, selected by
// sc.Kind.
func Open(cfg pipelineconfig.Config, sc pipelineconfig.SourceConfig) (record.Source, error) {
	switch sc.Kind {
	case "duckdb":
		return duckdbsource.Open(duckdbsource.Config{
			DB:    db.Config{DataDir: cfg.DataDir, DBName: sc.DBName},
			Table: sc.Table,
		})
	default:
		return geojsonsource.Open(sc.Path)
	}
}

// Find looks up a configured source by name.
func Find(cfg pipelineconfig.Config, name string) (pipelineconfig.SourceConfig, error) {
	for _, sc := range cfg.Sources {
		if sc.Name == name {
			return sc, nil
		}
	}
	return pipelineconfig.SourceConfig{}, coreerr.New(coreerr.InvalidArgument, "pipelinesrc.Find", "no configured source named "+name)
}
