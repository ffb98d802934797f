// Package duckdbsource implements record.Source over a DuckDB table,
// decoding a WKB geometry column via the spatial extension.
//
// Grounded on the teacher's DuckDB singleton (internal/db), which it
// reuses directly rather than reimplementing: the pipeline's DuckDB
// connection (data directory, extension loading) is process-wide, and a
// duckdbsource.Source is just a named query against it.
package duckdbsource

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/earthenterprise-sub002/internal/coreerr"
	"github.com/google/earthenterprise-sub002/internal/db"
	"github.com/google/earthenterprise-sub002/internal/record"
	"github.com/paulmach/orb/encoding/wkb"
)

// Config names the database to open and the table, geometry column, and
// attribute columns to expose as a record.Source.
type Config struct {
	DB            db.Config
	Table         string
	GeometryCol   string
	AttributeCols []record.FieldSpec
}

// Source is a DuckDB-table-backed record.Source. Feature ids are row
// positions: each RecordAt and Geometry query orders the table by rowid
// and skips featureID rows.
type Source struct {
	conn   *sql.DB
	cfg    Config
	header *record.Header
	count  int
}

// Open obtains the shared DuckDB connection and counts rows in the
// configured table.
func Open(cfg Config) (*Source, error) {
	conn, err := db.Get(cfg.DB)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "duckdbsource.Open", err).WithPath(cfg.DB.DataDir)
	}
	var count int
	row := conn.QueryRow(fmt.Sprintf("SELECT count(*) FROM %s", cfg.Table))
	if err := row.Scan(&count); err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "duckdbsource.Open", err)
	}
	return &Source{conn: conn, cfg: cfg, header: record.NewHeader(cfg.AttributeCols), count: count}, nil
}

func (s *Source) Header() *record.Header { return s.header }
func (s *Source) NumFeatures() int       { return s.count }

func (s *Source) columnList() string {
	names := make([]string, len(s.cfg.AttributeCols))
	for i, spec := range s.cfg.AttributeCols {
		names[i] = spec.Name
	}
	return strings.Join(names, ", ")
}

func (s *Source) RecordAt(featureID int) (*record.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid LIMIT 1 OFFSET %d",
		s.columnList(), s.cfg.Table, featureID)
	row, err := db.Query(s.conn, query)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "duckdbsource.RecordAt", err)
	}
	defer row.Close()
	if !row.Next() {
		return nil, coreerr.New(coreerr.InvalidArgument, "duckdbsource.RecordAt",
			fmt.Sprintf("feature id %d out of range", featureID))
	}

	scanTargets := make([]any, len(s.cfg.AttributeCols))
	values := make([]record.Value, len(s.cfg.AttributeCols))
	for i, spec := range s.cfg.AttributeCols {
		switch spec.Type {
		case record.FieldInt64:
			scanTargets[i] = &values[i].Int
		case record.FieldFloat64:
			scanTargets[i] = &values[i].Float
		case record.FieldBool:
			scanTargets[i] = &values[i].Bool
		default:
			scanTargets[i] = &values[i].Str
		}
	}
	if err := row.Scan(scanTargets...); err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "duckdbsource.RecordAt", err)
	}
	return &record.Record{Header: s.header, Fields: values}, nil
}

// Geometry decodes the feature's geometry column, stored in DuckDB's
// spatial GEOMETRY type, via ST_AsWKB and orb/encoding/wkb.
func (s *Source) Geometry(featureID int) (any, error) {
	query := fmt.Sprintf("SELECT ST_AsWKB(%s) FROM %s ORDER BY rowid LIMIT 1 OFFSET %d",
		s.cfg.GeometryCol, s.cfg.Table, featureID)
	var raw []byte
	if err := s.conn.QueryRow(query).Scan(&raw); err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "duckdbsource.Geometry", err)
	}
	geom, err := wkb.Unmarshal(raw)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidGeometry, "duckdbsource.Geometry", err)
	}
	return geom, nil
}

// Close is a no-op: the DuckDB connection is process-shared and closed via
// internal/db.Close at shutdown, not per-source.
func (s *Source) Close() error { return nil }
