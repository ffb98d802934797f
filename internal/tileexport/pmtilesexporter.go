package tileexport

import (
	"context"
	"encoding/binary"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/google/earthenterprise-sub002/internal/coreerr"
	"github.com/google/earthenterprise-sub002/internal/pmtiles"
	"github.com/google/earthenterprise-sub002/internal/quadtree"
	"github.com/google/earthenterprise-sub002/internal/record"
)

// ArchiveExporter bundles every exported quad's selected geometry into a
// single PMTiles v3 archive, one tile payload per quad: a length-prefixed
// concatenation of each active filter's WKB-encoded feature records.
// quadexport.QuadExporter visits quads depth-first in child-index order,
// which is not Hilbert TileID order; the pmtiles.Writer sorts its directory
// by TileID on Close.
type ArchiveExporter struct {
	Sources map[int]record.Source
	writer  *pmtiles.Writer
}

// Open creates the archive file at path. Must be called before the
// exporter is passed to a QuadExporter.
func (e *ArchiveExporter) Open(path string) error {
	w, err := pmtiles.Create(path)
	if err != nil {
		return coreerr.Wrap(coreerr.IoFailure, "tileexport.ArchiveExporter.Open", err).WithPath(path)
	}
	e.writer = w
	return nil
}

// Close flushes the archive's directory, metadata, and header.
func (e *ArchiveExporter) Close() error {
	if e.writer == nil {
		return nil
	}
	return e.writer.Close()
}

// ExportQuad implements quadexport.FullResExporter.
func (e *ArchiveExporter) ExportQuad(ctx context.Context, quad quadtree.Path, selections map[int][]int, needLOD bool) error {
	level, row, col := quad.GetLevelRowCol()

	var blobs [][]byte
	for filterID, featureIDs := range selections {
		src, ok := e.Sources[filterID]
		if !ok || len(featureIDs) == 0 {
			continue
		}
		for _, id := range featureIDs {
			if err := ctx.Err(); err != nil {
				return nil // cancellation is advisory: stop early without error
			}
			geom, err := src.Geometry(id)
			if err != nil {
				return err
			}
			og, ok := geom.(orb.Geometry)
			if !ok {
				continue
			}
			data, err := wkb.Marshal(og, binary.LittleEndian)
			if err != nil {
				return coreerr.Wrap(coreerr.InvalidFormat, "tileexport.ArchiveExporter.ExportQuad", err)
			}
			blobs = append(blobs, data)
		}
	}
	if len(blobs) == 0 {
		return nil
	}
	payload := pmtiles.LengthPrefixed(blobs)
	return e.writer.AddTile(uint8(level), col, row, payload)
}
