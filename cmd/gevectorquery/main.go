package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/spf13/cobra"

	"github.com/google/earthenterprise-sub002/internal/coreerr"
	"github.com/google/earthenterprise-sub002/internal/coverage"
	"github.com/google/earthenterprise-sub002/internal/coverage/presencefile"
	"github.com/google/earthenterprise-sub002/internal/debugserver"
	"github.com/google/earthenterprise-sub002/internal/db"
	"github.com/google/earthenterprise-sub002/internal/geoindex"
	"github.com/google/earthenterprise-sub002/internal/geoindex/selectionlist"
	"github.com/google/earthenterprise-sub002/internal/pipelineconfig"
	"github.com/google/earthenterprise-sub002/internal/pipelinesrc"
	"github.com/google/earthenterprise-sub002/internal/quadexport"
	"github.com/google/earthenterprise-sub002/internal/quadtree"
	"github.com/google/earthenterprise-sub002/internal/record"
	"github.com/google/earthenterprise-sub002/internal/selector"
	"github.com/google/earthenterprise-sub002/internal/sourcemgr"
	"github.com/google/earthenterprise-sub002/internal/tileexport"
	"github.com/google/earthenterprise-sub002/internal/tilespace"
)

// presenceCLIMaxLevel bounds how deep a presence-mask file built by this
// CLI goes: the same kind of advisory cap quadexport.maxPresenceLevel
// applies to presence lookups during a build, since a dense per-level
// bitmask at the full pyramid depth (MaxLevel is commonly 24) is not
// something a diagnostic file needs to materialize.
const presenceCLIMaxLevel = 12

var configPath string

func main() {
	root := &cobra.Command{
		Use:     "gevectorquery",
		Short:   "Vector tile-coverage pipeline: select, build, and serve feature coverage over a pyramid",
		Version: "0.1.0",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "pipeline.yaml", "path to the pipeline config YAML file")

	root.AddCommand(newSelectCmd())
	root.AddCommand(newBuildCmd())
	root.AddCommand(newInspectPresenceCmd())
	root.AddCommand(newServeCmd())

	err := root.Execute()
	if closeErr := db.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (pipelineconfig.Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		return pipelineconfig.Defaults(), nil
	}
	return pipelineconfig.Load(configPath)
}

func toTilespace(tc pipelineconfig.TilespaceConfig) tilespace.Tilespace {
	return tilespace.Tilespace{
		TileSizeLog2:       tc.TileSizeLog2,
		PixelsAtLevel0Log2: tc.PixelsAtLevel0Log2,
		MaxLevel:           tc.MaxLevel,
		IsMercator:         tc.IsMercator,
	}
}

// newSelectCmd runs a single predicate-based display rule against one
// configured source and writes the matching feature ids as a selection
// list file.
func newSelectCmd() *cobra.Command {
	var sourceName, column, op, value, out string
	var level uint32

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Apply a filter predicate to a source and write a selection list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sc, err := pipelinesrc.Find(cfg, sourceName)
			if err != nil {
				return err
			}
			src, err := pipelinesrc.Open(cfg, sc)
			if err != nil {
				return err
			}
			defer src.Close()

			pred := selector.Predicate{Column: column, Op: parseOp(op), Value: record.Value{Str: value, Float: parseFloatOrZero(value)}}
			rule := &selector.DisplayRule{
				Name:   sourceName,
				Filter: &selector.Filter{Name: sourceName, Match: selector.MatchAll, Enabled: true, Rules: []selector.ExpressionEvaluator{pred}},
			}
			sel := &selector.Selector{Source: src, Rules: []*selector.DisplayRule{rule}, Level: level}
			policy := &selector.SoftErrorPolicy{MaxSoftErrors: cfg.MaxSoftErrors}

			results, err := sel.Run(policy)
			if err != nil {
				return err
			}
			list := &selectionlist.List{FeatureIDs: results[0].FeatureIDs}
			if err := selectionlist.Write(out, list); err != nil {
				return err
			}
			fmt.Printf("wrote %d matching feature ids to %s (soft errors tolerated: %d)\n",
				len(list.FeatureIDs), out, policy.SoftErrorCount())
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceName, "source", "", "configured source name")
	cmd.Flags().StringVar(&column, "column", "", "attribute column to test")
	cmd.Flags().StringVar(&op, "op", "=", "comparison operator: =, !=, <, >, contains")
	cmd.Flags().StringVar(&value, "value", "", "comparison value")
	cmd.Flags().Uint32Var(&level, "level", 0, "resolution level the rule is evaluated at")
	cmd.Flags().StringVar(&out, "out", "selection.txt", "output selection list path")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("column")
	return cmd
}

// newBuildCmd indexes every configured source and walks the pipeline's
// tile pyramid, writing one KVP file per (quad, source) under out-dir.
func newBuildCmd() *cobra.Command {
	var outDir, archivePath, presenceDir string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build quad coverage over every configured source and export KVP tiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ts := toTilespace(cfg.Tilespace)

			dir := presenceDir
			if dir == "" {
				dir = cfg.PresenceDir
			}

			mgr, err := sourcemgr.New(cfg.CacheSize)
			if err != nil {
				return err
			}

			sets := make([]*quadexport.BuildSet, 0, len(cfg.Sources))
			sources := make(map[int]record.Source, len(cfg.Sources))
			for i, sc := range cfg.Sources {
				src, err := mgr.Acquire(sc.Path+sc.Table, func() (record.Source, error) { return pipelinesrc.Open(cfg, sc) })
				if err != nil {
					return err
				}
				sources[i] = src

				idx := geoindex.New(ts, cfg.OversizeFactor, ts.MaxLevel)
				boxes := make([]geoindex.BBox, 0, src.NumFeatures())
				for id := 0; id < src.NumFeatures(); id++ {
					geom, err := src.Geometry(id)
					if err != nil {
						return err
					}
					b, ok := boundOf(geom)
					if !ok {
						continue
					}
					idx.Insert(id, b)
					boxes = append(boxes, b)
				}
				idx.Finalize()

				if dir != "" {
					if err := buildAndWritePresenceFile(ts, boxes, presencefile.PathFor(dir, sc.Name)); err != nil {
						return err
					}
				}

				sets = append(sets, &quadexport.BuildSet{
					FilterID:      i,
					GeoIndex:      idx,
					PrimType:      quadexport.PrimPolygon,
					EndLevel:      uint32(ts.MaxLevel),
					MaxBuildLevel: uint32(ts.MaxLevel),
				})
			}

			var exporter quadexport.FullResExporter = &tileexport.Exporter{OutDir: outDir, Sources: sources}
			var archive *tileexport.ArchiveExporter
			if archivePath != "" {
				archive = &tileexport.ArchiveExporter{Sources: sources}
				if err := archive.Open(archivePath); err != nil {
					return err
				}
				exporter = &multiExporter{exporters: []quadexport.FullResExporter{exporter, archive}}
			}
			qe := &quadexport.QuadExporter{Tilespace: ts, Sets: sets, Exporter: exporter}

			ctx, cancel := signalContext()
			defer cancel()
			runErr := qe.Run(ctx)
			if archive != nil {
				if err := archive.Close(); err != nil && runErr == nil {
					runErr = err
				}
			}
			if runErr != nil {
				return runErr
			}
			fmt.Printf("build complete: %d sources, output in %s\n", len(cfg.Sources), outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "out", "output directory for exported KVP tiles")
	cmd.Flags().StringVar(&archivePath, "pmtiles", "", "optional path to also bundle every exported quad into a PMTiles archive")
	cmd.Flags().StringVar(&presenceDir, "presence-dir", "", "optional directory to write one presence-mask file per source (defaults to the config's presence_dir)")
	return cmd
}

// buildAndWritePresenceFile derives a presence mask from a source's feature
// bounding boxes and writes it to path. The mask is cropped to the union of
// the boxes (via InsetCoverage) rather than the whole world, and capped at
// presenceCLIMaxLevel, so it stays a reasonably sized diagnostic file
// instead of a dense bitmap at the pyramid's full depth.
func buildAndWritePresenceFile(ts tilespace.Tilespace, boxes []geoindex.BBox, path string) error {
	if len(boxes) == 0 {
		return nil
	}
	union := boxes[0]
	for _, b := range boxes[1:] {
		union = geoindex.BBox{
			West:  math.Min(union.West, b.West),
			East:  math.Max(union.East, b.East),
			South: math.Min(union.South, b.South),
			North: math.Max(union.North, b.North),
		}
	}

	endLevel := ts.MaxLevel
	if endLevel > presenceCLIMaxLevel {
		endLevel = presenceCLIMaxLevel
	}

	normExtents := tilespace.NewExtents[float64](tilespace.NSEWOrder, union.North, union.South, union.East, union.West)
	fullLC := tilespace.FromNormExtents(ts, normExtents, endLevel, endLevel)
	ic := coverage.NewInsetCoverageFromLevelCoverage(ts, fullLC, 0, endLevel+1)

	mask := coverage.NewPresenceMask(0, endLevel+1)
	extentsByLevel := make(map[uint]tilespace.Extents[uint32], endLevel+1)
	for level := uint(0); level <= endLevel; level++ {
		ext := ic.LevelExtents(level)
		mask.SetLevelMask(level, coverage.NewLevelPresenceMask(level, ext))
		extentsByLevel[level] = ext
	}

	tiles := ts.TilesAtLevel(endLevel)
	for _, b := range boxes {
		col := clampTile(uint32(((b.West+b.East)/2)*float64(tiles)), tiles)
		row := clampTile(uint32(((b.South+b.North)/2)*float64(tiles)), tiles)
		mask.SetPresenceCascade(quadtree.New(uint32(endLevel), row, col))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return coreerr.Wrap(coreerr.IoFailure, "buildAndWritePresenceFile", err).WithPath(path)
	}
	return presencefile.Write(path, mask, extentsByLevel)
}

func clampTile(v, tiles uint32) uint32 {
	if v >= tiles {
		return tiles - 1
	}
	return v
}

// multiExporter fans a single QuadExporter traversal out to several
// FullResExporter sinks, so a build can write KVP tiles and a PMTiles
// archive from the same pass without walking the pyramid twice.
type multiExporter struct {
	exporters []quadexport.FullResExporter
}

func (m *multiExporter) ExportQuad(ctx context.Context, quad quadtree.Path, selections map[int][]int, needLOD bool) error {
	for _, e := range m.exporters {
		if err := e.ExportQuad(ctx, quad, selections, needLOD); err != nil {
			return err
		}
	}
	return nil
}

// newInspectPresenceCmd reports whether a configured source is estimated
// present at a given tile address, reading the presence-mask file build
// writes out for that source.
func newInspectPresenceCmd() *cobra.Command {
	var presenceDir, sourceName, tileAddr string

	cmd := &cobra.Command{
		Use:   "inspect-presence",
		Short: "Report estimated presence for a tile address against a source's presence-mask file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir := presenceDir
			if dir == "" {
				dir = cfg.PresenceDir
			}
			if dir == "" {
				return coreerr.New(coreerr.InvalidArgument, "inspect-presence", "no presence directory configured; pass --presence-dir or set presence_dir in the config")
			}

			tile, err := parseTileAddress(tileAddr)
			if err != nil {
				return err
			}
			mask, _, err := presencefile.Read(presencefile.PathFor(dir, sourceName))
			if err != nil {
				return err
			}
			present := mask.EstimatedPresence(uint32(tile.Z), tile.Y, tile.X)
			fmt.Printf("source %q tile %s: presence=%v (mask levels [%d,%d))\n",
				sourceName, tileAddr, present, mask.BeginLevel(), mask.EndLevel())
			return nil
		},
	}
	cmd.Flags().StringVar(&presenceDir, "presence-dir", "", "directory containing presence-mask files written by build (defaults to the config's presence_dir)")
	cmd.Flags().StringVar(&sourceName, "source", "", "configured source name whose presence mask to inspect")
	cmd.Flags().StringVar(&tileAddr, "tile", "", "tile address as z/x/y")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("tile")
	return cmd
}

// parseTileAddress parses a "z/x/y" string into a maptile.Tile.
func parseTileAddress(s string) (maptile.Tile, error) {
	var z, x, y uint32
	if _, err := fmt.Sscanf(s, "%d/%d/%d", &z, &x, &y); err != nil {
		return maptile.Tile{}, coreerr.New(coreerr.InvalidArgument, "parseTileAddress", "expected tile address as z/x/y").WithPath(s)
	}
	return maptile.New(x, y, maptile.Zoom(z)), nil
}

// newServeCmd starts the read-only debug HTTP server.
func newServeCmd() *cobra.Command {
	var host, port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only debug/status HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			mgr, err := sourcemgr.New(cfg.CacheSize)
			if err != nil {
				return err
			}
			policy := &selector.SoftErrorPolicy{MaxSoftErrors: cfg.MaxSoftErrors}

			srv := debugserver.New(debugserver.Config{Host: host, Port: port}, mgr, policy, cfg)
			fmt.Printf("debug server listening on http://%s:%s\n", host, port)

			ctx, cancel := signalContext()
			defer cancel()
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "host to bind to")
	cmd.Flags().StringVar(&port, "port", "8087", "port to listen on")
	return cmd
}

func parseOp(s string) selector.Op {
	switch s {
	case "!=":
		return selector.OpNotEquals
	case "<":
		return selector.OpLessThan
	case ">":
		return selector.OpGreaterThan
	case "contains":
		return selector.OpContains
	default:
		return selector.OpEquals
	}
}

func parseFloatOrZero(s string) float64 {
	var f float64
	fmt.Sscanf(s, "%g", &f)
	return f
}

// boundOf extracts a feature's bounding box as a geoindex.BBox. Every
// record.Source in this pipeline returns orb.Geometry from Geometry().
func boundOf(geom any) (geoindex.BBox, bool) {
	g, ok := geom.(orb.Geometry)
	if !ok {
		return geoindex.BBox{}, false
	}
	b := g.Bound()
	return geoindex.BBox{West: b.Min[0], South: b.Min[1], East: b.Max[0], North: b.Max[1]}, true
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
