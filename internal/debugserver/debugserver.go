// Package debugserver exposes read-only HTTP status/debug endpoints over
// the running pipeline: a health check, SourceManager cache occupancy,
// soft-error counts, estimated presence read from a source's presence
// file, and an on-demand selector run against a configured source. There
// is no progress endpoint. It never mutates pipeline state.
//
// Grounded on the teacher's huma/v2 + humago server wiring
// (internal/server/server.go, internal/api/info.go): humago is the
// pure-stdlib adapter; huma.Get registers the status operations and
// huma.Post the selector run.
package debugserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/google/uuid"
	"github.com/paulmach/orb/maptile"
	log "github.com/sirupsen/logrus"

	"github.com/google/earthenterprise-sub002/internal/coreerr"
	"github.com/google/earthenterprise-sub002/internal/coverage/presencefile"
	"github.com/google/earthenterprise-sub002/internal/pipelineconfig"
	"github.com/google/earthenterprise-sub002/internal/pipelinesrc"
	"github.com/google/earthenterprise-sub002/internal/record"
	"github.com/google/earthenterprise-sub002/internal/selector"
	"github.com/google/earthenterprise-sub002/internal/sourcemgr"
)

// Config configures the debug server's listen host and port.
type Config struct {
	Host string
	Port string
}

// Server is the pipeline's read-only debug HTTP server.
type Server struct {
	cfg         Config
	mux         *http.ServeMux
	humaAPI     huma.API
	manager     *sourcemgr.Manager
	policy      *selector.SoftErrorPolicy
	pipelineCfg pipelineconfig.Config
}

// New builds a Server wired to manager (for cache stats), policy (for
// soft-error counts), and pipelineCfg (for resolving configured sources by
// name and locating presence-mask files). manager and policy may be nil if
// that subsystem isn't running.
func New(cfg Config, manager *sourcemgr.Manager, policy *selector.SoftErrorPolicy, pipelineCfg pipelineconfig.Config) *Server {
	mux := http.NewServeMux()
	humaConfig := huma.DefaultConfig("gevectorquery debug API", "1.0.0")
	humaConfig.Info.Description = "Read-only status endpoints over a running vector tile-coverage pipeline."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local debug server"},
	}
	humaAPI := humago.New(mux, humaConfig)

	s := &Server{cfg: cfg, mux: mux, humaAPI: humaAPI, manager: manager, policy: policy, pipelineCfg: pipelineCfg}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	huma.Get(s.humaAPI, "/health", s.getHealth, huma.OperationTags("health"))
	huma.Get(s.humaAPI, "/api/v1/cache-stats", s.getCacheStats, huma.OperationTags("status"))
	huma.Get(s.humaAPI, "/api/v1/soft-errors", s.getSoftErrors, huma.OperationTags("status"))
	huma.Get(s.humaAPI, "/api/v1/presence/{inset}", s.getPresence, huma.OperationTags("coverage"))
	huma.Post(s.humaAPI, "/api/v1/select/{layer}", s.postSelect, huma.OperationTags("selection"))
}

// requestID tags every request with a fresh uuid for correlating a status
// probe with the debug server's own log output, the way a longer-running
// service would trace a request across handlers.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		log.WithFields(log.Fields{"request_id": id, "method": r.Method, "path": r.URL.Path}).Trace("debugserver request")
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe starts the HTTP server, blocking until ctx is cancelled
// or the server errors.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: requestID(s.mux)}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return httpServer.Close()
	case err := <-errCh:
		return err
	}
}

type healthOutput struct {
	Body struct {
		Status string `json:"status" doc:"\"ok\" when the server is serving"`
	}
}

func (s *Server) getHealth(ctx context.Context, input *struct{}) (*healthOutput, error) {
	var out healthOutput
	out.Body.Status = "ok"
	return &out, nil
}

type cacheStatsOutput struct {
	Body struct {
		GeodeCount    int `json:"geode_count" doc:"Entries in the geode cache"`
		MercatorCount int `json:"mercator_count" doc:"Entries in the mercator-reprojected geode cache"`
		RecordCount   int `json:"record_count" doc:"Entries in the attribute record cache"`
		OpenSources   int `json:"open_sources" doc:"Reference-counted open source handles"`
	}
}

func (s *Server) getCacheStats(ctx context.Context, input *struct{}) (*cacheStatsOutput, error) {
	var out cacheStatsOutput
	if s.manager != nil {
		stats := s.manager.Stats()
		out.Body.GeodeCount = stats.GeodeCount
		out.Body.MercatorCount = stats.MercatorCount
		out.Body.RecordCount = stats.RecordCount
		out.Body.OpenSources = stats.OpenSources
	}
	return &out, nil
}

type softErrorsOutput struct {
	Body struct {
		Count     int `json:"count" doc:"Soft errors tolerated so far"`
		Threshold int `json:"threshold" doc:"Configured max before escalation to a hard error"`
	}
}

func (s *Server) getSoftErrors(ctx context.Context, input *struct{}) (*softErrorsOutput, error) {
	var out softErrorsOutput
	if s.policy != nil {
		out.Body.Count = s.policy.SoftErrorCount()
		out.Body.Threshold = s.policy.MaxSoftErrors
	}
	return &out, nil
}

type presenceInput struct {
	Inset string `path:"inset" doc:"configured source name whose presence-mask file to query"`
	Tile  string `query:"tile" doc:"tile address as z/x/y"`
}

type presenceOutput struct {
	Body struct {
		Inset      string `json:"inset"`
		Tile       string `json:"tile"`
		Present    bool   `json:"present" doc:"estimated presence at the requested tile"`
		BeginLevel uint   `json:"begin_level" doc:"lowest level the presence-mask file covers"`
		EndLevel   uint   `json:"end_level" doc:"one past the highest level the presence-mask file covers"`
	}
}

// getPresence reports a configured source's estimated presence at a tile
// address, reading the presence-mask file the build command wrote for that
// source under pipelineCfg.PresenceDir.
func (s *Server) getPresence(ctx context.Context, input *presenceInput) (*presenceOutput, error) {
	if s.pipelineCfg.PresenceDir == "" {
		return nil, huma.Error404NotFound("no presence directory configured")
	}
	tile, err := parseTileAddress(input.Tile)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	mask, _, err := presencefile.Read(presencefile.PathFor(s.pipelineCfg.PresenceDir, input.Inset))
	if err != nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("no presence file for inset %q", input.Inset))
	}

	var out presenceOutput
	out.Body.Inset = input.Inset
	out.Body.Tile = input.Tile
	out.Body.Present = mask.EstimatedPresence(uint32(tile.Z), tile.Y, tile.X)
	out.Body.BeginLevel = mask.BeginLevel()
	out.Body.EndLevel = mask.EndLevel()
	return &out, nil
}

// parseTileAddress parses a "z/x/y" string into a maptile.Tile.
func parseTileAddress(s string) (maptile.Tile, error) {
	var z, x, y uint32
	if _, err := fmt.Sscanf(s, "%d/%d/%d", &z, &x, &y); err != nil {
		return maptile.Tile{}, coreerr.New(coreerr.InvalidArgument, "parseTileAddress", "expected tile address as z/x/y").WithPath(s)
	}
	return maptile.New(x, y, maptile.Zoom(z)), nil
}

type selectInput struct {
	Layer string `path:"layer" doc:"configured source name to run the predicate against"`
	Body  struct {
		Column string `json:"column" doc:"attribute column to test"`
		Op     string `json:"op" doc:"comparison operator: =, !=, <, >, contains" default:"="`
		Value  string `json:"value" doc:"comparison value"`
		Level  uint32 `json:"level" doc:"resolution level the rule is evaluated at"`
	}
}

type selectOutput struct {
	Body struct {
		Layer          string `json:"layer"`
		FeatureIDs     []int  `json:"feature_ids"`
		SoftErrorCount int    `json:"soft_error_count"`
	}
}

// postSelect runs a single predicate-based display rule against a
// configured source and returns the matching feature ids, the request-
// driven counterpart of the gevectorquery CLI's select command.
func (s *Server) postSelect(ctx context.Context, input *selectInput) (*selectOutput, error) {
	sc, err := pipelinesrc.Find(s.pipelineCfg, input.Layer)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	src, err := pipelinesrc.Open(s.pipelineCfg, sc)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	defer src.Close()

	pred := selector.Predicate{
		Column: input.Body.Column,
		Op:     parseSelectOp(input.Body.Op),
		Value:  record.Value{Str: input.Body.Value, Float: parseFloatOrZero(input.Body.Value)},
	}
	rule := &selector.DisplayRule{
		Name:   input.Layer,
		Filter: &selector.Filter{Name: input.Layer, Match: selector.MatchAll, Enabled: true, Rules: []selector.ExpressionEvaluator{pred}},
	}
	sel := &selector.Selector{Source: src, Rules: []*selector.DisplayRule{rule}, Level: input.Body.Level}
	policy := &selector.SoftErrorPolicy{MaxSoftErrors: s.pipelineCfg.MaxSoftErrors}

	results, err := sel.Run(policy)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}

	var out selectOutput
	out.Body.Layer = input.Layer
	out.Body.FeatureIDs = results[0].FeatureIDs
	out.Body.SoftErrorCount = policy.SoftErrorCount()
	return &out, nil
}

func parseSelectOp(s string) selector.Op {
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
