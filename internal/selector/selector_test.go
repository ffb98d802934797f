package selector

import (
	"errors"
	"testing"

	"github.com/google/earthenterprise-sub002/internal/coreerr"
	"github.com/google/earthenterprise-sub002/internal/record"
)

type fakeSource struct {
	header *record.Header
	recs   []*record.Record
}

func (s *fakeSource) Header() *record.Header { return s.header }
func (s *fakeSource) NumFeatures() int       { return len(s.recs) }
func (s *fakeSource) RecordAt(id int) (*record.Record, error) {
	return s.recs[id], nil
}
func (s *fakeSource) Geometry(id int) (any, error) { return nil, nil }
func (s *fakeSource) Close() error                 { return nil }

func newFakeSource() *fakeSource {
	h := record.NewHeader([]record.FieldSpec{{Name: "kind", Type: record.FieldString}})
	mk := func(kind string) *record.Record {
		return &record.Record{Header: h, Fields: []record.Value{{Str: kind}}}
	}
	return &fakeSource{header: h, recs: []*record.Record{mk("highway"), mk("trail"), mk("highway")}}
}

func TestRunSelectsMatchingFeatures(t *testing.T) {
	src := newFakeSource()
	rule := &DisplayRule{
		Name: "highways",
		Filter: &Filter{
			Enabled: true,
			Match:   MatchAny,
			Rules:   []ExpressionEvaluator{Predicate{Column: "kind", Op: OpEquals, Value: record.Value{Str: "highway"}}},
		},
	}
	sel := &Selector{Source: src, Rules: []*DisplayRule{rule}, Level: 10}
	results, err := sel.Run(&SoftErrorPolicy{MaxSoftErrors: 0})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results[0].FeatureIDs) != 2 {
		t.Fatalf("FeatureIDs = %v, want 2 matches", results[0].FeatureIDs)
	}
}

func TestRunSkipsRuleOutsideResolutionRange(t *testing.T) {
	src := newFakeSource()
	rule := &DisplayRule{
		MinResolutionLevel: 12,
		Filter:             &Filter{Enabled: true, Match: MatchAny, Rules: []ExpressionEvaluator{Predicate{Column: "kind", Op: OpEquals, Value: record.Value{Str: "highway"}}}},
	}
	sel := &Selector{Source: src, Rules: []*DisplayRule{rule}, Level: 5}
	results, err := sel.Run(&SoftErrorPolicy{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].FeatureIDs != nil {
		t.Fatalf("expected no matches for out-of-range rule, got %v", results[0].FeatureIDs)
	}
}

type failingRule struct{ kind coreerr.Kind }

func (f failingRule) Evaluate(rec *record.Record) (bool, error) {
	return false, coreerr.New(f.kind, "test", "forced failure")
}

func TestSoftErrorPolicyToleratesUpToThreshold(t *testing.T) {
	src := newFakeSource()
	rule := &DisplayRule{Filter: &Filter{Enabled: true, Match: MatchAny, Rules: []ExpressionEvaluator{failingRule{kind: coreerr.InvalidAttribute}}}}
	sel := &Selector{Source: src, Rules: []*DisplayRule{rule}, Level: 0}
	policy := &SoftErrorPolicy{MaxSoftErrors: 10}
	if _, err := sel.Run(policy); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if policy.SoftErrorCount() != len(src.recs) {
		t.Fatalf("SoftErrorCount = %d, want %d", policy.SoftErrorCount(), len(src.recs))
	}
}

func TestHardErrorAbortsPass(t *testing.T) {
	src := newFakeSource()
	rule := &DisplayRule{Filter: &Filter{Enabled: true, Match: MatchAny, Rules: []ExpressionEvaluator{failingRule{kind: coreerr.ScriptError}}}}
	sel := &Selector{Source: src, Rules: []*DisplayRule{rule}, Level: 0}
	_, err := sel.Run(&SoftErrorPolicy{MaxSoftErrors: 100})
	if err == nil {
		t.Fatal("expected hard error to abort the pass")
	}
	if !errors.Is(err, err) { // sanity: err is non-nil and comparable
		t.Fatal("unexpected error identity")
	}
}
