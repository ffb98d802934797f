// Package selector applies per-layer display rules to a record.Source's
// features: each Filter evaluates a boolean expression against a feature's
// Record to decide whether it matches, subject to a resolution-level range
// and a soft-error tolerance for evaluation failures.
//
// Grounded on earth_enterprise/src/fusion/gst/gstFilter.h and gstSelector.h.
package selector

import (
	"github.com/google/earthenterprise-sub002/internal/coreerr"
	"github.com/google/earthenterprise-sub002/internal/record"
)

// MatchType mirrors FilterConfig::MatchType: how a filter's select rules
// combine into a single match decision.
type MatchType int

const (
	MatchAny MatchType = iota
	MatchAll
)

// ExpressionEvaluator evaluates a compiled selection expression against one
// feature's Record, returning whether it matches. Implementations range
// from a structured predicate tree to an embedded scripting engine; the
// selector package depends only on this interface.
type ExpressionEvaluator interface {
	Evaluate(rec *record.Record) (bool, error)
}

// DisplayRule is one named rendering pass over a layer: a resolution range
// and the filter chain that must match for a feature to be included in it.
type DisplayRule struct {
	Name                string
	MinResolutionLevel  uint32
	MaxResolutionLevel  uint32
	Filter              *Filter
}

// InRange reports whether level falls within [MinResolutionLevel,
// MaxResolutionLevel]. A zero MaxResolutionLevel means unbounded, matching
// the original's "0 means no limit" convention for optional level fields.
func (d *DisplayRule) InRange(level uint32) bool {
	if level < d.MinResolutionLevel {
		return false
	}
	if d.MaxResolutionLevel != 0 && level > d.MaxResolutionLevel {
		return false
	}
	return true
}

// Filter bundles a match-combination policy with the individual select
// rules (expressions) it combines.
type Filter struct {
	Name    string
	Match   MatchType
	Enabled bool
	Rules   []ExpressionEvaluator
}

// TryApply evaluates all of a filter's rules against rec, combining results
// per Match, and folds any per-rule evaluation error into the supplied
// SoftErrorPolicy rather than aborting outright -- a script failure on one
// feature should not abort the whole pass.
func (f *Filter) TryApply(rec *record.Record, policy *SoftErrorPolicy) (bool, error) {
	if !f.Enabled || len(f.Rules) == 0 {
		return false, nil
	}
	switch f.Match {
	case MatchAll:
		for _, rule := range f.Rules {
			ok, err := evalOrRecordSoft(rule, rec, policy)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	default: // MatchAny
		for _, rule := range f.Rules {
			ok, err := evalOrRecordSoft(rule, rec, policy)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

func evalOrRecordSoft(rule ExpressionEvaluator, rec *record.Record, policy *SoftErrorPolicy) (bool, error) {
	ok, err := rule.Evaluate(rec)
	if err == nil {
		return ok, nil
	}
	if coreerr.Of(err, coreerr.ScriptError) {
		return false, err // script compile/eval failures are always fatal
	}
	if policy.Tolerate(err) {
		return false, nil
	}
	return false, err
}

// SoftErrorPolicy counts soft (tolerable) errors across a pass and reports
// whether the pass must abort once a configured threshold is exceeded.
type SoftErrorPolicy struct {
	MaxSoftErrors int
	count         int
}

// Tolerate records err if it is a soft coreerr.Error and the threshold has
// not yet been crossed. It returns false (do not tolerate, caller should
// propagate) once count exceeds MaxSoftErrors, or immediately for hard
// errors.
func (p *SoftErrorPolicy) Tolerate(err error) bool {
	e, ok := err.(*coreerr.Error)
	if !ok || !e.Kind.Soft() {
		return false
	}
	p.count++
	if p.MaxSoftErrors >= 0 && p.count > p.MaxSoftErrors {
		return false
	}
	return true
}

// SoftErrorCount returns the number of soft errors tolerated so far.
func (p *SoftErrorPolicy) SoftErrorCount() int { return p.count }

// Selector runs a layer's DisplayRules against a record.Source, producing
// the matching feature ids per rule.
type Selector struct {
	Source record.Source
	Rules  []*DisplayRule
	Level  uint32
}

// Result is one DisplayRule's matching feature ids for a Run.
type Result struct {
	Rule       *DisplayRule
	FeatureIDs []int
}

// Run evaluates every in-range display rule against every feature in the
// source, returning one Result per rule in Rules order.
func (s *Selector) Run(policy *SoftErrorPolicy) ([]Result, error) {
	results := make([]Result, 0, len(s.Rules))
	for _, rule := range s.Rules {
		if !rule.InRange(s.Level) {
			results = append(results, Result{Rule: rule})
			continue
		}
		var matched []int
		for id := 0; id < s.Source.NumFeatures(); id++ {
			rec, err := s.Source.RecordAt(id)
			if err != nil {
				return nil, err
			}
			ok, err := rule.Filter.TryApply(rec, policy)
			if err != nil {
				return nil, err
			}
			if ok {
				matched = append(matched, id)
			}
		}
		results = append(results, Result{Rule: rule, FeatureIDs: matched})
	}
	return results, nil
}
