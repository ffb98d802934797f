package sourcemgr

import (
	"testing"

	"github.com/google/earthenterprise-sub002/internal/geomtypes"
	"github.com/google/earthenterprise-sub002/internal/record"
	"github.com/paulmach/orb"
)

type nopSource struct{ closed bool }

func (s *nopSource) Header() *record.Header                    { return nil }
func (s *nopSource) NumFeatures() int                           { return 0 }
func (s *nopSource) RecordAt(int) (*record.Record, error)       { return nil, nil }
func (s *nopSource) Geometry(int) (any, error)                  { return nil, nil }
func (s *nopSource) Close() error                               { s.closed = true; return nil }

func TestAcquireShareReleaseClosesOnLastRelease(t *testing.T) {
	m, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	src := &nopSource{}
	opened := 0
	open := func() (record.Source, error) { opened++; return src, nil }

	if _, err := m.Acquire("path/a", open); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := m.Acquire("path/a", open); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if opened != 1 {
		t.Fatalf("open called %d times, want 1 (second acquire should share)", opened)
	}

	if err := m.Release("path/a"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if src.closed {
		t.Fatal("closed after first of two releases")
	}
	if err := m.Release("path/a"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if !src.closed {
		t.Fatal("not closed after last release")
	}
}

func TestGeodeCacheRoundTrips(t *testing.T) {
	m, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	id := record.RecordID{SourceID: 1, FeatureID: 2}
	if _, ok := m.CachedGeode(id); ok {
		t.Fatal("expected miss before insert")
	}
	g := geomtypes.NewPoint(orb.Point{1, 2})
	m.PutGeode(id, g)
	got, ok := m.CachedGeode(id)
	if !ok || got.Geometry != g.Geometry {
		t.Fatal("expected cache hit with inserted geode")
	}
	if m.Stats().GeodeCount != 1 {
		t.Fatalf("GeodeCount = %d, want 1", m.Stats().GeodeCount)
	}
}
