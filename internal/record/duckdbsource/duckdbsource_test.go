package duckdbsource

import (
	"testing"

	"github.com/google/earthenterprise-sub002/internal/record"
)

func TestColumnListPreservesOrder(t *testing.T) {
	s := &Source{cfg: Config{AttributeCols: []record.FieldSpec{
		{Name: "name", Type: record.FieldString},
		{Name: "height_m", Type: record.FieldFloat64},
		{Name: "lanes", Type: record.FieldInt64},
	}}}
	got := s.columnList()
	want := "name, height_m, lanes"
	if got != want {
		t.Fatalf("columnList() = %q, want %q", got, want)
	}
}

func TestHeaderMatchesConfiguredColumns(t *testing.T) {
	cfg := Config{AttributeCols: []record.FieldSpec{
		{Name: "id", Type: record.FieldInt64},
		{Name: "kind", Type: record.FieldString},
	}}
	s := &Source{cfg: cfg, header: record.NewHeader(cfg.AttributeCols)}
	if s.Header().NumColumns() != 2 {
		t.Fatalf("NumColumns() = %d, want 2", s.Header().NumColumns())
	}
	if s.Header().FieldPosByName("KIND") != 1 {
		t.Fatalf("case-insensitive lookup failed")
	}
}
