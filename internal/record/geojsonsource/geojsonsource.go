// Package geojsonsource implements record.Source over an in-memory
// GeoJSON FeatureCollection, using paulmach/orb/geojson for decoding.
package geojsonsource

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/earthenterprise-sub002/internal/coreerr"
	"github.com/google/earthenterprise-sub002/internal/record"
	"github.com/paulmach/orb/geojson"
)

// Source wraps a decoded geojson.FeatureCollection as a record.Source. Its
// columns are the union of every feature's property keys, sorted by key;
// each column's type comes from the first feature that has that key.
type Source struct {
	fc     *geojson.FeatureCollection
	header *record.Header
}

// Open reads and decodes a GeoJSON file from path.
func Open(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "geojsonsource.Open", err).WithPath(path)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidFormat, "geojsonsource.Open", err).WithPath(path)
	}
	return &Source{fc: fc, header: deriveHeader(fc)}, nil
}

func deriveHeader(fc *geojson.FeatureCollection) *record.Header {
	keys := map[string]bool{}
	for _, f := range fc.Features {
		for k := range f.Properties {
			keys[k] = true
		}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	specs := make([]record.FieldSpec, len(names))
	for i, name := range names {
		specs[i] = record.FieldSpec{Name: name, Type: inferType(fc, name)}
	}
	return record.NewHeader(specs)
}

func inferType(fc *geojson.FeatureCollection, name string) record.FieldType {
	for _, f := range fc.Features {
		v, ok := f.Properties[name]
		if !ok {
			continue
		}
		switch v.(type) {
		case float64:
			return record.FieldFloat64
		case bool:
			return record.FieldBool
		case string:
			return record.FieldString
		}
	}
	return record.FieldString
}

func (s *Source) Header() *record.Header { return s.header }

func (s *Source) NumFeatures() int { return len(s.fc.Features) }

func (s *Source) RecordAt(featureID int) (*record.Record, error) {
	if featureID < 0 || featureID >= len(s.fc.Features) {
		return nil, coreerr.New(coreerr.InvalidArgument, "geojsonsource.RecordAt", fmt.Sprintf("feature id %d out of range", featureID))
	}
	f := s.fc.Features[featureID]
	fields := make([]record.Value, s.header.NumColumns())
	for i := 0; i < s.header.NumColumns(); i++ {
		spec := s.header.Spec(i)
		raw, ok := f.Properties[spec.Name]
		if !ok {
			continue
		}
		fields[i] = toValue(spec.Type, raw)
	}
	return &record.Record{Header: s.header, Fields: fields}, nil
}

func toValue(t record.FieldType, raw any) record.Value {
	switch t {
	case record.FieldFloat64:
		if f, ok := raw.(float64); ok {
			return record.Value{Float: f}
		}
	case record.FieldBool:
		if b, ok := raw.(bool); ok {
			return record.Value{Bool: b}
		}
	case record.FieldString:
		if s, ok := raw.(string); ok {
			return record.Value{Str: s}
		}
	}
	return record.Value{Str: fmt.Sprintf("%v", raw)}
}

func (s *Source) Geometry(featureID int) (any, error) {
	if featureID < 0 || featureID >= len(s.fc.Features) {
		return nil, coreerr.New(coreerr.InvalidArgument, "geojsonsource.Geometry", fmt.Sprintf("feature id %d out of range", featureID))
	}
	return s.fc.Features[featureID].Geometry, nil
}

func (s *Source) Close() error { return nil }
