package selector

import (
	"fmt"
	"strings"

	"github.com/google/earthenterprise-sub002/internal/record"
)

// Op enumerates the comparison operators a structured Predicate supports.
type Op int

const (
	OpEquals Op = iota
	OpNotEquals
	OpLessThan
	OpGreaterThan
	OpContains
)

// Predicate is a built-in, non-scripted ExpressionEvaluator: compare one
// named column against a constant. Unknown columns never match rather than
// erroring, since a display rule is commonly reused across sources with
// slightly different schemas.
type Predicate struct {
	Column string
	Op     Op
	Value  record.Value
}

func (p Predicate) Evaluate(rec *record.Record) (bool, error) {
	v, ok := rec.FieldByName(p.Column)
	if !ok {
		return false, nil
	}
	spec := rec.Header.Spec(rec.Header.FieldPosByName(p.Column))
	switch spec.Type {
	case record.FieldFloat64:
		return compareFloat(v.Float, p.Value.Float, p.Op), nil
	case record.FieldInt64:
		return compareFloat(float64(v.Int), float64(p.Value.Int), p.Op), nil
	case record.FieldBool:
		return p.Op == OpEquals && v.Bool == p.Value.Bool, nil
	default:
		return compareString(v.Str, p.Value.Str, p.Op), nil
	}
}

func compareFloat(a, b float64, op Op) bool {
	switch op {
	case OpEquals:
		return a == b
	case OpNotEquals:
		return a != b
	case OpLessThan:
		return a < b
	case OpGreaterThan:
		return a > b
	default:
		return false
	}
}

func compareString(a, b string, op Op) bool {
	switch op {
	case OpEquals:
		return a == b
	case OpNotEquals:
		return a != b
	case OpContains:
		return strings.Contains(a, b)
	default:
		return false
	}
}

func (p Predicate) String() string {
	names := map[Op]string{OpEquals: "=", OpNotEquals: "!=", OpLessThan: "<", OpGreaterThan: ">", OpContains: "contains"}
	return fmt.Sprintf("%s %s %v", p.Column, names[p.Op], p.Value)
}
