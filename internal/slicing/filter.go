package slicing

import (
	"fmt"

	"gotrubric/domain/core"
	"gotrubric/domain/frame"
)

// Op is a comparison used by declarative filters
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
	OpIn Op = "in"
)

// Filter is a declarative row predicate: Column Op Value.
// For OpIn, Value must be a slice of candidate values.
type Filter struct {
	Column string `json:"column" yaml:"column"`
	Op     Op     `json:"op" yaml:"op"`
	Value  any    `json:"value" yaml:"value"`
}

// Eq is shorthand for an equality filter
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// Match evaluates the filter against one row
func (f Filter) Match(row map[string]any) (bool, error) {
	got, ok := row[f.Column]
	if !ok {
		return false, fmt.Errorf("%w: filter column %q does not exist", core.ErrConfiguration, f.Column)
	}
	got = frame.Normalize(got)

	switch f.Op {
	case OpEq, "":
		return got == frame.Normalize(f.Value), nil
	case OpNe:
		return got != frame.Normalize(f.Value), nil
	case OpIn:
		candidates, ok := f.Value.([]any)
		if !ok {
			return false, fmt.Errorf("%w: filter %q in expects a list, got %T", core.ErrType, f.Column, f.Value)
		}
		for _, c := range candidates {
			if got == frame.Normalize(c) {
				return true, nil
			}
		}
		return false, nil
	case OpLt, OpLe, OpGt, OpGe:
		return f.order(got)
	default:
		return false, fmt.Errorf("%w: unsupported filter operator %q", core.ErrType, f.Op)
	}
}

func (f Filter) order(got any) (bool, error) {
	want := frame.Normalize(f.Value)
	if got == nil {
		return false, nil
	}
	var cmp int
	switch g := got.(type) {
	case float64:
		w, ok := want.(float64)
		if !ok {
			return false, fmt.Errorf("%w: cannot compare number column %q with %T", core.ErrType, f.Column, f.Value)
		}
		cmp = compare(g < w, g > w)
	case string:
		w, ok := want.(string)
		if !ok {
			return false, fmt.Errorf("%w: cannot compare text column %q with %T", core.ErrType, f.Column, f.Value)
		}
		cmp = compare(g < w, g > w)
	default:
		return false, fmt.Errorf("%w: column %q holds unordered value %T", core.ErrType, f.Column, got)
	}

	switch f.Op {
	case OpLt:
		return cmp < 0, nil
	case OpLe:
		return cmp <= 0, nil
	case OpGt:
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

func compare(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}
