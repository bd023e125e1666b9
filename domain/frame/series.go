package frame

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"gotrubric/domain/core"
)

// Series is a single labeled column, typically the target of a dataset
type Series struct {
	Name   string
	Values []any
	Index  []int
}

// NewSeries builds a series with a positional index
func NewSeries(name string, values []any) Series {
	normalized := make([]any, len(values))
	index := make([]int, len(values))
	for i, v := range values {
		normalized[i] = Normalize(v)
		index[i] = i
	}
	return Series{Name: name, Values: normalized, Index: index}
}

// Len returns the number of values
func (s Series) Len() int {
	return len(s.Values)
}

// Floats converts every value to float64
func (s Series) Floats() ([]float64, error) {
	return ToFloats(s.Values)
}

// Equal reports whether both series have the same name, index and values
func (s Series) Equal(other Series) bool {
	return s.Name == other.Name &&
		reflect.DeepEqual(s.Index, other.Index) &&
		reflect.DeepEqual(s.Values, other.Values)
}

// Normalize maps every numeric kind to float64 so that labels compare equal
// regardless of how the caller typed them. Strings, bools and nil pass through.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, string, bool, float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	default:
		return v
	}
}

// ToFloats converts values to float64, failing on anything non-numeric
func ToFloats(values []any) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		f, ok := Normalize(v).(float64)
		if !ok {
			return nil, fmt.Errorf("%w: value %v at position %d is not numeric", core.ErrType, v, i)
		}
		out[i] = f
	}
	return out, nil
}

// Distinct returns the distinct values in a deterministic order:
// numbers ascending, then bools, then strings, then anything else.
func Distinct(values []any) []any {
	seen := make(map[any]bool)
	var out []any
	for _, v := range values {
		v = Normalize(v)
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// Less orders values across kinds for deterministic output
func Less(a, b any) bool {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		return ra < rb
	}
	switch x := a.(type) {
	case float64:
		y := b.(float64)
		if math.IsNaN(x) {
			return false
		}
		return x < y || math.IsNaN(y)
	case bool:
		return !x && b.(bool)
	case string:
		return x < b.(string)
	default:
		return fmt.Sprint(a) < fmt.Sprint(b)
	}
}

func kindRank(v any) int {
	switch v.(type) {
	case float64:
		return 0
	case bool:
		return 1
	case string:
		return 2
	case nil:
		return 4
	default:
		return 3
	}
}
