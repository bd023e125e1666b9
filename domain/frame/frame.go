// Package frame holds the labeled tables the validator scores models against.
//
// A Frame never changes after construction: filtering, selecting and
// dropping columns return new frames that keep the original row index, so a
// slice of a table still reports which source rows it came from.
package frame

import (
	"fmt"
	"reflect"

	"gotrubric/domain/core"
)

// Frame is an immutable, column-oriented labeled table
type Frame struct {
	columns []string
	data    map[string][]any
	index   []int
}

// New builds a frame from row-major values. Every row must have one value per column.
func New(columns []string, rows [][]any) (*Frame, error) {
	data := make(map[string][]any, len(columns))
	for _, col := range columns {
		data[col] = make([]any, 0, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", core.ErrType, i, len(row), len(columns))
		}
		for j, col := range columns {
			data[col] = append(data[col], Normalize(row[j]))
		}
	}
	return build(columns, data, nil)
}

// FromColumns builds a frame from column-major values
func FromColumns(columns []string, values map[string][]any) (*Frame, error) {
	data := make(map[string][]any, len(columns))
	for _, col := range columns {
		vals, ok := values[col]
		if !ok {
			return nil, fmt.Errorf("%w: column %q has no values", core.ErrType, col)
		}
		normalized := make([]any, len(vals))
		for i, v := range vals {
			normalized[i] = Normalize(v)
		}
		data[col] = normalized
	}
	return build(columns, data, nil)
}

func build(columns []string, data map[string][]any, index []int) (*Frame, error) {
	seen := make(map[string]bool, len(columns))
	n := -1
	for _, col := range columns {
		if seen[col] {
			return nil, fmt.Errorf("%w: duplicate column %q", core.ErrType, col)
		}
		seen[col] = true
		if n == -1 {
			n = len(data[col])
		} else if len(data[col]) != n {
			return nil, fmt.Errorf("%w: column %q has %d values, want %d", core.ErrType, col, len(data[col]), n)
		}
	}
	if n == -1 {
		n = len(index)
	}
	if index == nil {
		index = make([]int, n)
		for i := range index {
			index[i] = i
		}
	}
	if len(index) != n {
		return nil, fmt.Errorf("%w: index has %d labels, want %d", core.ErrType, len(index), n)
	}
	return &Frame{
		columns: append([]string(nil), columns...),
		data:    data,
		index:   index,
	}, nil
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.index)
}

// Columns returns the column names in order
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// HasColumn reports whether the frame has the named column
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Column returns a copy of the named column's values
func (f *Frame) Column(name string) ([]any, bool) {
	vals, ok := f.data[name]
	if !ok {
		return nil, false
	}
	return append([]any(nil), vals...), true
}

// Value returns the value at row position i of the named column
func (f *Frame) Value(column string, i int) any {
	return f.data[column][i]
}

// Index returns the source row labels of each row
func (f *Frame) Index() []int {
	return append([]int(nil), f.index...)
}

// Row returns the values of row position i keyed by column name
func (f *Frame) Row(i int) map[string]any {
	row := make(map[string]any, len(f.columns))
	for _, col := range f.columns {
		row[col] = f.data[col][i]
	}
	return row
}

// Drop returns a frame without the named column. Dropping a missing column is a no-op.
func (f *Frame) Drop(name string) *Frame {
	columns := make([]string, 0, len(f.columns))
	data := make(map[string][]any, len(f.columns))
	for _, col := range f.columns {
		if col == name {
			continue
		}
		columns = append(columns, col)
		data[col] = f.data[col]
	}
	return &Frame{columns: columns, data: data, index: f.index}
}

// Select returns a frame restricted to the given columns, in the given order
func (f *Frame) Select(columns ...string) (*Frame, error) {
	data := make(map[string][]any, len(columns))
	for _, col := range columns {
		vals, ok := f.data[col]
		if !ok {
			return nil, fmt.Errorf("%w: no column %q", core.ErrType, col)
		}
		data[col] = vals
	}
	return build(columns, data, f.index)
}

// Take returns the rows at the given positions, keeping their index labels
func (f *Frame) Take(positions []int) *Frame {
	data := make(map[string][]any, len(f.columns))
	for _, col := range f.columns {
		src := f.data[col]
		vals := make([]any, len(positions))
		for i, p := range positions {
			vals[i] = src[p]
		}
		data[col] = vals
	}
	index := make([]int, len(positions))
	for i, p := range positions {
		index[i] = f.index[p]
	}
	return &Frame{columns: append([]string(nil), f.columns...), data: data, index: index}
}

// Head returns the first n rows
func (f *Frame) Head(n int) *Frame {
	if n > f.Len() {
		n = f.Len()
	}
	if n < 0 {
		n = 0
	}
	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}
	return f.Take(positions)
}

// Filter returns the rows for which keep returns true
func (f *Frame) Filter(keep func(row map[string]any) (bool, error)) (*Frame, error) {
	var positions []int
	for i := 0; i < f.Len(); i++ {
		ok, err := keep(f.Row(i))
		if err != nil {
			return nil, err
		}
		if ok {
			positions = append(positions, i)
		}
	}
	return f.Take(positions), nil
}

// WithColumn returns a frame where the named column holds values.
// The column is appended when it does not exist yet.
func (f *Frame) WithColumn(name string, values []any) (*Frame, error) {
	if len(values) != f.Len() {
		return nil, fmt.Errorf("%w: column %q has %d values, want %d", core.ErrType, name, len(values), f.Len())
	}
	columns := f.Columns()
	if !f.HasColumn(name) {
		columns = append(columns, name)
	}
	data := make(map[string][]any, len(columns))
	for _, col := range f.columns {
		data[col] = f.data[col]
	}
	normalized := make([]any, len(values))
	for i, v := range values {
		normalized[i] = Normalize(v)
	}
	data[name] = normalized
	return &Frame{columns: columns, data: data, index: f.index}, nil
}

// Series returns the named column as a Series
func (f *Frame) Series(name string) (Series, error) {
	vals, ok := f.Column(name)
	if !ok {
		return Series{}, fmt.Errorf("%w: no column %q", core.ErrType, name)
	}
	return Series{Name: name, Values: vals, Index: f.Index()}, nil
}

// SplitTarget separates the target column from the feature columns
func (f *Frame) SplitTarget(target string) (*Frame, Series, error) {
	y, err := f.Series(target)
	if err != nil {
		return nil, Series{}, fmt.Errorf("%w %q", core.ErrMissingTarget, target)
	}
	return f.Drop(target), y, nil
}

// Equal reports whether both frames have the same columns, index and values
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	return reflect.DeepEqual(f.columns, other.columns) &&
		reflect.DeepEqual(f.index, other.index) &&
		reflect.DeepEqual(f.data, other.data)
}
