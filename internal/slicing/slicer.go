// Package slicing resolves named data slices over a table.
//
// A slice name is resolved, in order, as a registered slicing function, a
// registered declarative filter, or an inline boolean expression over the
// table's columns (for example `Sex == "male" && Age < 18`). A name that is
// none of these is an unknown slice; a slice that keeps no rows is an empty
// slice. The two are distinct error kinds.
package slicing

import (
	"fmt"
	"log/slog"
	"sort"

	"gotrubric/domain/core"
	"gotrubric/domain/frame"
	"gotrubric/ports"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
)

// Slicer applies named slices. It never mutates the tables it is given.
type Slicer struct {
	funcs   map[string]ports.SlicingFunc
	filters map[string]Filter
	logger  *slog.Logger
}

// New builds a slicer over caller-supplied slicing functions and filters.
// Both maps are copied; either may be nil.
func New(funcs map[string]ports.SlicingFunc, filters map[string]Filter, logger *slog.Logger) *Slicer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Slicer{
		funcs:   make(map[string]ports.SlicingFunc, len(funcs)),
		filters: make(map[string]Filter, len(filters)),
		logger:  logger,
	}
	for name, fn := range funcs {
		s.funcs[name] = fn
	}
	for name, f := range filters {
		s.filters[name] = f
	}
	return s
}

// Names lists the registered slicing functions and filters, sorted
func (s *Slicer) Names() []string {
	names := make([]string, 0, len(s.funcs)+len(s.filters))
	for name := range s.funcs {
		names = append(names, name)
	}
	for name := range s.filters {
		if _, dup := s.funcs[name]; !dup {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Slice returns the rows of df selected by the named slice. dataset is only
// used to label errors.
func (s *Slicer) Slice(df *frame.Frame, dataset, name string) (*frame.Frame, error) {
	var (
		out *frame.Frame
		err error
	)
	if fn, ok := s.funcs[name]; ok {
		out, err = s.applyFunc(df, dataset, name, fn)
	} else if f, ok := s.filters[name]; ok {
		out, err = df.Filter(f.Match)
	} else {
		out, err = s.applyExpression(df, dataset, name)
	}
	if err != nil {
		return nil, err
	}

	if out.Len() == 0 {
		return nil, core.NewEmptySliceError(dataset, name)
	}
	s.logger.Debug("data sliced",
		slog.String("dataset", dataset),
		slog.String("slice", name),
		slog.Int("rows", out.Len()))
	return out, nil
}

func (s *Slicer) applyFunc(df *frame.Frame, dataset, name string, fn ports.SlicingFunc) (*frame.Frame, error) {
	out, err := fn(df)
	if err != nil {
		return nil, fmt.Errorf("slicing function %q on %s: %w", name, dataset, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: %q returned no table", core.ErrSliceShape, name)
	}

	want := df.Columns()
	got := out.Columns()
	if len(got) != len(want) {
		return nil, fmt.Errorf("%w: %q returned columns %v, want %v", core.ErrSliceShape, name, got, want)
	}
	for _, col := range want {
		if !out.HasColumn(col) {
			return nil, fmt.Errorf("%w: %q dropped column %q", core.ErrSliceShape, name, col)
		}
	}
	// keep the source column order
	return out.Select(want...)
}

func (s *Slicer) applyExpression(df *frame.Frame, dataset, name string) (*frame.Frame, error) {
	program, refs, err := compileExpression(df, name)
	if err != nil {
		return nil, core.NewUnknownSliceError(dataset, name)
	}
	return df.Filter(func(row map[string]any) (bool, error) {
		keep, err := expr.Run(program, row)
		if err != nil {
			// a missing value never selects its row
			if refs.missingIn(row) {
				return false, nil
			}
			return false, fmt.Errorf("%w: evaluating slice %q: %v", core.ErrType, name, err)
		}
		b, _ := keep.(bool)
		return b, nil
	})
}

// columnRefs collects the identifiers an expression reads
type columnRefs map[string]bool

func (r columnRefs) Visit(node *ast.Node) {
	if id, ok := (*node).(*ast.IdentifierNode); ok {
		r[id.Value] = true
	}
}

func (r columnRefs) missingIn(row map[string]any) bool {
	for col := range r {
		if v, ok := row[col]; ok && v == nil {
			return true
		}
	}
	return false
}

// compileExpression type-checks name as a boolean expression whose
// identifiers are the table's columns. Each column is typed by its first
// non-missing value; an all-missing column is left untyped.
func compileExpression(df *frame.Frame, name string) (*vm.Program, columnRefs, error) {
	env := make(map[string]any, len(df.Columns()))
	for _, col := range df.Columns() {
		vals, _ := df.Column(col)
		for _, v := range vals {
			if v != nil {
				env[col] = v
				break
			}
		}
	}
	refs := columnRefs{}
	program, err := expr.Compile(name,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
		expr.Patch(refs))
	if err != nil {
		return nil, nil, err
	}
	for col := range refs {
		if !df.HasColumn(col) {
			return nil, nil, fmt.Errorf("unknown column %q", col)
		}
	}
	return program, refs, nil
}
