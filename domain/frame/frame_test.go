package frame

import (
	"errors"
	"testing"

	"gotrubric/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passengers(t *testing.T) *Frame {
	t.Helper()
	f, err := New([]string{"Sex", "Age", "Survived"}, [][]any{
		{"male", 22, 0},
		{"female", 38.5, 1},
		{"male", 26, 1},
	})
	require.NoError(t, err)
	return f
}

func TestNewNormalizesNumbers(t *testing.T) {
	f := passengers(t)

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"Sex", "Age", "Survived"}, f.Columns())
	assert.Equal(t, float64(22), f.Value("Age", 0))
	assert.Equal(t, float64(1), f.Value("Survived", 1))
	assert.Equal(t, []int{0, 1, 2}, f.Index())
}

func TestNewRejectsRaggedRows(t *testing.T) {
	_, err := New([]string{"a", "b"}, [][]any{{1, 2}, {3}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrType))
}

func TestNewRejectsDuplicateColumns(t *testing.T) {
	_, err := New([]string{"a", "a"}, [][]any{{1, 2}})
	assert.True(t, errors.Is(err, core.ErrType))
}

func TestFilterKeepsIndexAndDoesNotMutate(t *testing.T) {
	f := passengers(t)

	males, err := f.Filter(func(row map[string]any) (bool, error) {
		return row["Sex"] == "male", nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, males.Len())
	assert.Equal(t, []int{0, 2}, males.Index())
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []int{0, 1, 2}, f.Index())
}

func TestSplitTarget(t *testing.T) {
	f := passengers(t)

	x, y, err := f.SplitTarget("Survived")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sex", "Age"}, x.Columns())
	assert.Equal(t, "Survived", y.Name)
	assert.Equal(t, []any{0.0, 1.0, 1.0}, y.Values)
	assert.True(t, f.HasColumn("Survived"))

	_, _, err = f.SplitTarget("Fare")
	assert.True(t, errors.Is(err, core.ErrMissingTarget))
}

func TestTakeAndHead(t *testing.T) {
	f := passengers(t)

	taken := f.Take([]int{2, 0})
	assert.Equal(t, []int{2, 0}, taken.Index())
	assert.Equal(t, "male", taken.Value("Sex", 0))

	head := taken.Head(1)
	assert.Equal(t, []int{2}, head.Index())
	assert.Equal(t, 0, f.Head(-1).Len())
	assert.Equal(t, 3, f.Head(10).Len())
}

func TestWithColumnReplacesWithoutMutating(t *testing.T) {
	f := passengers(t)

	g, err := f.WithColumn("Age", []any{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, float64(1), g.Value("Age", 0))
	assert.Equal(t, float64(22), f.Value("Age", 0))

	_, err = f.WithColumn("Age", []any{1})
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	a := passengers(t)
	b := passengers(t)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(a.Drop("Age")))
}

func TestSelect(t *testing.T) {
	f := passengers(t)
	s, err := f.Select("Age")
	require.NoError(t, err)
	assert.Equal(t, []string{"Age"}, s.Columns())

	_, err = f.Select("nope")
	assert.Error(t, err)
}

func TestSeriesFloats(t *testing.T) {
	floats, err := NewSeries("y", []any{1, int64(2), float32(0.5)}).Floats()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 0.5}, floats)

	_, err = NewSeries("y", []any{1, "two"}).Floats()
	assert.True(t, errors.Is(err, core.ErrType))
}

func TestDistinctOrdering(t *testing.T) {
	got := Distinct([]any{"b", 2, 1.0, "a", 2.0, true})
	assert.Equal(t, []any{1.0, 2.0, true, "a", "b"}, got)
}
