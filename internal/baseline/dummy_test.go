package baseline

import (
	"context"
	"testing"

	"gotrubric/domain/core"
	"gotrubric/domain/frame"
	"gotrubric/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func features(t *testing.T, n int) *frame.Frame {
	t.Helper()
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{i}
	}
	f, err := frame.New([]string{"x"}, rows)
	require.NoError(t, err)
	return f
}

func TestMostFrequentPicksSmallestOnTie(t *testing.T) {
	d, err := Fit(ports.KindClassifier, MostFrequent, Params{}, frame.NewSeries("y", []any{1, 0, 1, 0}))
	require.NoError(t, err)

	preds, err := d.Predict(context.Background(), features(t, 3))
	require.NoError(t, err)
	assert.Equal(t, []any{0.0, 0.0, 0.0}, preds)
}

func TestPriorMatchesMostFrequent(t *testing.T) {
	y := frame.NewSeries("y", []any{"a", "b", "b"})
	d, err := Fit(ports.KindClassifier, Prior, Params{}, y)
	require.NoError(t, err)

	preds, err := d.Predict(context.Background(), features(t, 2))
	require.NoError(t, err)
	assert.Equal(t, []any{"b", "b"}, preds)
}

func TestConstantStrategy(t *testing.T) {
	d, err := Fit(ports.KindClassifier, Constant, Params{Constant: 1}, frame.NewSeries("y", []any{0, 0}))
	require.NoError(t, err)
	preds, err := d.Predict(context.Background(), features(t, 2))
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 1.0}, preds)

	_, err = Fit(ports.KindClassifier, Constant, Params{}, frame.NewSeries("y", []any{0}))
	assert.True(t, core.IsTypeError(err))

	_, err = Fit(ports.KindRegressor, Constant, Params{Constant: "x"}, frame.NewSeries("y", []any{0}))
	assert.True(t, core.IsTypeError(err))
}

func TestRandomStrategiesAreReproducible(t *testing.T) {
	seed := int64(7)
	y := frame.NewSeries("y", []any{0, 1, 1, 2})

	for _, strategy := range []Strategy{Uniform, Stratified} {
		d, err := Fit(ports.KindClassifier, strategy, Params{RandomState: &seed}, y)
		require.NoError(t, err)

		first, err := d.Predict(context.Background(), features(t, 20))
		require.NoError(t, err)
		second, err := d.Predict(context.Background(), features(t, 20))
		require.NoError(t, err)
		assert.Equal(t, first, second, string(strategy))
		for _, p := range first {
			assert.Contains(t, []any{0.0, 1.0, 2.0}, p)
		}
	}
}

func TestRegressorStrategies(t *testing.T) {
	y := frame.NewSeries("y", []any{1, 2, 3, 10})
	q := 0.25

	tests := []struct {
		strategy Strategy
		params   Params
		want     float64
	}{
		{Mean, Params{}, 4},
		{Median, Params{}, 2.5},
		{Quantile, Params{Quantile: &q}, 1.75},
		{Constant, Params{Constant: 3.5}, 3.5},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			d, err := Fit(ports.KindRegressor, tt.strategy, tt.params, y)
			require.NoError(t, err)
			preds, err := d.Predict(context.Background(), features(t, 1))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, preds[0], 1e-12)
			assert.Equal(t, ports.KindRegressor, d.EstimatorKind())
			assert.Equal(t, tt.strategy, d.Strategy())
		})
	}
}

func TestInvalidStrategyAndParams(t *testing.T) {
	y := frame.NewSeries("y", []any{1, 2})

	_, err := Fit(ports.KindClassifier, Mean, Params{}, y)
	assert.True(t, core.IsTypeError(err))

	_, err = Fit(ports.KindRegressor, MostFrequent, Params{}, y)
	assert.True(t, core.IsTypeError(err))

	bad := 1.5
	_, err = Fit(ports.KindRegressor, Quantile, Params{Quantile: &bad}, y)
	assert.True(t, core.IsTypeError(err))

	_, err = Fit(ports.KindClassifier, MostFrequent, Params{}, frame.NewSeries("y", nil))
	assert.True(t, core.IsEmptyDataError(err))

	assert.Equal(t, []Strategy{Mean, Median, Quantile, Constant}, Strategies(ports.KindRegressor))
}
