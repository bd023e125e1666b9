package scoring_test

import (
	"context"
	"errors"
	"testing"

	"gotrubric/domain/core"
	"gotrubric/domain/frame"
	"gotrubric/internal/datacontext"
	"gotrubric/internal/scoring"
	"gotrubric/internal/testkit"
	"gotrubric/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testingSplit(t *testing.T) (*frame.Frame, frame.Series) {
	t.Helper()
	X, y, err := testkit.DataContext().FeaturesAndLabels(datacontext.TestingData)
	require.NoError(t, err)
	return X, y
}

func TestResolveBuiltinClassificationMetrics(t *testing.T) {
	X, y := testingSplit(t)
	r := scoring.NewResolver(nil)

	// predictions 0,1,0,1,0,1 against labels 0,1,1,0,1,1
	tests := []struct {
		metric string
		want   float64
	}{
		{scoring.Accuracy, 0.5},
		{scoring.Precision, 2.0 / 3.0},
		{scoring.Recall, 0.5},
		{scoring.F1, 4.0 / 7.0},
		{scoring.BalancedAccuracy, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			scorer, err := r.Resolve(tt.metric)
			require.NoError(t, err)
			got, err := scorer(context.Background(), &testkit.SurvivalClassifier{}, X, y)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestLossMetricsAreNegated(t *testing.T) {
	X, y := testingSplit(t)
	r := scoring.NewResolver(nil)

	for _, metric := range []string{
		scoring.NegMeanSquaredError,
		scoring.NegRootMeanSquaredError,
		scoring.NegMeanAbsoluteError,
		scoring.MaxError,
	} {
		scorer, err := r.Resolve(metric)
		require.NoError(t, err)
		got, err := scorer(context.Background(), &testkit.SurvivalClassifier{}, X, y)
		require.NoError(t, err)
		assert.Less(t, got, 0.0, metric)
	}

	scorer, err := r.Resolve(scoring.NegMeanSquaredError)
	require.NoError(t, err)
	got, err := scorer(context.Background(), &testkit.SurvivalClassifier{}, X, y)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, got, 1e-12)
}

func TestRegressionMetrics(t *testing.T) {
	X, err := frame.New([]string{"x"}, [][]any{{1}, {2}, {3}, {4}})
	require.NoError(t, err)
	y := frame.NewSeries("y", []any{1, 2, 3, 4})
	perfect := testkit.ColumnModel{Column: "x", Kind: ports.KindRegressor}
	r := scoring.NewResolver(nil)

	for metric, want := range map[string]float64{
		scoring.R2:                     1,
		scoring.ExplainedVariance:      1,
		scoring.NegMedianAbsoluteError: 0,
	} {
		scorer, err := r.Resolve(metric)
		require.NoError(t, err)
		got, err := scorer(context.Background(), perfect, X, y)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-12, metric)
	}
}

func TestCustomScorerTakesPrecedence(t *testing.T) {
	X, y := testingSplit(t)
	custom := map[string]ports.Scorer{
		scoring.Accuracy: func(context.Context, ports.Model, *frame.Frame, frame.Series) (float64, error) {
			return 42, nil
		},
	}
	for name, s := range testkit.CustomScorers() {
		custom[name] = s
	}
	r := scoring.NewResolver(custom)

	acc, err := r.Resolve(scoring.Accuracy)
	require.NoError(t, err)
	got, err := acc(context.Background(), &testkit.SurvivalClassifier{}, X, y)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)

	loss, err := r.Resolve("my_custom_loss")
	require.NoError(t, err)
	got, err = loss(context.Background(), &testkit.SurvivalClassifier{}, X, y)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, got, 1e-12)
	assert.Contains(t, r.Names(), "my_custom_loss")
}

func TestResolveUnknownMetric(t *testing.T) {
	_, err := scoring.NewResolver(nil).Resolve("some_random_metric")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnsupportedMetric))
}

func TestScorerPropagatesModelErrors(t *testing.T) {
	X, y := testingSplit(t)
	boom := errors.New("inference exploded")
	scorer, err := scoring.NewResolver(nil).Resolve(scoring.Accuracy)
	require.NoError(t, err)

	_, err = scorer(context.Background(), testkit.FailingModel{Err: boom}, X, y)
	assert.ErrorIs(t, err, boom)
}

func TestScorerRejectsEmptyAndMisalignedInputs(t *testing.T) {
	X, y := testingSplit(t)
	scorer, err := scoring.NewResolver(nil).Resolve(scoring.Accuracy)
	require.NoError(t, err)

	_, err = scorer(context.Background(), &testkit.SurvivalClassifier{}, X.Head(0), frame.NewSeries("y", nil))
	assert.True(t, core.IsEmptyDataError(err))

	short := ports.ModelFunc(func(context.Context, *frame.Frame) ([]any, error) { return []any{1}, nil })
	_, err = scorer(context.Background(), short, X, y)
	assert.True(t, core.IsTypeError(err))
}

func TestNegMedianAbsoluteError(t *testing.T) {
	scorer, err := scoring.NewResolver(nil).Resolve(scoring.NegMedianAbsoluteError)
	require.NoError(t, err)
	model := testkit.ColumnModel{Column: "x", Kind: ports.KindRegressor}

	tests := []struct {
		name string
		x    []any
		y    []any
		want float64
	}{
		{"odd", []any{1, 2, 3}, []any{1, 4, 2}, -1},
		{"even averages middle residuals", []any{1, 2, 3, 4}, []any{1, 3, 6, 8}, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]any, len(tt.x))
			for i, v := range tt.x {
				rows[i] = []any{v}
			}
			X, err := frame.New([]string{"x"}, rows)
			require.NoError(t, err)
			got, err := scorer(context.Background(), model, X, frame.NewSeries("y", tt.y))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestDefaultFor(t *testing.T) {
	assert.Equal(t, ports.KindRegressor, ports.EstimatorKind("regressor"))
	assert.Equal(t, scoring.R2, scoring.DefaultFor(ports.KindRegressor))
	assert.Equal(t, scoring.Accuracy, scoring.DefaultFor(ports.KindClassifier))
}
