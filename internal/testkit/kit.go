// Package testkit provides fixture datasets and models shared by tests.
//
// The passenger tables are small enough to check by hand: the survival
// classifier scores 0.5 accuracy on testing data (6 rows), 1.0 on training
// data (6 rows), 1.0 on the single female testing row and 0.4 on the five
// male testing rows. Class 0 is the most frequent training label.
package testkit

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"gotrubric/domain/frame"
	"gotrubric/internal/datacontext"
	"gotrubric/ports"
)

const Target = "Survived"

var passengerColumns = []string{"Sex", "Age", "Fare", "Pclass", Target}

// TestingData returns the six-row testing table
func TestingData() *frame.Frame {
	return mustFrame(passengerColumns, [][]any{
		{"male", 22.0, 7.25, 3, 0},
		{"female", 38.0, 71.28, 1, 1},
		{"male", 26.0, 7.92, 3, 1},
		{"male", 35.0, 53.1, 1, 0},
		{"male", 35.0, 8.05, 3, 1},
		{"male", 54.0, 51.86, 1, 1},
	})
}

// TrainingData returns the six-row training table
func TrainingData() *frame.Frame {
	return mustFrame(passengerColumns, [][]any{
		{"male", 30.0, 10.5, 2, 0},
		{"male", 40.0, 80.0, 1, 1},
		{"female", 9.0, 15.25, 3, 1},
		{"male", 19.0, 7.75, 3, 0},
		{"male", 61.0, 6.24, 3, 0},
		{"male", 45.0, 26.0, 2, 0},
	})
}

// DataContext returns the passenger data context with the first testing row
// as minimum functionality data
func DataContext() *datacontext.DataContext {
	dc, err := datacontext.New(TestingData(), TrainingData(), nil, Target)
	if err != nil {
		panic(err)
	}
	return dc
}

// SurvivalClassifier predicts survival for women and for fares above 50.
// It counts Predict calls so tests can observe caching.
type SurvivalClassifier struct {
	calls atomic.Int64
}

func (m *SurvivalClassifier) Predict(_ context.Context, X *frame.Frame) ([]any, error) {
	m.calls.Add(1)
	out := make([]any, X.Len())
	for i := 0; i < X.Len(); i++ {
		fare, _ := X.Value("Fare", i).(float64)
		if X.Value("Sex", i) == "female" || fare > 50 {
			out[i] = 1.0
		} else {
			out[i] = 0.0
		}
	}
	return out, nil
}

func (m *SurvivalClassifier) EstimatorKind() ports.EstimatorKind { return ports.KindClassifier }

// Calls returns how many times Predict ran
func (m *SurvivalClassifier) Calls() int64 { return m.calls.Load() }

// FareRegressor predicts a tenth of the fare
type FareRegressor struct{}

func (FareRegressor) Predict(_ context.Context, X *frame.Frame) ([]any, error) {
	out := make([]any, X.Len())
	for i := 0; i < X.Len(); i++ {
		fare, ok := X.Value("Fare", i).(float64)
		if !ok {
			return nil, fmt.Errorf("fare at row %d is not numeric", i)
		}
		out[i] = fare / 10
	}
	return out, nil
}

func (FareRegressor) EstimatorKind() ports.EstimatorKind { return ports.KindRegressor }

// ColumnModel echoes one feature column as its prediction
type ColumnModel struct {
	Column string
	Kind   ports.EstimatorKind
}

func (m ColumnModel) Predict(_ context.Context, X *frame.Frame) ([]any, error) {
	vals, ok := X.Column(m.Column)
	if !ok {
		return nil, fmt.Errorf("no column %q", m.Column)
	}
	return vals, nil
}

func (m ColumnModel) EstimatorKind() ports.EstimatorKind { return m.Kind }

// FailingModel always fails with Err
type FailingModel struct {
	Err error
}

func (m FailingModel) Predict(context.Context, *frame.Frame) ([]any, error) {
	return nil, m.Err
}

// CustomScorers returns caller-supplied scorers: my_custom_loss is the
// negated mean absolute error of the predictions
func CustomScorers() map[string]ports.Scorer {
	return map[string]ports.Scorer{
		"my_custom_loss": func(ctx context.Context, model ports.Model, X *frame.Frame, y frame.Series) (float64, error) {
			preds, err := model.Predict(ctx, X)
			if err != nil {
				return 0, err
			}
			p, err := frame.ToFloats(preds)
			if err != nil {
				return 0, err
			}
			truth, err := y.Floats()
			if err != nil {
				return 0, err
			}
			var sum float64
			for i := range truth {
				sum += math.Abs(truth[i] - p[i])
			}
			return -sum / float64(len(truth)), nil
		},
	}
}

// SlicingFunctions returns caller-supplied slicing functions, including one
// that returns a malformed table
func SlicingFunctions() map[string]ports.SlicingFunc {
	return map[string]ports.SlicingFunc{
		"female":   equals("Sex", "female"),
		"male":     equals("Sex", "male"),
		"children": below("Age", 5),
		"test_slice_function": func(df *frame.Frame) (*frame.Frame, error) {
			return df.Select("Sex")
		},
	}
}

func equals(column string, value any) ports.SlicingFunc {
	return func(df *frame.Frame) (*frame.Frame, error) {
		return df.Filter(func(row map[string]any) (bool, error) {
			return row[column] == value, nil
		})
	}
}

func below(column string, limit float64) ports.SlicingFunc {
	return func(df *frame.Frame) (*frame.Frame, error) {
		return df.Filter(func(row map[string]any) (bool, error) {
			v, ok := row[column].(float64)
			return ok && v < limit, nil
		})
	}
}

// SignalFrames returns train and test tables for importance checks. The
// "a" column carries the label in training data and is constant in testing
// data; "b" never matters to ColumnModel{Column: "a"}.
func SignalFrames() (train, test *frame.Frame) {
	cols := []string{"b", "a", "y"}
	train = mustFrame(cols, [][]any{
		{5, 0, 0}, {5, 1, 1}, {5, 0, 0}, {5, 1, 1},
		{5, 0, 0}, {5, 1, 1}, {5, 0, 0}, {5, 1, 1},
	})
	test = mustFrame(cols, [][]any{
		{1, 1, 1}, {2, 1, 1}, {3, 1, 0}, {4, 1, 1},
		{5, 1, 0}, {6, 1, 1}, {7, 1, 1}, {8, 1, 0},
	})
	return train, test
}

func mustFrame(columns []string, rows [][]any) *frame.Frame {
	f, err := frame.New(columns, rows)
	if err != nil {
		panic(err)
	}
	return f
}
