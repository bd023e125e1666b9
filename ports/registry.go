package ports

import (
	"context"

	"gotrubric/domain/frame"
)

// Scorer scores a model on features X against labels y. Higher is better;
// loss-type scorers must return the negated loss.
type Scorer func(ctx context.Context, model Model, X *frame.Frame, y frame.Series) (float64, error)

// SlicingFunc narrows a full table (features and target) to a sub-population.
// It must return a table with the same columns as its input.
type SlicingFunc func(df *frame.Frame) (*frame.Frame, error)
