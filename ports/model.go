package ports

import (
	"context"

	"gotrubric/domain/frame"
)

// Model is the model under validation. Only prediction is required.
type Model interface {
	// Predict returns one prediction per row of X
	Predict(ctx context.Context, X *frame.Frame) ([]any, error)
}

// EstimatorKind tells classifier-only and regressor-only rules what a model is
type EstimatorKind string

const (
	KindClassifier EstimatorKind = "classifier"
	KindRegressor  EstimatorKind = "regressor"
)

// Estimator is a Model that declares its kind
type Estimator interface {
	Model
	EstimatorKind() EstimatorKind
}

// KindOf returns the declared kind of m, if any
func KindOf(m Model) (EstimatorKind, bool) {
	e, ok := m.(Estimator)
	if !ok {
		return "", false
	}
	kind := e.EstimatorKind()
	return kind, kind != ""
}

// ModelFunc adapts a plain prediction function to Model
type ModelFunc func(ctx context.Context, X *frame.Frame) ([]any, error)

// Predict calls f
func (f ModelFunc) Predict(ctx context.Context, X *frame.Frame) ([]any, error) {
	return f(ctx, X)
}

// WithKind attaches an estimator kind to a model
func WithKind(m Model, kind EstimatorKind) Estimator {
	return kindedModel{Model: m, kind: kind}
}

type kindedModel struct {
	Model
	kind EstimatorKind
}

func (k kindedModel) EstimatorKind() EstimatorKind { return k.kind }
