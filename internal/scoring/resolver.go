// Package scoring resolves metric names to scorers.
//
// Every scorer follows the higher-is-better convention. Loss metrics are
// registered negated (neg_mean_squared_error, max_error, ...) and custom
// loss scorers must be negated by their author, because the validator's
// threshold comparisons assume it.
package scoring

import (
	"sort"

	"gotrubric/domain/core"
	"gotrubric/ports"
)

// Built-in metric names
const (
	Accuracy                = "accuracy"
	BalancedAccuracy        = "balanced_accuracy"
	Precision               = "precision"
	Recall                  = "recall"
	F1                      = "f1"
	R2                      = "r2"
	ExplainedVariance       = "explained_variance"
	NegMeanSquaredError     = "neg_mean_squared_error"
	NegRootMeanSquaredError = "neg_root_mean_squared_error"
	NegMeanAbsoluteError    = "neg_mean_absolute_error"
	NegMedianAbsoluteError  = "neg_median_absolute_error"
	MaxError                = "max_error"
)

// Builtin returns a fresh copy of the built-in metric registry
func Builtin() map[string]ports.Scorer {
	return map[string]ports.Scorer{
		Accuracy:                FromPredictions(accuracy),
		BalancedAccuracy:        FromPredictions(balancedAccuracy),
		Precision:               FromPredictions(precision),
		Recall:                  FromPredictions(recall),
		F1:                      FromPredictions(f1),
		R2:                      FromFloatPredictions(r2),
		ExplainedVariance:       FromFloatPredictions(explainedVariance),
		NegMeanSquaredError:     FromFloatPredictions(negate(meanSquaredError)),
		NegRootMeanSquaredError: FromFloatPredictions(negate(rootMeanSquaredError)),
		NegMeanAbsoluteError:    FromFloatPredictions(negate(meanAbsoluteError)),
		NegMedianAbsoluteError:  FromFloatPredictions(negate(medianAbsoluteError)),
		MaxError:                FromFloatPredictions(negate(maxError)),
	}
}

// DefaultFor returns the metric an estimator of the given kind is scored
// with when no metric is named
func DefaultFor(kind ports.EstimatorKind) string {
	if kind == ports.KindRegressor {
		return R2
	}
	return Accuracy
}

// Resolver maps metric names to scorers. Custom scorers shadow built-ins.
type Resolver struct {
	custom  map[string]ports.Scorer
	builtin map[string]ports.Scorer
}

// NewResolver builds a resolver over the built-in registry and the caller's
// custom scorers. The custom map is copied.
func NewResolver(custom map[string]ports.Scorer) *Resolver {
	c := make(map[string]ports.Scorer, len(custom))
	for name, s := range custom {
		c[name] = s
	}
	return &Resolver{custom: c, builtin: Builtin()}
}

// Resolve looks the name up in custom scorers first, then built-ins
func (r *Resolver) Resolve(name string) (ports.Scorer, error) {
	if s, ok := r.custom[name]; ok && s != nil {
		return s, nil
	}
	if s, ok := r.builtin[name]; ok {
		return s, nil
	}
	return nil, core.NewUnsupportedMetricError(name)
}

// Names lists every resolvable metric name, sorted
func (r *Resolver) Names() []string {
	seen := make(map[string]bool, len(r.custom)+len(r.builtin))
	for name := range r.builtin {
		seen[name] = true
	}
	for name := range r.custom {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
