// Package baseline provides naive, non-learning estimators used as a
// performance floor for the model under validation.
package baseline

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gotrubric/domain/core"
	"gotrubric/domain/frame"
	"gotrubric/ports"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Strategy selects how a dummy estimator predicts
type Strategy string

const (
	// classifier strategies
	MostFrequent Strategy = "most_frequent"
	Prior        Strategy = "prior"
	Stratified   Strategy = "stratified"
	Uniform      Strategy = "uniform"

	// regressor strategies
	Mean     Strategy = "mean"
	Median   Strategy = "median"
	Quantile Strategy = "quantile"

	// both
	Constant Strategy = "constant"
)

var strategiesByKind = map[ports.EstimatorKind][]Strategy{
	ports.KindClassifier: {MostFrequent, Prior, Stratified, Uniform, Constant},
	ports.KindRegressor:  {Mean, Median, Quantile, Constant},
}

// Strategies lists the strategies valid for kind
func Strategies(kind ports.EstimatorKind) []Strategy {
	return append([]Strategy(nil), strategiesByKind[kind]...)
}

// Params carries strategy-specific settings
type Params struct {
	Constant    any      `json:"constant,omitempty" yaml:"constant,omitempty"`
	Quantile    *float64 `json:"quantile,omitempty" yaml:"quantile,omitempty"`
	RandomState *int64   `json:"random_state,omitempty" yaml:"random_state,omitempty"`
}

// Dummy is a fitted naive estimator
type Dummy struct {
	kind     ports.EstimatorKind
	strategy Strategy
	seed     int64

	constant any
	classes  []any
	priors   []float64
}

var _ ports.Estimator = (*Dummy)(nil)

// Fit learns the baseline from training labels
func Fit(kind ports.EstimatorKind, strategy Strategy, params Params, y frame.Series) (*Dummy, error) {
	if !supports(kind, strategy) {
		return nil, core.NewInvalidArgumentError("strategy",
			fmt.Sprintf("%q is not a %s strategy (want one of %v)", strategy, kind, strategiesByKind[kind]))
	}
	if y.Len() == 0 {
		return nil, fmt.Errorf("%w: cannot fit a baseline on zero rows", core.ErrEmptyData)
	}

	d := &Dummy{kind: kind, strategy: strategy}
	if params.RandomState != nil {
		d.seed = *params.RandomState
	}

	switch strategy {
	case Constant:
		if params.Constant == nil {
			return nil, core.NewInvalidArgumentError("dummy_kwargs", "constant strategy requires a constant")
		}
		d.constant = frame.Normalize(params.Constant)
		if kind == ports.KindRegressor {
			if _, ok := d.constant.(float64); !ok {
				return nil, core.NewInvalidArgumentError("dummy_kwargs", "regressor constant must be numeric")
			}
		}
	case MostFrequent, Prior, Stratified, Uniform:
		d.classes, d.priors = classPriors(y.Values)
		d.constant = d.classes[argmax(d.priors)]
	case Mean, Median, Quantile:
		values, err := y.Floats()
		if err != nil {
			return nil, err
		}
		v, err := centralValue(strategy, params, values)
		if err != nil {
			return nil, err
		}
		d.constant = v
	}
	return d, nil
}

func supports(kind ports.EstimatorKind, strategy Strategy) bool {
	for _, s := range strategiesByKind[kind] {
		if s == strategy {
			return true
		}
	}
	return false
}

func centralValue(strategy Strategy, params Params, values []float64) (float64, error) {
	switch strategy {
	case Mean:
		return stat.Mean(values, nil), nil
	case Median:
		return stats.Median(values)
	default:
		if params.Quantile == nil || *params.Quantile < 0 || *params.Quantile > 1 {
			return 0, core.NewInvalidArgumentError("dummy_kwargs", "quantile strategy requires quantile in [0, 1]")
		}
		return percentile(values, *params.Quantile), nil
	}
}

// percentile linearly interpolates between closest ranks (numpy's default
// method). gonum's stat.Quantile only offers empirical and LinInterp CDF
// estimates, which disagree with it for small samples.
func percentile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// classPriors returns the sorted distinct classes and their frequencies
func classPriors(labels []any) ([]any, []float64) {
	classes := frame.Distinct(labels)
	counts := make(map[any]float64, len(classes))
	for _, l := range labels {
		counts[frame.Normalize(l)]++
	}
	priors := make([]float64, len(classes))
	for i, c := range classes {
		priors[i] = counts[c] / float64(len(labels))
	}
	return classes, priors
}

// argmax returns the first index of the largest value, so ties go to the smallest class
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

// EstimatorKind reports whether the dummy is a classifier or regressor
func (d *Dummy) EstimatorKind() ports.EstimatorKind { return d.kind }

// Strategy returns the fitted strategy
func (d *Dummy) Strategy() Strategy { return d.strategy }

// Predict ignores the features and predicts from the fitted labels.
// Random strategies reseed on every call so predictions are reproducible.
func (d *Dummy) Predict(_ context.Context, X *frame.Frame) ([]any, error) {
	out := make([]any, X.Len())
	switch d.strategy {
	case Stratified, Uniform:
		rng := rand.New(rand.NewSource(d.seed))
		for i := range out {
			if d.strategy == Uniform {
				out[i] = d.classes[rng.Intn(len(d.classes))]
			} else {
				out[i] = d.classes[sample(rng, d.priors)]
			}
		}
	default:
		for i := range out {
			out[i] = d.constant
		}
	}
	return out, nil
}

func sample(rng *rand.Rand, priors []float64) int {
	r := rng.Float64()
	var cum float64
	for i, p := range priors {
		cum += p
		if r < cum {
			return i
		}
	}
	return len(priors) - 1
}
