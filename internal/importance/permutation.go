// Package importance computes permutation feature importance.
package importance

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"

	"gotrubric/domain/core"
	"gotrubric/domain/frame"
	"gotrubric/ports"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

const defaultRepeats = 5

// Options controls permutation importance
type Options struct {
	// NRepeats is how many times each feature is shuffled (default 5)
	NRepeats int `json:"n_repeats,omitempty" yaml:"n_repeats,omitempty" validate:"gte=0"`
	// RandomState seeds the shuffles (default 0)
	RandomState *int64 `json:"random_state,omitempty" yaml:"random_state,omitempty"`
	// NJobs bounds concurrent feature evaluations; zero or negative means one per CPU
	NJobs int `json:"n_jobs,omitempty" yaml:"n_jobs,omitempty"`
	// Scoring names the metric; empty means the estimator's default metric
	Scoring string `json:"scoring,omitempty" yaml:"scoring,omitempty"`
}

func (o Options) repeats() int {
	if o.NRepeats <= 0 {
		return defaultRepeats
	}
	return o.NRepeats
}

func (o Options) jobs() int {
	if o.NJobs <= 0 {
		return runtime.NumCPU()
	}
	return o.NJobs
}

func (o Options) seed() int64 {
	if o.RandomState == nil {
		return 0
	}
	return *o.RandomState
}

// Compute returns, per feature, the mean drop in score when that feature's
// column is shuffled. Each feature draws from its own RNG stream, so the
// result does not depend on NJobs. The model must tolerate concurrent
// Predict calls when NJobs > 1.
func Compute(ctx context.Context, model ports.Model, X *frame.Frame, y frame.Series, scorer ports.Scorer, opts Options) (map[string]float64, error) {
	if X.Len() == 0 {
		return nil, fmt.Errorf("%w: cannot compute importance on zero rows", core.ErrEmptyData)
	}
	baseline, err := scorer(ctx, model, X, y)
	if err != nil {
		return nil, err
	}

	columns := X.Columns()
	drops := make([]float64, len(columns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs())
	for j, col := range columns {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(opts.seed() + int64(j)))
			original, _ := X.Column(col)
			scores := make([]float64, opts.repeats())
			for r := range scores {
				if err := gctx.Err(); err != nil {
					return err
				}
				permuted, err := X.WithColumn(col, shuffled(rng, original))
				if err != nil {
					return err
				}
				s, err := scorer(gctx, model, permuted, y)
				if err != nil {
					return err
				}
				scores[r] = baseline - s
			}
			drops[j] = stat.Mean(scores, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(columns))
	for j, col := range columns {
		out[col] = drops[j]
	}
	return out, nil
}

func shuffled(rng *rand.Rand, values []any) []any {
	out := append([]any(nil), values...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Rank orders columns by descending importance. Ties keep column order.
func Rank(importances map[string]float64, columns []string) []string {
	ranked := append([]string(nil), columns...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return importances[ranked[i]] > importances[ranked[j]]
	})
	return ranked
}

// Position returns the 0-based rank of feature, or -1 when absent
func Position(ranked []string, feature string) int {
	for i, name := range ranked {
		if name == feature {
			return i
		}
	}
	return -1
}

// TopN returns the first n ranked features
func TopN(ranked []string, n int) []string {
	if n > len(ranked) {
		n = len(ranked)
	}
	if n < 0 {
		n = 0
	}
	return append([]string(nil), ranked[:n]...)
}
