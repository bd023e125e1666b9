// Package validation checks a trained model against held-out data.
//
// A Validator exposes one method per validation rule. Each returns a Verdict
// (pass/fail plus evidence) or an error from the taxonomy in domain/core;
// errors are never swallowed and model failures propagate unchanged.
package validation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gotrubric/domain/core"
	"gotrubric/domain/frame"
	"gotrubric/internal/datacontext"
	"gotrubric/internal/metrics"
	"gotrubric/internal/scoring"
	"gotrubric/internal/slicing"
	"gotrubric/ports"
)

// Option configures a Validator
type Option func(*settings)

type settings struct {
	customScorers    map[string]ports.Scorer
	slicingFunctions map[string]ports.SlicingFunc
	filters          map[string]slicing.Filter
	logger           *slog.Logger
	metrics          *metrics.Collector
	clock            func() time.Time
}

// WithCustomScorers registers scorers that take precedence over built-in metrics
func WithCustomScorers(scorers map[string]ports.Scorer) Option {
	return func(s *settings) { s.customScorers = scorers }
}

// WithSlicingFunctions registers named slicing functions
func WithSlicingFunctions(funcs map[string]ports.SlicingFunc) Option {
	return func(s *settings) { s.slicingFunctions = funcs }
}

// WithFilters registers named declarative slice filters
func WithFilters(filters map[string]slicing.Filter) Option {
	return func(s *settings) { s.filters = filters }
}

// WithLogger sets the logger (default slog.Default())
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithMetrics records every rule run on c
func WithMetrics(c *metrics.Collector) Option {
	return func(s *settings) { s.metrics = c }
}

// WithClock replaces time.Now for inference timing
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.clock = now }
}

// Validator evaluates validation rules for one model over one DataContext.
// Scores are cached per instance, keyed by dataset (or "{dataset}_{slice}")
// and metric; the cache is never shared between validators.
type Validator struct {
	session core.SessionID
	data    *datacontext.DataContext
	model   ports.Model
	scorers *scoring.Resolver
	slicer  *slicing.Slicer
	logger  *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time

	mu           sync.Mutex
	performances map[string]map[string]float64
	sampleSizes  map[string]int
}

// New creates a Validator. The DataContext is borrowed, never modified.
func New(data *datacontext.DataContext, model ports.Model, opts ...Option) *Validator {
	s := settings{logger: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(&s)
	}

	session := core.NewSessionID()
	logger := s.logger.With(slog.String("session", session.String()))
	return &Validator{
		session:      session,
		data:         data,
		model:        model,
		scorers:      scoring.NewResolver(s.customScorers),
		slicer:       slicing.New(s.slicingFunctions, s.filters, logger),
		logger:       logger,
		metrics:      s.metrics,
		now:          s.clock,
		performances: make(map[string]map[string]float64),
		sampleSizes:  make(map[string]int),
	}
}

// Session identifies this validator and its score cache
func (v *Validator) Session() core.SessionID {
	return v.session
}

// Metrics lists the metric names this validator can resolve
func (v *Validator) Metrics() []string {
	return v.scorers.Names()
}

// Data returns the validator's DataContext
func (v *Validator) Data() *datacontext.DataContext {
	return v.data
}

// CacheKey names a dataset, or a slice of it, in the score cache
func CacheKey(dataset datacontext.DatasetName, slice string) string {
	if slice == "" {
		return string(dataset)
	}
	return string(dataset) + "_" + slice
}

// CachedScore returns a previously computed score
func (v *Validator) CachedScore(key, metric string) (float64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	score, ok := v.performances[key][metric]
	return score, ok
}

// SampleSize returns the row count recorded for a cache key
func (v *Validator) SampleSize(key string) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n, ok := v.sampleSizes[key]
	return n, ok
}

func (v *Validator) store(key, metric string, score float64, n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.performances[key] == nil {
		v.performances[key] = make(map[string]float64)
	}
	v.performances[key][metric] = score
	v.sampleSizes[key] = n
}

// split resolves a dataset, slices it when slice is non-empty, and separates
// features from labels
func (v *Validator) split(dataset datacontext.DatasetName, slice string) (*frame.Frame, frame.Series, error) {
	df, err := v.data.Dataset(dataset)
	if err != nil {
		return nil, frame.Series{}, err
	}
	if slice != "" {
		df, err = v.slicer.Slice(df, string(dataset), slice)
		if err != nil {
			return nil, frame.Series{}, err
		}
	}
	return df.SplitTarget(v.data.Target())
}

// Score computes metric on dataset (optionally sliced), caching the score
// and the row count. Repeated calls within one validator reuse the cache.
func (v *Validator) Score(ctx context.Context, metric string, dataset datacontext.DatasetName, slice string) (float64, error) {
	key := CacheKey(dataset, slice)
	if score, ok := v.CachedScore(key, metric); ok {
		return score, nil
	}

	X, y, err := v.split(dataset, slice)
	if err != nil {
		return 0, err
	}
	scorer, err := v.scorers.Resolve(metric)
	if err != nil {
		return 0, err
	}
	score, err := scorer(ctx, v.model, X, y)
	if err != nil {
		return 0, err
	}
	score = positiveZero(score)

	v.store(key, metric, score, y.Len())
	v.logger.Debug("score computed",
		slog.String("dataset", key),
		slog.String("metric", metric),
		slog.Float64("score", score),
		slog.Int("sample_size", y.Len()))
	return score, nil
}

// scoreWithSize returns a score and the sample size it was computed on
func (v *Validator) scoreWithSize(ctx context.Context, metric string, dataset datacontext.DatasetName, slice string) (float64, int, error) {
	score, err := v.Score(ctx, metric, dataset, slice)
	if err != nil {
		return 0, 0, err
	}
	n, _ := v.SampleSize(CacheKey(dataset, slice))
	return score, n, nil
}

// track logs and meters a finished rule run
func (v *Validator) track(rule RuleName, start time.Time, verdict *Verdict, err *error) {
	elapsed := time.Since(start)
	v.metrics.Observe(string(rule), verdict.Passed, *err, elapsed)
	if *err != nil {
		v.logger.Warn("validation rule errored",
			slog.String("rule", string(rule)),
			slog.Duration("elapsed", elapsed),
			slog.Any("error", *err))
		return
	}
	v.logger.Info("validation rule evaluated",
		slog.String("rule", string(rule)),
		slog.Bool("passed", verdict.Passed),
		slog.Duration("elapsed", elapsed))
}
