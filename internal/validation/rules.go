package validation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gotrubric/domain/core"
	"gotrubric/domain/frame"
	"gotrubric/internal/baseline"
	"gotrubric/internal/datacontext"
	"gotrubric/internal/importance"
	"gotrubric/internal/scoring"
	"gotrubric/ports"

	"github.com/montanaflynn/stats"
)

func checkThreshold(name string, value float64) error {
	if !finite(value) {
		return fmt.Errorf("%w: %s is %v", core.ErrInvalidThreshold, name, value)
	}
	return nil
}

// MinimumFunctionality passes when the model predicts on the minimal
// smoke dataset. A prediction error is returned, not turned into a failure.
func (v *Validator) MinimumFunctionality(ctx context.Context) (verdict Verdict, err error) {
	defer v.track(RuleMinimumFunctionality, time.Now(), &verdict, &err)

	X, _, err := v.data.FeaturesAndLabels(datacontext.MinimumFunctionalityData)
	if err != nil {
		return Verdict{}, err
	}
	if _, err = v.model.Predict(ctx, X); err != nil {
		return Verdict{}, err
	}
	return newVerdict(true, nil), nil
}

// MinimumFunctionalityInRange passes when every prediction on the minimal
// dataset lies within [lower, upper] (or (lower, upper) when not inclusive).
// Only regressors have a numeric output range.
func (v *Validator) MinimumFunctionalityInRange(ctx context.Context, lower, upper float64, inclusive bool) (verdict Verdict, err error) {
	defer v.track(RuleMinimumFunctionalityInRange, time.Now(), &verdict, &err)

	if err = checkThreshold("lower_threshold", lower); err != nil {
		return Verdict{}, err
	}
	if err = checkThreshold("upper_threshold", upper); err != nil {
		return Verdict{}, err
	}
	if lower > upper {
		return Verdict{}, core.NewInvalidArgumentError("lower_threshold", "must not exceed upper_threshold")
	}
	if kind, ok := ports.KindOf(v.model); !ok || kind != ports.KindRegressor {
		return Verdict{}, core.NewEstimatorKindError(string(RuleMinimumFunctionalityInRange), string(ports.KindRegressor))
	}

	X, _, err := v.data.FeaturesAndLabels(datacontext.MinimumFunctionalityData)
	if err != nil {
		return Verdict{}, err
	}
	raw, err := v.model.Predict(ctx, X)
	if err != nil {
		return Verdict{}, err
	}
	preds, err := frame.ToFloats(raw)
	if err != nil {
		return Verdict{}, err
	}

	outside := []float64{}
	for _, p := range preds {
		in := p > lower && p < upper
		if inclusive {
			in = p >= lower && p <= upper
		}
		if !in {
			outside = append(outside, positiveZero(p))
		}
	}
	return newVerdict(len(outside) == 0, Evidence{KeyOutOfRangePredictions: outside}), nil
}

// PerformanceAgainstThreshold passes when the metric on the dataset (or
// slice) is at least threshold.
func (v *Validator) PerformanceAgainstThreshold(ctx context.Context, metric string, threshold float64, dataset datacontext.DatasetName, slice string) (verdict Verdict, err error) {
	defer v.track(RulePerformanceAgainstThreshold, time.Now(), &verdict, &err)

	if err = checkThreshold("threshold", threshold); err != nil {
		return Verdict{}, err
	}
	score, n, err := v.scoreWithSize(ctx, metric, dataset, slice)
	if err != nil {
		return Verdict{}, err
	}
	return newVerdict(score >= threshold, Evidence{
		KeyPerformance: score,
		KeySampleSize:  n,
	}), nil
}

// TestPerformanceAgainstDummy passes when the model strictly beats a naive
// baseline fitted on the training labels. Both are scored on testing data.
func (v *Validator) TestPerformanceAgainstDummy(ctx context.Context, metric string, strategy baseline.Strategy, params baseline.Params, slice string) (verdict Verdict, err error) {
	defer v.track(RuleTestPerformanceAgainstDummy, time.Now(), &verdict, &err)

	kind, ok := ports.KindOf(v.model)
	if !ok {
		return Verdict{}, core.NewEstimatorKindError(string(RuleTestPerformanceAgainstDummy), "classifier or regressor")
	}
	_, yTrain, err := v.data.FeaturesAndLabels(datacontext.TrainingData)
	if err != nil {
		return Verdict{}, err
	}
	dummy, err := baseline.Fit(kind, strategy, params, yTrain)
	if err != nil {
		return Verdict{}, err
	}

	testScore, n, err := v.scoreWithSize(ctx, metric, datacontext.TestingData, slice)
	if err != nil {
		return Verdict{}, err
	}

	X, y, err := v.split(datacontext.TestingData, slice)
	if err != nil {
		return Verdict{}, err
	}
	scorer, err := v.scorers.Resolve(metric)
	if err != nil {
		return Verdict{}, err
	}
	dummyScore, err := scorer(ctx, dummy, X, y)
	if err != nil {
		return Verdict{}, err
	}

	v.logger.Debug("dummy baseline scored",
		slog.String("strategy", string(strategy)),
		slog.Float64("dummy_performance", dummyScore))
	return newVerdict(testScore > dummyScore, Evidence{
		KeyDummyPerformance: positiveZero(dummyScore),
		KeyTestPerformance:  testScore,
		KeySampleSize:       n,
	}), nil
}

// PerformanceBetweenTrainAndTest passes when train and test scores differ
// by at most threshold.
func (v *Validator) PerformanceBetweenTrainAndTest(ctx context.Context, metric string, threshold float64, slice string) (verdict Verdict, err error) {
	defer v.track(RulePerformanceBetweenTrainAndTest, time.Now(), &verdict, &err)

	if err = checkThreshold("threshold", threshold); err != nil {
		return Verdict{}, err
	}
	train, trainN, err := v.scoreWithSize(ctx, metric, datacontext.TrainingData, slice)
	if err != nil {
		return Verdict{}, err
	}
	test, testN, err := v.scoreWithSize(ctx, metric, datacontext.TestingData, slice)
	if err != nil {
		return Verdict{}, err
	}

	gap := train - test
	if gap < 0 {
		gap = -gap
	}
	return newVerdict(gap <= threshold, Evidence{
		KeyTrainPerformance: train,
		KeyTestPerformance:  test,
		KeyTrainSampleSize:  trainN,
		KeyTestSampleSize:   testN,
	}), nil
}

// PerformanceStdAcrossSlices passes when the population standard deviation
// of the per-slice testing scores is at most stdThreshold. With
// includeGlobal the unsliced testing score joins the population.
func (v *Validator) PerformanceStdAcrossSlices(ctx context.Context, metric string, slices []string, stdThreshold float64, includeGlobal bool) (verdict Verdict, err error) {
	defer v.track(RulePerformanceStdAcrossSlices, time.Now(), &verdict, &err)

	if err = checkThreshold("std_threshold", stdThreshold); err != nil {
		return Verdict{}, err
	}
	if len(slices) == 0 && !includeGlobal {
		return Verdict{}, core.NewInvalidArgumentError("data_slices", "at least one slice or the global performance is required")
	}

	targets := make([]string, 0, len(slices)+1)
	if includeGlobal {
		targets = append(targets, "")
	}
	targets = append(targets, slices...)

	performances := make(map[string]float64, len(targets))
	sampleSizes := make(map[string]int, len(targets))
	scores := make([]float64, 0, len(targets))
	for _, slice := range targets {
		score, n, err := v.scoreWithSize(ctx, metric, datacontext.TestingData, slice)
		if err != nil {
			return Verdict{}, err
		}
		key := CacheKey(datacontext.TestingData, slice)
		if _, seen := performances[key]; seen {
			continue
		}
		performances[key] = score
		sampleSizes[key] = n
		scores = append(scores, score)
	}

	std, err := stats.StandardDeviationPopulation(scores)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", core.ErrEmptyData, err)
	}
	return newVerdict(std <= stdThreshold, Evidence{
		KeyPerformances: performances,
		KeySampleSizes:  sampleSizes,
	}), nil
}

// InferenceTime passes when the mean wall-clock seconds per Predict call on
// the testing features, over nExecutions calls, is at most threshold.
func (v *Validator) InferenceTime(ctx context.Context, threshold float64, nExecutions int) (verdict Verdict, err error) {
	defer v.track(RuleInferenceTime, time.Now(), &verdict, &err)

	if err = checkThreshold("threshold", threshold); err != nil {
		return Verdict{}, err
	}
	if nExecutions < 1 {
		return Verdict{}, core.NewInvalidArgumentError("n_executions", "must be at least 1")
	}
	X, _, err := v.data.FeaturesAndLabels(datacontext.TestingData)
	if err != nil {
		return Verdict{}, err
	}

	var total time.Duration
	for i := 0; i < nExecutions; i++ {
		if err = ctx.Err(); err != nil {
			return Verdict{}, err
		}
		start := v.now()
		if _, err = v.model.Predict(ctx, X); err != nil {
			return Verdict{}, err
		}
		total += v.now().Sub(start)
	}

	mean := total.Seconds() / float64(nExecutions)
	return newVerdict(mean <= threshold, Evidence{KeyInferenceTime: mean}), nil
}

// importances computes permutation importance on one dataset and ranks it
func (v *Validator) importances(ctx context.Context, dataset datacontext.DatasetName, opts importance.Options) (map[string]float64, []string, error) {
	X, y, err := v.data.FeaturesAndLabels(dataset)
	if err != nil {
		return nil, nil, err
	}
	metric := opts.Scoring
	if metric == "" {
		kind, _ := ports.KindOf(v.model)
		metric = scoring.DefaultFor(kind)
	}
	scorer, err := v.scorers.Resolve(metric)
	if err != nil {
		return nil, nil, err
	}
	imp, err := importance.Compute(ctx, v.model, X, y, scorer, opts)
	if err != nil {
		return nil, nil, err
	}
	for name, value := range imp {
		imp[name] = positiveZero(value)
	}
	return imp, importance.Rank(imp, X.Columns()), nil
}

// FeatureInTopNImportantFeatures passes when feature ranks (0-based,
// descending permutation importance) below topN on dataset.
func (v *Validator) FeatureInTopNImportantFeatures(ctx context.Context, dataset datacontext.DatasetName, feature string, topN int, opts importance.Options) (verdict Verdict, err error) {
	defer v.track(RuleFeatureInTopNImportantFeatures, time.Now(), &verdict, &err)

	if topN < 1 {
		return Verdict{}, core.NewInvalidArgumentError("top_n_features", "must be at least 1")
	}
	df, err := v.data.Dataset(dataset)
	if err != nil {
		return Verdict{}, err
	}
	if feature == v.data.Target() || !df.HasColumn(feature) {
		return Verdict{}, fmt.Errorf("%w %q", core.ErrUnknownFeature, feature)
	}

	imp, ranked, err := v.importances(ctx, dataset, opts)
	if err != nil {
		return Verdict{}, err
	}
	rank := importance.Position(ranked, feature)
	return newVerdict(rank < topN, Evidence{
		KeyFeatureImportanceRanking: rank,
		KeyFeatureImportance:        imp,
	}), nil
}

// FeatureImportanceBetweenTrainAndTest passes when the topN most important
// features are the same set on training and testing data.
func (v *Validator) FeatureImportanceBetweenTrainAndTest(ctx context.Context, topN int, opts importance.Options) (verdict Verdict, err error) {
	defer v.track(RuleFeatureImportanceBetweenTrainAndTest, time.Now(), &verdict, &err)

	if topN < 1 {
		return Verdict{}, core.NewInvalidArgumentError("top_n_features", "must be at least 1")
	}
	_, trainRanked, err := v.importances(ctx, datacontext.TrainingData, opts)
	if err != nil {
		return Verdict{}, err
	}
	_, testRanked, err := v.importances(ctx, datacontext.TestingData, opts)
	if err != nil {
		return Verdict{}, err
	}

	trainTop := importance.TopN(trainRanked, topN)
	testTop := importance.TopN(testRanked, topN)
	return newVerdict(sameSet(trainTop, testTop), Evidence{
		KeyTrainTopFeatures: trainTop,
		KeyTestTopFeatures:  testTop,
	}), nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			return false
		}
	}
	return true
}
