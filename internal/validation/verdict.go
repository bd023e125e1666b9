package validation

import "math"

// Evidence keys
const (
	KeyPerformance              = "performance"
	KeySampleSize               = "sample_size"
	KeyDummyPerformance         = "dummy_performance"
	KeyTestPerformance          = "test_performance"
	KeyTrainPerformance         = "train_performance"
	KeyTrainSampleSize          = "train_sample_size"
	KeyTestSampleSize           = "test_sample_size"
	KeyPerformances             = "performances"
	KeySampleSizes              = "sample_sizes"
	KeyInferenceTime            = "inference_time"
	KeyFeatureImportanceRanking = "feature_importance_ranking"
	KeyFeatureImportance        = "feature_importance"
	KeyTrainTopFeatures         = "train_top_features"
	KeyTestTopFeatures          = "test_top_features"
	KeyOutOfRangePredictions    = "out_of_range_predictions"
)

// Evidence supports a verdict. Values are numbers, nested maps or lists.
type Evidence map[string]any

// Verdict is the outcome of one validation rule. Evidence is never nil.
type Verdict struct {
	Passed   bool     `json:"passed" yaml:"passed"`
	Evidence Evidence `json:"evidence" yaml:"evidence"`
}

func newVerdict(passed bool, evidence Evidence) Verdict {
	if evidence == nil {
		evidence = Evidence{}
	}
	return Verdict{Passed: passed, Evidence: evidence}
}

// positiveZero turns -0 into 0 so evidence renders and compares stably
func positiveZero(f float64) float64 {
	if f == 0 {
		return 0
	}
	return f
}

// finite reports whether f is usable as a threshold
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
