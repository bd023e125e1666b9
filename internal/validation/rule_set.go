package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"gotrubric/domain/core"
	"gotrubric/internal/baseline"
	"gotrubric/internal/datacontext"
	"gotrubric/internal/importance"

	"github.com/go-playground/validator/v10"
)

// RuleName addresses a validation rule in a trubric
type RuleName string

const (
	RuleMinimumFunctionality                 RuleName = "minimum_functionality"
	RuleMinimumFunctionalityInRange          RuleName = "minimum_functionality_in_range"
	RulePerformanceAgainstThreshold          RuleName = "performance_against_threshold"
	RuleTestPerformanceAgainstDummy          RuleName = "test_performance_against_dummy"
	RulePerformanceBetweenTrainAndTest       RuleName = "performance_between_train_and_test"
	RulePerformanceStdAcrossSlices           RuleName = "performance_std_across_slices"
	RuleInferenceTime                        RuleName = "inference_time"
	RuleFeatureInTopNImportantFeatures       RuleName = "feature_in_top_n_important_features"
	RuleFeatureImportanceBetweenTrainAndTest RuleName = "feature_importance_between_train_and_test"
)

// Rule is one validation rule with its arguments. The set is closed: only
// the types in this package implement it.
type Rule interface {
	RuleName() RuleName
	apply(ctx context.Context, v *Validator) (Verdict, error)
	// requiredArgs lists argument keys that must be present when decoding
	requiredArgs() []string
}

type MinimumFunctionalityRule struct{}

type MinimumFunctionalityInRangeRule struct {
	LowerThreshold float64 `json:"lower_threshold" yaml:"lower_threshold"`
	UpperThreshold float64 `json:"upper_threshold" yaml:"upper_threshold"`
	Inclusive      bool    `json:"inclusive" yaml:"inclusive"`
}

type PerformanceAgainstThresholdRule struct {
	Metric    string                  `json:"metric" yaml:"metric" validate:"required"`
	Threshold float64                 `json:"threshold" yaml:"threshold"`
	Dataset   datacontext.DatasetName `json:"dataset" yaml:"dataset" validate:"required"`
	DataSlice string                  `json:"data_slice,omitempty" yaml:"data_slice,omitempty"`
}

type TestPerformanceAgainstDummyRule struct {
	Metric      string            `json:"metric" yaml:"metric" validate:"required"`
	Strategy    baseline.Strategy `json:"strategy" yaml:"strategy" validate:"required"`
	DummyKwargs *baseline.Params  `json:"dummy_kwargs,omitempty" yaml:"dummy_kwargs,omitempty"`
	DataSlice   string            `json:"data_slice,omitempty" yaml:"data_slice,omitempty"`
}

type PerformanceBetweenTrainAndTestRule struct {
	Metric    string  `json:"metric" yaml:"metric" validate:"required"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	DataSlice string  `json:"data_slice,omitempty" yaml:"data_slice,omitempty"`
}

type PerformanceStdAcrossSlicesRule struct {
	Metric                   string   `json:"metric" yaml:"metric" validate:"required"`
	DataSlices               []string `json:"data_slices" yaml:"data_slices" validate:"dive,required"`
	StdThreshold             float64  `json:"std_threshold" yaml:"std_threshold"`
	IncludeGlobalPerformance bool     `json:"include_global_performance" yaml:"include_global_performance"`
}

// MarshalJSON writes a nil slice list as [] so a global-only rule decodes again
func (r PerformanceStdAcrossSlicesRule) MarshalJSON() ([]byte, error) {
	type plain PerformanceStdAcrossSlicesRule
	if r.DataSlices == nil {
		r.DataSlices = []string{}
	}
	return json.Marshal(plain(r))
}

type InferenceTimeRule struct {
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	NExecutions int     `json:"n_executions" yaml:"n_executions" validate:"gte=1"`
}

type FeatureInTopNImportantFeaturesRule struct {
	Dataset           datacontext.DatasetName `json:"dataset" yaml:"dataset" validate:"required"`
	Feature           string                  `json:"feature" yaml:"feature" validate:"required"`
	TopNFeatures      int                     `json:"top_n_features" yaml:"top_n_features" validate:"gte=1"`
	PermutationKwargs *importance.Options     `json:"permutation_kwargs,omitempty" yaml:"permutation_kwargs,omitempty"`
}

type FeatureImportanceBetweenTrainAndTestRule struct {
	TopNFeatures      int                 `json:"top_n_features" yaml:"top_n_features" validate:"gte=1"`
	PermutationKwargs *importance.Options `json:"permutation_kwargs,omitempty" yaml:"permutation_kwargs,omitempty"`
}

func (MinimumFunctionalityRule) RuleName() RuleName { return RuleMinimumFunctionality }
func (MinimumFunctionalityInRangeRule) RuleName() RuleName {
	return RuleMinimumFunctionalityInRange
}
func (PerformanceAgainstThresholdRule) RuleName() RuleName {
	return RulePerformanceAgainstThreshold
}
func (TestPerformanceAgainstDummyRule) RuleName() RuleName {
	return RuleTestPerformanceAgainstDummy
}
func (PerformanceBetweenTrainAndTestRule) RuleName() RuleName {
	return RulePerformanceBetweenTrainAndTest
}
func (PerformanceStdAcrossSlicesRule) RuleName() RuleName { return RulePerformanceStdAcrossSlices }
func (InferenceTimeRule) RuleName() RuleName              { return RuleInferenceTime }
func (FeatureInTopNImportantFeaturesRule) RuleName() RuleName {
	return RuleFeatureInTopNImportantFeatures
}
func (FeatureImportanceBetweenTrainAndTestRule) RuleName() RuleName {
	return RuleFeatureImportanceBetweenTrainAndTest
}

func (MinimumFunctionalityRule) requiredArgs() []string { return nil }
func (MinimumFunctionalityInRangeRule) requiredArgs() []string {
	return []string{"lower_threshold", "upper_threshold"}
}
func (PerformanceAgainstThresholdRule) requiredArgs() []string {
	return []string{"metric", "threshold", "dataset"}
}
func (TestPerformanceAgainstDummyRule) requiredArgs() []string {
	return []string{"metric", "strategy"}
}
func (PerformanceBetweenTrainAndTestRule) requiredArgs() []string {
	return []string{"metric", "threshold"}
}
func (PerformanceStdAcrossSlicesRule) requiredArgs() []string {
	return []string{"metric", "data_slices", "std_threshold"}
}
func (InferenceTimeRule) requiredArgs() []string {
	return []string{"threshold", "n_executions"}
}
func (FeatureInTopNImportantFeaturesRule) requiredArgs() []string {
	return []string{"dataset", "feature", "top_n_features"}
}
func (FeatureImportanceBetweenTrainAndTestRule) requiredArgs() []string {
	return []string{"top_n_features"}
}

func (r MinimumFunctionalityRule) apply(ctx context.Context, v *Validator) (Verdict, error) {
	return v.MinimumFunctionality(ctx)
}

func (r MinimumFunctionalityInRangeRule) apply(ctx context.Context, v *Validator) (Verdict, error) {
	return v.MinimumFunctionalityInRange(ctx, r.LowerThreshold, r.UpperThreshold, r.Inclusive)
}

func (r PerformanceAgainstThresholdRule) apply(ctx context.Context, v *Validator) (Verdict, error) {
	return v.PerformanceAgainstThreshold(ctx, r.Metric, r.Threshold, r.Dataset, r.DataSlice)
}

func (r TestPerformanceAgainstDummyRule) apply(ctx context.Context, v *Validator) (Verdict, error) {
	var params baseline.Params
	if r.DummyKwargs != nil {
		params = *r.DummyKwargs
	}
	return v.TestPerformanceAgainstDummy(ctx, r.Metric, r.Strategy, params, r.DataSlice)
}

func (r PerformanceBetweenTrainAndTestRule) apply(ctx context.Context, v *Validator) (Verdict, error) {
	return v.PerformanceBetweenTrainAndTest(ctx, r.Metric, r.Threshold, r.DataSlice)
}

func (r PerformanceStdAcrossSlicesRule) apply(ctx context.Context, v *Validator) (Verdict, error) {
	return v.PerformanceStdAcrossSlices(ctx, r.Metric, r.DataSlices, r.StdThreshold, r.IncludeGlobalPerformance)
}

func (r InferenceTimeRule) apply(ctx context.Context, v *Validator) (Verdict, error) {
	return v.InferenceTime(ctx, r.Threshold, r.NExecutions)
}

func (r FeatureInTopNImportantFeaturesRule) apply(ctx context.Context, v *Validator) (Verdict, error) {
	return v.FeatureInTopNImportantFeatures(ctx, r.Dataset, r.Feature, r.TopNFeatures, permutationOptions(r.PermutationKwargs))
}

func (r FeatureImportanceBetweenTrainAndTestRule) apply(ctx context.Context, v *Validator) (Verdict, error) {
	return v.FeatureImportanceBetweenTrainAndTest(ctx, r.TopNFeatures, permutationOptions(r.PermutationKwargs))
}

func permutationOptions(opts *importance.Options) importance.Options {
	if opts == nil {
		return importance.Options{}
	}
	return *opts
}

// ruleFactories maps rule names to zero-valued rules, in catalogue order
var ruleFactories = []struct {
	name   RuleName
	decode func(raw json.RawMessage) (Rule, error)
}{
	{RuleMinimumFunctionality, decodeInto[MinimumFunctionalityRule]},
	{RuleMinimumFunctionalityInRange, decodeInto[MinimumFunctionalityInRangeRule]},
	{RulePerformanceAgainstThreshold, decodeInto[PerformanceAgainstThresholdRule]},
	{RuleTestPerformanceAgainstDummy, decodeInto[TestPerformanceAgainstDummyRule]},
	{RulePerformanceBetweenTrainAndTest, decodeInto[PerformanceBetweenTrainAndTestRule]},
	{RulePerformanceStdAcrossSlices, decodeInto[PerformanceStdAcrossSlicesRule]},
	{RuleInferenceTime, decodeInto[InferenceTimeRule]},
	{RuleFeatureInTopNImportantFeatures, decodeInto[FeatureInTopNImportantFeaturesRule]},
	{RuleFeatureImportanceBetweenTrainAndTest, decodeInto[FeatureImportanceBetweenTrainAndTestRule]},
}

// Rules lists every rule name in catalogue order
func Rules() []RuleName {
	names := make([]RuleName, len(ruleFactories))
	for i, f := range ruleFactories {
		names[i] = f.name
	}
	return names
}

// DecodeRule builds a rule from its name and JSON arguments. Unknown names
// are configuration errors; unknown keys, missing keys and mistyped values
// are invalid-argument errors.
func DecodeRule(name string, raw json.RawMessage) (Rule, error) {
	for _, f := range ruleFactories {
		if string(f.name) == name {
			rule, err := f.decode(raw)
			if err != nil {
				return nil, err
			}
			if err := checkRule(rule); err != nil {
				return nil, err
			}
			return rule, nil
		}
	}
	return nil, fmt.Errorf("%w %q", core.ErrUnknownRule, name)
}

func decodeInto[R Rule](raw json.RawMessage) (Rule, error) {
	var rule R
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil {
		return nil, core.NewInvalidArgumentError("arguments", err.Error())
	}
	for _, key := range rule.requiredArgs() {
		value, ok := present[key]
		if !ok || bytes.Equal(value, []byte("null")) {
			return nil, core.NewInvalidArgumentError(key, "is required")
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rule); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, core.NewInvalidArgumentError(typeErr.Field, fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value))
		}
		return nil, core.NewInvalidArgumentError("arguments", err.Error())
	}
	return rule, nil
}

var structs = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkRule applies the struct-level argument constraints
func checkRule(rule Rule) error {
	err := structs.Struct(rule)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return core.NewInvalidArgumentError(fe.Field(), fmt.Sprintf("failed %q constraint", fe.Tag()))
	}
	return core.NewInvalidArgumentError(string(rule.RuleName()), err.Error())
}

// Apply checks a rule's arguments and evaluates it
func (v *Validator) Apply(ctx context.Context, rule Rule) (Verdict, error) {
	if rule == nil {
		return Verdict{}, core.NewInvalidArgumentError("rule", "is nil")
	}
	if err := checkRule(rule); err != nil {
		return Verdict{}, err
	}
	v.logger.Debug("applying validation rule",
		slog.String("rule", string(rule.RuleName())),
		slog.Any("arguments", rule))
	return rule.apply(ctx, v)
}
