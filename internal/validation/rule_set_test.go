package validation_test

import (
	"context"
	"encoding/json"
	"testing"

	"gotrubric/domain/core"
	"gotrubric/internal/baseline"
	"gotrubric/internal/datacontext"
	"gotrubric/internal/importance"
	"gotrubric/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesCatalogue(t *testing.T) {
	rules := validation.Rules()
	require.Len(t, rules, 9)
	assert.Equal(t, validation.RuleMinimumFunctionality, rules[0])
	assert.Equal(t, validation.RuleFeatureImportanceBetweenTrainAndTest, rules[8])
}

func TestDecodeRule(t *testing.T) {
	rule, err := validation.DecodeRule("performance_against_threshold",
		json.RawMessage(`{"metric":"accuracy","threshold":0.7,"dataset":"testing_data","data_slice":null}`))
	require.NoError(t, err)
	assert.Equal(t, validation.PerformanceAgainstThresholdRule{
		Metric:    "accuracy",
		Threshold: 0.7,
		Dataset:   datacontext.TestingData,
	}, rule)

	rule, err = validation.DecodeRule("test_performance_against_dummy",
		json.RawMessage(`{"metric":"accuracy","strategy":"constant","dummy_kwargs":{"constant":1}}`))
	require.NoError(t, err)
	dummy := rule.(validation.TestPerformanceAgainstDummyRule)
	assert.Equal(t, baseline.Constant, dummy.Strategy)
	require.NotNil(t, dummy.DummyKwargs)
	assert.Equal(t, 1.0, dummy.DummyKwargs.Constant)

	rule, err = validation.DecodeRule("minimum_functionality", nil)
	require.NoError(t, err)
	assert.Equal(t, validation.MinimumFunctionalityRule{}, rule)
}

func TestDecodeRuleErrors(t *testing.T) {
	tests := []struct {
		name string
		rule string
		args string
		want error
	}{
		{"unknown rule", "validate_everything", `{}`, core.ErrUnknownRule},
		{"string threshold", "performance_against_threshold", `{"metric":"accuracy","threshold":"something","dataset":"testing_data"}`, core.ErrInvalidArgument},
		{"unknown argument", "inference_time", `{"threshold":0.1,"n_executions":10,"verbose":true}`, core.ErrInvalidArgument},
		{"missing threshold", "performance_between_train_and_test", `{"metric":"accuracy"}`, core.ErrInvalidArgument},
		{"null threshold", "inference_time", `{"threshold":null,"n_executions":10}`, core.ErrInvalidArgument},
		{"empty metric", "performance_between_train_and_test", `{"metric":"","threshold":0.1}`, core.ErrInvalidArgument},
		{"zero executions", "inference_time", `{"threshold":0.1,"n_executions":0}`, core.ErrInvalidArgument},
		{"zero top n", "feature_importance_between_train_and_test", `{"top_n_features":0}`, core.ErrInvalidArgument},
		{"not an object", "inference_time", `[1,2]`, core.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validation.DecodeRule(tt.rule, json.RawMessage(tt.args))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := validation.DecodeRule("performance_against_threshold",
		json.RawMessage(`{"metric":"accuracy","threshold":"something","dataset":"testing_data"}`))
	assert.True(t, core.IsTypeError(err))
	_, err = validation.DecodeRule("nope", nil)
	assert.True(t, core.IsConfigurationError(err))
}

func TestApplyDispatchesToRuleMethods(t *testing.T) {
	v, _ := newClassifierValidator()
	ctx := context.Background()

	got, err := v.Apply(ctx, validation.PerformanceAgainstThresholdRule{
		Metric: "accuracy", Threshold: 0.7, Dataset: datacontext.TestingData,
	})
	require.NoError(t, err)
	assert.Equal(t, validation.Verdict{Passed: false, Evidence: validation.Evidence{"performance": 0.5, "sample_size": 6}}, got)

	got, err = v.Apply(ctx, validation.TestPerformanceAgainstDummyRule{
		Metric: "accuracy", Strategy: baseline.MostFrequent, DataSlice: "male",
	})
	require.NoError(t, err)
	assert.False(t, got.Passed)

	got, err = v.Apply(ctx, validation.PerformanceStdAcrossSlicesRule{
		Metric: "accuracy", DataSlices: []string{"female", "male"}, StdThreshold: 0.31,
	})
	require.NoError(t, err)
	assert.True(t, got.Passed)
}

func TestApplyChecksArguments(t *testing.T) {
	v, model := newClassifierValidator()

	_, err := v.Apply(context.Background(), validation.InferenceTimeRule{Threshold: 0.1})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = v.Apply(context.Background(), validation.PerformanceStdAcrossSlicesRule{
		Metric: "accuracy", DataSlices: []string{""}, StdThreshold: 0.1,
	})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = v.Apply(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Zero(t, model.Calls())
}

func TestUnknownDatasetIsConfigurationErrorForEveryRule(t *testing.T) {
	tests := []struct {
		rule validation.RuleName
		args string
	}{
		{validation.RulePerformanceAgainstThreshold, `{"metric":"accuracy","threshold":0.5,"dataset":"other_data"}`},
		{validation.RulePerformanceAgainstThreshold, `{"metric":"accuracy","threshold":0.5,"dataset":"other_data","data_slice":"male"}`},
		{validation.RuleFeatureInTopNImportantFeatures, `{"dataset":"other_data","feature":"Age","top_n_features":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			v, model := newClassifierValidator()
			rule, err := validation.DecodeRule(string(tt.rule), json.RawMessage(tt.args))
			require.NoError(t, err)

			_, err = v.Apply(context.Background(), rule)
			assert.ErrorIs(t, err, core.ErrUnknownDataset)
			assert.True(t, core.IsConfigurationError(err))
			assert.Zero(t, model.Calls())
		})
	}

	v, _ := newClassifierValidator()
	_, err := v.FeatureInTopNImportantFeatures(context.Background(), "other_data", "Age", 1, importance.Options{})
	assert.True(t, core.IsConfigurationError(err))
	_, err = v.Score(context.Background(), "accuracy", "other_data", "")
	assert.True(t, core.IsConfigurationError(err))
}

func TestGlobalOnlyStdRuleSurvivesJSON(t *testing.T) {
	rule := validation.PerformanceStdAcrossSlicesRule{Metric: "accuracy", IncludeGlobalPerformance: true}
	raw, err := json.Marshal(rule)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"metric":"accuracy","data_slices":[],"std_threshold":0,"include_global_performance":true}`,
		string(raw))

	decoded, err := validation.DecodeRule(string(validation.RulePerformanceStdAcrossSlices), raw)
	require.NoError(t, err)

	v, _ := newClassifierValidator()
	got, err := v.Apply(context.Background(), decoded)
	require.NoError(t, err)
	assert.True(t, got.Passed)
}

func TestRuleArgumentsUseSnakeCase(t *testing.T) {
	raw, err := json.Marshal(validation.PerformanceStdAcrossSlicesRule{
		Metric: "accuracy", DataSlices: []string{"female"}, StdThreshold: 0.2, IncludeGlobalPerformance: true,
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"metric":"accuracy","data_slices":["female"],"std_threshold":0.2,"include_global_performance":true}`,
		string(raw))
}
