package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gotrubric/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testingCSV = `Sex,Age,Fare,Pclass,Survived
male,22,7.25,3,0
female,38,71.28,1,1
male,26,7.92,3,1
male,35,53.1,1,0
male,35,8.05,3,1
male,54,51.86,1,1
`

const trainingCSV = `Sex,Age,Fare,Pclass,Survived
male,30,10.5,2,0
male,40,80,1,1
female,9,15.25,3,1
male,19,7.75,3,0
male,61,6.24,3,0
male,45,26,2,0
`

const report = `name: baseline
invocations:
  - rule_name: minimum_functionality
    arguments: {}
    expected_outcome: {passed: true, evidence: {}}
  - rule_name: performance_against_threshold
    arguments: {metric: accuracy, threshold: 0.5, dataset: testing_data}
    expected_outcome:
      passed: true
      evidence: {performance: 0.5, sample_size: 6}
`

func setup(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"TRUBRIC_TESTING_DATA", "TRUBRIC_TRAINING_DATA", "TRUBRIC_TARGET",
		"TRUBRIC_MINIMUM_ROWS", "TRUBRIC_REPORT", "TRUBRIC_LOG_LEVEL",
		"TRUBRIC_LOG_FORMAT", "TRUBRIC_BASELINE_STRATEGY", "TRUBRIC_ESTIMATOR_KIND",
	} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	for name, body := range map[string]string{
		"testing.csv":  testingCSV,
		"training.csv": trainingCSV,
		"report.yaml":  report,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRulesCommand(t *testing.T) {
	setup(t)

	out, err := execute("rules")
	require.NoError(t, err)
	assert.Contains(t, out, "performance_std_across_slices")
	assert.Contains(t, out, "neg_mean_absolute_error")
}

func TestInspectCommand(t *testing.T) {
	setup(t)

	out, err := execute("inspect", "report.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Trubric baseline")
	assert.Contains(t, out, `"threshold":0.5`)

	t.Setenv("TRUBRIC_REPORT", "report.yaml")
	out, err = execute("inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "minimum_functionality")
}

func TestRunCommandReportsMismatch(t *testing.T) {
	setup(t)

	// the most frequent training label is 0, which scores 2/6 on testing data
	out, err := execute("run", "report.yaml",
		"--testing", "testing.csv", "--training", "training.csv", "--target", "Survived")
	require.Error(t, err)
	assert.Equal(t, errors.CodeMismatch, errors.CodeOf(err))
	assert.Contains(t, out, "MISMATCH")
	assert.Contains(t, out, "2 invocations: 1 matched, 1 mismatched")
}

func TestRunCommandRecordThenReplay(t *testing.T) {
	dir := setup(t)
	t.Setenv("TRUBRIC_TESTING_DATA", "testing.csv")
	t.Setenv("TRUBRIC_TRAINING_DATA", "training.csv")
	t.Setenv("TRUBRIC_TARGET", "Survived")

	out, err := execute("run", "report.yaml", "--record", "--metrics-file", "metrics.prom")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded 2 invocations")

	metrics, err := os.ReadFile(filepath.Join(dir, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "trubric_rule_runs_total")

	out, err = execute("run", "report.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "2 invocations: 2 matched, 0 mismatched")

	out, err = execute("diff", "report.yaml", "report.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "trubrics agree")
}

func TestRunCommandNeedsData(t *testing.T) {
	setup(t)

	_, err := execute("run", "report.yaml")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.CodeOf(err))

	_, err = execute("run", "report.yaml", "--testing", "testing.csv", "--training", "training.csv",
		"--target", "Survived", "--baseline-strategy", "mean")
	assert.Equal(t, errors.CodeConfigInvalid, errors.CodeOf(err))
}

func TestDiffCommandFindsChanges(t *testing.T) {
	dir := setup(t)
	changed := filepath.Join(dir, "changed.yaml")
	require.NoError(t, os.WriteFile(changed, []byte(`
invocations:
  - rule_name: minimum_functionality
    arguments: {}
    expected_outcome: {passed: false, evidence: {}}
`), 0o644))

	out, err := execute("diff", "report.yaml", "changed.yaml")
	require.Error(t, err)
	assert.Equal(t, errors.CodeMismatch, errors.CodeOf(err))
	assert.Contains(t, out, "expected verdict differs")
	assert.Contains(t, out, "present in only one trubric")
}
