package config

import (
	"os"
	"path/filepath"
	"testing"

	"gotrubric/internal/baseline"
	"gotrubric/internal/errors"
	"gotrubric/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TRUBRIC_TESTING_DATA", "TRUBRIC_TRAINING_DATA", "TRUBRIC_TARGET",
		"TRUBRIC_MINIMUM_ROWS", "TRUBRIC_REPORT", "TRUBRIC_LOG_LEVEL",
		"TRUBRIC_LOG_FORMAT", "TRUBRIC_BASELINE_STRATEGY", "TRUBRIC_ESTIMATOR_KIND",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Data.MinimumRows)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, baseline.MostFrequent, cfg.Baseline.Strategy)
	assert.Equal(t, ports.KindClassifier, cfg.Baseline.EstimatorKind)

	err = cfg.RequireData()
	assert.Equal(t, errors.CodeConfigInvalid, errors.CodeOf(err))
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	for _, key := range []string{"TRUBRIC_TESTING_DATA", "TRUBRIC_TARGET", "TRUBRIC_ESTIMATOR_KIND", "TRUBRIC_BASELINE_STRATEGY"} {
		require.NoError(t, os.Unsetenv(key))
	}
	path := filepath.Join(t.TempDir(), "trubric.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"TRUBRIC_TESTING_DATA=test.csv\nTRUBRIC_TARGET=Survived\nTRUBRIC_ESTIMATOR_KIND=regressor\nTRUBRIC_BASELINE_STRATEGY=median\n"), 0o644))
	t.Setenv("TRUBRIC_TRAINING_DATA", "train.xlsx")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test.csv", cfg.Data.TestingPath)
	assert.Equal(t, "train.xlsx", cfg.Data.TrainingPath)
	assert.Equal(t, "Survived", cfg.Data.Target)
	assert.Equal(t, ports.KindRegressor, cfg.Baseline.EstimatorKind)
	assert.Equal(t, baseline.Median, cfg.Baseline.Strategy)
	assert.NoError(t, cfg.RequireData())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"minimum rows not a number": {"TRUBRIC_MINIMUM_ROWS": "many"},
		"minimum rows zero":         {"TRUBRIC_MINIMUM_ROWS": "0"},
		"log format":                {"TRUBRIC_LOG_FORMAT": "xml"},
		"log level":                 {"TRUBRIC_LOG_LEVEL": "loud"},
		"estimator kind":            {"TRUBRIC_ESTIMATOR_KIND": "clusterer"},
		"strategy for kind":         {"TRUBRIC_BASELINE_STRATEGY": "mean"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.CodeOf(err))
		})
	}
}
