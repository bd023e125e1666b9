package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"gotrubric/internal/baseline"
	"gotrubric/internal/errors"
	"gotrubric/internal/logging"
	"gotrubric/ports"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config represents the complete CLI configuration
type Config struct {
	Data     DataConfig
	Logging  LoggingConfig
	Baseline BaselineConfig
	// Report is the default trubric path for run and inspect
	Report string
}

// DataConfig locates the datasets a trubric is replayed against
type DataConfig struct {
	TestingPath  string
	TrainingPath string
	Target       string
	MinimumRows  int `validate:"gte=1"`
}

// LoggingConfig holds slog settings
type LoggingConfig struct {
	Level  string
	Format string `validate:"oneof=text json"`
}

// BaselineConfig selects the naive model the CLI validates
type BaselineConfig struct {
	Strategy      baseline.Strategy   `validate:"required"`
	EstimatorKind ports.EstimatorKind `validate:"oneof=classifier regressor"`
}

// Load reads configuration from environment variables, after loading the
// given .env files (or ./.env when none are named and it exists)
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	minRows, err := getEnvIntOrDefault("TRUBRIC_MINIMUM_ROWS", 1)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Data: DataConfig{
			TestingPath:  getEnvOrDefault("TRUBRIC_TESTING_DATA", ""),
			TrainingPath: getEnvOrDefault("TRUBRIC_TRAINING_DATA", ""),
			Target:       getEnvOrDefault("TRUBRIC_TARGET", ""),
			MinimumRows:  minRows,
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("TRUBRIC_LOG_LEVEL", "info"),
			Format: getEnvOrDefault("TRUBRIC_LOG_FORMAT", "text"),
		},
		Baseline: BaselineConfig{
			Strategy:      baseline.Strategy(getEnvOrDefault("TRUBRIC_BASELINE_STRATEGY", string(baseline.MostFrequent))),
			EstimatorKind: ports.EstimatorKind(getEnvOrDefault("TRUBRIC_ESTIMATOR_KIND", string(ports.KindClassifier))),
		},
		Report: getEnvOrDefault("TRUBRIC_REPORT", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		err := godotenv.Load()
		if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to load .env")
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to load env files")
	}
	return nil
}

var structs = validator.New()

// Validate checks field constraints and cross-field rules. Flags may change
// a loaded config, so callers re-validate after applying them.
func (c *Config) Validate() error {
	if err := structs.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.ConfigInvalid(fmt.Sprintf("%s: %q fails %q", fe.Namespace(), fe.Value(), fe.Tag()))
		}
		return errors.ConfigInvalid(err.Error())
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	if !supportsStrategy(c.Baseline.EstimatorKind, c.Baseline.Strategy) {
		return errors.ConfigInvalid(fmt.Sprintf("strategy %q is not available for a %s", c.Baseline.Strategy, c.Baseline.EstimatorKind))
	}
	return nil
}

// RequireData fails unless both datasets and the target are configured
func (c *Config) RequireData() error {
	switch {
	case c.Data.TestingPath == "":
		return errors.ConfigInvalid("TRUBRIC_TESTING_DATA is required")
	case c.Data.TrainingPath == "":
		return errors.ConfigInvalid("TRUBRIC_TRAINING_DATA is required")
	case c.Data.Target == "":
		return errors.ConfigInvalid("TRUBRIC_TARGET is required")
	}
	return nil
}

func supportsStrategy(kind ports.EstimatorKind, strategy baseline.Strategy) bool {
	for _, s := range baseline.Strategies(kind) {
		if s == strategy {
			return true
		}
	}
	return false
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be an integer, got %q", key, value))
	}
	return intValue, nil
}
