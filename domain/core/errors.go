package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the validator chains to exactly one of
// these so callers can render failure causes faithfully.
var (
	// ErrConfiguration marks caller mistakes such as unknown names.
	ErrConfiguration = errors.New("configuration error")
	// ErrEmptyData marks a dataset or slice that resolved to zero rows.
	ErrEmptyData = errors.New("empty data")
	// ErrType marks arguments or callable results of the wrong type or shape.
	ErrType = errors.New("type error")
	// ErrEstimatorKind marks a rule run against an incompatible estimator.
	ErrEstimatorKind = errors.New("wrong estimator kind")
)

// Configuration errors
var (
	ErrUnknownDataset    = fmt.Errorf("%w: unknown dataset", ErrConfiguration)
	ErrUnknownSlice      = fmt.Errorf("%w: unknown data slice", ErrConfiguration)
	ErrUnsupportedMetric = fmt.Errorf("%w: unsupported metric", ErrConfiguration)
	ErrUnknownFeature    = fmt.Errorf("%w: unknown feature", ErrConfiguration)
	ErrUnknownRule       = fmt.Errorf("%w: unknown validation rule", ErrConfiguration)
	ErrMissingTarget     = fmt.Errorf("%w: target column missing", ErrConfiguration)
)

// Empty-data errors
var (
	ErrEmptySlice = fmt.Errorf("%w: data slice has no rows", ErrEmptyData)
)

// Type errors
var (
	ErrInvalidThreshold = fmt.Errorf("%w: threshold must be a finite number", ErrType)
	ErrSliceShape       = fmt.Errorf("%w: slicing function returned an invalid table", ErrType)
	ErrInvalidArgument  = fmt.Errorf("%w: invalid rule argument", ErrType)
)

// Error constructors with context
func NewUnknownDatasetError(name string) error {
	return fmt.Errorf("%w %q", ErrUnknownDataset, name)
}

func NewUnknownSliceError(dataset, slice string) error {
	return fmt.Errorf("%w %q on %s", ErrUnknownSlice, slice, dataset)
}

func NewEmptySliceError(dataset, slice string) error {
	return fmt.Errorf("%w: %q on %s", ErrEmptySlice, slice, dataset)
}

func NewUnsupportedMetricError(metric string) error {
	return fmt.Errorf("%w %q", ErrUnsupportedMetric, metric)
}

func NewInvalidArgumentError(field string, reason string) error {
	return fmt.Errorf("%w %s: %s", ErrInvalidArgument, field, reason)
}

func NewEstimatorKindError(rule string, want string) error {
	return fmt.Errorf("%w: %s requires a %s", ErrEstimatorKind, rule, want)
}

// Error checking helpers
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsEmptyDataError(err error) bool {
	return errors.Is(err, ErrEmptyData)
}

func IsTypeError(err error) bool {
	return errors.Is(err, ErrType)
}

func IsEstimatorKindError(err error) bool {
	return errors.Is(err, ErrEstimatorKind)
}
