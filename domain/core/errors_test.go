package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindsAreDistinguishable(t *testing.T) {
	unknown := NewUnknownSliceError("testing_data", "nope")
	empty := NewEmptySliceError("training_data", "children")

	assert.True(t, IsConfigurationError(unknown))
	assert.False(t, IsEmptyDataError(unknown))
	assert.True(t, IsEmptyDataError(empty))
	assert.False(t, IsConfigurationError(empty))
	assert.True(t, errors.Is(unknown, ErrUnknownSlice))
	assert.True(t, errors.Is(empty, ErrEmptySlice))
}

func TestTypeErrors(t *testing.T) {
	for _, err := range []error{ErrInvalidThreshold, ErrSliceShape, NewInvalidArgumentError("threshold", "not a number")} {
		assert.True(t, IsTypeError(err), err.Error())
		assert.False(t, IsConfigurationError(err), err.Error())
	}
}

func TestEstimatorKindError(t *testing.T) {
	err := NewEstimatorKindError("minimum_functionality_in_range", "regressor")
	assert.True(t, IsEstimatorKindError(err))
	assert.Contains(t, err.Error(), "regressor")
}
