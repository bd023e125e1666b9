package errors

import (
	stderrors "errors"
	"fmt"

	"gotrubric/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of the
// error it wraps
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    CodeOf(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Predefined error codes
const (
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeEmptyData     = "EMPTY_DATA"
	CodeTypeError     = "TYPE_ERROR"
	CodeEstimatorKind = "ESTIMATOR_KIND"
	CodeModelError    = "MODEL_ERROR"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeMismatch      = "VERDICT_MISMATCH"
)

// CodeOf classifies an error for rendering. AppError codes win; otherwise
// the validation taxonomy decides, and anything else came from the model.
func CodeOf(err error) string {
	var appErr *AppError
	switch {
	case err == nil:
		return ""
	case stderrors.As(err, &appErr) && appErr.Code != "":
		return appErr.Code
	case core.IsConfigurationError(err):
		return CodeConfigInvalid
	case core.IsEmptyDataError(err):
		return CodeEmptyData
	case core.IsTypeError(err):
		return CodeTypeError
	case core.IsEstimatorKindError(err):
		return CodeEstimatorKind
	default:
		return CodeModelError
	}
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
