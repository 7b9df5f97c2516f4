package engine

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input detected before any sampling
// starts. A run that returns a ValidationError has done no work and
// mutated nothing.
type ValidationError struct {
	// Code identifies the violation category.
	Code ValidationCode

	// Field names the offending entity (factor id, config field), when
	// one can be named.
	Field string

	// Message is a human-readable description.
	Message string
}

// ValidationCode categorizes validation failures.
type ValidationCode string

const (
	// ErrCodeDistributionParams indicates invalid distribution parameters.
	ErrCodeDistributionParams ValidationCode = "INVALID_DISTRIBUTION_PARAMS"

	// ErrCodeIterationsOutOfRange indicates an iteration count outside
	// [MinIterations, MaxIterations].
	ErrCodeIterationsOutOfRange ValidationCode = "ITERATIONS_OUT_OF_RANGE"

	// ErrCodePercentileOutOfRange indicates a requested percentile
	// outside (0, 1).
	ErrCodePercentileOutOfRange ValidationCode = "PERCENTILE_OUT_OF_RANGE"

	// ErrCodeEstimateStructure indicates a malformed line-item tree or
	// dangling reference.
	ErrCodeEstimateStructure ValidationCode = "INVALID_ESTIMATE_STRUCTURE"

	// ErrCodeCorrelationOutOfRange indicates a correlation coefficient
	// outside [-1, 1].
	ErrCodeCorrelationOutOfRange ValidationCode = "CORRELATION_OUT_OF_RANGE"

	// ErrCodeCorrelationMatrix indicates the pairwise specs could not be
	// assembled into a usable matrix (conflicting duplicates, self pairs).
	ErrCodeCorrelationMatrix ValidationCode = "INVALID_CORRELATION_MATRIX"
)

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NumericError reports NaN or Infinity produced during sampling or
// aggregation. The run fails rather than silently dropping samples.
type NumericError struct {
	Stage   string // "sampling", "correlation", "aggregation"
	Subject string // factor id or item id when known
}

func (e *NumericError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("NUMERIC_INSTABILITY: non-finite value during %s (%s)", e.Stage, e.Subject)
	}
	return fmt.Sprintf("NUMERIC_INSTABILITY: non-finite value during %s", e.Stage)
}

// TimeoutError reports that the wall-clock budget was exceeded. No
// partial result accompanies it.
type TimeoutError struct {
	Stage string
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("TIMEOUT: run aborted during %s: %v", e.Stage, e.Cause)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsNumeric reports whether err is a NumericError.
func IsNumeric(err error) bool {
	var ne *NumericError
	return errors.As(err, &ne)
}
