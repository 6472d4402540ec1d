package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUpstreamUnavailable = errors.New("upstream data source unavailable")
	ErrSeriesTooLong       = errors.New("series too long")
	ErrNotFound            = errors.New("not found")
	ErrUnsupported         = errors.New("operation not supported by this backend")

	ErrInvalidMonth   = fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidInput)
	ErrInvalidYear    = fmt.Errorf("%w: year out of range", ErrInvalidInput)
	ErrInvalidAmount  = fmt.Errorf("%w: amount must be a finite non-negative number", ErrInvalidInput)
	ErrEmptyProduct   = fmt.Errorf("%w: empty product", ErrInvalidInput)
	ErrProductTooLong = fmt.Errorf("%w: product too long (max 200 characters)", ErrInvalidInput)
	ErrEmptyCategory  = fmt.Errorf("%w: empty category", ErrInvalidInput)
	ErrEmptyText      = fmt.Errorf("%w: empty text", ErrInvalidInput)
)

// InvalidInputError reports a series the detector refuses to score.
// Index is -1 when the problem is not tied to a single observation.
type InvalidInputError struct {
	Index  int
	Period string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input at index %d (period %q): %s", e.Index, e.Period, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// UpstreamUnavailableError wraps a failure of the collaborator that supplies series.
type UpstreamUnavailableError struct {
	Source string
	Err    error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

func (e *UpstreamUnavailableError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}
