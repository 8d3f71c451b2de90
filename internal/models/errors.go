package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a malformed chat log or analysis request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned by collaborators when a recording or analysis does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable marks a failure of the content-fetch or storage collaborator.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// UpstreamError wraps a collaborator failure. It matches both ErrUpstreamUnavailable
// and the underlying cause with errors.Is.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstreamUnavailable, e.Err}
}

// Upstream wraps err as an UpstreamError unless it is nil, a not-found error or
// an invalid-input error.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &UpstreamError{Op: op, Err: err}
}

// InvalidInputf formats an error wrapping ErrInvalidInput.
func InvalidInputf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
