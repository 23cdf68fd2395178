// Package planloom - errors.go
// Defines agent and session specific errors.

package planloom

import (
	"errors"
	"fmt"
)

var (
	ErrSessionClosed = errors.New("session has been closed")
	ErrEmptyGoal     = errors.New("goal must not be empty")
	ErrMaxIterations = errors.New("agent exceeded maximum iterations")
)

// RetryableError marks a tool failure the model should retry, typically a
// transient network or provider error. The error text is forwarded to the
// model inside the tool message.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func NewRetryableError(format string, args ...any) *RetryableError {
	return &RetryableError{Err: fmt.Errorf(format, args...)}
}

// IgnorableError marks a tool failure that retrying won't fix, like a
// location OpenWeather doesn't know. The model is told not to retry.
type IgnorableError struct {
	Err error
}

func (e *IgnorableError) Error() string {
	return e.Err.Error()
}

func (e *IgnorableError) Unwrap() error {
	return e.Err
}

func NewIgnorableError(format string, args ...any) *IgnorableError {
	return &IgnorableError{Err: fmt.Errorf(format, args...)}
}
