package acceptor

import (
	"errors"
	"fmt"
	"strings"
)

// RuntimeError means the run could not be carried out at all: bad flags, a database that
// belongs to another environment, an unreachable router. The process exits with code 2.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError reports whether err wraps a RuntimeError.
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError means the run completed but at least one end-to-end test failed or
// errored. The process exits with code 1.
type TestFailureError struct {
	// Failed holds the ids of the failed tests in run order.
	Failed []string
	// Summary is the rendered run summary.
	Summary string
}

func (e *TestFailureError) Error() string {
	if len(e.Failed) == 0 {
		return fmt.Sprintf("test failure: %s", e.Summary)
	}
	return fmt.Sprintf("test failure: %d failed (%s)", len(e.Failed), strings.Join(e.Failed, ", "))
}

func NewTestFailureError(failed []string, summary string) *TestFailureError {
	return &TestFailureError{Failed: failed, Summary: summary}
}

// IsTestFailureError reports whether err wraps a TestFailureError.
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
