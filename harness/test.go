package harness

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/reportstream/rs-acceptor/types"
)

// Test is one entry of the end-to-end catalog. Fn returns nil when the test passed.
type Test struct {
	ID          string
	Description string
	Status      types.Classification
	Fn          func(ctx context.Context, h *Harness, opts types.TestOptions) error
}

// FatalError means the remaining tests cannot succeed and the run must stop.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func NewFatalError(err error) *FatalError {
	return &FatalError{Err: err}
}

// IsFatal checks if the error is or wraps a FatalError
func IsFatal(err error) bool {
	var fe *FatalError
	return err != nil && errors.As(err, &fe)
}

// Run executes the test once, converting panics into errored results.
func (t Test) Run(ctx context.Context, h *Harness, opts types.TestOptions) (res *types.TestResult) {
	start := time.Now()
	res = &types.TestResult{ID: t.ID, Classification: t.Status}
	defer func() {
		if r := recover(); r != nil {
			h.Log.Error("Test panicked", "test", t.ID, "panic", r, "stack", string(debug.Stack()))
			res.Status = types.TestStatusError
			res.Error = fmt.Errorf("panic in test %s: %v", t.ID, r)
		}
		res.Duration = time.Since(start)
		h.Log.Info("Test finished", "test", t.ID, "status", res.Status, "duration", res.Duration, "error", res.Error)
	}()

	if t.Fn == nil {
		res.Status = types.TestStatusError
		res.Error = fmt.Errorf("test function is nil")
		return res
	}

	h.Log.Info("Running test", "test", t.ID, "classification", t.Status)
	if err := t.Fn(ctx, h, opts); err != nil {
		res.Status = types.TestStatusFail
		if IsFatal(err) {
			res.Status = types.TestStatusError
		}
		res.Error = err
		return res
	}
	res.Status = types.TestStatusPass
	return res
}
