package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/metrics"
	"github.com/reportstream/rs-acceptor/types"
)

// RunnerResult captures the complete test run results
type RunnerResult struct {
	// Tests holds one result per selected test, in execution order.
	Tests    []*types.TestResult
	Status   types.TestStatus
	Duration time.Duration
	Stats    ResultStats
	RunID    string
	// Aborted is set when a fatal error or an interrupt stopped the run early.
	Aborted bool
}

// ResultStats tracks test statistics
type ResultStats struct {
	Total     int
	Passed    int
	Failed    int
	Errored   int
	Skipped   int
	StartTime time.Time
	EndTime   time.Time
}

// TestRunner defines the interface for running end-to-end tests
type TestRunner interface {
	RunAllTests(ctx context.Context) (*RunnerResult, error)
}

type runner struct {
	harness *harness.Harness
	tests   []harness.Test
	opts    types.TestOptions
	log     log.Logger
	runID   string
	tracer  trace.Tracer
}

// Config holds configuration for creating a new runner
type Config struct {
	Harness *harness.Harness
	Tests   []harness.Test
	Options types.TestOptions
	Log     log.Logger
	// RunID labels the run's metrics. Generated when empty.
	RunID string
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.Harness == nil {
		return nil, fmt.Errorf("harness is required")
	}
	if len(cfg.Tests) == 0 {
		return nil, fmt.Errorf("no tests selected")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.New().String()
	}

	cfg.Log.Debug("NewTestRunner()", "tests", len(cfg.Tests), "env", cfg.Options.Env, "runID", cfg.RunID)

	return &runner{
		harness: cfg.Harness,
		tests:   cfg.Tests,
		opts:    cfg.Options,
		log:     cfg.Log,
		runID:   cfg.RunID,
		tracer:  otel.Tracer("test runner"),
	}, nil
}

// RunAllTests runs every test in order. The result is returned even when the run was aborted,
// together with an error naming the cause.
func (r *runner) RunAllTests(ctx context.Context) (*RunnerResult, error) {
	start := time.Now()
	r.log.Debug("Running all tests", "run_id", r.runID)
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("run %s", r.runID))
	defer span.End()

	result := &RunnerResult{
		RunID: r.runID,
		Stats: ResultStats{StartTime: start},
	}

	var abortErr error
	for _, test := range r.tests {
		if abortErr == nil {
			if err := ctx.Err(); err != nil {
				abortErr = fmt.Errorf("test run interrupted: %w", err)
			}
		}
		if abortErr != nil {
			result.add(&types.TestResult{ID: test.ID, Classification: test.Status, Status: types.TestStatusSkip})
			continue
		}

		testCtx, testSpan := r.tracer.Start(ctx, fmt.Sprintf("test %s", test.ID))
		res := test.Run(testCtx, r.harness, r.opts)
		testSpan.End()
		result.add(res)
		metrics.RecordValidation(r.opts.Env, r.runID, test.ID, test.Status, res.Status, res.Duration)

		if harness.IsFatal(res.Error) {
			abortErr = fmt.Errorf("test %s stopped the run: %w", test.ID, res.Error)
			r.log.Error("Fatal test failure, skipping remaining tests", "test", test.ID, "err", res.Error)
		}
	}

	result.Aborted = abortErr != nil
	result.Duration = time.Since(start)
	result.Status = determineRunnerStatus(result)
	result.Stats.EndTime = time.Now()
	return result, abortErr
}

func (r *RunnerResult) add(test *types.TestResult) {
	r.Tests = append(r.Tests, test)
	r.Stats.Total++
	switch test.Status {
	case types.TestStatusPass:
		r.Stats.Passed++
	case types.TestStatusFail:
		r.Stats.Failed++
	case types.TestStatusError:
		r.Stats.Errored++
	case types.TestStatusSkip:
		r.Stats.Skipped++
	}
}

// determineRunnerStatus determines the overall status of the test run. Skipped tests only
// count against the run when it was aborted.
func determineRunnerStatus(result *RunnerResult) types.TestStatus {
	switch {
	case result.Stats.Errored > 0:
		return types.TestStatusError
	case result.Stats.Failed > 0 || result.Aborted:
		return types.TestStatusFail
	case result.Stats.Passed == 0:
		return types.TestStatusSkip
	default:
		return types.TestStatusPass
	}
}

// Passed reports whether every selected test ran and passed.
func (r *RunnerResult) Passed() bool {
	return r.Status == types.TestStatusPass
}

// FailedTests returns the ids of the tests that failed or errored.
func (r *RunnerResult) FailedTests() []string {
	var ids []string
	for _, t := range r.Tests {
		if t.Status == types.TestStatusFail || t.Status == types.TestStatusError {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// formatDuration formats the duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// String returns a formatted string representation of the test results
func (r *RunnerResult) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Test Run Results (%s):\n", formatDuration(r.Duration)))
	b.WriteString(fmt.Sprintf("Total: %d, Passed: %d, Failed: %d, Errored: %d, Skipped: %d\n",
		r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Errored, r.Stats.Skipped))

	for i, test := range r.Tests {
		prefix := "├──"
		if i == len(r.Tests)-1 {
			prefix = "└──"
		}
		b.WriteString(fmt.Sprintf("%s Test: %s (%s) [status=%s]\n", prefix, test.ID, formatDuration(test.Duration), test.Status))
		if test.Error != nil {
			b.WriteString(fmt.Sprintf("│       └── Error: %s\n", test.Error.Error()))
		}
	}
	return b.String()
}
