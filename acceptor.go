// Package acceptor runs ReportStream end-to-end tests against a deployed router and
// reports the results as a table, prometheus metrics and the process exit code.
package acceptor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/reportstream/rs-acceptor/exitcodes"
	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/lineage"
	"github.com/reportstream/rs-acceptor/logging"
	"github.com/reportstream/rs-acceptor/metrics"
	"github.com/reportstream/rs-acceptor/registry"
	"github.com/reportstream/rs-acceptor/report"
	"github.com/reportstream/rs-acceptor/runner"
	"github.com/reportstream/rs-acceptor/service"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/submit"
	"github.com/reportstream/rs-acceptor/types"
	"github.com/reportstream/rs-acceptor/validators/tests"
)

// Acceptor implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &Acceptor{}

// Acceptor runs the selected end-to-end tests once, or periodically when a run interval is set.
type Acceptor struct {
	ctx      context.Context
	config   *Config
	version  string
	registry *registry.Registry
	selected []harness.Test
	harness  *harness.Harness
	store    lineage.Store
	service  *service.Service
	result   *runner.RunnerResult
	table    string // rendered results table of the last run
	out      io.Writer

	unresolved []string // names that matched neither a test nor a suite

	running atomic.Bool
	healthy atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*Acceptor, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating acceptor with config",
		"env", config.Env.Name,
		"endpoint", config.Env.Endpoint,
		"tests", config.TestNames,
		"items", config.Options.Items,
		"submits", config.Options.Submits,
		"dir", config.Options.Dir,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	reg, err := registry.NewRegistry(registry.Config{
		Log:       config.Log,
		Tests:     tests.All,
		SuiteFile: config.SuiteFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	a := &Acceptor{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		out:              os.Stdout,
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}
	if config.List {
		return a, nil
	}

	selected, unresolved := reg.Select(config.TestNames)
	if len(unresolved) > 0 {
		config.Log.Warn("Ignoring unknown tests or suites", "names", strings.Join(unresolved, ", "))
	}
	a.selected = selected
	a.unresolved = unresolved
	if len(selected) == 0 {
		return a, nil
	}

	if err := a.initHarness(ctx); err != nil {
		return nil, err
	}
	config.Log.Info("acceptor.New: created registry and harness", "selected", len(selected))
	return a, nil
}

func (a *Acceptor) initHarness(ctx context.Context) error {
	catalog, err := a.loadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	store := a.config.Store
	if store == nil {
		if store, err = lineage.NewPostgresStore(ctx, a.config.DatabaseURL); err != nil {
			return err
		}
	}
	a.store = store

	submitter := a.config.Submitter
	if submitter == nil {
		submitter = submit.NewClient(a.config.Env.Endpoint, nil, a.config.Log)
	}

	h, err := harness.New(harness.Config{
		Env:       a.config.Env,
		Catalog:   catalog,
		Submitter: submitter,
		Store:     store,
		Reporter:  report.New(a.out, a.config.Log),
		Log:       a.config.Log,
	})
	if err != nil {
		return errors.Join(fmt.Errorf("failed to create harness: %w", err), store.Close())
	}
	a.harness = h
	return nil
}

func (a *Acceptor) loadCatalog() (*settings.Catalog, error) {
	if a.config.SettingsFile == "" {
		return settings.LoadDefault()
	}
	return settings.Load(a.config.SettingsFile)
}

// Start implements the cliapp.Lifecycle interface.
func (a *Acceptor) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			a.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	a.ctx = ctx
	a.done = make(chan struct{})
	a.running.Store(true)

	if a.config.List {
		a.printTestList()
		go a.shutdownCallback(nil)
		return nil
	}

	for _, name := range a.unresolved {
		fmt.Fprintf(a.out, "%s: not found\n", name)
	}
	if len(a.selected) == 0 {
		fmt.Fprintln(a.out, "No tests to run.")
		a.config.Log.Info("No tests selected, exiting")
		go a.shutdownCallback(nil)
		return nil
	}

	if a.config.RunOnce {
		a.config.Log.Info("Starting rs-acceptor in run-once mode", "env", a.config.Env.Name)
	} else {
		a.config.Log.Info("Starting rs-acceptor in continuous mode", "env", a.config.Env.Name, "interval", a.config.RunInterval)
		svcCfg := service.DefaultConfig()
		svcCfg.Metrics = a.config.Metrics
		if a.config.HealthzAddr != "" {
			svcCfg.HealthzAddr = a.config.HealthzAddr
		}
		svcCfg.Ready = a.healthy.Load
		a.service = service.New(svcCfg, a.config.Log)
		a.service.Start(ctx)
	}

	// Run tests immediately on startup
	if err := a.runTests(ctx); err != nil {
		a.config.Log.Error("Runtime error running tests", "error", err)
		return err
	}

	if a.config.RunOnce {
		a.config.Log.Info("Tests completed, exiting (run-once mode)")
		if !a.result.Passed() {
			a.config.Log.Warn("Run-once test run completed with failures, returning exit code 1", "failed", a.result.FailedTests())
			return NewTestFailureError(a.result.FailedTests(), a.result.String())
		}
		go a.shutdownCallback(nil)
		return nil
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.config.Log.Debug("Starting periodic test runner goroutine", "interval", a.config.RunInterval)

		for {
			select {
			case <-time.After(a.config.RunInterval):
				if !a.running.Load() {
					a.config.Log.Debug("Service stopped, exiting periodic test runner")
					return
				}
				a.config.Log.Info("Running periodic tests")
				if err := a.runTests(ctx); err != nil {
					a.config.Log.Error("Error running periodic tests", "error", err)
				}
				a.config.Log.Info("Test run interval", "interval", a.config.RunInterval)

			case <-a.done:
				a.config.Log.Debug("Done signal received, stopping periodic test runner")
				return

			case <-ctx.Done():
				a.config.Log.Debug("Context canceled, stopping periodic test runner")
				a.running.Store(false)
				return
			}
		}
	}()
	a.config.Log.Debug("rs-acceptor started successfully")
	return nil
}

// runTests runs the selected tests once and prints the results. Test failures are recorded
// in the result; only a run that could not complete returns an error.
func (a *Acceptor) runTests(ctx context.Context) error {
	a.config.Log.Info("Running tests...", "count", len(a.selected))
	testRunner, err := runner.NewTestRunner(runner.Config{
		Harness: a.harness,
		Tests:   a.selected,
		Options: a.config.Options,
		Log:     a.config.Log,
	})
	if err != nil {
		return NewRuntimeError(err)
	}

	result, err := testRunner.RunAllTests(ctx)
	if result != nil {
		a.result = result
		a.printResultsTable()
		fmt.Fprintln(a.out, result.String())
		a.config.Log.Info("Test run completed", "run_id", result.RunID, "status", result.Status)
		if logErr := a.writeRunLogs(result); logErr != nil {
			a.config.Log.Error("Failed to write run logs", "run_id", result.RunID, "error", logErr)
			metrics.RecordErrorDetails("write run logs", logErr)
		}
	}
	if err != nil {
		a.healthy.Store(false)
		return NewRuntimeError(err)
	}
	a.healthy.Store(true)
	return nil
}

// writeRunLogs keeps the results of the run below the configured log directory.
func (a *Acceptor) writeRunLogs(result *runner.RunnerResult) error {
	if a.config.LogDir == "" {
		return nil
	}
	fl, err := logging.NewFileLogger(a.config.LogDir, result.RunID)
	if err != nil {
		return err
	}
	for _, test := range result.Tests {
		if err := fl.LogTestResult(test); err != nil {
			return err
		}
	}
	a.config.Log.Info("Wrote run logs", "dir", fl.LogDir())
	return fl.Complete(a.table + "\n" + result.String())
}

// Stop implements the cliapp.Lifecycle interface.
func (a *Acceptor) Stop(ctx context.Context) error {
	a.config.Log.Info("Stopping rs-acceptor")

	if !a.running.Load() {
		a.config.Log.Debug("Service already stopped, nothing to do")
		return a.closeStore()
	}
	a.running.Store(false)

	a.config.Log.Debug("Sending done signal to goroutines")
	close(a.done)

	finished := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return fmt.Errorf("periodic test run did not stop: %w", ctx.Err())
	}

	if a.service != nil {
		a.service.Shutdown()
	}
	if err := a.closeStore(); err != nil {
		return err
	}
	a.config.Log.Info("rs-acceptor stopped successfully")
	return nil
}

func (a *Acceptor) closeStore() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// Stopped implements the cliapp.Lifecycle interface.
func (a *Acceptor) Stopped() bool {
	return !a.running.Load()
}

// Result returns the result of the most recent run, nil before the first run completes.
func (a *Acceptor) Result() *runner.RunnerResult {
	return a.result
}

// printResultsTable prints the results of the last run to the console.
func (a *Acceptor) printResultsTable() {
	a.config.Log.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetTitle(fmt.Sprintf("End-to-End Test Results: %s (%s)", a.config.Env.Name, formatDuration(a.result.Duration)))

	t.AppendHeader(table.Row{
		"Test", "Classification", "Duration", "Status", "Error",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, test := range a.result.Tests {
		prefix := "├──"
		if i == len(a.result.Tests)-1 {
			prefix = "└──"
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%s %s", prefix, test.ID),
			test.Classification,
			formatDuration(test.Duration),
			getResultString(test.Status),
			extractKeyErrorMessage(test.Error),
		})
	}

	switch a.result.Status {
	case types.TestStatusPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case types.TestStatusSkip:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d passed, %d failed, %d skipped", a.result.Stats.Passed, a.result.Stats.Failed+a.result.Stats.Errored, a.result.Stats.Skipped),
		formatDuration(a.result.Duration),
		getResultString(a.result.Status),
		"",
	})
	a.table = t.Render()

	metrics.RecordAcceptance(
		a.config.Env.Name,
		a.result.RunID,
		string(a.result.Status),
		a.result.Stats.Total,
		a.result.Stats.Passed,
		a.result.Stats.Failed+a.result.Stats.Errored,
		a.result.Duration,
	)
}

// printTestList prints the catalog and the suites that can be passed to --run.
func (a *Acceptor) printTestList() {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetTitle("Available Tests")
	t.AppendHeader(table.Row{"Test", "Classification", "Description"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Description", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})
	for _, e := range a.registry.List() {
		t.AppendRow(table.Row{e.Name, e.Classification.Description(), e.Description})
	}
	t.AppendFooter(table.Row{"SUITES", strings.Join(a.registry.Suites(), ", "), ""})
	t.Render()
}
