// Package logging keeps a directory of results for every test run.
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"

	"github.com/reportstream/rs-acceptor/types"
)

const (
	RunDirectoryPrefix = "testrun-" // Standardized prefix for run directories
	SummaryFilename    = "summary.log"
)

// ResultSink is an interface for different ways of consuming test results
type ResultSink interface {
	// Consume processes a single test result
	Consume(result *types.TestResult, runID string) error
	// Complete is called when all results have been consumed
	Complete(runID string) error
}

// FileLogger writes the results of one run below baseDir/testrun-<runID>:
// a log per test under passed/, failed/ or skipped/, a results.jsonl and summary.log.
type FileLogger struct {
	baseDir string
	logDir  string
	runID   string
	mu      sync.Mutex
	sinks   []ResultSink
}

// NewFileLogger creates a new FileLogger with given configuration
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	for _, dir := range []string{baseDir, logDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	l := &FileLogger{
		baseDir: baseDir,
		logDir:  logDir,
		runID:   runID,
	}
	l.sinks = append(l.sinks, &PerTestFileSink{logger: l}, NewJSONLinesSink(l))
	return l, nil
}

// LogDir returns the directory of the logger's run.
func (l *FileLogger) LogDir() string {
	return l.logDir
}

// GetDirectoryForRunID returns the path for a specific runID
func (l *FileLogger) GetDirectoryForRunID(runID string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("runID cannot be empty")
	}
	if runID == l.runID {
		return l.logDir, nil
	}
	return filepath.Join(l.baseDir, RunDirectoryPrefix+runID), nil
}

// AddSink registers an additional consumer of the run's results.
func (l *FileLogger) AddSink(s ResultSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// LogTestResult processes a test result through all registered sinks
func (l *FileLogger) LogTestResult(result *types.TestResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, sink := range l.sinks {
		if err := sink.Consume(result, l.runID); err != nil {
			return fmt.Errorf("error in sink: %w", err)
		}
	}
	return nil
}

// Complete writes the run summary, without terminal colors, and completes every sink.
func (l *FileLogger) Complete(summary string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	if err := os.WriteFile(filepath.Join(l.logDir, SummaryFilename), []byte(stripansi.Strip(summary)), 0644); err != nil {
		errs = append(errs, fmt.Errorf("failed to write summary file: %w", err))
	}
	for _, sink := range l.sinks {
		if err := sink.Complete(l.runID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PerTestFileSink writes one log file per test, grouped by outcome.
type PerTestFileSink struct {
	logger *FileLogger
}

func (s *PerTestFileSink) Consume(result *types.TestResult, runID string) error {
	baseDir, err := s.logger.GetDirectoryForRunID(runID)
	if err != nil {
		return err
	}
	dir := filepath.Join(baseDir, outcomeDir(result.Status))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Test: %s\n", result.ID)
	fmt.Fprintf(&b, "Classification: %s\n", result.Classification.Description())
	fmt.Fprintf(&b, "Status: %s\n", result.Status)
	fmt.Fprintf(&b, "Duration: %s\n", result.Duration)
	if result.Error != nil {
		fmt.Fprintf(&b, "Error: %s\n", result.Error)
	}

	path := filepath.Join(dir, safeFilename(result.ID)+".log")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write test log %s: %w", path, err)
	}
	return nil
}

func (s *PerTestFileSink) Complete(string) error {
	return nil
}

func outcomeDir(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "passed"
	case types.TestStatusSkip:
		return "skipped"
	default:
		return "failed"
	}
}

func safeFilename(id string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == ' ' {
			return '_'
		}
		return r
	}, id)
}
