package types

import (
	"fmt"
	"strings"
	"time"
)

// TestStatus represents the possible states of a test execution
type TestStatus string

const (
	TestStatusPass  TestStatus = "pass"
	TestStatusFail  TestStatus = "fail"
	TestStatusSkip  TestStatus = "skip"
	TestStatusError TestStatus = "error"
)

// Classification tells the operator what kind of end-to-end test a catalog entry is.
type Classification string

const (
	ClassificationExperimental  Classification = "experimental"
	ClassificationAlwaysFailing Classification = "always-failing"
	ClassificationLoad          Classification = "load"
	ClassificationSmoke         Classification = "smoke"
)

var Classifications = []Classification{
	ClassificationExperimental,
	ClassificationAlwaysFailing,
	ClassificationLoad,
	ClassificationSmoke,
}

// Description returns the human readable explanation shown by --list.
func (c Classification) Description() string {
	switch c {
	case ClassificationExperimental:
		return "Experimental"
	case ClassificationAlwaysFailing:
		return "Always fails"
	case ClassificationLoad:
		return "Load Test"
	case ClassificationSmoke:
		return "Part of Smoke test"
	default:
		return string(c)
	}
}

// ParseClassification converts a string into a Classification, case-insensitively.
func ParseClassification(s string) (Classification, error) {
	c := Classification(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case ClassificationExperimental, ClassificationAlwaysFailing, ClassificationLoad, ClassificationSmoke:
		return c, nil
	}
	return "", fmt.Errorf("unknown classification %q", s)
}

// Verbosity controls how much console output a test, the scheduler and the reporter produce.
// It is passed explicitly so nested test invocations can run quietly without touching shared state.
type Verbosity int

const (
	Normal Verbosity = iota
	Quiet
)

func (v Verbosity) IsQuiet() bool {
	return v == Quiet
}

// Stage is a processing step of the pipeline recorded in the lineage graph.
type Stage string

const (
	StageReceive Stage = "receive"
	StageBatch   Stage = "batch"
	StageSend    Stage = "send"
)

// TestOptions are the run-wide parameters handed to every test.
// Created once per run and passed by value.
type TestOptions struct {
	Items     int    // Fake items per receiver
	Submits   int    // Number of submissions for fan-out tests
	Dir       string // Working directory for generated files
	SFTPDir   string // Local directory the sftp receivers drop files in
	Key       string // Credential sent as x-functions-key
	Env       string // Environment name
	Sender    string // Optional "org.sender" override
	Verbosity Verbosity
}

// TestResult captures the outcome of a single test run
type TestResult struct {
	ID             string
	Classification Classification
	Status         TestStatus
	Error          error
	Duration       time.Duration // Track test execution time
}
