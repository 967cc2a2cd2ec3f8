// Package runner executes a selection of end-to-end tests one after another and
// aggregates their results.
//
// Tests never run concurrently with each other; a test may fan out internally. Every selected
// test runs once, in order, regardless of earlier failures, unless a test reports a fatal error
// or the run is interrupted. The tests that did not get to run are then recorded as skipped.
package runner
