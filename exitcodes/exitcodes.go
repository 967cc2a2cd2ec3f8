// Package exitcodes defines the standard exit codes used by rs-acceptor.
package exitcodes

// Exit code constants used by rs-acceptor
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all tests pass successfully, or after --list
// * TestFailure (1): Used when one or more tests fail
// * RuntimeErr (2): Used for configuration errors, an environment mismatch or an unreachable router
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors
)
