package acceptor

import (
	"fmt"
	"strings"
	"time"

	"github.com/reportstream/rs-acceptor/types"
)

// getResultString returns a string representing the test result
func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusSkip:
		return "- skip"
	case types.TestStatusError:
		return "✗ error"
	default:
		return "✗ fail"
	}
}

// formatDuration formats the duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// extractKeyErrorMessage extracts the most pertinent line of a test error for display
func extractKeyErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()

	// Failure reports carry the test name before the marker; the table already shows it
	if idx := strings.Index(errStr, "FAILED***:"); idx != -1 {
		errStr = strings.TrimSpace(errStr[idx+len("FAILED***:"):])
	} else if idx := strings.Index(errStr, "panic"); idx != -1 {
		errStr = errStr[idx:]
	}

	if newLine := strings.Index(errStr, "\n"); newLine != -1 {
		errStr = errStr[:newLine]
	}
	return errStr
}
