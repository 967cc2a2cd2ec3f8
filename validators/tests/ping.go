package tests

import (
	"context"
	"fmt"
	"net/http"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/response"
	"github.com/reportstream/rs-acceptor/submit"
	"github.com/reportstream/rs-acceptor/types"
)

// Ping checks that the reports endpoint is alive. Every other test depends on it,
// so an unreachable endpoint stops the run.
var Ping = harness.Test{
	ID:          "ping",
	Description: "CheckConnections: Is the reports endpoint alive and listening?",
	Status:      types.ClassificationSmoke,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		h.Reporter.Ugly("Starting ping Test: run CheckConnections of %s", h.Env.Endpoint)
		code, body, err := h.Submitter.Submit(ctx, []byte("x"), h.Fixtures.SimpleReport, opts.Key, submit.OptionCheckConnections)
		if err != nil {
			return harness.NewFatalError(h.Fail("Ping/CheckConnections Test FAILED: %v", err))
		}
		h.Reporter.Echo("Response to POST: %d", code)
		h.Reporter.Echo("%s", body)
		if code != http.StatusOK {
			return harness.NewFatalError(h.Fail("Ping/CheckConnections Test FAILED:  response code %d", code))
		}

		check, err := response.ParseCheck(body)
		if err != nil {
			return h.Fail("***Ping/CheckConnections FAILED***: Unable to properly parse response json")
		}
		if check.ErrorCount != 0 || check.WarningCount != 0 {
			return h.Fail("***Ping/CheckConnections Test FAILED***: %s", fmt.Sprintf("%d errors, %d warnings", check.ErrorCount, check.WarningCount))
		}
		h.Reporter.Good("Test passed: Ping/CheckConnections")
		return nil
	},
}
