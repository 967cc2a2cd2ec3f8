package tests

import (
	"context"

	"github.com/google/uuid"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

// DBConnections submits many small reports back to back to stress the router's connection pool.
var DBConnections = harness.Test{
	ID:          "dbconnections",
	Description: "Test weirdness in Azure db connections",
	Status:      types.ClassificationExperimental,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		f := h.Fixtures
		h.Reporter.Ugly("Starting dbconnections Test: submitting %d reports to %s", opts.Submits, f.HL7.FullName())

		file, err := fakeFileFor(h, opts, f.SimpleReport, opts.Items, f.HL7.Name)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, opts.Submits)
		for i := 0; i < opts.Submits; i++ {
			code, body, err := h.Submit(ctx, file, f.SimpleReport, opts)
			if err != nil {
				return h.Fail("***dbconnections Test FAILED***: %v", err)
			}
			id, err := h.RequireCreated("dbconnections", code, body)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		if err := h.Wait(ctx, 30, opts.Verbosity); err != nil {
			return err
		}
		if action, err := h.Verifier.MostRecentAction(ctx); err != nil {
			h.Log.Warn("Unable to read most recent action", "err", err)
		} else if action != nil {
			h.Reporter.Echo("Most recent action: %d %s at %s", action.ID, action.Name, action.CreatedAt)
		}
		return harness.Verdict("dbconnections", verifyEach(ctx, h, ids, []settings.Receiver{f.HL7}, opts.Items))
	},
}
