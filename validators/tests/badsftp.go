package tests

import (
	"context"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/lineage"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

// BadSFTP routes items to a receiver whose sftp transport always fails. The send step still
// records lineage for the attempt.
var BadSFTP = harness.Test{
	ID:          "badsftp",
	Description: "Test ReportStream's response to sftp connection failures. Tests RETRY too!",
	Status:      types.ClassificationExperimental,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		f := h.Fixtures
		h.Reporter.Ugly("Starting badsftp Test: sending %d items to %s", opts.Items, f.SFTPFail.FullName())

		file, err := fakeFileFor(h, opts, f.SimpleReport, opts.Items, f.SFTPFail.Name)
		if err != nil {
			return err
		}
		code, body, err := h.Submit(ctx, file, f.SimpleReport, opts)
		if err != nil {
			return h.Fail("***badsftp Test FAILED***: %v", err)
		}
		id, err := h.RequireCreated("badsftp", code, body)
		if err != nil {
			return err
		}
		if err := h.Wait(ctx, 30, opts.Verbosity); err != nil {
			return err
		}
		h.Reporter.Echo("For this test, failure during send, is a 'pass'.")
		return harness.Verdict("badsftp", h.VerifyLineage(ctx, id, []settings.Receiver{f.SFTPFail}, opts.Items, lineage.VerifyOptions{}))
	},
}
