package tests

import (
	"context"

	"github.com/google/uuid"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

// Merge submits the same file several times and confirms the batch step merged them.
// HL7 is left out because it does not merge.
var Merge = harness.Test{
	ID:          "merge",
	Description: "Submit multiple files, wait, confirm via db that merge occurred",
	Status:      types.ClassificationSmoke,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		f := h.Fixtures
		merging := []settings.Receiver{f.CSV, f.HL7Batch, f.Redox}
		fakeItemCount := len(merging) * opts.Items
		h.Reporter.Ugly("Starting merge test:  Merge %d reports, each of which sends to %s", opts.Submits, settings.Names(merging))

		file, err := fakeFileFor(h, opts, f.SimpleReport, fakeItemCount, names(merging)...)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, opts.Submits)
		for i := 0; i < opts.Submits; i++ {
			code, body, err := h.Submit(ctx, file, f.SimpleReport, opts)
			if err != nil {
				return h.Fail("***Merge Test FAILED***: %v", err)
			}
			id, err := h.RequireCreated("merge", code, body)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		if err := h.Wait(ctx, 40, opts.Verbosity); err != nil {
			return err
		}
		return harness.Verdict("merge", h.VerifyMerge(ctx, ids[0], merging, fakeItemCount, opts.Submits))
	},
}
