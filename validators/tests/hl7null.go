package tests

import (
	"context"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/lineage"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

const hl7NullItems = 100

// HL7Null sends a large batch to a receiver that discards what it is sent, exercising the
// batch and send steps without a real transport.
var HL7Null = harness.Test{
	ID:          "hl7null",
	Description: "The NULL transport does db work, but no transport.  Uses HL7 format",
	Status:      types.ClassificationSmoke,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		f := h.Fixtures
		receivers := []settings.Receiver{f.HL7Null}
		h.Reporter.Ugly("Starting hl7null Test: sending %d items to %s", hl7NullItems, f.HL7Null.FullName())

		file, err := fakeFileFor(h, opts, f.SimpleReport, hl7NullItems, f.HL7Null.Name)
		if err != nil {
			return err
		}
		code, body, err := h.Submit(ctx, file, f.SimpleReport, opts)
		if err != nil {
			return h.Fail("***hl7null Test FAILED***: %v", err)
		}
		id, err := h.RequireCreated("hl7null", code, body)
		if err != nil {
			return err
		}
		if err := h.Wait(ctx, 30, opts.Verbosity); err != nil {
			return err
		}
		return harness.Verdict("hl7null", h.VerifyLineage(ctx, id, receivers, hl7NullItems, lineage.VerifyOptions{}))
	},
}
