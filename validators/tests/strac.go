package tests

import (
	"context"
	"net/http"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/lineage"
	"github.com/reportstream/rs-acceptor/response"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

// Strac addresses items to every healthy receiver as the strac sender. The strac schema only
// routes to REDOX, so only that receiver should get anything.
var Strac = harness.Test{
	ID:          "strac",
	Description: "Submit data in the strac schema, send to a browser.  Only REDOX receives it",
	Status:      types.ClassificationSmoke,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		f := h.Fixtures
		h.Reporter.Ugly("Starting bigly strac Test: sending Strac data to all of these receivers: %s", settings.Names(f.AllGood))

		file, err := fakeFileFor(h, opts, f.Strac, len(f.AllGood)*opts.Items, names(f.AllGood)...)
		if err != nil {
			return err
		}
		code, body, err := h.Submit(ctx, file, f.Strac, opts)
		if err != nil {
			return h.Fail("***strac Test FAILED***: %v", err)
		}
		if code != http.StatusCreated {
			return h.Fail("***strac Test FAILED***:  response code %d", code)
		}
		h.Reporter.Good("Posting of report succeeded with response code %d", code)

		out, err := response.Parse(body)
		if err != nil {
			return h.Fail("***strac Test FAILED***: Unable to properly parse response json: %v", err)
		}
		if out.ID == nil {
			return h.Fail("***strac Test FAILED***: A report ID came back as null")
		}

		passed := true
		if out.WarningCount == 0 {
			h.Reporter.Good("No warnings detected.")
		} else {
			passed = h.Reporter.Bad("***strac Test FAILED***: There were %d warnings.", out.WarningCount)
		}
		if err := h.Wait(ctx, 25, opts.Verbosity); err != nil {
			return err
		}
		// only the REDOX receiver gets strac data
		passed = h.VerifyLineage(ctx, *out.ID, []settings.Receiver{f.Redox}, opts.Items, lineage.VerifyOptions{}) && passed
		return harness.Verdict("strac", passed)
	},
}
