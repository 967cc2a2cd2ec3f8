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

// End2End sends fake data to every healthy receiver and confirms via lineage that each got its share.
var End2End = harness.Test{
	ID:          "end2end",
	Description: "Create Fake data, submit, wait, confirm sent via database lineage data",
	Status:      types.ClassificationSmoke,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		f := h.Fixtures
		h.Reporter.Ugly("Starting end2end Test: send %s data to %s", f.SimpleReport.FullName(), settings.Names(f.AllGood))

		fakeItemCount := len(f.AllGood) * opts.Items
		file, err := fakeFileFor(h, opts, f.SimpleReport, fakeItemCount, names(f.AllGood)...)
		if err != nil {
			return err
		}
		code, body, err := h.Submit(ctx, file, f.SimpleReport, opts)
		if err != nil {
			return h.Fail("***end2end Test FAILED***: %v", err)
		}

		passed := true
		if code != http.StatusCreated {
			passed = h.Reporter.Bad("***end2end Test FAILED***:  response code %d", code)
		} else {
			h.Reporter.Good("Posting of report succeeded with response code %d", code)
		}
		passed = h.ExamineResponse("end2end", body) && passed

		if err := h.Wait(ctx, 25, opts.Verbosity); err != nil {
			return err
		}
		if id, err := response.ParseID(body); err == nil && id != nil {
			passed = h.VerifyLineage(ctx, *id, f.AllGood, fakeItemCount, lineage.VerifyOptions{}) && passed
		}
		return harness.Verdict("end2end", passed)
	},
}
