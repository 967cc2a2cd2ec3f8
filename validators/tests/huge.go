package tests

import (
	"context"
	"net/http"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/lineage"
	"github.com/reportstream/rs-acceptor/payload"
	"github.com/reportstream/rs-acceptor/response"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

// Huge submits the largest report the router accepts.
var Huge = harness.Test{
	ID:          "huge",
	Description: "Submit 10,000 line csv file, wait, confirm via db.  Slow.",
	Status:      types.ClassificationLoad,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		f := h.Fixtures
		h.Reporter.Ugly("Starting huge Test: Attempting to send %d items to %s", payload.ReportMaxItems, f.CSV.FullName())

		file, err := payload.FakeFile(payload.Spec{
			Sender:   f.SimpleReport,
			Count:    payload.ReportMaxItems,
			States:   []string{payload.TestState},
			Counties: []string{f.CSV.Name},
			Format:   settings.FormatCSV,
			Dir:      opts.Dir,
		})
		if err != nil {
			return h.Fail("unable to create fake file: %v", err)
		}
		h.Reporter.Echo("Created datafile %s", file)

		code, body, err := h.Submit(ctx, file, f.SimpleReport, opts)
		if err != nil {
			return h.Fail("***huge Test FAILED***: %v", err)
		}
		if code == http.StatusCreated {
			h.Reporter.Good("Posting of report succeeded with response code %d", code)
		} else {
			h.Reporter.Bad("***huge Test FAILED***:  response code %d", code)
		}
		id, err := response.ParseID(body)
		if err != nil || id == nil {
			return h.Fail("***huge Test FAILED***: A report ID came back as null")
		}
		if err := h.Wait(ctx, 30, opts.Verbosity); err != nil {
			return err
		}
		return harness.Verdict("huge", h.VerifyLineage(ctx, *id, []settings.Receiver{f.CSV}, payload.ReportMaxItems, lineage.VerifyOptions{}))
	},
}
