package tests

import (
	"context"
	"net/http"
	"strings"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/payload"
	"github.com/reportstream/rs-acceptor/response"
	"github.com/reportstream/rs-acceptor/types"
)

// TooManyCols submits a file wider than the router accepts.
var TooManyCols = harness.Test{
	ID:          "toomanycols",
	Description: "Submit a file with more than 2000 columns, which should error",
	Status:      types.ClassificationSmoke,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		h.Reporter.Ugly("Starting toomanycols Test: submitting a file with too many columns.")
		file, err := payload.TooManyColumns(opts.Dir)
		if err != nil {
			return h.Fail("unable to create file: %v", err)
		}
		return expectErrorDetail(ctx, h, opts, "toomanycols", file, "columns")
	},
}

// TooBig submits one item more than the router accepts.
var TooBig = harness.Test{
	ID:          "toobig",
	Description: "Submit 10001 lines, which should error",
	Status:      types.ClassificationLoad,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		f := h.Fixtures
		h.Reporter.Ugly("Starting toobig test: Submitting %d items", payload.ReportMaxItems+1)
		file, err := fakeFileFor(h, opts, f.SimpleReport, payload.ReportMaxItems+1, f.CSV.Name)
		if err != nil {
			return err
		}
		return expectErrorDetail(ctx, h, opts, "toobig", file, "rows")
	},
}

// expectErrorDetail passes when the first error reported for the submission mentions keyword.
func expectErrorDetail(ctx context.Context, h *harness.Harness, opts types.TestOptions, name, file, keyword string) error {
	_, body, err := h.Submit(ctx, file, h.Fixtures.SimpleReport, opts)
	if err != nil {
		return h.Fail("***%s Test FAILED***: %v", name, err)
	}
	check, err := response.ParseCheck(body)
	if err != nil {
		return h.Fail("***%s Test FAILED***: Unable to properly parse response json: %v", name, err)
	}
	if !strings.Contains(check.FirstErrorDetail, keyword) {
		return h.Fail("***%s Test FAILED***: did not find the error about %s", name, keyword)
	}
	h.Reporter.Good("%s Test passed.", name)
	return nil
}

// BadCSV submits files the router cannot parse. Each must be rejected with an error and no id.
var BadCSV = harness.Test{
	ID:          "badcsv",
	Description: "Submit badly formatted csv files - should get errors",
	Status:      types.ClassificationSmoke,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		makers := []func(dir string) (string, error){payload.NotACSV, payload.Empty}
		passed := true
		for _, mk := range makers {
			file, err := mk(opts.Dir)
			if err != nil {
				return h.Fail("unable to create file: %v", err)
			}
			h.Reporter.Ugly("Starting badcsv file Test: submitting %s", file)
			code, body, err := h.Submit(ctx, file, h.Fixtures.SimpleReport, opts)
			if err != nil {
				return h.Fail("***badcsv Test FAILED***: %v", err)
			}
			if code >= http.StatusBadRequest {
				h.Reporter.Good("badcsv Test of %s passed: Failure HttpStatus code was returned.", file)
			} else {
				passed = h.Reporter.Bad("***badcsv Test of %s FAILED: Expecting a failure HttpStatus. ***", file)
			}
			check, err := response.ParseCheck(body)
			if err != nil {
				passed = h.Reporter.Bad("***badcsv Test FAILED***: Unexpected json returned: %v", err)
				continue
			}
			if check.ID == nil {
				h.Reporter.Good("badcsv Test of %s passed: No UUID was returned.", file)
			} else {
				passed = h.Reporter.Bad("***badcsv Test of %s FAILED: RS returned a valid UUID for a bad CSV. ***", file)
			}
			if check.ErrorCount > 0 {
				h.Reporter.Good("badcsv Test of %s passed: At least one error was returned.", file)
			} else {
				passed = h.Reporter.Bad("***badcsv Test of %s FAILED: No error***", file)
			}
		}
		return harness.Verdict("badcsv", passed)
	},
}
