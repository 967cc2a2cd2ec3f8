package tests

import (
	"context"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/response"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

// Garbage submits as a sender with an empty schema. The router should warn about every
// item it cannot route and route nothing.
var Garbage = harness.Test{
	ID:          "garbage",
	Description: "Garbage in - Nice Error message out",
	Status:      types.ClassificationAlwaysFailing,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		f := h.Fixtures
		h.Reporter.Ugly("Starting garbage Test: send %s data to %s", f.Empty.FullName(), settings.Names(f.AllGood))

		file, err := fakeFileFor(h, opts, f.Empty, len(f.AllGood)*opts.Items, names(f.AllGood)...)
		if err != nil {
			return err
		}
		_, body, err := h.Submit(ctx, file, f.Empty, opts)
		if err != nil {
			return h.Fail("***garbage Test FAILED***: %v", err)
		}
		out, err := response.Parse(body)
		if err != nil {
			return h.Fail("***garbage Test FAILED***: Unable to properly parse response json: %v", err)
		}

		passed := true
		if out.WarningCount == len(f.AllGood) {
			h.Reporter.Good("Got %d warnings, one per receiver, as expected", out.WarningCount)
		} else {
			passed = h.Reporter.Bad("***garbage Test FAILED***: Expected %d warnings but got %d", len(f.AllGood), out.WarningCount)
		}
		if out.DestinationCount == 0 {
			h.Reporter.Good("Nothing was routed, as expected")
		} else {
			passed = h.Reporter.Bad("***garbage Test FAILED***: Expected no destinations but got %d", out.DestinationCount)
		}
		return harness.Verdict("garbage", passed)
	},
}
