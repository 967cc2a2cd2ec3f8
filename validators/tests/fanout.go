package tests

import (
	"context"
	"os"

	"github.com/google/uuid"

	"github.com/reportstream/rs-acceptor/fanout"
	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/lineage"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

// StracPack hammers the router with parallel strac submissions to REDOX.
var StracPack = harness.Test{
	ID:          "stracpack",
	Description: "Submits many strac files in parallel",
	Status:      types.ClassificationLoad,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		return runFanout(ctx, h, opts, "stracpack", h.Fixtures.Strac, h.Fixtures.Redox)
	},
}

// HammerTime hammers the router with parallel simple report submissions to HL7.
var HammerTime = harness.Test{
	ID:          "hammertime",
	Description: "Submits many files in parallel and confirms all of them were processed",
	Status:      types.ClassificationLoad,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		return runFanout(ctx, h, opts, "hammertime", h.Fixtures.SimpleReport, h.Fixtures.HL7)
	},
}

func runFanout(ctx context.Context, h *harness.Harness, opts types.TestOptions, name string, sender settings.Sender, receiver settings.Receiver) error {
	h.Reporter.Ugly("Starting %s Test: %d parallel submissions of %d items to %s", name, opts.Submits, opts.Items, receiver.FullName())
	file, err := fakeFileFor(h, opts, sender, opts.Items, receiver.Name)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return h.Fail("unable to read %s: %v", file, err)
	}

	res := h.Fanout.Run(ctx, fanout.Request{
		Name:               name,
		Payload:            data,
		Sender:             sender,
		Key:                opts.Key,
		N:                  opts.Submits,
		ExtraWaitPerSubmit: 5,
		Verify: func(ctx context.Context, id uuid.UUID) bool {
			return h.VerifyLineage(ctx, id, []settings.Receiver{receiver}, opts.Items, lineage.VerifyOptions{})
		},
		Verbosity: opts.Verbosity,
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	h.Log.Info("Fan-out finished", "test", name, "accepted", len(res.IDs), "failed", res.Failed)
	return harness.Verdict(name, res.Passed)
}
