package tests

import (
	"context"
	"os"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/lineage"
	"github.com/reportstream/rs-acceptor/payload"
	"github.com/reportstream/rs-acceptor/response"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

const santaClausRetries = 90

// organizations whose senders santaclaus submits as, unless a sender is given
var santaClausOrgs = []string{"simple_report", "waters", "strac", "safehealth"}

// SantaClaus submits one item per state as real senders, then checks that each receiver the
// router picked got its item. Receivers are checked as they appear in the response.
var SantaClaus = harness.Test{
	ID:          "santaclaus",
	Description: "Creates fake data as if from a sender and tries to send it to every state and territory",
	Status:      types.ClassificationExperimental,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		if !h.Env.IsLocal() && h.Env.Name != types.EnvStaging.Name {
			return h.Fail("This test can only be run locally or on staging")
		}

		senders := h.Catalog.SendersOf(santaClausOrgs...)
		if opts.Sender != "" {
			sender, ok := h.Catalog.FindSender(opts.Sender)
			if !ok {
				return h.Fail("The sender indicated doesn't exists '%s'", opts.Sender)
			}
			senders = []settings.Sender{sender}
		}
		if len(senders) == 0 {
			return h.Fail("***santaclaus Test FAILED***: no senders to test with")
		}

		passed := true
		for _, sender := range senders {
			ok, err := santaClausSend(ctx, h, opts, sender)
			if err != nil {
				return err
			}
			passed = ok && passed
		}
		return harness.Verdict("santaclaus", passed)
	},
}

func santaClausSend(ctx context.Context, h *harness.Harness, opts types.TestOptions, sender settings.Sender) (bool, error) {
	h.Reporter.Ugly("Starting santaclaus Test: send with %s", sender.FullName())
	format := settings.FormatHL7Batch
	if sender.Format == settings.FormatCSV {
		format = settings.FormatCSV
	}
	file, err := payload.FakeFile(payload.Spec{
		Sender: sender,
		Count:  len(payload.States),
		Format: format,
		Dir:    os.TempDir(),
	})
	if err != nil {
		return false, h.Fail("unable to create fake file: %v", err)
	}
	h.Reporter.Echo("Created datafile %s", file)

	// real senders submit without a function key
	keyless := opts
	keyless.Key = ""
	code, body, err := h.Submit(ctx, file, sender, keyless)
	if err != nil {
		return false, h.Fail("***santaclaus Test FAILED***: %v", err)
	}
	id, err := h.RequireCreated("santaclaus", code, body)
	if err != nil {
		return false, err
	}
	out, err := response.Parse(body)
	if err != nil {
		return false, h.Fail("***santaclaus Test FAILED***: Unable to properly parse response json: %v", err)
	}

	var receivers []settings.Receiver
	for _, d := range out.Destinations {
		if r, ok := h.Catalog.FindReceiver(d.OrganizationID, d.Service); ok {
			receivers = append(receivers, r)
		}
	}
	if len(receivers) == 0 {
		return true, nil
	}

	// each routed receiver gets exactly one item
	total := len(receivers)
	h.Poller.PollUntil(ctx, santaClausRetries,
		func(ctx context.Context) bool {
			return h.VerifyLineage(ctx, id, receivers, total, lineage.VerifyOptions{FilterByOrg: true, Silent: true})
		},
		func(ok bool, attempt int) {
			switch {
			case ok:
				h.Reporter.Echo("Lineage of sender '%s' settled after %d retries", sender.FullName(), attempt)
			case attempt == 0:
				h.Reporter.Echo("Waiting for examining lineage results of sender '%s'", sender.FullName())
			default:
				h.Log.Debug("Lineage not settled yet", "sender", sender.FullName(), "attempt", attempt)
			}
		})
	return h.VerifyLineage(ctx, id, receivers, total, lineage.VerifyOptions{FilterByOrg: true}), nil
}
