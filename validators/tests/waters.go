package tests

import (
	"context"
	"math/rand/v2"
	"os"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/lineage"
	"github.com/reportstream/rs-acceptor/schedule"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

const (
	// watersPause is the mean gap between two repeatwaters submissions.
	watersPause = 360 * time.Millisecond
	// watersJitter is the largest deviation from watersPause in either direction.
	watersJitter = 360 * time.Millisecond
	// watersSlowRun is the elapsed time after which repeatwaters also reports the pace it achieved.
	watersSlowRun = 600 * time.Second
)

// pause sleeps between repeatwaters submissions. Replaced in tests.
var pause schedule.SleepFunc = schedule.Sleep

// Waters submits as the waters sender to the blob store receiver.
var Waters = harness.Test{
	ID:          "waters",
	Description: "Submit data in the waters schema, send to BLOBSTORE only",
	Status:      types.ClassificationSmoke,
	Fn:          runWaters,
}

func runWaters(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
	f := h.Fixtures
	r := h.Reporter.WithVerbosity(opts.Verbosity)
	r.Ugly("Starting Waters: sending %d Waters items to %s receiver", opts.Items, f.Blobstore.FullName())

	file, err := fakeFileFor(h, opts, f.Waters, opts.Items, f.Blobstore.Name)
	if err != nil {
		return err
	}
	code, body, err := h.Submit(ctx, file, f.Waters, opts)
	if err != nil {
		return h.Fail("***waters Test FAILED***: %v", err)
	}
	id, err := h.RequireCreated("waters", code, body)
	if err != nil {
		return err
	}
	if err := h.Wait(ctx, 60, opts.Verbosity); err != nil {
		return err
	}
	if err := os.Remove(file); err != nil {
		h.Log.Warn("Unable to remove datafile", "file", file, "err", err)
	}
	return harness.Verdict("waters", h.VerifyLineage(ctx, id, []settings.Receiver{f.Blobstore}, opts.Items, lineage.VerifyOptions{}))
}

// RepeatWaters runs waters many times in parallel, starting one every watersPause on average,
// to simulate a sender's real submission pace.
var RepeatWaters = harness.Test{
	ID:          "repeatwaters",
	Description: "Submit waters over and over, sending to BLOBSTORE",
	Status:      types.ClassificationLoad,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		pace := (int(time.Hour/time.Millisecond) / int(watersPause/time.Millisecond)) * opts.Items
		h.Reporter.Ugly("Starting repeat waters test: submitting %d reports at a pace of %d items per hour", opts.Submits, pace)

		quiet := opts
		quiet.Verbosity = types.Quiet
		start := time.Now()

		p := pool.NewWithResults[bool]()
		for i := 1; i <= opts.Submits; i++ {
			p.Go(func() bool {
				return runWaters(ctx, h, quiet) == nil
			})
			if i < opts.Submits {
				gap := max(watersPause+time.Duration(rand.Int64N(int64(2*watersJitter)))-watersJitter, 0)
				if err := pause(ctx, gap); err != nil {
					break
				}
			}
		}
		results := p.Wait()

		passed := 0
		for _, ok := range results {
			if ok {
				passed++
			}
		}
		elapsed := time.Since(start)
		h.Reporter.Echo("%d of %d repeated waters runs passed in %s", passed, len(results), elapsed.Truncate(time.Second))
		if elapsed > watersSlowRun {
			totalItems := opts.Items * len(results)
			actual := int(float64(totalItems) / elapsed.Seconds() * 3600)
			h.Reporter.Echo("Actual pace: %d items per hour", actual)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if passed != opts.Submits {
			return h.Fail("***repeatwaters Test FAILED***: %d of %d runs failed", opts.Submits-passed, opts.Submits)
		}
		h.Reporter.Good("repeatwaters Test passed.")
		return nil
	},
}
