package tests

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/lineage"
	"github.com/reportstream/rs-acceptor/payload"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

// fakeFileFor writes count fake items from sender, addressed round-robin to counties in the test state.
func fakeFileFor(h *harness.Harness, opts types.TestOptions, sender settings.Sender, count int, counties ...string) (string, error) {
	path, err := payload.FakeFile(payload.Spec{
		Sender:   sender,
		Count:    count,
		States:   []string{payload.TestState},
		Counties: counties,
		Dir:      opts.Dir,
	})
	if err != nil {
		return "", h.Fail("unable to create fake file: %v", err)
	}
	h.Reporter.WithVerbosity(opts.Verbosity).Echo("Created datafile %s", path)
	return path, nil
}

func names(receivers []settings.Receiver) []string {
	return strings.Split(settings.Names(receivers), ",")
}

// verifyEach checks the lineage of every submission, without stopping at the first failure.
func verifyEach(ctx context.Context, h *harness.Harness, ids []uuid.UUID, receivers []settings.Receiver, totalItems int) bool {
	passed := true
	for _, id := range ids {
		if !h.VerifyLineage(ctx, id, receivers, totalItems, lineage.VerifyOptions{}) {
			passed = false
		}
	}
	return passed
}
