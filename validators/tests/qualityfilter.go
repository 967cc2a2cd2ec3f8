package tests

import (
	"context"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/response"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

const qualityItems = 5

type qualityCase struct {
	receiver func(f *settings.Fixtures) settings.Receiver
	// extraCounties are interleaved with the receiver name, so the receiver gets every other item.
	extraCounties []string
	expected      int
}

var qualityCases = []qualityCase{
	// every item passes the default quality filter
	{receiver: func(f *settings.Fixtures) settings.Receiver { return f.QualityAll }, expected: 5},
	// items addressed to the "removed" county fail the receiver's filter
	{receiver: func(f *settings.Fixtures) settings.Receiver { return f.QualityPass }, extraCounties: []string{"removed"}, expected: 3},
	// the receiver's filter can never be satisfied
	{receiver: func(f *settings.Fixtures) settings.Receiver { return f.QualityFail }, expected: 0},
	// reversed filter keeps what the filter would have removed
	{receiver: func(f *settings.Fixtures) settings.Receiver { return f.QualityReversed }, extraCounties: []string{"kept"}, expected: 2},
}

// QualityFilter checks that receiver quality filters drop the items they should.
var QualityFilter = harness.Test{
	ID:          "qualityfilter",
	Description: "Test the QualityFilter feature",
	Status:      types.ClassificationSmoke,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		h.Reporter.Ugly("Starting QualityFilter Test")
		passed := true
		for _, c := range qualityCases {
			receiver := c.receiver(h.Fixtures)
			counties := append([]string{receiver.Name}, c.extraCounties...)
			file, err := fakeFileFor(h, opts, h.Fixtures.Empty, qualityItems, counties...)
			if err != nil {
				return err
			}
			_, body, err := h.Submit(ctx, file, h.Fixtures.Empty, opts)
			if err != nil {
				return h.Fail("***QualityFilter Test FAILED***: %v", err)
			}
			if !checkItemCount(h, receiver, c.expected, body) {
				passed = false
			}
		}
		return harness.Verdict("qualityfilter", passed)
	},
}

// checkItemCount compares the items routed to receiver against expected. A receiver missing from
// the destinations counts as zero items.
func checkItemCount(h *harness.Harness, receiver settings.Receiver, expected int, body []byte) bool {
	out, err := response.Parse(body)
	if err != nil {
		return h.Reporter.Bad("***QualityFilter Test FAILED***: Unable to properly parse response json: %v", err)
	}
	count, found := out.ItemCountFor(receiver.Name)
	switch {
	case !found && expected == 0:
		return h.Reporter.Good("Test passed: For %s, no items were sent, as expected", receiver.Name)
	case !found:
		return h.Reporter.Bad("***QualityFilter Test FAILED***: For %s expected %d items but no destination was found", receiver.Name, expected)
	case count == expected:
		return h.Reporter.Good("Test passed: For %s, filtered down to %d items, as expected", receiver.Name, count)
	default:
		return h.Reporter.Bad("***QualityFilter Test FAILED***: For %s expected %d items but got %d", receiver.Name, expected, count)
	}
}
