package tests

import (
	"context"
	"strings"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/payload"
	"github.com/reportstream/rs-acceptor/response"
	"github.com/reportstream/rs-acceptor/types"
)

type otcPair struct {
	deviceID string
	receiver string
}

// device ids and the over-the-counter receiver whose otc/proctored flags they match
var otcPairs = []otcPair{
	{"BinaxNOW COVID-19 Antigen Self Test_Abbott Diagnostics Scarborough, Inc.", "OTC_PROCTORED_YYY"},
	{"QuickVue At-Home COVID-19 Test_Quidel Corporation", "OTC_PROCTORED_NYY"},
	{"00810055970001", "OTC_PROCTORED_NUNKUNK"},
}

// OTCProctored checks that the router derives the otc and proctored flags from the device id.
var OTCProctored = harness.Test{
	ID:          "otcproctored",
	Description: "Verify that otc/proctored flags are working as expected on api response",
	Status:      types.ClassificationSmoke,
	Fn: func(ctx context.Context, h *harness.Harness, opts types.TestOptions) error {
		var failures []string
		for _, pair := range otcPairs {
			h.Reporter.Ugly("Starting Otc Test: submitting a file containing a device_id: %s should match receiver %s.", pair.deviceID, pair.receiver)
			file, err := payload.OTC(opts.Dir, h.Fixtures.Waters, pair.deviceID)
			if err != nil {
				return h.Fail("Unable to create file to do otc test: %v", err)
			}
			_, body, err := h.Submit(ctx, file, h.Fixtures.Waters, opts)
			if err != nil {
				return h.Fail("***otcproctored Test FAILED***: %v", err)
			}
			if h.ExamineResponse("otcproctored", body) && routedTo(body, pair.receiver) {
				h.Reporter.Good("Test PASSED: %s", pair.deviceID)
			} else {
				h.Reporter.Bad("Test FAILED: %s", pair.deviceID)
				failures = append(failures, pair.deviceID)
			}
		}
		if len(failures) > 0 {
			return h.Fail("Tests FAILED: [%s]", strings.Join(failures, ", "))
		}
		return nil
	},
}

func routedTo(body []byte, receiver string) bool {
	out, err := response.Parse(body)
	if err != nil {
		return false
	}
	_, ok := out.ItemCountFor(receiver)
	return ok
}
