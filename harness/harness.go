// Package harness bundles the collaborators an end-to-end test needs and the checks
// most tests share.
package harness

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/reportstream/rs-acceptor/fanout"
	"github.com/reportstream/rs-acceptor/lineage"
	"github.com/reportstream/rs-acceptor/report"
	"github.com/reportstream/rs-acceptor/response"
	"github.com/reportstream/rs-acceptor/schedule"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/submit"
	"github.com/reportstream/rs-acceptor/types"
)

// Harness is shared by every test of a run. Tests must not mutate it.
type Harness struct {
	Env       types.Environment
	Catalog   *settings.Catalog
	Fixtures  *settings.Fixtures
	Submitter submit.Submitter
	Verifier  *lineage.Verifier
	Waiter    fanout.Waiter
	Poller    *schedule.Poller
	Fanout    *fanout.Executor
	Reporter  *report.Reporter
	Log       log.Logger
}

type Config struct {
	Env       types.Environment
	Catalog   *settings.Catalog
	Submitter submit.Submitter
	Store     lineage.Store
	Reporter  *report.Reporter
	Log       log.Logger
	// Waiter defaults to a schedule.Scheduler for Env.
	Waiter fanout.Waiter
	// Poller defaults to schedule.NewPoller.
	Poller *schedule.Poller
}

func New(cfg Config) (*Harness, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("settings catalog is required")
	}
	if cfg.Submitter == nil {
		return nil, errors.New("submitter is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("lineage store is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = report.New(nil, cfg.Log)
	}
	if cfg.Waiter == nil {
		cfg.Waiter = schedule.NewScheduler(cfg.Env, cfg.Reporter, cfg.Log)
	}
	if cfg.Poller == nil {
		cfg.Poller = schedule.NewPoller()
	}

	fixtures, err := settings.ResolveFixtures(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve test fixtures: %w", err)
	}

	return &Harness{
		Env:       cfg.Env,
		Catalog:   cfg.Catalog,
		Fixtures:  fixtures,
		Submitter: cfg.Submitter,
		Verifier:  lineage.NewVerifier(cfg.Store, cfg.Reporter, cfg.Log),
		Waiter:    cfg.Waiter,
		Poller:    cfg.Poller,
		Fanout:    fanout.NewExecutor(cfg.Submitter, cfg.Waiter, cfg.Reporter, cfg.Log),
		Reporter:  cfg.Reporter,
		Log:       cfg.Log,
	}, nil
}

// Fail reports msg as a failure and returns it as the test error.
func (h *Harness) Fail(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	h.Reporter.Bad("%s", msg)
	return errors.New(msg)
}

// Verdict turns an accumulated pass flag into the test error.
func Verdict(name string, passed bool) error {
	if passed {
		return nil
	}
	return fmt.Errorf("%s test failed", name)
}

// Submit posts a file as sender, echoing the status code and, unless quiet, the body.
func (h *Harness) Submit(ctx context.Context, path string, sender settings.Sender, opts types.TestOptions) (int, []byte, error) {
	code, body, err := submit.SubmitFile(ctx, h.Submitter, path, sender, opts.Key)
	if err != nil {
		return 0, nil, err
	}
	r := h.Reporter.WithVerbosity(opts.Verbosity)
	r.Echo("Response to POST: %d", code)
	r.Echo("%s", body)
	return code, body, nil
}

// ExamineResponse checks that a response has the covid-19 topic, no errors, at least one
// destination and a submission id. Every failed check is reported.
func (h *Harness) ExamineResponse(name string, body []byte) bool {
	out, err := response.Parse(body)
	if err != nil {
		return h.Reporter.Bad("***%s Test FAILED***: Unable to properly parse response json: %v", name, err)
	}
	h.Reporter.Echo("Id of submitted report: %s", formatID(out.ID))

	passed := true
	if out.HasCovidTopic() {
		h.Reporter.Good("'topic' is in response and correctly set to 'covid-19'")
	} else {
		passed = h.Reporter.Bad("***%s Test FAILED***: 'topic' is missing from response json", name)
	}
	if out.ErrorCount == 0 {
		h.Reporter.Good("No errors detected.")
	} else {
		passed = h.Reporter.Bad("***%s Test FAILED***: There were errors reported.", name)
	}
	if out.DestinationCount > 0 {
		h.Reporter.Good("Data going to be sent to one or more destinations.")
	} else {
		passed = h.Reporter.Bad("***%s Test FAILED***: There are no destinations set for sending the data.", name)
	}
	if out.ID == nil {
		passed = h.Reporter.Bad("***%s Test FAILED***: Report ID was empty.", name)
	}
	return passed
}

// RequireCreated checks the status code and extracts the submission id.
func (h *Harness) RequireCreated(name string, code int, body []byte) (uuid.UUID, error) {
	if code != http.StatusCreated {
		return uuid.Nil, h.Fail("***%s Test FAILED***:  response code %d", name, code)
	}
	id, err := response.ParseID(body)
	if err != nil || id == nil {
		return uuid.Nil, h.Fail("***%s Test FAILED***: A report ID came back as null", name)
	}
	h.Reporter.Echo("Id of submitted report: %s", id)
	return *id, nil
}

// VerifyLineage checks the distribution of a submission, reporting store errors as failures.
func (h *Harness) VerifyLineage(ctx context.Context, id uuid.UUID, receivers []settings.Receiver, totalItems int, opts lineage.VerifyOptions) bool {
	ok, _, err := h.Verifier.Verify(ctx, id, receivers, totalItems, opts)
	if err != nil {
		if !opts.Silent {
			h.Reporter.Bad("***lineage check FAILED***: %v", err)
		}
		h.Log.Warn("Lineage verification error", "id", id, "err", err)
		return false
	}
	return ok
}

// VerifyMerge checks the merged distribution of submissionCount identical submissions.
func (h *Harness) VerifyMerge(ctx context.Context, id uuid.UUID, receivers []settings.Receiver, itemsPerSubmission, submissionCount int) bool {
	ok, _, err := h.Verifier.VerifyMerge(ctx, id, receivers, itemsPerSubmission, submissionCount)
	if err != nil {
		h.Reporter.Bad("***merge check FAILED***: %v", err)
		return false
	}
	return ok
}

// Wait blocks for the settle delay of the router's batch cycle.
func (h *Harness) Wait(ctx context.Context, extraSeconds int, verbosity types.Verbosity) error {
	return h.Waiter.Wait(ctx, extraSeconds, verbosity)
}

func formatID(id *uuid.UUID) string {
	if id == nil {
		return "null"
	}
	return id.String()
}
