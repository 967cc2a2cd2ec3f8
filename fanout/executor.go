// Package fanout submits the same payload many times in parallel and verifies every submission.
package fanout

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/reportstream/rs-acceptor/report"
	"github.com/reportstream/rs-acceptor/response"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/submit"
	"github.com/reportstream/rs-acceptor/types"
)

// DefaultGrace bounds how long the executor keeps waiting for submissions that are
// still in flight after the settle delay has elapsed.
const DefaultGrace = 2 * time.Minute

// Waiter blocks until asynchronous processing of the submissions has likely settled.
type Waiter interface {
	Wait(ctx context.Context, extraSeconds int, verbosity types.Verbosity) error
}

type Request struct {
	Name    string
	Payload []byte
	Sender  settings.Sender
	Key     string
	// N is the number of parallel submissions.
	N int
	// ExtraWaitPerSubmit is added to the settle delay once per submission.
	ExtraWaitPerSubmit int
	// Verify checks one accepted submission after the settle delay.
	Verify    func(ctx context.Context, id uuid.UUID) bool
	Verbosity types.Verbosity
}

type Result struct {
	Passed bool
	IDs    []uuid.UUID
	// Failed counts submissions that were rejected, returned no id, or did not finish in time.
	Failed int
}

type Executor struct {
	submitter submit.Submitter
	waiter    Waiter
	reporter  *report.Reporter
	log       log.Logger
	grace     time.Duration
}

func NewExecutor(submitter submit.Submitter, waiter Waiter, reporter *report.Reporter, logger log.Logger) *Executor {
	return &Executor{
		submitter: submitter,
		waiter:    waiter,
		reporter:  reporter,
		log:       logger,
		grace:     DefaultGrace,
	}
}

// WithGrace returns a copy of the executor with a different grace period.
func (e *Executor) WithGrace(grace time.Duration) *Executor {
	cp := *e
	cp.grace = grace
	return &cp
}

// Run launches req.N submissions at once, waits for the router to settle, then verifies
// every accepted submission. Every verification runs even after a failure.
func (e *Executor) Run(ctx context.Context, req Request) Result {
	r := e.reporter.WithVerbosity(req.Verbosity)
	acc := &Accumulator{}

	var wg conc.WaitGroup
	for i := 1; i <= req.N; i++ {
		wg.Go(func() {
			e.submitOne(ctx, r, req, i, acc)
		})
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if rec := wg.WaitAndRecover(); rec != nil {
			e.log.Error("Submission panicked", "test", req.Name, "panic", rec.Value)
		}
	}()

	passed := true
	if err := e.waiter.Wait(ctx, req.ExtraWaitPerSubmit*req.N, req.Verbosity); err != nil {
		r.Bad("***%s Test FAILED***: wait interrupted: %v", req.Name, err)
		passed = false
	}

	grace := time.NewTimer(e.grace)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
		e.log.Warn("Submissions still in flight after grace period", "test", req.Name, "grace", e.grace)
	case <-ctx.Done():
	}

	ids := acc.Close()
	failed := req.N - len(ids)
	if failed > 0 {
		r.Bad("***%s Test FAILED***: %d of %d submissions did not produce a report id", req.Name, failed, req.N)
		passed = false
	}

	for _, id := range ids {
		if !req.Verify(ctx, id) {
			passed = false
		}
	}
	return Result{Passed: passed, IDs: ids, Failed: failed}
}

func (e *Executor) submitOne(ctx context.Context, r *report.Reporter, req Request, i int, acc *Accumulator) {
	code, body, err := e.submitter.Submit(ctx, req.Payload, req.Sender, req.Key, submit.OptionNone)
	if err != nil {
		r.Bad("%d: ***%s Test FAILED***: %v", i, req.Name, err)
		return
	}
	r.Echo("%d: Response to POST: %d", i, code)
	if code != http.StatusCreated {
		r.Echo("%s", body)
		r.Bad("%d: ***%s Test FAILED***:  response code %d", i, req.Name, code)
		return
	}
	id, err := response.ParseID(body)
	if err != nil || id == nil {
		r.Bad("%d: ***%s Test FAILED***: A report ID came back as null", i, req.Name)
		return
	}
	r.Echo("%d: Id of submitted report: %s", i, id)
	if !acc.Append(*id) {
		e.log.Warn("Submission finished after the grace period", "test", req.Name, "unit", i, "id", id)
	}
}
