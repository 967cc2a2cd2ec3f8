// Package schedule estimates how long to wait for the router's minute-boundary batch cycle
// and retries probes of eventually-consistent state.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/reportstream/rs-acceptor/report"
	"github.com/reportstream/rs-acceptor/types"
)

const (
	// cycleSeconds is the period of the router's batch and send timers.
	cycleSeconds = 60
	// nearBoundaryPenalty is added when the receive step might miss the next cycle,
	// or when the environment does not run its timers on the minute boundary.
	nearBoundaryPenalty = 90
)

// ComputeDelay returns the number of seconds to wait so that a submission made secsElapsed
// seconds into the current minute has been received, batched and sent.
func ComputeDelay(secsElapsed int, extraSeconds int, env types.Environment) int {
	delay := cycleSeconds - secsElapsed + extraSeconds
	if secsElapsed > cycleSeconds-extraSeconds || !env.IsLocal() {
		delay += nearBoundaryPenalty
	}
	return delay
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Scheduler struct {
	env      types.Environment
	reporter *report.Reporter
	log      log.Logger
	now      func() time.Time
	sleep    SleepFunc
}

type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithSleep replaces the sleep used between progress ticks.
func WithSleep(sleep SleepFunc) Option {
	return func(s *Scheduler) { s.sleep = sleep }
}

func NewScheduler(env types.Environment, reporter *report.Reporter, logger log.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		env:      env,
		reporter: reporter,
		log:      logger,
		now:      time.Now,
		sleep:    Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Delay computes the wait from the current clock without sleeping.
func (s *Scheduler) Delay(extraSeconds int) int {
	return ComputeDelay(s.now().Second()%cycleSeconds, extraSeconds, s.env)
}

// Wait blocks for the computed delay, one second at a time, showing progress unless quiet.
// It returns early with the context error if ctx is cancelled.
func (s *Scheduler) Wait(ctx context.Context, extraSeconds int, verbosity types.Verbosity) error {
	delay := s.Delay(extraSeconds)
	s.log.Info("Waiting for the router to receive, batch and send", "seconds", delay, "env", s.env.Name)
	r := s.reporter.WithVerbosity(verbosity)
	r.Echo("Waiting %d seconds for ReportStream to fully receive, batch, and send the data", delay)

	progress := r.StartProgress(fmt.Sprintf("waiting %ds", delay), delay)
	defer progress.Done()
	for i := 0; i < delay; i++ {
		if err := s.sleep(ctx, time.Second); err != nil {
			return err
		}
		progress.Tick()
	}
	return nil
}
