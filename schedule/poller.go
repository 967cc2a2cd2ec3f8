package schedule

import (
	"context"
	"time"
)

// Poller retries a boolean probe at a fixed interval.
type Poller struct {
	Interval time.Duration
	sleep    SleepFunc
}

func NewPoller() *Poller {
	return &Poller{Interval: time.Second, sleep: Sleep}
}

// WithSleep returns a copy of the poller using a different sleep.
func (p *Poller) WithSleep(sleep SleepFunc) *Poller {
	return &Poller{Interval: p.Interval, sleep: sleep}
}

// PollUntil calls probe up to maxAttempts times, sleeping Interval between failed attempts.
// onAttempt, if set, is told the outcome and the zero-based attempt index after every call.
// It returns true as soon as probe succeeds, and false if attempts run out or ctx is done.
func (p *Poller) PollUntil(ctx context.Context, maxAttempts int, probe func(ctx context.Context) bool, onAttempt func(ok bool, attempt int)) bool {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ok := probe(ctx)
		if onAttempt != nil {
			onAttempt(ok, attempt)
		}
		if ok {
			return true
		}
		if err := p.sleep(ctx, p.Interval); err != nil {
			return false
		}
	}
	return false
}
