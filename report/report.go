// Package report prints test progress to the operator's console.
package report

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/reportstream/rs-acceptor/types"
)

var (
	goodOut = color.New(color.FgGreen)
	badOut  = color.New(color.FgRed, color.Bold)
	uglyOut = color.New(color.FgCyan)
)

// Reporter writes colored pass/fail lines. It is safe for concurrent use by fan-out goroutines.
type Reporter struct {
	mu        *sync.Mutex
	out       io.Writer
	log       log.Logger
	verbosity types.Verbosity
}

func New(out io.Writer, logger log.Logger) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = log.Root()
	}
	return &Reporter{mu: &sync.Mutex{}, out: out, log: logger}
}

// WithVerbosity returns a reporter sharing the same output but with a different verbosity.
func (r *Reporter) WithVerbosity(v types.Verbosity) *Reporter {
	return &Reporter{mu: r.mu, out: r.out, log: r.log, verbosity: v}
}

func (r *Reporter) Verbosity() types.Verbosity {
	return r.verbosity
}

// Good prints a passing check and returns true.
func (r *Reporter) Good(format string, args ...any) bool {
	r.print(goodOut, "good", format, args...)
	return true
}

// Bad prints a failed check and returns false.
func (r *Reporter) Bad(format string, args ...any) bool {
	r.print(badOut, "bad", format, args...)
	return false
}

// Ugly prints a test banner.
func (r *Reporter) Ugly(format string, args ...any) {
	r.print(uglyOut, "ugly", format, args...)
}

// Echo prints plain detail output. Suppressed when quiet.
func (r *Reporter) Echo(format string, args ...any) {
	if r.verbosity.IsQuiet() {
		return
	}
	r.print(nil, "echo", format, args...)
}

func (r *Reporter) print(c *color.Color, kind string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.mu.Lock()
	defer r.mu.Unlock()
	if c != nil {
		_, _ = c.Fprintln(r.out, msg)
	} else {
		_, _ = fmt.Fprintln(r.out, msg)
	}
	r.log.Debug("report", "kind", kind, "msg", msg)
}

// Progress is a bounded progress indicator.
type Progress interface {
	Tick()
	Done()
}

type noopProgress struct{}

func (noopProgress) Tick() {}
func (noopProgress) Done() {}

type barProgress struct {
	bar *pterm.ProgressbarPrinter
}

func (p *barProgress) Tick() {
	p.bar.Increment()
}

func (p *barProgress) Done() {
	_, _ = p.bar.Stop()
}

// StartProgress starts a progress bar of total steps. Quiet reporters get a no-op indicator.
func (r *Reporter) StartProgress(title string, total int) Progress {
	if r.verbosity.IsQuiet() || total <= 0 {
		return noopProgress{}
	}
	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle(title).
		WithWriter(r.out).
		WithRemoveWhenDone(true).
		Start()
	if err != nil {
		r.log.Warn("failed to start progress bar", "err", err)
		return noopProgress{}
	}
	return &barProgress{bar: bar}
}
