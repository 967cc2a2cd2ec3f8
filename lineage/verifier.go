// Package lineage verifies that a submission was distributed to its receivers by counting
// descendants in the router's lineage graph.
package lineage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/reportstream/rs-acceptor/metrics"
	"github.com/reportstream/rs-acceptor/report"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/types"
)

var ErrNoReceivers = errors.New("no receivers to verify against")

// Expectation is the count a receiver should show at a stage.
type Expectation struct {
	Receiver settings.Receiver
	Stage    types.Stage
	Expected int
}

// Mismatch is an expectation the store did not satisfy. Actual is nil when the store had no answer.
type Mismatch struct {
	Receiver string
	Stage    types.Stage
	Expected int
	Actual   *int
}

func (m Mismatch) String() string {
	actual := "null"
	if m.Actual != nil {
		actual = fmt.Sprint(*m.Actual)
	}
	return fmt.Sprintf("%s %s: expected %d got %s", m.Receiver, m.Stage, m.Expected, actual)
}

type VerifyOptions struct {
	// FilterByOrg also matches the receiving organization, for receivers outside the test organization.
	FilterByOrg bool
	// Silent suppresses per-check console output.
	Silent bool
}

// StagesFor returns the stages a receiver's items pass through: always receive,
// batch when the receiver has timing, send when it has a transport.
func StagesFor(r settings.Receiver) []types.Stage {
	stages := []types.Stage{types.StageReceive}
	if r.Timing != nil {
		stages = append(stages, types.StageBatch)
	}
	if r.Transport != nil {
		stages = append(stages, types.StageSend)
	}
	return stages
}

// Expectations distributes totalItems evenly across receivers. The remainder of the
// integer division is dropped, so uneven distributions are checked against the floor.
func Expectations(receivers []settings.Receiver, totalItems int) ([]Expectation, error) {
	if len(receivers) == 0 {
		return nil, ErrNoReceivers
	}
	expected := totalItems / len(receivers)
	var out []Expectation
	for _, r := range receivers {
		for _, stage := range StagesFor(r) {
			out = append(out, Expectation{Receiver: r, Stage: stage, Expected: expected})
		}
	}
	return out, nil
}

type Verifier struct {
	store    Store
	reporter *report.Reporter
	log      log.Logger
}

func NewVerifier(store Store, reporter *report.Reporter, logger log.Logger) *Verifier {
	return &Verifier{store: store, reporter: reporter, log: logger}
}

// Verify checks every expectation for the submission inside a single snapshot.
// All checks run even after a mismatch so that every mismatch is reported.
func (v *Verifier) Verify(ctx context.Context, id uuid.UUID, receivers []settings.Receiver, totalItems int, opts VerifyOptions) (bool, []Mismatch, error) {
	exps, err := Expectations(receivers, totalItems)
	if err != nil {
		return false, nil, err
	}

	var mismatches []Mismatch
	err = v.store.ReadTx(ctx, func(q Queries) error {
		for _, e := range exps {
			var org *string
			if opts.FilterByOrg {
				org = &e.Receiver.OrganizationName
			}
			count, err := q.CountItemDescendants(ctx, id, e.Receiver.Name, e.Stage, org)
			if err != nil {
				return err
			}
			if m, ok := v.compare(e, count, "item lineage records", opts.Silent); !ok {
				mismatches = append(mismatches, m)
			}
		}
		return nil
	})
	if err != nil {
		return false, nil, fmt.Errorf("failed to verify lineage of %s: %w", id, err)
	}
	v.log.Debug("Verified lineage", "id", id, "receivers", len(receivers), "mismatches", len(mismatches))
	return len(mismatches) == 0, mismatches, nil
}

// VerifyMerge checks that submissionCount identical submissions were merged: the batch and send
// stages of each receiver should carry (itemsPerSubmission*submissionCount)/len(receivers) items.
func (v *Verifier) VerifyMerge(ctx context.Context, id uuid.UUID, receivers []settings.Receiver, itemsPerSubmission int, submissionCount int) (bool, []Mismatch, error) {
	if len(receivers) == 0 {
		return false, nil, ErrNoReceivers
	}
	expected := (itemsPerSubmission * submissionCount) / len(receivers)

	var mismatches []Mismatch
	err := v.store.ReadTx(ctx, func(q Queries) error {
		for _, r := range receivers {
			for _, stage := range StagesFor(r) {
				if stage == types.StageReceive {
					continue
				}
				count, err := q.CountReportDescendants(ctx, id, r.Name, stage)
				if err != nil {
					return err
				}
				e := Expectation{Receiver: r, Stage: stage, Expected: expected}
				if m, ok := v.compare(e, count, "sum(itemCount)", false); !ok {
					mismatches = append(mismatches, m)
				}
			}
		}
		return nil
	})
	if err != nil {
		return false, nil, fmt.Errorf("failed to verify merge of %s: %w", id, err)
	}
	return len(mismatches) == 0, mismatches, nil
}

// UploadedFilename returns the name of the file the router sent to receiver for the submission.
func (v *Verifier) UploadedFilename(ctx context.Context, id uuid.UUID, receiver string) (*string, error) {
	var name *string
	err := v.store.ReadTx(ctx, func(q Queries) error {
		var err error
		name, err = q.FindUploadedFilename(ctx, id, receiver)
		return err
	})
	return name, err
}

// MostRecentAction returns the newest action in the store.
func (v *Verifier) MostRecentAction(ctx context.Context) (*Action, error) {
	var a *Action
	err := v.store.ReadTx(ctx, func(q Queries) error {
		var err error
		a, err = q.MostRecentAction(ctx)
		return err
	})
	return a, err
}

func (v *Verifier) compare(e Expectation, count *int, what string, silent bool) (Mismatch, bool) {
	if count == nil || *count != e.Expected {
		m := Mismatch{Receiver: e.Receiver.FullName(), Stage: e.Stage, Expected: e.Expected, Actual: count}
		if !silent {
			metrics.RecordLineageMismatch(e.Receiver.FullName(), string(e.Stage))
			v.reporter.Bad("*** TEST FAILED*** for %s action %s:  Expecting %d %s but got %s",
				e.Receiver.FullName(), e.Stage, e.Expected, what, formatCount(count))
		}
		return m, false
	}
	if !silent {
		v.reporter.Good("Test passed: for %s action %s:  Expecting %d %s and got %d",
			e.Receiver.FullName(), e.Stage, e.Expected, what, *count)
	}
	return Mismatch{}, true
}

func formatCount(count *int) string {
	if count == nil {
		return "null"
	}
	return fmt.Sprint(*count)
}
