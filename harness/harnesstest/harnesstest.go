// Package harnesstest provides in-memory collaborators for exercising tests without a router.
package harnesstest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/lineage"
	"github.com/reportstream/rs-acceptor/report"
	"github.com/reportstream/rs-acceptor/schedule"
	"github.com/reportstream/rs-acceptor/settings"
	"github.com/reportstream/rs-acceptor/submit"
	"github.com/reportstream/rs-acceptor/types"
)

// Call is one recorded submission.
type Call struct {
	Sender  settings.Sender
	Payload []byte
	Key     string
	Option  submit.Option
}

// Submitter answers submissions with Respond and records them.
type Submitter struct {
	mu      sync.Mutex
	calls   []Call
	Respond func(c Call) (int, []byte, error)
}

func (s *Submitter) Submit(_ context.Context, payload []byte, sender settings.Sender, key string, opt submit.Option) (int, []byte, error) {
	c := Call{Sender: sender, Payload: payload, Key: key, Option: opt}
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
	if s.Respond == nil {
		return Created(uuid.New(), 1)
	}
	return s.Respond(c)
}

func (s *Submitter) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Body is a router response, marshaled by Created and JSON.
type Body struct {
	ID               *string       `json:"id"`
	Topic            string        `json:"topic,omitempty"`
	ErrorCount       int           `json:"errorCount"`
	WarningCount     int           `json:"warningCount"`
	DestinationCount int           `json:"destinationCount"`
	Destinations     []Destination `json:"destinations,omitempty"`
	Errors           []Detail      `json:"errors,omitempty"`
}

type Destination struct {
	OrganizationID string `json:"organization_id"`
	Service        string `json:"service"`
	ItemCount      int    `json:"itemCount"`
}

type Detail struct {
	Details string `json:"details"`
}

func JSON(b Body) []byte {
	out, err := json.Marshal(b)
	if err != nil {
		panic(err)
	}
	return out
}

// Created is a 201 response for a healthy submission routed to destinationCount receivers.
func Created(id uuid.UUID, destinationCount int) (int, []byte, error) {
	s := id.String()
	return http.StatusCreated, JSON(Body{ID: &s, Topic: "covid-19", DestinationCount: destinationCount}), nil
}

// Store answers lineage queries from functions. Unset functions answer nil.
type Store struct {
	ItemCount   func(id uuid.UUID, receiver string, stage types.Stage, org *string) *int
	ReportCount func(id uuid.UUID, receiver string, stage types.Stage) *int
	Filename    func(id uuid.UUID, receiver string) *string
	Action      *lineage.Action
	Err         error
}

var _ lineage.Store = (*Store)(nil)

func (s *Store) ReadTx(_ context.Context, fn func(lineage.Queries) error) error {
	if s.Err != nil {
		return s.Err
	}
	return fn(storeQueries{s})
}

func (s *Store) Close() error { return nil }

type storeQueries struct{ s *Store }

func (q storeQueries) CountItemDescendants(_ context.Context, id uuid.UUID, receiver string, stage types.Stage, org *string) (*int, error) {
	if q.s.ItemCount == nil {
		return nil, nil
	}
	return q.s.ItemCount(id, receiver, stage, org), nil
}

func (q storeQueries) CountReportDescendants(_ context.Context, id uuid.UUID, receiver string, stage types.Stage) (*int, error) {
	if q.s.ReportCount == nil {
		return nil, nil
	}
	return q.s.ReportCount(id, receiver, stage), nil
}

func (q storeQueries) FindUploadedFilename(_ context.Context, id uuid.UUID, receiver string) (*string, error) {
	if q.s.Filename == nil {
		return nil, nil
	}
	return q.s.Filename(id, receiver), nil
}

func (q storeQueries) MostRecentAction(context.Context) (*lineage.Action, error) {
	return q.s.Action, nil
}

// Always answers every count with n.
func Always(n int) func(uuid.UUID, string, types.Stage, *string) *int {
	return func(uuid.UUID, string, types.Stage, *string) *int { return &n }
}

// Waiter records requested settle delays without sleeping.
type Waiter struct {
	mu     sync.Mutex
	Extras []int
}

func (w *Waiter) Wait(ctx context.Context, extra int, _ types.Verbosity) error {
	w.mu.Lock()
	w.Extras = append(w.Extras, extra)
	w.mu.Unlock()
	return ctx.Err()
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// New builds a harness on the default catalog. The returned buffer holds console output.
func New(t *testing.T, env types.Environment, sub *Submitter, store *Store) (*harness.Harness, *bytes.Buffer, *Waiter) {
	t.Helper()
	catalog, err := settings.LoadDefault()
	require.NoError(t, err)
	var out bytes.Buffer
	w := &Waiter{}
	h, err := harness.New(harness.Config{
		Env:       env,
		Catalog:   catalog,
		Submitter: sub,
		Store:     store,
		Reporter:  report.New(&out, log.New()),
		Log:       log.New(),
		Waiter:    w,
		Poller:    schedule.NewPoller().WithSleep(noSleep),
	})
	require.NoError(t, err)
	return h, &out, w
}
