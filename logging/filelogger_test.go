package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportstream/rs-acceptor/types"
)

func TestNewFileLoggerValidation(t *testing.T) {
	_, err := NewFileLogger(t.TempDir(), "")
	require.Error(t, err)
	_, err = NewFileLogger("", "run")
	require.Error(t, err)
}

func TestFileLogger(t *testing.T) {
	baseDir := t.TempDir()
	l, err := NewFileLogger(baseDir, "run-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(baseDir, "testrun-run-1"), l.LogDir())

	results := []*types.TestResult{
		{ID: "ping", Classification: types.ClassificationSmoke, Status: types.TestStatusPass, Duration: time.Second},
		{ID: "end2end", Classification: types.ClassificationSmoke, Status: types.TestStatusFail, Error: errors.New("end2end test failed")},
		{ID: "merge", Classification: types.ClassificationSmoke, Status: types.TestStatusSkip},
	}
	for _, r := range results {
		require.NoError(t, l.LogTestResult(r))
	}
	require.NoError(t, l.Complete("\x1b[32mTotal: 3\x1b[0m"))

	assert.FileExists(t, filepath.Join(l.LogDir(), "passed", "ping.log"))
	assert.FileExists(t, filepath.Join(l.LogDir(), "skipped", "merge.log"))
	failed, err := os.ReadFile(filepath.Join(l.LogDir(), "failed", "end2end.log"))
	require.NoError(t, err)
	assert.Contains(t, string(failed), "Error: end2end test failed")
	assert.Contains(t, string(failed), "Classification: Part of Smoke test")

	summary, err := os.ReadFile(filepath.Join(l.LogDir(), SummaryFilename))
	require.NoError(t, err)
	assert.Equal(t, "Total: 3", string(summary))

	f, err := os.Open(filepath.Join(l.LogDir(), ResultsFilename))
	require.NoError(t, err)
	defer f.Close()
	var records []ResultRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec ResultRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, 3)
	assert.Equal(t, "ping", records[0].Test)
	assert.Equal(t, 1.0, records[0].Seconds)
	assert.Equal(t, "run-1", records[1].RunID)
	assert.Equal(t, "fail", records[1].Status)
	assert.Equal(t, "end2end test failed", records[1].Error)
}

func TestGetDirectoryForRunID(t *testing.T) {
	baseDir := t.TempDir()
	l, err := NewFileLogger(baseDir, "a")
	require.NoError(t, err)

	dir, err := l.GetDirectoryForRunID("a")
	require.NoError(t, err)
	assert.Equal(t, l.LogDir(), dir)

	dir, err = l.GetDirectoryForRunID("b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(baseDir, "testrun-b"), dir)

	_, err = l.GetDirectoryForRunID("")
	require.Error(t, err)
}

type countingSink struct {
	consumed  int
	completed bool
}

func (s *countingSink) Consume(*types.TestResult, string) error { s.consumed++; return nil }
func (s *countingSink) Complete(string) error                   { s.completed = true; return nil }

func TestAddSink(t *testing.T) {
	l, err := NewFileLogger(t.TempDir(), "run")
	require.NoError(t, err)
	sink := &countingSink{}
	l.AddSink(sink)
	require.NoError(t, l.LogTestResult(&types.TestResult{ID: "ping", Status: types.TestStatusPass}))
	require.NoError(t, l.Complete(""))
	assert.Equal(t, 1, sink.consumed)
	assert.True(t, sink.completed)
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c_d", safeFilename("a/b c:d"))
}
