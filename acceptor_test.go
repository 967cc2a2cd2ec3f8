package acceptor

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportstream/rs-acceptor/harness/harnesstest"
	"github.com/reportstream/rs-acceptor/logging"
	"github.com/reportstream/rs-acceptor/submit"
	"github.com/reportstream/rs-acceptor/types"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// pingResponder answers connection checks with status code and warning count.
func pingResponder(code, warnings int) func(harnesstest.Call) (int, []byte, error) {
	return func(c harnesstest.Call) (int, []byte, error) {
		if c.Option != submit.OptionCheckConnections {
			return http.StatusBadRequest, harnesstest.JSON(harnesstest.Body{ErrorCount: 1}), nil
		}
		return code, harnesstest.JSON(harnesstest.Body{WarningCount: warnings}), nil
	}
}

func testConfig(t *testing.T, sub *harnesstest.Submitter, names ...string) *Config {
	t.Helper()
	return &Config{
		Env: types.EnvLocal,
		Options: types.TestOptions{
			Items:   5,
			Submits: 5,
			Dir:     t.TempDir(),
			SFTPDir: t.TempDir(),
			Env:     types.EnvLocal.Name,
		},
		TestNames: names,
		RunOnce:   true,
		Log:       log.New(),
		Store:     &harnesstest.Store{},
		Submitter: sub,
	}
}

// newTestAcceptor builds an acceptor whose console output goes to the returned buffer.
// The returned channel receives the shutdown callback's argument.
func newTestAcceptor(t *testing.T, cfg *Config) (*Acceptor, *bytes.Buffer, chan error) {
	t.Helper()
	shutdown := make(chan error, 1)
	a, err := New(context.Background(), cfg, "test", func(err error) { shutdown <- err })
	require.NoError(t, err)
	var out bytes.Buffer
	a.out = &out
	return a, &out, shutdown
}

func waitForShutdown(t *testing.T, ch chan error) {
	t.Helper()
	select {
	case err := <-ch:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown callback was not called")
	}
}

func TestRunOncePasses(t *testing.T) {
	sub := &harnesstest.Submitter{Respond: pingResponder(http.StatusOK, 0)}
	cfg := testConfig(t, sub, "ping")
	cfg.LogDir = t.TempDir()
	a, out, shutdown := newTestAcceptor(t, cfg)

	require.NoError(t, a.Start(context.Background()))
	waitForShutdown(t, shutdown)

	require.NotNil(t, a.Result())
	assert.True(t, a.Result().Passed())
	assert.Len(t, sub.Calls(), 1)
	assert.Contains(t, out.String(), "ping")
	assert.Contains(t, out.String(), "✓ pass")
	assert.Contains(t, out.String(), "Test Run Results")

	runDir := filepath.Join(cfg.LogDir, logging.RunDirectoryPrefix+a.Result().RunID)
	summary, err := os.ReadFile(filepath.Join(runDir, logging.SummaryFilename))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "TOTAL")
	assert.Contains(t, string(summary), "Test Run Results")
	assert.NotContains(t, string(summary), "\x1b[")
	assert.FileExists(t, filepath.Join(runDir, "passed", "ping.log"))

	require.NoError(t, a.Stop(context.Background()))
	assert.True(t, a.Stopped())
}

func TestRunOnceTestFailure(t *testing.T) {
	sub := &harnesstest.Submitter{Respond: pingResponder(http.StatusOK, 2)}
	a, out, _ := newTestAcceptor(t, testConfig(t, sub, "ping"))

	err := a.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(err))
	assert.Contains(t, out.String(), "✗ fail")
	assert.Equal(t, []string{"ping"}, a.Result().FailedTests())

	var failure *TestFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, []string{"ping"}, failure.Failed)
}

func TestRunOnceFatalPingStopsRun(t *testing.T) {
	sub := &harnesstest.Submitter{Respond: pingResponder(http.StatusInternalServerError, 0)}
	a, _, _ := newTestAcceptor(t, testConfig(t, sub, "ping", "toomanycols"))

	err := a.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))

	res := a.Result()
	require.NotNil(t, res)
	require.Len(t, res.Tests, 2)
	assert.Equal(t, types.TestStatusError, res.Tests[0].Status)
	assert.Equal(t, types.TestStatusSkip, res.Tests[1].Status)
	assert.Len(t, sub.Calls(), 1, "no test may run after a failed connection check")
}

func TestUnknownTestsAreReportedAndSkipped(t *testing.T) {
	sub := &harnesstest.Submitter{Respond: pingResponder(http.StatusOK, 0)}
	a, out, shutdown := newTestAcceptor(t, testConfig(t, sub, "ping", "nosuchtest"))

	require.NoError(t, a.Start(context.Background()))
	waitForShutdown(t, shutdown)

	assert.Contains(t, out.String(), "nosuchtest: not found")
	require.NotNil(t, a.Result())
	require.Len(t, a.Result().Tests, 1)
	assert.Equal(t, "ping", a.Result().Tests[0].ID)
	assert.True(t, a.Result().Passed())
	assert.Len(t, sub.Calls(), 1)
}

func TestNoTestsToRun(t *testing.T) {
	sub := &harnesstest.Submitter{}
	a, out, shutdown := newTestAcceptor(t, testConfig(t, sub, "nosuchtest", "neither"))

	require.NoError(t, a.Start(context.Background()))
	waitForShutdown(t, shutdown)

	assert.Contains(t, out.String(), "nosuchtest: not found")
	assert.Contains(t, out.String(), "neither: not found")
	assert.Contains(t, out.String(), "No tests to run.")
	assert.Nil(t, a.Result())
	assert.Empty(t, sub.Calls())
	require.NoError(t, a.Stop(context.Background()))
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil, "test", func(error) {})
	require.Error(t, err)
}

func TestListMode(t *testing.T) {
	cfg := &Config{List: true, Log: log.New(), RunOnce: true}
	a, out, shutdown := newTestAcceptor(t, cfg)

	require.NoError(t, a.Start(context.Background()))
	waitForShutdown(t, shutdown)

	listing := out.String()
	assert.Contains(t, listing, "Available Tests")
	assert.Contains(t, listing, "santaclaus")
	assert.Contains(t, listing, "Part of Smoke test")
	assert.Contains(t, listing, "Always fails")
	assert.Contains(t, listing, "SUITES")
	assert.Nil(t, a.Result())
}

func TestContinuousMode(t *testing.T) {
	sub := &harnesstest.Submitter{Respond: pingResponder(http.StatusOK, 0)}
	cfg := testConfig(t, sub, "ping")
	cfg.RunOnce = false
	cfg.RunInterval = 20 * time.Millisecond
	cfg.HealthzAddr = "127.0.0.1:0"
	a, _, _ := newTestAcceptor(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Start(ctx))
	assert.False(t, a.Stopped())

	require.Eventually(t, func() bool {
		return len(sub.Calls()) >= 3
	}, 2*time.Second, 10*time.Millisecond, "expected periodic runs")

	require.NoError(t, a.Stop(ctx))
	assert.True(t, a.Stopped())
	assert.True(t, a.healthy.Load())
	assert.True(t, a.Result().Passed())

	// Stopping twice is harmless
	require.NoError(t, a.Stop(ctx))
}
