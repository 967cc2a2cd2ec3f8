package report

import (
	"bytes"
	"sync"
	"testing"

	"github.com/reportstream/rs-acceptor/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestReporterLines(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, log.New())

	assert.True(t, r.Good("passed %d", 1))
	assert.False(t, r.Bad("failed %s", "x"))
	r.Ugly("Starting %s Test", "ping")
	r.Echo("detail")

	assert.Equal(t, "passed 1\nfailed x\nStarting ping Test\ndetail\n", buf.String())
}

func TestReporterQuiet(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, log.New()).WithVerbosity(types.Quiet)

	r.Echo("hidden")
	r.Bad("shown")
	assert.Equal(t, "shown\n", buf.String())
	assert.Equal(t, types.Quiet, r.Verbosity())

	p := r.StartProgress("waiting", 10)
	p.Tick()
	p.Done()
	assert.Equal(t, "shown\n", buf.String())
}

func TestReporterConcurrent(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, log.New())
	quiet := r.WithVerbosity(types.Quiet)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.Good("line")
			} else {
				quiet.Bad("line")
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, bytes.Count(buf.Bytes(), []byte("line\n")))
}
