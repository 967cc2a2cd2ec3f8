package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportstream/rs-acceptor/types"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("test@error#123"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
		{
			name: "error with multiple underscores",
			err:  errors.New("test__error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordError(t *testing.T) {
	// just test that it doesn't panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("RecordError panic'd")
		}
	}()

	RecordError("test_error")
}

func TestRecordErrorDetails(t *testing.T) {
	RecordErrorDetails("test", nil)
	RecordErrorDetails("test", errors.New("sample error"))
}

func TestRecordValidation(t *testing.T) {
	RecordValidation("local", "run1", "ping", types.ClassificationSmoke, types.TestStatusPass, time.Second)
	RecordValidation("local", "run1", "ping", types.ClassificationSmoke, types.TestStatusPass, time.Second)
	assert.Equal(t, 2.0, counterValue(t, validationsTotal.WithLabelValues("local", "run1", "ping", "smoke", "pass")))

	// invalid results are dropped
	RecordValidation("local", "run1", "ping", types.ClassificationSmoke, types.TestStatus("maybe"), time.Second)
	assert.Equal(t, 0.0, counterValue(t, validationsTotal.WithLabelValues("local", "run1", "ping", "smoke", "maybe")))
}

func TestRecordSubmission(t *testing.T) {
	RecordSubmission("ignore.ignore-waters", 201)
	RecordSubmission("ignore.ignore-waters", 500)
	RecordSubmission("ignore.ignore-waters", 201)
	assert.Equal(t, 2.0, counterValue(t, submissionsTotal.WithLabelValues("ignore.ignore-waters", "201")))
	assert.Equal(t, 1.0, counterValue(t, submissionsTotal.WithLabelValues("ignore.ignore-waters", "500")))
}

func TestRecordLineageMismatch(t *testing.T) {
	RecordLineageMismatch("ignore.REDOX", "send")
	assert.Equal(t, 1.0, counterValue(t, lineageMismatchesTotal.WithLabelValues("ignore.REDOX", "send")))
}

func TestRecordAcceptance(t *testing.T) {
	RecordAcceptance("local", "run1", "pass", 1, 1, 0, time.Second)
	RecordAcceptance("local", "run1", "fail", 1, 0, 1, time.Second)
	assert.Equal(t, 2.0, counterValue(t, acceptanceTestTotal.WithLabelValues("local", "run1")))
}
