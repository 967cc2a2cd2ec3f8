package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reportstream/rs-acceptor/types"
)

const (
	MetricsNamespace = "rs_acceptor"
)

var (
	Debug                bool = true
	validResults              = []types.TestStatus{types.TestStatusPass, types.TestStatusFail, types.TestStatusSkip, types.TestStatusError}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "validations_total",
		Help:      "Count of end-to-end tests run",
	}, []string{
		"env",
		"run_id",
		"name",
		"classification",
		"result",
	})

	validationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "validation_duration_seconds",
		Help:      "Duration of end-to-end tests",
		Buckets:   []float64{1, 10, 60, 120, 300, 600, 1800},
	}, []string{
		"name",
	})

	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "submissions_total",
		Help:      "Count of report submissions by sender and http status code",
	}, []string{
		"sender",
		"status_code",
	})

	lineageMismatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "lineage_mismatches_total",
		Help:      "Count of lineage checks that did not match the expected distribution",
	}, []string{
		"receiver",
		"stage",
	})

	acceptanceResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "acceptance_results",
		Help:      "Result of acceptance runs",
	}, []string{
		"env",
		"run_id",
		"result",
	})

	acceptanceTestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "acceptance_test_total",
		Help:      "Total number of end-to-end tests",
	}, []string{
		"env",
		"run_id",
	})

	acceptanceTestPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "acceptance_test_passed",
		Help:      "Number of passed end-to-end tests",
	}, []string{
		"env",
		"run_id",
	})

	acceptanceTestFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "acceptance_test_failed",
		Help:      "Number of failed end-to-end tests",
	}, []string{
		"env",
		"run_id",
	})

	acceptanceTestDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "acceptance_test_duration",
		Help:      "Duration of acceptance runs",
	}, []string{
		"env",
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordValidation(env string, runID string, name string, classification types.Classification, result types.TestStatus, duration time.Duration) {
	if !isValidResult(result) {
		log.Error("RecordValidation - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "validations_total",
			"env", env,
			"run_id", runID,
			"name", name,
			"classification", classification,
			"result", result)
	}
	validationsTotal.WithLabelValues(env, runID, name, string(classification), string(result)).Inc()
	validationDuration.WithLabelValues(name).Observe(duration.Seconds())
}

func RecordSubmission(sender string, statusCode int) {
	submissionsTotal.WithLabelValues(sender, strconv.Itoa(statusCode)).Inc()
}

func RecordLineageMismatch(receiver string, stage string) {
	if Debug {
		log.Debug("metric inc",
			"m", "lineage_mismatches_total",
			"receiver", receiver,
			"stage", stage)
	}
	lineageMismatchesTotal.WithLabelValues(receiver, stage).Inc()
}

func RecordAcceptance(
	env string,
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	duration time.Duration,
) {
	acceptanceResults.WithLabelValues(env, runID, result).Set(1)
	acceptanceTestTotal.WithLabelValues(env, runID).Add(float64(total))
	acceptanceTestPassed.WithLabelValues(env, runID).Add(float64(passed))
	acceptanceTestFailed.WithLabelValues(env, runID).Add(float64(failed))
	acceptanceTestDuration.WithLabelValues(env, runID).Set(duration.Seconds())
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
