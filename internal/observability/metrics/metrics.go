package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "expense_approval_"

// Result label values shared by callers.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once
	initialized  bool

	submissionsTotal *prometheus.CounterVec
	submitLatency    *prometheus.HistogramVec

	decisionsTotal  *prometheus.CounterVec
	decisionLatency *prometheus.HistogramVec
)

// Init registers workflow metrics on the default registry. Observe calls
// before Init are no-ops so unit tests need no registry setup.
func Init() {
	registerOnce.Do(func() {
		submissionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "submissions_total",
				Help: "Total expense submissions by result",
			},
			[]string{"result"},
		)
		submitLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "submit_latency_seconds",
				Help:    "Submission latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		decisionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "decisions_total",
				Help: "Total approval decisions by verdict and result",
			},
			[]string{"verdict", "result"},
		)
		decisionLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "decision_latency_seconds",
				Help:    "Decision latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			submissionsTotal,
			submitLatency,
			decisionsTotal,
			decisionLatency,
		)
		initialized = true
	})
}

// ObserveSubmit records one submission outcome and its latency.
func ObserveSubmit(result string, elapsed time.Duration) {
	if !initialized {
		return
	}
	submissionsTotal.WithLabelValues(result).Inc()
	submitLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

// ObserveDecision records one decision outcome and its latency.
func ObserveDecision(approve bool, result string, elapsed time.Duration) {
	if !initialized {
		return
	}
	verdict := "reject"
	if approve {
		verdict = "approve"
	}
	decisionsTotal.WithLabelValues(verdict, result).Inc()
	decisionLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}
