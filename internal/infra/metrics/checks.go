package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		statusChecksTotal,
		statusCheckAttemptsTotal,
		statusCheckLatencyMs,
	)
}

var (
	statusChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_checks_total",
			Help: "Status checks by caller and final outcome.",
		},
		[]string{"source", "outcome"}, // source: scheduler|interactive|worker|validation
	)

	statusCheckAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_check_attempts_total",
			Help: "Individual HTTP attempts against the status source, labeled by failure kind ('ok' on success).",
		},
		[]string{"kind"},
	)

	statusCheckLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "status_check_latency_ms",
			Help:    "Latency of a full status check including retries, in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000, 40000},
		},
		[]string{"success"},
	)
)

func IncStatusCheck(source, outcome string) {
	statusChecksTotal.WithLabelValues(norm(source), norm(outcome)).Inc()
}

func IncStatusAttempt(kind string) {
	statusCheckAttemptsTotal.WithLabelValues(norm(kind)).Inc()
}

func ObserveStatusCheck(latencyMs int64, success bool) {
	statusCheckLatencyMs.WithLabelValues(boolLabel(success)).Observe(float64(latencyMs))
}
