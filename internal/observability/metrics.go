package observability

import "github.com/prometheus/client_golang/prometheus"

// unmatchedRoute labels requests no route pattern claimed, keeping label
// cardinality bounded under path scanning.
const unmatchedRoute = "unmatched"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "s2sql_http_requests_total",
			Help: "Total number of HTTP requests by route pattern.",
		},
		[]string{"route", "status"},
	)

	// Parse requests wait on model completions, so buckets reach past a minute.
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "s2sql_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"route"},
	)

	httpRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "s2sql_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds, httpRequestsInFlight)
}
