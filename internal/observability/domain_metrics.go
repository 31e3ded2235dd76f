package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Parse outcomes reported on s2sql_parse_total.
const (
	ParseOutcomeSkipped   = "skipped"
	ParseOutcomeGenerated = "generated"
	ParseOutcomeFailed    = "failed"
)

var (
	parseTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "s2sql_parse_total",
			Help: "Total number of parse turns by outcome.",
		},
		[]string{"outcome"},
	)
	strategyDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "s2sql_strategy_duration_seconds",
			Help:    "Latency of SQL generation strategies.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"strategy"},
	)
	linkingValues = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "s2sql_linking_values",
			Help:    "Number of linking values attached to compiled requests.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		},
	)
	exemplarFlushTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "s2sql_exemplar_flush_total",
			Help: "Total number of exemplar flushes by status.",
		},
		[]string{"status"},
	)
	exemplarDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "s2sql_exemplar_dropped_total",
			Help: "Buffered exemplar rows discarded because the buffer was full.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		parseTotal,
		strategyDurationSeconds,
		linkingValues,
		exemplarFlushTotal,
		exemplarDroppedTotal,
	)
}

func ObserveParse(outcome string) {
	parseTotal.WithLabelValues(outcome).Inc()
}

func ObserveStrategy(strategy string, elapsed time.Duration) {
	strategyDurationSeconds.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

func ObserveLinkingValues(count int) {
	if count < 0 {
		count = 0
	}
	linkingValues.Observe(float64(count))
}

func ObserveExemplarFlush(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	exemplarFlushTotal.WithLabelValues(status).Inc()
}

func ObserveExemplarDropped(rows int) {
	if rows > 0 {
		exemplarDroppedTotal.Add(float64(rows))
	}
}
