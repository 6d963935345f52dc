package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query compilation and execution Prometheus metrics.
var (
	QueryCompilationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperdex",
			Name:      "query_compilations_total",
			Help:      "Total number of query compilations",
		},
		[]string{"status"}, // "ok" / "rejected_filter" / "invalid"
	)

	QueryExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperdex",
			Name:      "query_execution_duration_seconds",
			Help:      "Search statement execution duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"kind"}, // "semantic" / "filter" / "count"
	)

	QueryRowsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperdex",
			Name:      "query_rows_returned",
			Help:      "Rows returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		},
		[]string{"kind"},
	)

	QueryWarningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "paperdex",
			Name:      "query_warnings_total",
			Help:      "Total number of per-request compilation warnings (dropped fields)",
		},
	)
)

var queryMetricsRegistered bool

// RegisterQueryMetrics registers Prometheus query metrics. Must be called once from main.
func RegisterQueryMetrics() {
	if queryMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueryCompilationsTotal)
	prometheus.MustRegister(QueryExecutionDuration)
	prometheus.MustRegister(QueryRowsReturned)
	prometheus.MustRegister(QueryWarningsTotal)
	queryMetricsRegistered = true
}
