// Package metrics provides Prometheus instrumentation for the DEX engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LedgerQueriesTotal counts ledger JSON-RPC calls by method and outcome.
	LedgerQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dexengine_ledger_queries_total",
		Help: "Total ledger JSON-RPC queries",
	}, []string{"method", "status"})

	// LedgerQueryDuration tracks ledger query latency by method.
	LedgerQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dexengine_ledger_query_duration_seconds",
		Help:    "Ledger JSON-RPC query duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// DroppedRecordsTotal counts per-record parse failures that were
	// excluded from a response instead of failing it.
	DroppedRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dexengine_dropped_records_total",
		Help: "Malformed ledger records dropped during normalization",
	}, []string{"kind"})

	// BookSnapshotsTotal counts order book snapshots served.
	BookSnapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexengine_book_snapshots_total",
		Help: "Order book snapshots computed",
	})

	// TvlHistoryPages tracks how many account_tx pages each TVL history
	// rebuild walked.
	TvlHistoryPages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dexengine_tvl_history_pages",
		Help:    "account_tx pages fetched per TVL history rebuild",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
	})

	// SwapPlansTotal counts swap plans by outcome.
	SwapPlansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dexengine_swap_plans_total",
		Help: "Swap plans constructed",
	}, []string{"status"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dexengine_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dexengine_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dexengine_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; route cardinality is low.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
