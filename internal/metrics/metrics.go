// Package metrics holds the Prometheus collectors of the refresh pipeline.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kosarica/feed-service/internal/types"
)

var (
	// refreshRuns counts completed refresh passes by result (ok, registry_error).
	refreshRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_refresh_runs_total",
		Help: "Total number of refresh passes by result",
	}, []string{"result"})

	// refreshDuration tracks the wall time of a refresh pass.
	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feed_refresh_duration_seconds",
		Help:    "Duration of a full refresh pass",
		Buckets: []float64{1, 10, 30, 60, 120, 300, 600, 1800},
	})

	// supplierOutcomes counts per-supplier results.
	supplierOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_supplier_outcomes_total",
		Help: "Total number of supplier refresh outcomes",
	}, []string{"outcome"})

	productsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_products_written_total",
		Help: "Total number of products written to feeds",
	})

	rowsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_rows_rejected_total",
		Help: "Total number of spreadsheet rows rejected by validation",
	})

	// quotaRetries counts backoff waits after quota errors.
	quotaRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_quota_retries_total",
		Help: "Total number of retries after upstream quota errors",
	}, []string{"operation"})

	quotaExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_quota_exhausted_total",
		Help: "Total number of operations that hit the retry cap",
	})

	refreshRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feed_refresh_running",
		Help: "1 while a refresh pass is in progress",
	})

	lastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feed_refresh_last_success_timestamp_seconds",
		Help: "Unix time of the last completed refresh pass",
	})
)

// RecordRun records a completed refresh pass
func RecordRun(result string, d time.Duration) {
	refreshRuns.WithLabelValues(result).Inc()
	refreshDuration.Observe(d.Seconds())
	if result == "ok" {
		lastSuccess.SetToCurrentTime()
	}
}

// SetRunning marks whether a refresh pass is in progress
func SetRunning(running bool) {
	if running {
		refreshRunning.Set(1)
		return
	}
	refreshRunning.Set(0)
}

// RecordOutcome records one supplier result
func RecordOutcome(outcome types.SupplierOutcome, products, rejected int) {
	supplierOutcomes.WithLabelValues(string(outcome)).Inc()
	productsWritten.Add(float64(products))
	rowsRejected.Add(float64(rejected))
}

// RecordRetry records a backoff wait after a quota error
func RecordRetry(operation string) {
	// operation names embed ids; keep the label set bounded
	quotaRetries.WithLabelValues(operationKind(operation)).Inc()
}

// RecordExhausted records an operation that gave up after the retry cap
func RecordExhausted() {
	quotaExhausted.Inc()
}

func operationKind(operation string) string {
	words := strings.Fields(operation)
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.Join(words, " ")
}
