// Package metrics provides centralized Prometheus metrics registry for the settlement engine.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "turf_ledger"

// Fetch and publish outcome labels
const (
	FetchOutcomeSuccess = "success"
	FetchOutcomeError   = "error"

	PublishOutcomeSuccess = "success"
	PublishOutcomeError   = "error"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	SettlementPassesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_passes_total",
		Help:      "Total number of settlement passes run",
	})
	BetsProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bets_processed_total",
		Help:      "Total number of unsettled bets processed",
	})
	BetsSettledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bets_settled_total",
		Help:      "Total number of bets updated, by resulting status",
	}, []string{"status"})
	BetsUnmatchedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bets_unmatched_total",
		Help:      "Total number of bets left unchanged because no result matched",
	})
	SettlementErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_errors_total",
		Help:      "Total number of bets that failed to settle, by reason",
	}, []string{"reason"})
	ResultsFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "results_fetch_total",
		Help:      "Total number of results fetches, by outcome",
	}, []string{"outcome"})
	ResultRecordsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "result_records_skipped_total",
		Help:      "Total number of upstream result records skipped as invalid",
	})
	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_events_published_total",
		Help:      "Total number of settlement events published, by outcome",
	}, []string{"outcome"})
)

// Gauge metrics
var (
	LastPassTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_pass_timestamp_seconds",
		Help:      "Unix time the last settlement pass finished",
	})
	LastPassUpdated = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_pass_updated_bets",
		Help:      "Number of bets updated by the last settlement pass",
	})
	ResultCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "result_cache_hit_ratio",
		Help:      "Result cache hit ratio of the last settlement pass",
	})
)

// Histogram metrics
var (
	ResultsFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "results_fetch_duration_seconds",
		Help:      "Duration of a paginated results fetch in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
	PassDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "settlement_pass_duration_seconds",
		Help:      "Duration of settlement passes in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(SettlementPassesTotal)
		registry.MustRegister(BetsProcessedTotal)
		registry.MustRegister(BetsSettledTotal)
		registry.MustRegister(BetsUnmatchedTotal)
		registry.MustRegister(SettlementErrorsTotal)
		registry.MustRegister(ResultsFetchTotal)
		registry.MustRegister(ResultRecordsSkippedTotal)
		registry.MustRegister(EventsPublishedTotal)

		registry.MustRegister(LastPassTimestamp)
		registry.MustRegister(LastPassUpdated)
		registry.MustRegister(ResultCacheHitRatio)

		registry.MustRegister(ResultsFetchDuration)
		registry.MustRegister(PassDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordBetProcessed records an unsettled bet entering a pass.
func RecordBetProcessed() {
	BetsProcessedTotal.Inc()
}

// RecordBetSettled records a persisted settlement.
func RecordBetSettled(status string) {
	BetsSettledTotal.WithLabelValues(status).Inc()
}

// RecordBetUnmatched records a bet left unchanged for lack of a match.
func RecordBetUnmatched() {
	BetsUnmatchedTotal.Inc()
}

// RecordSettlementError records a bet that failed to settle.
func RecordSettlementError(reason string) {
	SettlementErrorsTotal.WithLabelValues(reason).Inc()
}

// RecordResultsFetch records a results fetch and its duration.
func RecordResultsFetch(outcome string, d time.Duration) {
	ResultsFetchTotal.WithLabelValues(outcome).Inc()
	ResultsFetchDuration.Observe(d.Seconds())
}

// RecordSkippedRecords records upstream records dropped as invalid.
func RecordSkippedRecords(n int) {
	if n > 0 {
		ResultRecordsSkippedTotal.Add(float64(n))
	}
}

// RecordEventPublished records a settlement event publish attempt.
func RecordEventPublished(outcome string) {
	EventsPublishedTotal.WithLabelValues(outcome).Inc()
}

// RecordPass records a finished settlement pass.
func RecordPass(duration time.Duration, updated int, cacheHitRatio float64) {
	SettlementPassesTotal.Inc()
	PassDuration.Observe(duration.Seconds())
	LastPassTimestamp.SetToCurrentTime()
	LastPassUpdated.Set(float64(updated))
	ResultCacheHitRatio.Set(cacheHitRatio)
}
