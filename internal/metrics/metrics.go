// Package metrics provides Prometheus metrics for the pricing core.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Market refresh metrics
	TypesRefreshedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_types_refreshed_total",
			Help: "Total number of types whose prices were refreshed, by market",
		},
		[]string{"market"},
	)

	TypeFetchFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_type_fetch_failures_total",
			Help: "Total number of per-type order fetches that failed and were skipped",
		},
		[]string{"market"},
	)

	RefreshCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricing_refresh_cycle_duration_seconds",
			Help:    "Time taken by a full market refresh cycle",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"market"},
	)

	SnapshotUpsertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_snapshot_upserts_total",
			Help: "Total number of market price snapshot rows written",
		},
	)

	// Price read cache metrics
	PriceCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_price_cache_hits_total",
			Help: "Price read cache hit count",
		},
	)

	PriceCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_price_cache_misses_total",
			Help: "Price read cache miss count",
		},
	)

	// Subscription metrics
	SubscriptionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pricing_subscriptions_active",
			Help: "Number of active type subscriptions by market",
		},
		[]string{"market"},
	)

	// Appraisal metrics
	AppraisalsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_appraisals_created_total",
			Help: "Total number of appraisals created",
		},
	)

	AppraisalItemErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_appraisal_item_errors_total",
			Help: "Appraisal line items skipped due to missing catalog metadata",
		},
	)

	AppraisalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricing_appraisal_duration_seconds",
			Help:    "Time taken to create an appraisal, including the scoped refresh",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	AppraisalsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_appraisals_expired_total",
			Help: "Total number of appraisals removed by the expiry sweep",
		},
	)
)
