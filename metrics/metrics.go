// Package metrics provides Prometheus metrics for the HTTP server and the
// alternatives engine:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - alternatives_tier_candidates_total: Counter of candidates retrieved per tier
//   - alternatives_tier_failures_total: Counter of degraded tiers
//   - alternatives_duplicates_removed_total: Counter of deduplicated candidates
//   - alternatives_results: Histogram of alternatives returned per request
//   - catalog_medicines: Gauge of medicines in the served catalog
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NandaniSingh69/PharmaTrack/alternatives"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	TierCandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alternatives_tier_candidates_total",
			Help: "Candidates retrieved per retrieval tier",
		},
		[]string{"tier"},
	)

	TierFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alternatives_tier_failures_total",
			Help: "Store failures per retrieval tier",
		},
		[]string{"tier"},
	)

	DuplicatesRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alternatives_duplicates_removed_total",
			Help: "Candidates removed as duplicates of an earlier candidate",
		},
	)

	AlternativesReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alternatives_results",
			Help:    "Alternatives returned per request",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
	)

	CatalogMedicines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_medicines",
			Help: "Medicines in the served catalog",
		},
	)

	CatalogLastRefresh = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful catalog refresh",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(TierCandidatesTotal)
	prometheus.MustRegister(TierFailuresTotal)
	prometheus.MustRegister(DuplicatesRemovedTotal)
	prometheus.MustRegister(AlternativesReturned)
	prometheus.MustRegister(CatalogMedicines)
	prometheus.MustRegister(CatalogLastRefresh)
}

// Handler serves the default registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.Handler()
}

// Compile-time check to ensure Recorder implements alternatives.Recorder
var _ alternatives.Recorder = Recorder{}

// Recorder feeds engine counters into the Prometheus metrics
type Recorder struct{}

func (Recorder) CandidatesRetrieved(tier alternatives.Tier, n int) {
	TierCandidatesTotal.WithLabelValues(tier.String()).Add(float64(n))
}

func (Recorder) TierFailed(tier alternatives.Tier) {
	TierFailuresTotal.WithLabelValues(tier.String()).Inc()
}

func (Recorder) DuplicatesRemoved(n int) {
	DuplicatesRemovedTotal.Add(float64(n))
}

func (Recorder) AlternativesReturned(n int) {
	AlternativesReturned.Observe(float64(n))
}

// RecordCatalogRefresh updates the catalog gauges after a successful load
func RecordCatalogRefresh(count int, at time.Time) {
	CatalogMedicines.Set(float64(count))
	CatalogLastRefresh.Set(float64(at.Unix()))
}
