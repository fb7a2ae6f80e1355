package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Aggregation metrics
	AggregationRunsTotal   *prometheus.CounterVec
	AggregationDuration    prometheus.Histogram
	AggregationsInProgress prometheus.Gauge
	InsertionsCollected    prometheus.Counter
	CampaignsSampled       prometheus.Counter

	// External API metrics
	ExternalAPICalls    *prometheus.CounterVec
	ExternalAPIDuration *prometheus.HistogramVec
	ExternalAPIFailures *prometheus.CounterVec

	// Snapshot cache metrics
	CacheReads  *prometheus.CounterVec
	CacheWrites *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		AggregationRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregation_runs_total",
				Help: "Total number of aggregation runs",
			},
			[]string{"status"},
		),

		AggregationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aggregation_duration_seconds",
				Help:    "End-to-end aggregation run duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),

		AggregationsInProgress: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "aggregations_in_progress",
				Help: "Number of aggregation runs currently in progress",
			},
		),

		InsertionsCollected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "insertions_collected_total",
				Help: "Total number of raw insertions collected from the execution API",
			},
		),

		CampaignsSampled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "campaigns_sampled_total",
				Help: "Total number of campaigns queried for executions",
			},
		),

		ExternalAPICalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "external_api_calls_total",
				Help: "Total number of external API calls",
			},
			[]string{"api", "status"},
		),

		ExternalAPIDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "external_api_duration_seconds",
				Help:    "External API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"api"},
		),

		ExternalAPIFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "external_api_failures_total",
				Help: "Total number of external API failures",
			},
			[]string{"api", "error_type"},
		),

		CacheReads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_cache_reads_total",
				Help: "Total number of snapshot cache reads",
			},
			[]string{"result"},
		),

		CacheWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_cache_writes_total",
				Help: "Total number of snapshot cache writes",
			},
			[]string{"status"},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Aggregation run metrics
func (m *Metrics) RecordAggregationRun(status string, duration time.Duration) {
	m.AggregationRunsTotal.WithLabelValues(status).Inc()
	m.AggregationDuration.Observe(duration.Seconds())
}

// Collected insertion counter
func (m *Metrics) RecordInsertionsCollected(count int) {
	m.InsertionsCollected.Add(float64(count))
}

// Sampled campaign counter
func (m *Metrics) RecordCampaignsSampled(count int) {
	m.CampaignsSampled.Add(float64(count))
}

// External API call metrics
func (m *Metrics) RecordExternalAPICall(api, status string, duration time.Duration) {
	m.ExternalAPICalls.WithLabelValues(api, status).Inc()
	m.ExternalAPIDuration.WithLabelValues(api).Observe(duration.Seconds())
}

// External API failure metrics
func (m *Metrics) RecordExternalAPIFailure(api, errorType string) {
	m.ExternalAPIFailures.WithLabelValues(api, errorType).Inc()
}

// Cache read metrics; result is hit, stale, miss or error
func (m *Metrics) RecordCacheRead(result string) {
	m.CacheReads.WithLabelValues(result).Inc()
}

// Cache write metrics
func (m *Metrics) RecordCacheWrite(status string) {
	m.CacheWrites.WithLabelValues(status).Inc()
}

// Aggregations in progress counter
func (m *Metrics) IncAggregationsInProgress() {
	m.AggregationsInProgress.Inc()
}

// Aggregations in progress counter
func (m *Metrics) DecAggregationsInProgress() {
	m.AggregationsInProgress.Dec()
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
