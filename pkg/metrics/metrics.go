package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Affiliate metrics
	ClicksTracked      prometheus.Counter
	ConversionsTotal   *prometheus.CounterVec
	PostbackFailures   prometheus.Counter
	ConversionsCleared *prometheus.CounterVec

	// Payout metrics
	PayoutValidations *prometheus.CounterVec

	// Abandonment metrics
	AbandonmentLeads *prometheus.CounterVec
	EmailJobs        *prometheus.CounterVec

	// Background tasks
	TaskResults *prometheus.CounterVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// New creates a new Metrics instance registered with the default registerer
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers every metric with reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),

		ClicksTracked: factory.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_clicks_tracked_total",
			Help: "Total number of affiliate clicks recorded",
		}),
		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_conversions_total",
				Help: "Conversions recorded, by initial status",
			},
			[]string{"status"}, // pending, flagged, duplicate
		),
		PostbackFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_postback_failures_total",
			Help: "Network postback rows that could not be created",
		}),
		ConversionsCleared: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_conversions_auto_processed_total",
				Help: "Pending conversions processed by auto-clearing",
			},
			[]string{"outcome"}, // cleared, flagged, error
		),

		PayoutValidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payout_validations_total",
				Help: "Payout eligibility validations",
			},
			[]string{"method", "result"}, // valid, invalid, error
		),

		AbandonmentLeads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "abandonment_leads_total",
				Help: "Leads examined by the abandonment notifier",
			},
			[]string{"outcome"}, // queued, skipped, failed
		),
		EmailJobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "email_jobs_delivered_total",
				Help: "Email job delivery attempts",
			},
			[]string{"status"}, // sent, retry, failed
		),

		TaskResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "background_tasks_total",
				Help: "Background task outcomes",
			},
			[]string{"task", "result"}, // success, failed, dropped
		),

		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),
	}
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern, e.g. /api/v1/admin/conversions/:id/status

			err := next(c)

			status := c.Response().Status
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)
			m.HTTPResponseSize.WithLabelValues(req.Method, path).Observe(float64(c.Response().Size))

			return err
		}
	}
}

// The Record* helpers accept a nil receiver so services can run without metrics.

// RecordClick increments the tracked clicks counter
func (m *Metrics) RecordClick() {
	if m == nil {
		return
	}
	m.ClicksTracked.Inc()
}

// RecordConversion counts a recorded conversion by status
func (m *Metrics) RecordConversion(status string) {
	if m == nil {
		return
	}
	m.ConversionsTotal.WithLabelValues(status).Inc()
}

// RecordPostbackFailure counts a postback row that failed to insert
func (m *Metrics) RecordPostbackFailure() {
	if m == nil {
		return
	}
	m.PostbackFailures.Inc()
}

// RecordAutoClearing counts an auto-clearing outcome
func (m *Metrics) RecordAutoClearing(outcome string) {
	if m == nil {
		return
	}
	m.ConversionsCleared.WithLabelValues(outcome).Inc()
}

// RecordPayoutValidation counts a validation result for a payout method
func (m *Metrics) RecordPayoutValidation(method, result string) {
	if m == nil {
		return
	}
	m.PayoutValidations.WithLabelValues(method, result).Inc()
}

// RecordAbandonmentLead counts a lead outcome of the abandonment notifier
func (m *Metrics) RecordAbandonmentLead(outcome string) {
	if m == nil {
		return
	}
	m.AbandonmentLeads.WithLabelValues(outcome).Inc()
}

// RecordEmailJob counts an email job delivery attempt
func (m *Metrics) RecordEmailJob(status string) {
	if m == nil {
		return
	}
	m.EmailJobs.WithLabelValues(status).Inc()
}

// RecordTask counts a background task outcome
func (m *Metrics) RecordTask(task, result string) {
	if m == nil {
		return
	}
	m.TaskResults.WithLabelValues(task, result).Inc()
}

// RecordCacheHit increments cache hits counter
func (m *Metrics) RecordCacheHit(cacheType string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss increments cache misses counter
func (m *Metrics) RecordCacheMiss(cacheType string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(cacheType).Inc()
}
