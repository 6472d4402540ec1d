// Package metrics holds the Prometheus collectors shared by the HTTP server
// and the worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collectors struct {
	registry *prometheus.Registry

	detectionsTotal   prometheus.Counter
	anomaliesTotal    prometheus.Counter
	invalidInputTotal prometheus.Counter
	upstreamErrTotal  prometheus.Counter
	cacheHitsTotal    prometheus.Counter
	seriesLength      prometheus.Histogram
	detectSeconds     prometheus.Histogram
	lastAnomalies     prometheus.Gauge
	salesAddedTotal   prometheus.Counter
	salesDeletedTotal prometheus.Counter
	publishErrTotal   prometheus.Counter
	syncedTotal       prometheus.Counter
	syncErrTotal      prometheus.Counter
	reportsSaved      prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpSeconds       *prometheus.HistogramVec
	rateLimitedTotal  prometheus.Counter
	suspiciousTotal   prometheus.Counter
}

// New creates the collectors on a private registry that also carries the Go
// runtime and process collectors.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		detectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_detections_total",
			Help: "Series scored by the anomaly detector",
		}),
		anomaliesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_anomalies_total",
			Help: "Observations flagged as anomalous",
		}),
		invalidInputTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_invalid_input_total",
			Help: "Series rejected for non-finite amounts or bad parameters",
		}),
		upstreamErrTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_upstream_errors_total",
			Help: "Failed reads from the sales ledger",
		}),
		cacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_series_cache_hits_total",
			Help: "Series served from the in-process cache",
		}),
		seriesLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "salesdash_series_length",
			Help:    "Number of observations per scored series",
			Buckets: []float64{1, 2, 6, 12, 24, 60, 120, 1000, 10000},
		}),
		detectSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "salesdash_detect_seconds",
			Help:    "Time spent reading and scoring a series",
			Buckets: prometheus.DefBuckets,
		}),
		lastAnomalies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salesdash_last_anomaly_count",
			Help: "Anomalies in the most recently scored series",
		}),
		salesAddedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_sales_added_total",
			Help: "Sales records stored",
		}),
		salesDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_sales_deleted_total",
			Help: "Sales records deleted",
		}),
		publishErrTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_publish_errors_total",
			Help: "Sync or delete messages that could not be published",
		}),
		syncedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_sheets_synced_total",
			Help: "Sales mirrored to Google Sheets",
		}),
		syncErrTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_sheets_sync_errors_total",
			Help: "Sales that failed to reach Google Sheets",
		}),
		reportsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_reports_saved_total",
			Help: "Anomaly reports written to Redis",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salesdash_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "code"}),
		httpSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "salesdash_http_request_seconds",
			Help:    "HTTP request latency by method",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		suspiciousTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_suspicious_requests_total",
			Help: "Requests matching a known attack pattern",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.detectionsTotal,
		c.anomaliesTotal,
		c.invalidInputTotal,
		c.upstreamErrTotal,
		c.cacheHitsTotal,
		c.seriesLength,
		c.detectSeconds,
		c.lastAnomalies,
		c.salesAddedTotal,
		c.salesDeletedTotal,
		c.publishErrTotal,
		c.syncedTotal,
		c.syncErrTotal,
		c.reportsSaved,
		c.httpRequests,
		c.httpSeconds,
		c.rateLimitedTotal,
		c.suspiciousTotal,
	)
	return c
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// NewServer serves the registry at /metrics on addr, for processes that
// have no API server of their own.
func (c *Collectors) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Registry is exposed for tests.
func (c *Collectors) Registry() *prometheus.Registry { return c.registry }

// All recorders accept a nil receiver so callers can run without metrics.

func (c *Collectors) ObserveDetection(n, anomalies int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.detectionsTotal.Inc()
	c.anomaliesTotal.Add(float64(anomalies))
	c.seriesLength.Observe(float64(n))
	c.detectSeconds.Observe(elapsed.Seconds())
	c.lastAnomalies.Set(float64(anomalies))
}

func (c *Collectors) InvalidInput() {
	if c != nil {
		c.invalidInputTotal.Inc()
	}
}

func (c *Collectors) UpstreamError() {
	if c != nil {
		c.upstreamErrTotal.Inc()
	}
}

func (c *Collectors) CacheHit() {
	if c != nil {
		c.cacheHitsTotal.Inc()
	}
}

func (c *Collectors) SaleAdded() {
	if c != nil {
		c.salesAddedTotal.Inc()
	}
}

func (c *Collectors) SaleDeleted() {
	if c != nil {
		c.salesDeletedTotal.Inc()
	}
}

func (c *Collectors) PublishError() {
	if c != nil {
		c.publishErrTotal.Inc()
	}
}

func (c *Collectors) Synced(ok bool) {
	if c == nil {
		return
	}
	if ok {
		c.syncedTotal.Inc()
	} else {
		c.syncErrTotal.Inc()
	}
}

func (c *Collectors) ReportSaved() {
	if c != nil {
		c.reportsSaved.Inc()
	}
}

func (c *Collectors) ObserveRequest(method string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpSeconds.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (c *Collectors) RateLimited() {
	if c != nil {
		c.rateLimitedTotal.Inc()
	}
}

func (c *Collectors) SuspiciousRequest() {
	if c != nil {
		c.suspiciousTotal.Inc()
	}
}
