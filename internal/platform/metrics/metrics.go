// Package metrics exposes Prometheus metrics for document generation and
// the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	DocumentsGenerated *prometheus.CounterVec
	BuildFailures      *prometheus.CounterVec
	BuildDuration      *prometheus.HistogramVec
	DocumentPages      *prometheus.HistogramVec
	DocumentBytes      prometheus.Histogram
	ArchivedDocuments  prometheus.Gauge
	RequestDuration    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates all metrics and registers them on reg. Passing a fresh
// prometheus.NewRegistry keeps tests isolated from the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		DocumentsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "healthreport_documents_generated_total",
			Help: "Documents generated, by kind",
		}, []string{"kind"}),
		BuildFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "healthreport_build_failures_total",
			Help: "Document builds that failed, by kind",
		}, []string{"kind"}),
		BuildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "healthreport_build_duration_seconds",
			Help:    "Layout plus PDF rendering time",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"kind"}),
		DocumentPages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "healthreport_document_pages",
			Help:    "Pages per generated document",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}, []string{"kind"}),
		DocumentBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "healthreport_document_bytes",
			Help:    "Size of rendered PDFs",
			Buckets: prometheus.ExponentialBuckets(4<<10, 2, 10),
		}),
		ArchivedDocuments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "healthreport_archived_documents",
			Help: "Documents currently held in the archive",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "healthreport_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.DocumentsGenerated,
		m.BuildFailures,
		m.BuildDuration,
		m.DocumentPages,
		m.DocumentBytes,
		m.ArchivedDocuments,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveBuild records one successful document build.
func (m *Metrics) ObserveBuild(kind string, pages, size int, d time.Duration) {
	m.DocumentsGenerated.WithLabelValues(kind).Inc()
	m.BuildDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.DocumentPages.WithLabelValues(kind).Observe(float64(pages))
	m.DocumentBytes.Observe(float64(size))
}

// ObserveFailure records a failed build.
func (m *Metrics) ObserveFailure(kind string) {
	m.BuildFailures.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware times every request, labelled by the route pattern rather than
// the raw path so patient ids do not explode cardinality.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.RequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
