// Package metrics provides the Prometheus collector for the PDF service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "pdfservice"

// Collector is a prometheus.Collector that collects metrics about document
// processing and the HTTP surface. It also records pipeline observations.
type Collector struct {
	stageFailures    *prometheus.CounterVec
	resourceRefusals *prometheus.CounterVec
	renderDuration   prometheus.Histogram
	inputSize        prometheus.Histogram
	outputSize       prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	inFlight         prometheus.Gauge
}

var sizeBuckets = prometheus.ExponentialBuckets(1024, 4, 10) // 1KiB .. 256MiB

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		stageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "stage_failures_total",
				Help:      "The number of failed pipeline runs by stage and error class.",
			}, []string{"stage", "class", "status"},
		),
		resourceRefusals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "resource_refusals_total",
				Help:      "The number of resource fetches refused during rendering.",
			}, []string{"reason"},
		),
		renderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "render_duration_seconds",
				Help:      "The time taken to render a document.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		inputSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "input_size_bytes",
				Help:      "The size of rendered markup.",
				Buckets:   sizeBuckets,
			},
		),
		outputSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "output_size_bytes",
				Help:      "The size of produced PDF documents.",
				Buckets:   sizeBuckets,
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "The number of HTTP requests by route and status.",
			}, []string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "The time taken to serve an HTTP request.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_in_flight",
				Help:      "The number of HTTP requests being served.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.stageFailures.Describe(ch)
	c.resourceRefusals.Describe(ch)
	c.renderDuration.Describe(ch)
	c.inputSize.Describe(ch)
	c.outputSize.Describe(ch)
	c.httpRequests.Describe(ch)
	c.httpDuration.Describe(ch)
	c.inFlight.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.stageFailures.Collect(ch)
	c.resourceRefusals.Collect(ch)
	c.renderDuration.Collect(ch)
	c.inputSize.Collect(ch)
	c.outputSize.Collect(ch)
	c.httpRequests.Collect(ch)
	c.httpDuration.Collect(ch)
	c.inFlight.Collect(ch)
}

// StageFailed counts a failed pipeline run.
func (c *Collector) StageFailed(stage, class string, status int) {
	c.stageFailures.WithLabelValues(stage, class, strconv.Itoa(status)).Inc()
}

// ResourceRefused counts a refused resource fetch.
func (c *Collector) ResourceRefused(reason string) {
	c.resourceRefusals.WithLabelValues(reason).Inc()
}

// RenderDuration observes the time spent in the render stage.
func (c *Collector) RenderDuration(d time.Duration) {
	c.renderDuration.Observe(d.Seconds())
}

// DocumentSizes observes the input and output sizes of a successful run.
func (c *Collector) DocumentSizes(input, output int) {
	c.inputSize.Observe(float64(input))
	c.outputSize.Observe(float64(output))
}

// RequestStarted marks an HTTP request in flight. The returned func records
// its completion.
func (c *Collector) RequestStarted(method, route string) func(status int) {
	c.inFlight.Inc()
	start := time.Now()
	return func(status int) {
		c.inFlight.Dec()
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
