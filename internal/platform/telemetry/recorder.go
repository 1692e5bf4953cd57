// Package telemetry holds the Prometheus recorder and tracing setup.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/ports"
)

// Recorder exports snapshot build, cache and request metrics.
type Recorder struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	buildDuration   *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	metricFailures  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

type Option func(*Recorder)

func WithNamespace(ns string) Option {
	return func(r *Recorder) { r.namespace = ns }
}

func WithBuckets(b []float64) Option {
	return func(r *Recorder) { r.buckets = b }
}

// WithRegistry registers the collectors on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(r *Recorder) { r.registry = reg }
}

var _ ports.RecorderPort = (*Recorder)(nil)

func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "taiga_metrics",
		buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(r.registry)
	r.buildDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "snapshot",
		Name:      "build_duration_seconds",
		Help:      "Time spent computing a project snapshot",
		Buckets:   r.buckets,
	}, []string{"outcome"})
	r.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "snapshot",
		Name:      "cache_lookups_total",
		Help:      "Snapshot cache lookups by result",
	}, []string{"result"})
	r.metricFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "calculator",
		Name:      "metric_failures_total",
		Help:      "Metrics omitted from a snapshot because they failed",
	}, []string{"kind", "metric"})
	r.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"method", "route", "status"})
	r.httpRequestTime = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   r.buckets,
	}, []string{"method", "route"})
	return r
}

func (r *Recorder) ObserveBuild(d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.buildDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (r *Recorder) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveMetricFailure(kind domain.FailureKind, metricID string) {
	r.metricFailures.WithLabelValues(string(kind), metricID).Inc()
}

// Middleware records every request against its matched route pattern.
func (r *Recorder) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		route := c.Route().Path
		r.httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		r.httpRequestTime.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
