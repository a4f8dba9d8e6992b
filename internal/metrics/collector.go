// Package metrics exposes pipeline, limiter and cache activity to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joelkehle/housing-analyst/internal/aicache"
	"github.com/joelkehle/housing-analyst/internal/ratelimit"
)

const Namespace = "housing_analyst"

// Collector holds every metric on a private registry so tests can build as
// many collectors as they like.
type Collector struct {
	registry *prometheus.Registry

	CacheLookups  *prometheus.CounterVec
	ModelCalls    *prometheus.CounterVec
	Fallbacks     *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by analysis kind and result.",
		}, []string{"kind", "result"}),
		ModelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "model_calls_total",
			Help:      "Model calls by analysis kind and outcome.",
		}, []string{"kind", "outcome"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fallbacks_total",
			Help:      "Results computed without the model after a failed call.",
		}, []string{"kind"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End to end analysis latency, cache hits included.",
			Buckets:   []float64{.001, .01, .1, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	c.registry.MustRegister(
		c.CacheLookups,
		c.ModelCalls,
		c.Fallbacks,
		c.Duration,
		c.HTTPRequests,
		c.HTTPDurations,
	)
	return c
}

func (c *Collector) CacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(kind, result).Inc()
}

func (c *Collector) ModelCall(kind, outcome string) {
	c.ModelCalls.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) Fallback(kind string) {
	c.Fallbacks.WithLabelValues(kind).Inc()
}

func (c *Collector) ObserveDuration(kind string, d time.Duration) {
	c.Duration.WithLabelValues(kind).Observe(d.Seconds())
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDurations.WithLabelValues(method, route).Observe(d.Seconds())
}

// WatchLimiter publishes the limiter's remaining quota as gauges read at
// scrape time.
func (c *Collector) WatchLimiter(l *ratelimit.Limiter) {
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "ratelimit_minute_remaining",
			Help:      "Model calls still allowed in the trailing minute.",
		}, func() float64 { return float64(l.Remaining().Minute.Remaining) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "ratelimit_day_remaining",
			Help:      "Model calls still allowed in the trailing 24 hours.",
		}, func() float64 { return float64(l.Remaining().Day.Remaining) }),
	)
}

func (c *Collector) WatchCache(cache *aicache.Cache) {
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "cache_entries",
			Help:      "Entries currently held by the response cache.",
		}, func() float64 { return float64(cache.Stats().Size) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "cache_utilization_ratio",
			Help:      "Cache size over its capacity.",
		}, func() float64 { return cache.Stats().Utilization }),
	)
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
