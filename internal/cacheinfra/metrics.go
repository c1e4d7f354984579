package cacheinfra

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-storefront-cache/cache"
	"github.com/goliatone/go-storefront-cache/keys"
)

const unknownFamily = "unknown"

// Collector records helper results as Prometheus metrics on its own
// registry. It implements cache.Recorder.
type Collector struct {
	registry *prometheus.Registry

	Operations *prometheus.CounterVec
	Errors     *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewCollector creates the cache metrics under namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Cache helper calls by operation, key family and outcome",
		},
		[]string{"op", "family", "outcome"},
	)

	errs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Cache helper calls that reported a cache-layer error",
		},
		[]string{"op", "family"},
	)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operation_duration_seconds",
			Help:      "Cache helper call duration in seconds, compute time included",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	registry.MustRegister(operations, errs, duration)

	return &Collector{
		registry:   registry,
		Operations: operations,
		Errors:     errs,
		Duration:   duration,
	}
}

// Registry returns the registry holding the cache metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Record implements cache.Recorder. The family label is limited to the
// registered key families. Bypasses caused by a disabled cache are not
// counted as errors.
func (c *Collector) Record(res cache.Result) {
	family := unknownFamily
	if f, ok := keys.FamilyOf(res.Key); ok {
		family = string(f)
	}

	op := string(res.Op)
	c.Operations.WithLabelValues(op, family, string(res.Outcome)).Inc()
	if res.Err != nil && !res.Disabled() {
		c.Errors.WithLabelValues(op, family).Inc()
	}
	c.Duration.WithLabelValues(op).Observe(res.Elapsed.Seconds())
}
