// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcomes recorded by ListingSearches.
const (
	SearchOK      = "ok"
	SearchNoMatch = "no_match"
	SearchInvalid = "invalid"
)

// Collector holds all Prometheus metrics for the application. Each
// collector owns its registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	ListingSearches  *prometheus.CounterVec
	ListingsCreated  prometheus.Counter
	CategoryRebuilds prometheus.Counter
	CategoryNodes    prometheus.Gauge

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a collector whose metric names are prefixed with namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ListingSearches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listing_searches_total",
				Help:      "Listing searches by outcome",
			},
			[]string{"result"},
		),
		ListingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_created_total",
			Help:      "Total number of listings created",
		}),
		CategoryRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_rebuilds_total",
			Help:      "Total number of category tree rebuilds",
		}),
		CategoryNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_nodes",
			Help:      "Number of categories after the last rebuild",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.ListingSearches,
		c.ListingsCreated,
		c.CategoryRebuilds,
		c.CategoryNodes,
		c.CacheHits,
		c.CacheMisses,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// The recorders below accept a nil collector so that services can be
// built without metrics in tests.

// RecordSearch counts a listing search with the given outcome.
func (c *Collector) RecordSearch(result string) {
	if c == nil {
		return
	}
	c.ListingSearches.WithLabelValues(result).Inc()
}

// RecordListingCreated counts a new listing.
func (c *Collector) RecordListingCreated() {
	if c == nil {
		return
	}
	c.ListingsCreated.Inc()
}

// RecordRebuild counts a tree rebuild and records the resulting size.
func (c *Collector) RecordRebuild(nodes int) {
	if c == nil {
		return
	}
	c.CategoryRebuilds.Inc()
	c.CategoryNodes.Set(float64(nodes))
}

// RecordCache counts a cache lookup.
func (c *Collector) RecordCache(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.CacheHits.Inc()
		return
	}
	c.CacheMisses.Inc()
}
