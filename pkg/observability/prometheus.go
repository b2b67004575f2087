package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements all hook interfaces with Prometheus metrics kept in
// a private registry, so several collectors can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	LayoutRuns      *prometheus.CounterVec
	LayoutDuration  prometheus.Histogram
	LayoutNodes     prometheus.Histogram
	LayoutEnergy    prometheus.Gauge
	ClusterCount    prometheus.Gauge
	Modularity      prometheus.Gauge
	GraphChanges    *prometheus.CounterVec
	Relayouts       *prometheus.CounterVec
	RelayoutSeconds prometheus.Histogram
	CacheEvents     *prometheus.CounterVec
	CacheBytes      prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	HTTPErrors      *prometheus.CounterVec
}

// NewCollector creates a collector whose metric names carry namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		LayoutRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layout_runs_total",
			Help:      "Total number of layout runs by outcome",
		}, []string{"status"}),
		LayoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Layout run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		LayoutNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_nodes",
			Help:      "Number of nodes per layout run",
			Buckets:   prometheus.ExponentialBuckets(4, 4, 8),
		}),
		LayoutEnergy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "layout_energy",
			Help:      "Energy of the most recent layout",
		}),
		ClusterCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cluster_count",
			Help:      "Number of clusters in the most recent clustering",
		}),
		Modularity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cluster_modularity",
			Help:      "Modularity of the most recent clustering",
		}),
		GraphChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_changes_total",
			Help:      "Graph change notifications by kind and whether they were suppressed",
		}, []string{"kind", "suppressed"}),
		Relayouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayouts_total",
			Help:      "Relayouts of live engines by trigger",
		}, []string{"trigger"}),
		RelayoutSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relayout_duration_seconds",
			Help:      "Relayout duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		CacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache hits, misses and writes by key type",
		}, []string{"event", "key_type"}),
		CacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP requests that ended in an error response",
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.LayoutRuns,
		c.LayoutDuration,
		c.LayoutNodes,
		c.LayoutEnergy,
		c.ClusterCount,
		c.Modularity,
		c.GraphChanges,
		c.Relayouts,
		c.RelayoutSeconds,
		c.CacheEvents,
		c.CacheBytes,
		c.HTTPRequests,
		c.HTTPDuration,
		c.HTTPErrors,
	)
	return c
}

var (
	_ PipelineHooks = (*Collector)(nil)
	_ EditHooks     = (*Collector)(nil)
	_ CacheHooks    = (*Collector)(nil)
	_ HTTPHooks     = (*Collector)(nil)
)

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Install registers c for every hook category.
func (c *Collector) Install() {
	SetPipelineHooks(c)
	SetEditHooks(c)
	SetCacheHooks(c)
	SetHTTPHooks(c)
}

func (c *Collector) OnLayoutStart(context.Context, int, int) {}

func (c *Collector) OnLayoutComplete(_ context.Context, nodeCount, _ int, energy float64, duration time.Duration, err error) {
	if err != nil {
		c.LayoutRuns.WithLabelValues("error").Inc()
		return
	}
	c.LayoutRuns.WithLabelValues("ok").Inc()
	c.LayoutDuration.Observe(duration.Seconds())
	c.LayoutNodes.Observe(float64(nodeCount))
	c.LayoutEnergy.Set(energy)
}

func (c *Collector) OnClusterComplete(_ context.Context, clusters int, modularity float64, _ time.Duration) {
	c.ClusterCount.Set(float64(clusters))
	c.Modularity.Set(modularity)
}

func (c *Collector) OnChange(_ context.Context, kind string, suppressed bool) {
	c.GraphChanges.WithLabelValues(kind, strconv.FormatBool(suppressed)).Inc()
}

func (c *Collector) OnRelayout(_ context.Context, trigger string, duration time.Duration) {
	c.Relayouts.WithLabelValues(trigger).Inc()
	c.RelayoutSeconds.Observe(duration.Seconds())
}

func (c *Collector) OnCacheHit(_ context.Context, keyType string) {
	c.CacheEvents.WithLabelValues("hit", keyType).Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, keyType string) {
	c.CacheEvents.WithLabelValues("miss", keyType).Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, keyType string, size int) {
	c.CacheEvents.WithLabelValues("set", keyType).Inc()
	c.CacheBytes.Add(float64(size))
}

func (c *Collector) OnResponse(_ context.Context, method, route string, statusCode int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) OnError(_ context.Context, method, route string, _ error) {
	c.HTTPErrors.WithLabelValues(method, route).Inc()
}
