package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric the editor client exports. Each Registry owns
// its own prometheus registry so tests never collide on registration.
type Registry struct {
	registry *prometheus.Registry

	// Graph cache
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	CacheRefreshes *prometheus.CounterVec
	GraphFetchTime *prometheus.HistogramVec

	// Views
	ViewsOpen     prometheus.Gauge
	ViewEvents    *prometheus.CounterVec
	RenderedNodes prometheus.Histogram

	// Health monitor
	BackendUp      prometheus.Gauge
	HealthChecks   *prometheus.CounterVec
	Registrations  *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
}

// NewRegistry creates a registry with every metric registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initCacheMetrics()
	r.initViewMetrics()
	r.initMonitorMetrics()
	return r
}

func (r *Registry) initCacheMetrics() {
	r.CacheHits = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "linggen_editor_graph_cache_hits_total",
			Help: "Graph cache lookups served from memory",
		},
		[]string{"source_id"},
	)
	r.CacheMisses = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "linggen_editor_graph_cache_misses_total",
			Help: "Graph cache lookups that fetched from the backend",
		},
		[]string{"source_id"},
	)
	r.CacheRefreshes = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "linggen_editor_graph_cache_refreshes_total",
			Help: "Explicit graph refreshes that bypassed the cache",
		},
		[]string{"source_id"},
	)
	r.GraphFetchTime = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linggen_editor_graph_fetch_seconds",
			Help:    "Duration of graph fetches from the backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
}

func (r *Registry) initViewMetrics() {
	r.ViewsOpen = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "linggen_editor_views_open",
			Help: "Number of open graph views",
		},
	)
	r.ViewEvents = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "linggen_editor_view_events_total",
			Help: "UI events handled by graph views",
		},
		[]string{"type"},
	)
	r.RenderedNodes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linggen_editor_rendered_nodes",
			Help:    "Nodes drawn per rendered frame",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
}

func (r *Registry) initMonitorMetrics() {
	r.BackendUp = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "linggen_editor_backend_up",
			Help: "1 when the last health check succeeded",
		},
	)
	r.HealthChecks = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "linggen_editor_health_checks_total",
			Help: "Backend health checks by result",
		},
		[]string{"result"},
	)
	r.Registrations = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "linggen_editor_mcp_registrations_total",
			Help: "MCP integration registrations by outcome",
		},
		[]string{"registrar", "outcome"},
	)
	r.HTTPRequests = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "linggen_editor_http_requests_total",
			Help: "Requests served by the view server",
		},
		[]string{"method", "status"},
	)
	r.RequestLatency = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linggen_editor_http_request_seconds",
			Help:    "Latency of requests served by the view server",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
}

// ============================== RECORDERS =================================

// RecordGraphFetch records one backend graph fetch.
func (r *Registry) RecordGraphFetch(err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.GraphFetchTime.WithLabelValues(status).Observe(d.Seconds())
}

// RecordHealth records a health check result.
func (r *Registry) RecordHealth(up bool) {
	if up {
		r.BackendUp.Set(1)
		r.HealthChecks.WithLabelValues("up").Inc()
		return
	}
	r.BackendUp.Set(0)
	r.HealthChecks.WithLabelValues("down").Inc()
}

// RecordHTTPRequest records a request served by the view server.
func (r *Registry) RecordHTTPRequest(method, status string, d time.Duration) {
	r.HTTPRequests.WithLabelValues(method, status).Inc()
	r.RequestLatency.WithLabelValues(method).Observe(d.Seconds())
}

// Handler exposes the registry in the prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }
