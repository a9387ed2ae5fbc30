package cli

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/pglocktrace/pkg/observability"
)

const metricsNamespace = "pglocktrace"

// metrics implements the observability hooks with Prometheus collectors.
// Only serve registers it; the other commands keep the no-op hooks.
type metrics struct {
	registry *prometheus.Registry

	eventsTotal     *prometheus.CounterVec // kind
	orphansTotal    *prometheus.CounterVec // mode
	framesTotal     prometheus.Counter
	graphVertices   prometheus.Gauge
	graphEdges      prometheus.Gauge
	cacheOpsTotal   *prometheus.CounterVec // key_type, result
	cacheBytesTotal *prometheus.CounterVec // key_type
	resolvesTotal   *prometheus.CounterVec // source, found
	resolveSeconds  *prometheus.HistogramVec
	resolveErrors   *prometheus.CounterVec // source
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &metrics{
		registry: reg,
		eventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Processed trace events by kind.",
		}, []string{"kind"}),
		orphansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "orphan_ungrants_total",
			Help:      "Releases of lock modes that were not held, by lock mode.",
		}, []string{"mode"}),
		framesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "graph",
			Name:      "frames_total",
			Help:      "Lock graph snapshots taken.",
		}),
		graphVertices: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "graph",
			Name:      "vertices",
			Help:      "Vertices in the most recent lock graph snapshot.",
		}),
		graphEdges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "graph",
			Name:      "edges",
			Help:      "Edges in the most recent lock graph snapshot.",
		}),
		cacheOpsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "OID cache operations by key type and result.",
		}, []string{"key_type", "result"}),
		cacheBytesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Bytes written to the OID cache by key type.",
		}, []string{"key_type"}),
		resolvesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "resolver",
			Name:      "lookups_total",
			Help:      "Catalog lookups by source and whether a name was found.",
		}, []string{"source", "found"}),
		resolveSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "resolver",
			Name:      "lookup_duration_seconds",
			Help:      "Latency of catalog lookups.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"source"}),
		resolveErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "resolver",
			Name:      "errors_total",
			Help:      "Failed catalog queries by source.",
		}, []string{"source"}),
	}
}

// install registers m as the process-wide hooks.
func (m *metrics) install() {
	observability.SetTraceHooks(m)
	observability.SetCacheHooks(m)
	observability.SetResolverHooks(m)
}

// handler serves the registry in the Prometheus text format.
func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// =============================================================================
// Trace Hooks
// =============================================================================

func (m *metrics) OnEvent(_ context.Context, kind string) {
	m.eventsTotal.WithLabelValues(kind).Inc()
}

func (m *metrics) OnOrphanUngrant(_ context.Context, _ int, _, mode string) {
	m.orphansTotal.WithLabelValues(mode).Inc()
}

func (m *metrics) OnFrame(_ context.Context, vertices, edges int) {
	m.framesTotal.Inc()
	m.graphVertices.Set(float64(vertices))
	m.graphEdges.Set(float64(edges))
}

// =============================================================================
// Cache Hooks
// =============================================================================

func (m *metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOpsTotal.WithLabelValues(keyType, "hit").Inc()
}

func (m *metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOpsTotal.WithLabelValues(keyType, "miss").Inc()
}

func (m *metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheOpsTotal.WithLabelValues(keyType, "set").Inc()
	m.cacheBytesTotal.WithLabelValues(keyType).Add(float64(size))
}

// =============================================================================
// Resolver Hooks
// =============================================================================

func (m *metrics) OnResolve(_ context.Context, source string, found bool, d time.Duration) {
	m.resolvesTotal.WithLabelValues(source, strconv.FormatBool(found)).Inc()
	m.resolveSeconds.WithLabelValues(source).Observe(d.Seconds())
}

func (m *metrics) OnError(_ context.Context, source string, _ error) {
	m.resolveErrors.WithLabelValues(source).Inc()
}

var (
	_ observability.TraceHooks    = (*metrics)(nil)
	_ observability.CacheHooks    = (*metrics)(nil)
	_ observability.ResolverHooks = (*metrics)(nil)
)
