// Package metrics exposes Prometheus collectors for the sync core and the
// admin API. All recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	RemoteOperations  *prometheus.CounterVec
	Fallbacks         *prometheus.CounterVec
	ReconcilePasses   *prometheus.CounterVec
	MergeDuration     *prometheus.HistogramVec
	Publishes         prometheus.Counter
	CollectionSize    *prometheus.GaugeVec
	Notifications     *prometheus.CounterVec
	RequestCount      *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	PendingRemoteSync prometheus.Gauge
}

// New creates the collectors on a private registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RemoteOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "remote",
				Name:      "operations_total",
				Help:      "Remote store operations by backend, operation and result",
			},
			[]string{"backend", "operation", "result"},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "remote",
				Name:      "fallbacks_total",
				Help:      "Remote operations served by the local store instead",
			},
			[]string{"kind", "operation"},
		),
		ReconcilePasses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "reconcile_passes_total",
				Help:      "Merge passes by kind and trigger",
			},
			[]string{"kind", "trigger"},
		),
		MergeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "merge_duration_seconds",
				Help:      "Time spent merging a collection",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		Publishes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "publishes_total",
				Help:      "Snapshots broadcast to listeners",
			},
		),
		CollectionSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "collection_size",
				Help:      "Records held in memory per kind",
			},
			[]string{"kind"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notify",
				Name:      "events_total",
				Help:      "Lifecycle events delivered by sink and result",
			},
			[]string{"sink", "result"},
		),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		PendingRemoteSync: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "pending_remote_writes",
				Help:      "Remote writes issued but not yet resolved",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RemoteOperations,
		m.Fallbacks,
		m.ReconcilePasses,
		m.MergeDuration,
		m.Publishes,
		m.CollectionSize,
		m.Notifications,
		m.RequestCount,
		m.RequestDuration,
		m.PendingRemoteSync,
	)

	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func result(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, domain.ErrNotFound) {
		return "miss"
	}
	return "error"
}

func (m *Metrics) ObserveRemote(backend, operation string, err error) {
	if m == nil {
		return
	}
	m.RemoteOperations.WithLabelValues(backend, operation, result(err)).Inc()
}

func (m *Metrics) ObserveFallback(kind, operation string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(kind, operation).Inc()
}

func (m *Metrics) ObserveReconcile(kind, trigger string, started time.Time) {
	if m == nil {
		return
	}
	m.ReconcilePasses.WithLabelValues(kind, trigger).Inc()
	m.MergeDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObservePublish(sizes map[string]int) {
	if m == nil {
		return
	}
	m.Publishes.Inc()
	for kind, n := range sizes {
		m.CollectionSize.WithLabelValues(kind).Set(float64(n))
	}
}

func (m *Metrics) ObserveNotification(sink string, err error) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(sink, result(err)).Inc()
}

func (m *Metrics) RemoteWriteStarted() {
	if m == nil {
		return
	}
	m.PendingRemoteSync.Inc()
}

func (m *Metrics) RemoteWriteFinished() {
	if m == nil {
		return
	}
	m.PendingRemoteSync.Dec()
}

// Middleware records request counts and durations.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(wrapped, r)

		m.RequestCount.WithLabelValues(r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers behind the middleware flush partial output.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
