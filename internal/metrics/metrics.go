// Package metrics exposes Prometheus collectors for the HTTP surface and the domain.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fieldops"

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	activityStarted  *prometheus.CounterVec
	activityFinished *prometheus.CounterVec
	stageTransitions *prometheus.CounterVec
	activeOperation  prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "The total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		activityStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "started_total",
			Help:      "The total number of activities started",
		}, []string{"kind"}),
		activityFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "finished_total",
			Help:      "The total number of activities finished",
		}, []string{"kind"}),
		stageTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "operation",
			Name:      "stage_transitions_total",
			Help:      "The total number of operation stage changes",
		}, []string{"from", "to"}),
		activeOperation: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "operation",
			Name:      "active",
			Help:      "1 while an operation is in progress",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ActivityStarted counts a started activity.
func (m *Metrics) ActivityStarted(kind string) {
	if m == nil {
		return
	}
	m.activityStarted.WithLabelValues(kind).Inc()
}

// ActivityFinished counts a finished activity.
func (m *Metrics) ActivityFinished(kind string) {
	if m == nil {
		return
	}
	m.activityFinished.WithLabelValues(kind).Inc()
}

// StageChanged counts a stage transition.
func (m *Metrics) StageChanged(from, to string) {
	if m == nil {
		return
	}
	m.stageTransitions.WithLabelValues(from, to).Inc()
}

// SetOperationActive flips the active-operation gauge.
func (m *Metrics) SetOperationActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.activeOperation.Set(1)
	} else {
		m.activeOperation.Set(0)
	}
}
