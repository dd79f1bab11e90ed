// Package metrics exposes Prometheus collectors for HTTP traffic and lead lifecycle activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadbridge"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	leadTransitions    *prometheus.CounterVec
	dealsCreated       prometheus.Counter
	notifications      *prometheus.CounterVec
	callbacksProcessed prometheus.Counter
	outboxDispatched   prometheus.Counter
	eventsExported     *prometheus.CounterVec
}

// New builds a registry with the Go runtime and process collectors plus LeadBridge metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		leadTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_transitions_total",
			Help:      "Committed lead lifecycle transitions by action.",
		}, []string{"action"}),
		dealsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deals_created_total",
			Help:      "Deals created.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by kind and result.",
		}, []string{"kind", "result"}),
		callbacksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_processed_total",
			Help:      "Leads returned to NEW by the callback sweep.",
		}),
		outboxDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_outbox_dispatched_total",
			Help:      "Outbox rows handed to the job queue.",
		}),
		eventsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_exported_total",
			Help:      "Domain events written to the export topic by event and result.",
		}, []string{"event", "result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.leadTransitions,
		m.dealsCreated,
		m.notifications,
		m.callbacksProcessed,
		m.outboxDispatched,
		m.eventsExported,
	)
	return m
}

// Middleware records request counts and latency keyed by the matched route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// The recorder methods below are nil-safe so services can run without metrics.

func (m *Metrics) LeadTransition(action string) {
	if m != nil {
		m.leadTransitions.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) DealCreated() {
	if m != nil {
		m.dealsCreated.Inc()
	}
}

func (m *Metrics) Notification(kind string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) CallbacksProcessed(n int) {
	if m != nil {
		m.callbacksProcessed.Add(float64(n))
	}
}

func (m *Metrics) OutboxDispatched() {
	if m != nil {
		m.outboxDispatched.Inc()
	}
}

func (m *Metrics) EventExported(name string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.eventsExported.WithLabelValues(name, result).Inc()
}
