package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Domain events counted in todo_domain_events_total
const (
	EventUserRegistered  = "user_registered"
	EventLogin           = "login"
	EventLoginFailed     = "login_failed"
	EventLogout          = "logout"
	EventTaskCreated     = "task_created"
	EventTaskUpdated     = "task_updated"
	EventTaskDeleted     = "task_deleted"
	EventRoutineReplaced = "routine_replaced"
	EventTaskShared      = "task_shared"
	EventTeamCreated     = "team_created"
	EventTeamJoined      = "team_joined"
	EventMemberAdded     = "team_member_added"
	EventMemberRemoved   = "team_member_removed"
	EventSessionsPurged  = "sessions_purged"
)

// Metrics owns the process registry and the collectors registered on it. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	domainEvents    *prometheus.CounterVec
}

// New creates a registry with HTTP, domain and Go runtime collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		domainEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_domain_events_total",
				Help: "Total number of completed domain operations by event",
			},
			[]string{"event"},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.domainEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordEvent counts one domain event
func (m *Metrics) RecordEvent(event string) {
	m.RecordEvents(event, 1)
}

// RecordEvents counts n occurrences of a domain event
func (m *Metrics) RecordEvents(event string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.domainEvents.WithLabelValues(event).Add(float64(n))
}

// Middleware records request counts and latencies labelled by route pattern
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}

			m.requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			m.requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
