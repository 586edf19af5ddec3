// Package metrics содержит Prometheus-метрики приложения.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics хранит все метрики приложения в собственном реестре.
// Отдельный реестр позволяет создавать Metrics несколько раз (например, в тестах).
type Metrics struct {
	Registry *prometheus.Registry

	httpDuration           *prometheus.HistogramVec
	httpRequests           *prometheus.CounterVec
	roleTransitions        *prometheus.CounterVec
	entitlementFailures    *prometheus.CounterVec
	assignmentsDeactivated *prometheus.CounterVec
	reservations           *prometheus.CounterVec
}

// New создаёт реестр и регистрирует в нём метрики.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gym_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gym_http_requests_total",
				Help: "Total HTTP requests by route and status code.",
			},
			[]string{"method", "route", "status"},
		),
		roleTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gym_role_transitions_total",
				Help: "Applied user role transitions.",
			},
			[]string{"from", "to"},
		),
		entitlementFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gym_entitlement_failures_total",
				Help: "Rejected entitlement operations by operation and error kind.",
			},
			[]string{"operation", "kind"},
		),
		assignmentsDeactivated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gym_trainer_assignments_deactivated_total",
				Help: "Trainer assignments switched to inactiva, by reason.",
			},
			[]string{"reason"},
		),
		reservations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gym_reservations_total",
				Help: "Reservation status changes.",
			},
			[]string{"status"},
		),
	}
}

// ObserveHTTP записывает длительность и итог HTTP-запроса.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
	m.httpRequests.WithLabelValues(method, route, status).Inc()
}

// RoleChanged учитывает применённую смену роли.
func (m *Metrics) RoleChanged(from, to string) {
	m.roleTransitions.WithLabelValues(from, to).Inc()
}

// EntitlementFailed учитывает отклонённую операцию.
func (m *Metrics) EntitlementFailed(operation, kind string) {
	m.entitlementFailures.WithLabelValues(operation, kind).Inc()
}

// AssignmentsDeactivated учитывает деактивированные назначения тренеров.
func (m *Metrics) AssignmentsDeactivated(reason string, n int64) {
	if n > 0 {
		m.assignmentsDeactivated.WithLabelValues(reason).Add(float64(n))
	}
}

// ReservationChanged учитывает изменение статуса резервации.
func (m *Metrics) ReservationChanged(status string, n int64) {
	if n > 0 {
		m.reservations.WithLabelValues(status).Add(float64(n))
	}
}

// Handler возвращает http.Handler для эндпоинта /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
