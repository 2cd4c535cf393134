// internal/infra/metrics/metrics.go
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

// CartMetrics holds the cart session counters. It satisfies usecase.Recorder.
type CartMetrics struct {
	reg *prometheus.Registry

	transitions    *prometheus.CounterVec
	notifications  prometheus.Counter
	storageErrors  *prometheus.CounterVec
	debouncedWrite *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the cart metrics (and Go/process collectors) on a fresh registry.
func New() *CartMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &CartMetrics{
		reg: reg,
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_session_transitions_total",
			Help: "Identity transitions observed by kind",
		}, []string{"kind"}),
		notifications: f.NewCounter(prometheus.CounterOpts{
			Name: "cart_restore_notifications_total",
			Help: "Cart restored notices fired",
		}),
		storageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_storage_errors_total",
			Help: "Snapshot and device-state storage failures by operation",
		}, []string{"op"}),
		debouncedWrite: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_debounced_writes_total",
			Help: "Debounced account snapshot writes by status",
		}, []string{"status"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cart_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),
	}
}

func (m *CartMetrics) Transition(kind string) { m.transitions.WithLabelValues(kind).Inc() }

func (m *CartMetrics) Notified() { m.notifications.Inc() }

func (m *CartMetrics) StorageError(op string) { m.storageErrors.WithLabelValues(op).Inc() }

func (m *CartMetrics) DebouncedWrite(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.debouncedWrite.WithLabelValues(status).Inc()
}

// ObserveHTTP records one served request.
func (m *CartMetrics) ObserveHTTP(route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Registry exposes the underlying registry (tests, extra collectors).
func (m *CartMetrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *CartMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
