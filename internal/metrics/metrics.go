package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks domain events, listener failures, generated reports and
// dashboard latency.
type Metrics struct {
	registry *prometheus.Registry

	EventsPublished   *prometheus.CounterVec
	ListenerFailures  *prometheus.CounterVec
	ReportsGenerated  *prometheus.CounterVec
	DashboardDuration prometheus.Histogram
}

// New registers every metric on a fresh registry so tests and servers can
// build as many instances as they need.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aquagest_events_published_total",
			Help: "Total number of domain events published on the notification hub",
		}, []string{"type"}),
		ListenerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aquagest_listener_failures_total",
			Help: "Total number of listener invocations that returned an error or panicked",
		}, []string{"type"}),
		ReportsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aquagest_reports_generated_total",
			Help: "Total number of reports generated, by report type",
		}, []string{"type"}),
		DashboardDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aquagest_dashboard_stats_duration_seconds",
			Help:    "Duration of dashboard statistics aggregation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncEvent(eventType string) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncListenerFailure(eventType string) {
	m.ListenerFailures.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncReport(reportType string) {
	m.ReportsGenerated.WithLabelValues(reportType).Inc()
}

// ObserveDashboard records the duration of a stats aggregation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveDashboard(start time.Time) {
	m.DashboardDuration.Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
