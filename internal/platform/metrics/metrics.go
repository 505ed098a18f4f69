package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeAccepted = "accepted"
	OutcomeDropped  = "dropped"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics groups the picker's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	locationUpdates *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	listenersActive prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		locationUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "location_updates_total",
			Help: "Coordinate updates offered to picker controllers, by source and outcome.",
		}, []string{"source", "outcome"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "picker_sessions_active",
			Help: "Mounted location picker sessions.",
		}),
		listenersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "map_listeners_active",
			Help: "Click listeners, search controls and search subscriptions registered on map surfaces.",
		}),
	}

	reg.MustRegister(
		m.locationUpdates,
		m.sessionsActive,
		m.listenersActive,
		collectors.NewGoCollector(),
	)

	return m
}

func (m *Metrics) LocationUpdate(source, outcome string) {
	if m == nil {
		return
	}
	m.locationUpdates.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) SessionMounted() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionUnmounted() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

// ListenersDelta adjusts the active listener gauge by n (negative on release).
func (m *Metrics) ListenersDelta(n int) {
	if m == nil || n == 0 {
		return
	}
	m.listenersActive.Add(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
