// Package metrics exposes the relay's internal counters via Prometheus.
//
// Drops are deliberately invisible to clients (the relay never sends a
// negative acknowledgment), so the per-reason drop counters here are the
// only place the three drop causes can be told apart.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons. All three look identical to the originating client.
const (
	DropReasonRateLimited    = "rate_limited"
	DropReasonTargetNotFound = "target_not_found"
	DropReasonBadMessage     = "bad_message"
)

type Metrics struct {
	registry *prometheus.Registry

	connections   prometheus.Gauge
	registrations prometheus.Counter
	relayed       *prometheus.CounterVec
	drops         *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "server5_connections",
			Help: "Currently open signaling connections.",
		}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "server5_registrations_total",
			Help: "Accepted identifier registrations.",
		}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "server5_relayed_events_total",
			Help: "Events forwarded to a resolved peer or room.",
		}, []string{"event"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "server5_drops_total",
			Help: "Inbound events dropped silently, by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(m.connections, m.registrations, m.relayed, m.drops)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) Registered() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

func (m *Metrics) Relayed(event string) {
	if m == nil {
		return
	}
	m.relayed.WithLabelValues(event).Inc()
}

func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.drops.WithLabelValues(reason).Inc()
}
