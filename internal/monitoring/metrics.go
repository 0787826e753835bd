// Package monitoring exposes Prometheus metrics for the relay and the
// extraction pipeline.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service metric set.
type Metrics struct {
	registry *prometheus.Registry

	RelayActions  *prometheus.CounterVec
	Extractions   *prometheus.CounterVec
	Notifications prometheus.Counter
}

// New creates a metric set on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		RelayActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_relay_actions_total",
			Help: "Relay action dispatches by action and outcome.",
		}, []string{"action", "outcome"}),
		Extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_extractions_total",
			Help: "Recipe extraction attempts by outcome.",
		}, []string{"outcome"}),
		Notifications: factory.NewCounter(prometheus.CounterOpts{
			Name: "companion_notifications_total",
			Help: "User-visible notifications emitted.",
		}),
	}
}

// ObserveAction records one relay dispatch.
func (m *Metrics) ObserveAction(action string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.RelayActions.WithLabelValues(action, outcome).Inc()
}

// ObserveExtraction records one extraction attempt.
func (m *Metrics) ObserveExtraction(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.Extractions.WithLabelValues(outcome).Inc()
}

// Handler serves the metric set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
