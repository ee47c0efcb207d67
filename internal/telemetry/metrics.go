// Package telemetry holds the Prometheus collectors of the dashboard backend.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the counters recorded by the guard, the role resolver and the
// order service. A nil *Metrics records nothing.
type Metrics struct {
	guardDecisions  *prometheus.CounterVec
	roleResolutions *prometheus.CounterVec
	transitions     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "garment",
			Name:      "guard_decisions_total",
			Help:      "Route authorization decisions by outcome.",
		}, []string{"decision"}),
		roleResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "garment",
			Name:      "role_resolutions_total",
			Help:      "Role resolutions by source (cache, directory, fallback).",
		}, []string{"source"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "garment",
			Name:      "order_transitions_total",
			Help:      "Order transition attempts by target status and result.",
		}, []string{"status", "result"}),
	}
	reg.MustRegister(m.guardDecisions, m.roleResolutions, m.transitions)
	return m
}

func (m *Metrics) GuardDecision(decision string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) RoleResolved(source string) {
	if m == nil {
		return
	}
	m.roleResolutions.WithLabelValues(source).Inc()
}

func (m *Metrics) Transition(status, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status, result).Inc()
}
