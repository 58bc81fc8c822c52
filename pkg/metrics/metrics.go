// Package metrics registers the Prometheus series each service
// exposes on its /metrics endpoint. The nil-receiver-safe style mirrors
// how job metrics were done for the outbox relay's ancestor: a nil
// *Metrics is legal so tests and short-lived tools can skip
// registration entirely.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	holdAttempts       *prometheus.CounterVec
	outboxBacklog      *prometheus.GaugeVec
	consumerRedelivery *prometheus.CounterVec
	deadLettered       *prometheus.CounterVec
}

// New registers every series on reg. Pass nil to get a Metrics whose
// methods are no-ops, useful in unit tests that don't want a global
// registry side effect.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}

	m := &Metrics{
		holdAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_hold_attempts_total",
			Help: "Hold requests by outcome.",
		}, []string{"outcome"}),
		outboxBacklog: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "outbox_backlog",
			Help: "Pending outbox rows awaiting dispatch.",
		}, []string{"service"}),
		consumerRedelivery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consumer_redeliveries_total",
			Help: "Messages redelivered after a failed handler attempt.",
		}, []string{"group", "event_type"}),
		deadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consumer_dead_lettered_total",
			Help: "Messages routed to the dead-letter topic.",
		}, []string{"group", "event_type"}),
	}
	reg.MustRegister(m.holdAttempts, m.outboxBacklog, m.consumerRedelivery, m.deadLettered)
	return m
}

func (m *Metrics) IncHoldAttempt(outcome string) {
	if m == nil || m.holdAttempts == nil {
		return
	}
	m.holdAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetOutboxBacklog(service string, n int) {
	if m == nil || m.outboxBacklog == nil {
		return
	}
	m.outboxBacklog.WithLabelValues(service).Set(float64(n))
}

func (m *Metrics) IncRedelivery(group, eventType string) {
	if m == nil || m.consumerRedelivery == nil {
		return
	}
	m.consumerRedelivery.WithLabelValues(group, eventType).Inc()
}

func (m *Metrics) IncDeadLettered(group, eventType string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(group, eventType).Inc()
}

// Handler exposes the default registry's /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
