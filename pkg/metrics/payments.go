package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records webhook traffic and payment state transitions.
type PaymentMetrics struct {
	webhookEvents *prometheus.CounterVec
	transitions   *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Inbound payment webhook events by provider and result.",
	}, []string{"provider", "result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_status_transitions_total",
		Help: "Payment status transitions by method and new status.",
	}, []string{"method", "status"})
	reg.MustRegister(webhookEvents, transitions)
	return &PaymentMetrics{
		webhookEvents: webhookEvents,
		transitions:   transitions,
	}
}

// IncWebhookEvent counts one webhook delivery outcome for the provider.
func (p *PaymentMetrics) IncWebhookEvent(provider, result string) {
	if p == nil || p.webhookEvents == nil {
		return
	}
	p.webhookEvents.WithLabelValues(normalizeLabel(provider), normalizeLabel(result)).Inc()
}

// IncTransition counts one payment status transition.
func (p *PaymentMetrics) IncTransition(method, status string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(normalizeLabel(method), normalizeLabel(status)).Inc()
}
