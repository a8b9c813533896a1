package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics counts state-machine transitions and rejected notifications
// per gateway. Duplicate deliveries are tracked separately so a retry storm is
// visible without inflating the transition counters.
type PaymentMetrics struct {
	transitions *prometheus.CounterVec
	duplicates  *prometheus.CounterVec
	rejected    *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment counters on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transitions_total",
		Help: "Payment status transitions by gateway and target status.",
	}, []string{"gateway", "status"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_duplicate_notifications_total",
		Help: "Verified notifications ignored because the payment already left pending.",
	}, []string{"gateway"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_rejected_notifications_total",
		Help: "Notifications rejected before processing (signature or payload failures).",
	}, []string{"gateway"})
	reg.MustRegister(transitions, duplicates, rejected)
	return &PaymentMetrics{
		transitions: transitions,
		duplicates:  duplicates,
		rejected:    rejected,
	}
}

// IncTransition records a completed state transition.
func (p *PaymentMetrics) IncTransition(gateway, status string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(normalizeLabel(gateway), normalizeLabel(status)).Inc()
}

// IncDuplicate records an idempotent no-op delivery.
func (p *PaymentMetrics) IncDuplicate(gateway string) {
	if p == nil || p.duplicates == nil {
		return
	}
	p.duplicates.WithLabelValues(normalizeLabel(gateway)).Inc()
}

// IncRejected records a notification that failed authenticity checks.
func (p *PaymentMetrics) IncRejected(gateway string) {
	if p == nil || p.rejected == nil {
		return
	}
	p.rejected.WithLabelValues(normalizeLabel(gateway)).Inc()
}
