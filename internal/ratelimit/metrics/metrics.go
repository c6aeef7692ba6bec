package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the rate limiter.
type Metrics struct {
	Decisions   *prometheus.CounterVec
	StoreErrors prometheus.Counter
	Resets      *prometheus.CounterVec
}

// New registers rate-limit metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_ratelimit_decisions_total",
			Help: "Quota checks by outcome",
		}, []string{"outcome"}), // outcome: "allowed", "rejected"
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "screener_ratelimit_store_errors_total",
			Help: "Quota checks that failed in the window store",
		}),
		Resets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_ratelimit_resets_total",
			Help: "Administrative window resets by scope",
		}, []string{"scope"}),
	}
}

func (m *Metrics) RecordDecision(allowed bool) {
	if m == nil {
		return
	}
	if allowed {
		m.Decisions.WithLabelValues("allowed").Inc()
		return
	}
	m.Decisions.WithLabelValues("rejected").Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	if m != nil {
		m.StoreErrors.Inc()
	}
}

func (m *Metrics) IncrementResets(scope string) {
	if m != nil {
		m.Resets.WithLabelValues(scope).Inc()
	}
}
