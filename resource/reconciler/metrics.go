package reconciler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records reconciliation results. A nil *Metrics records nothing.
type Metrics struct {
	reconciles *prometheus.CounterVec
	calls      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avictl",
			Name:      "reconcile_total",
			Help:      "Reconciliations by type, action and result.",
		}, []string{"type", "action", "result"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avictl",
			Name:      "call_total",
			Help:      "Ad-hoc calls by method and result.",
		}, []string{"method", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "avictl",
			Name:      "reconcile_duration_seconds",
			Help:      "Time spent reconciling one object.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
	}
	reg.MustRegister(m.reconciles, m.calls, m.duration)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) observe(typ string, out *Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(typ, out.Action.String(), result(out.Err)).Inc()
	m.duration.WithLabelValues(typ).Observe(d.Seconds())
}

func (m *Metrics) observeCall(method string, out *CallOutcome) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(method, result(out.Err)).Inc()
}
