package transition

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records transition outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates and registers the transition collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tower",
			Name:      "floor_transitions_total",
			Help:      "Floor-change requests by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tower",
			Name:      "floor_transition_duration_seconds",
			Help:      "Wall time of admitted floor transitions.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
	}
	reg.MustRegister(m.outcomes, m.duration)
	return m
}

func (m *Metrics) observe(outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome.String()).Inc()
	if outcome == OutcomeCompleted || outcome == OutcomeAborted {
		m.duration.Observe(elapsed.Seconds())
	}
}
