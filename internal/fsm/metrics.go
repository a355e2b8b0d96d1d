package fsm

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeApplied  = "applied"
	outcomeRejected = "rejected"
	outcomeRefused  = "refused"
)

// Metrics counts events by kind and outcome.
type Metrics struct {
	events  *prometheus.CounterVec
	dropped prometheus.Counter
}

// NewMetrics creates the machine's collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartscale",
			Subsystem: "fsm",
			Name:      "events_total",
			Help:      "Events handled by the control state machine, by kind and outcome.",
		}, []string{"event", "outcome"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smartscale",
			Subsystem: "fsm",
			Name:      "events_dropped_total",
			Help:      "Events dropped because the event queue was full.",
		}),
	}
	reg.MustRegister(m.events, m.dropped)
	return m
}

func (m *Metrics) observe(kind EventKind, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind.String(), outcome).Inc()
}

func (m *Metrics) drop() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}
