package delivery

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeDelivered = "delivered"
	outcomeRejected  = "rejected"
	outcomeNoNetwork = "no_network"
	outcomeTimeout   = "timeout"
	outcomeError     = "error"
)

// Metrics tracks delivery outcomes.
type Metrics struct {
	uploads  *prometheus.CounterVec
	pending  prometheus.Gauge
	duration prometheus.Histogram
}

// NewMetrics creates the delivery collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartscale",
			Subsystem: "delivery",
			Name:      "uploads_total",
			Help:      "Meal uploads by outcome.",
		}, []string{"outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "smartscale",
			Subsystem: "delivery",
			Name:      "pending_meals",
			Help:      "Meals waiting in the backlog after the last drain.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smartscale",
			Subsystem: "delivery",
			Name:      "upload_duration_seconds",
			Help:      "Time taken by one meal upload.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.uploads, m.pending, m.duration)
	return m
}

func (m *Metrics) observe(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.count(err)
	m.duration.Observe(elapsed.Seconds())
}

// count records an outcome for an upload that never reached the server.
func (m *Metrics) count(err error) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeDelivered
	case IsUploadRejected(err):
		return outcomeRejected
	case IsNoNetwork(err):
		return outcomeNoNetwork
	case errors.Is(err, ErrRemoteTimeout):
		return outcomeTimeout
	}
	return outcomeError
}
