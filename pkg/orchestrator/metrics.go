package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-swms/pkg/render"
)

const (
	outcomeSuccess     = "success"
	outcomeTimeout     = "timeout"
	outcomeUnavailable = "unavailable"
	outcomeCanceled    = "canceled"
)

// Metrics counts tier attempts by outcome. A nil *Metrics records nothing.
type Metrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the tier collectors on reg. Pass
// prometheus.DefaultRegisterer to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swms",
			Subsystem: "render",
			Name:      "tier_attempts_total",
			Help:      "Render attempts per tier, labelled by outcome.",
		}, []string{"tier", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "swms",
			Subsystem: "render",
			Name:      "tier_duration_seconds",
			Help:      "Wall time of render attempts per tier.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
		}, []string{"tier"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, collector := range []prometheus.Collector{m.attempts, m.duration} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("orchestrator: register metrics: %w", err)
		}
	}
	return m, nil
}

// Attempts exposes the attempt counter, labelled by tier and outcome.
func (m *Metrics) Attempts() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.attempts
}

func (m *Metrics) observe(tier, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(tier, outcome).Inc()
	m.duration.WithLabelValues(tier).Observe(elapsed.Seconds())
}

func outcomeFor(err error) string {
	if errors.Is(err, render.ErrRendererTimeout) {
		return outcomeTimeout
	}
	return outcomeUnavailable
}
