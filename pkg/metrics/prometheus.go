package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus is a Recorder backed by Prometheus collectors
type Prometheus struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	parts    *prometheus.CounterVec
	fairness *prometheus.GaugeVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers the engine collectors on reg. A nil reg uses the
// default registerer and an empty namespace defaults to "assignment_engine".
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "assignment_engine"
	}
	factory := promauto.With(reg)

	return &Prometheus{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "runs_total",
			Help:      "Generation runs by result.",
		}, []string{"result"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "run_duration_seconds",
			Help:      "Wall time of generation runs including persistence.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		parts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "parts_total",
			Help:      "Parts processed by outcome.",
		}, []string{"outcome"}),
		fairness: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "fairness_score",
			Help:      "Fairness score of the unit roster after the last run.",
		}, []string{"unit"}),
	}
}

// RecordRun counts the run and observes its duration
func (p *Prometheus) RecordRun(result string, duration time.Duration) {
	p.runs.WithLabelValues(result).Inc()
	p.duration.Observe(duration.Seconds())
}

// RecordParts counts part outcomes
func (p *Prometheus) RecordParts(assigned, pending, relaxed int) {
	p.parts.WithLabelValues("assigned").Add(float64(assigned))
	p.parts.WithLabelValues("pending").Add(float64(pending))
	p.parts.WithLabelValues("relaxed").Add(float64(relaxed))
}

// RecordFairness sets the fairness gauge of a unit
func (p *Prometheus) RecordFairness(unitID string, score float64) {
	p.fairness.WithLabelValues(unitID).Set(score)
}
