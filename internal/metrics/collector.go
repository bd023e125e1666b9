// Package metrics exposes prometheus instruments for validation rule runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels
const (
	OutcomePass  = "pass"
	OutcomeFail  = "fail"
	OutcomeError = "error"
)

// Collector records rule verdicts and durations
type Collector struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCollector creates the instruments and registers them with reg.
// A nil reg leaves them unregistered, which is useful in tests.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trubric_rule_runs_total",
			Help: "Validation rule runs by rule and outcome.",
		}, []string{"rule", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trubric_rule_duration_seconds",
			Help:    "Wall-clock time spent evaluating a validation rule.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"rule"}),
	}
	if reg != nil {
		for _, col := range []prometheus.Collector{c.runs, c.duration} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// Observe records one rule run
func (c *Collector) Observe(rule string, passed bool, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	outcome := OutcomeFail
	switch {
	case err != nil:
		outcome = OutcomeError
	case passed:
		outcome = OutcomePass
	}
	c.runs.WithLabelValues(rule, outcome).Inc()
	c.duration.WithLabelValues(rule).Observe(elapsed.Seconds())
}
