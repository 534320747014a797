// Package metric holds the Prometheus instrumentation of the rule engine.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ecacore"

// Metrics holds the engine counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	rulesMatched prometheus.Counter
	rulesFired   *prometheus.CounterVec
	actions      *prometheus.CounterVec
	faults       *prometheus.CounterVec
	tickDuration prometheus.Histogram
}

// New creates and registers the engine metrics. A nil registerer returns
// nil, disabling metrics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		rulesMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_matched_total",
			Help:      "Rule activations whose trigger matched",
		}),
		rulesFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_fired_total",
			Help:      "Rule activations whose conditions passed",
		}, []string{"rule_id"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Actions dispatched, by kind",
		}, []string{"kind"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_total",
			Help:      "Non-fatal evaluation faults, by kind",
		}, []string{"kind"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one engine pass",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
	}

	reg.MustRegister(m.rulesMatched, m.rulesFired, m.actions, m.faults, m.tickDuration)
	return m
}

// Matched counts n trigger activations.
func (m *Metrics) Matched(n int) {
	if m == nil || n == 0 {
		return
	}
	m.rulesMatched.Add(float64(n))
}

// Fired counts one rule whose conditions passed.
func (m *Metrics) Fired(ruleID string) {
	if m == nil {
		return
	}
	m.rulesFired.WithLabelValues(ruleID).Inc()
}

// Action counts one dispatched action.
func (m *Metrics) Action(kind string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(kind).Inc()
}

// Fault counts one fault.
func (m *Metrics) Fault(kind string) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(kind).Inc()
}

// Tick records the duration of one pass.
func (m *Metrics) Tick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}
