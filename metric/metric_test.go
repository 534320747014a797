package metric

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NilRegistererDisables(t *testing.T) {
	m := New(nil)
	assert.Nil(t, m)

	// Methods on a nil *Metrics are no-ops.
	m.Matched(3)
	m.Fired("jump")
	m.Action("Set")
	m.Fault("type_mismatch")
	m.Tick(time.Millisecond)
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	m.Matched(2)
	m.Matched(0)
	m.Fired("jump")
	m.Fired("jump")
	m.Fired("move_left")
	m.Action("ApplyForce")
	m.Fault("missing_reference")
	m.Tick(2 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rulesMatched))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rulesFired.WithLabelValues("jump")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rulesFired.WithLabelValues("move_left")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("ApplyForce")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.faults.WithLabelValues("missing_reference")))

	expected := `
# HELP ecacore_faults_total Non-fatal evaluation faults, by kind
# TYPE ecacore_faults_total counter
ecacore_faults_total{kind="missing_reference"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ecacore_faults_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.tickDuration))
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
