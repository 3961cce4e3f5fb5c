package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowshell/internal/timing"
)

func TestNewCollector_RegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg,
		"flowshell_timing_intervals_total",
		"flowshell_timing_duration_seconds",
	)
	require.NoError(t, err)
	// One series per kind for each of the two metrics.
	assert.Equal(t, 2*len(timing.Kinds), count)
}

func TestNewCollector_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err)
}

func TestCollector_ObserveFromAccumulator(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	acc := timing.NewAccumulator(timing.WithObserver(c.Observe))
	acc.TimeStart(timing.Parse)
	acc.TimeStart(timing.Parse)
	acc.TimeStop(timing.Parse)
	acc.TimeStop(timing.Parse)
	acc.TimeStart(timing.Load)
	acc.TimeStop(timing.Load)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.intervals.WithLabelValues("parse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.intervals.WithLabelValues("load")))
}

func TestCollector_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.Observe(timing.Load, 3*time.Millisecond)
	c.Observe(timing.Load, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.intervals.WithLabelValues("load")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.intervals.WithLabelValues("parse")))
}
