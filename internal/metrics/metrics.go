// Package metrics exports timing samples as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/flowshell/internal/timing"
)

// Collector turns closed timing intervals into Prometheus observations.
// Plug it into an accumulator with timing.WithObserver(c.Observe).
type Collector struct {
	intervals *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them with reg.
// Pass prometheus.NewRegistry() in tests to avoid global state.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		intervals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowshell_timing_intervals_total",
				Help: "Total number of outermost timed intervals.",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowshell_timing_duration_seconds",
				Help:    "Time spent per outermost interval, by kind.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"kind"},
		),
	}

	for _, m := range []prometheus.Collector{c.intervals, c.duration} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}

	// Pre-create label values so kinds show up at zero.
	for _, kind := range timing.Kinds {
		c.intervals.WithLabelValues(string(kind))
		c.duration.WithLabelValues(string(kind))
	}

	return c, nil
}

// Observe records one interval. Matches timing.Observer.
func (c *Collector) Observe(kind timing.Kind, elapsed time.Duration) {
	c.intervals.WithLabelValues(string(kind)).Inc()
	c.duration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}
