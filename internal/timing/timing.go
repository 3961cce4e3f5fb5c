// Package timing accumulates wall-clock time per operation kind.
//
// The shell brackets compilation with Parse and the code loader brackets
// module resolution with Load. Loading usually happens from inside a parse,
// and parsing a required module happens from inside a load, so both kinds
// must tolerate re-entrant Start calls.
//
// NESTING: each kind keeps a depth counter. Only the outermost Start/Stop
// pair records elapsed time; inner pairs move the depth and nothing else.
// Elapsed time is therefore never counted twice for the same kind.
package timing

import (
	"log/slog"
	"sync"
	"time"
)

// Kind identifies what a timed interval was spent on.
type Kind string

const (
	// Parse covers compiling source text into a unit.
	Parse Kind = "parse"

	// Load covers resolving modules and resources through the code loader.
	Load Kind = "load"
)

// Kinds lists every kind in reporting order.
var Kinds = []Kind{Parse, Load}

// Sink receives paired start/stop notifications.
// Callers must pair every TimeStart with exactly one TimeStop, normally via defer.
type Sink interface {
	TimeStart(kind Kind)
	TimeStop(kind Kind)
}

// Totals is the accumulated time for one kind.
type Totals struct {
	// Elapsed is the sum of all outermost intervals.
	Elapsed time.Duration

	// Count is the number of outermost intervals recorded.
	Count int64
}

// Observer is notified after each outermost interval closes.
type Observer func(kind Kind, elapsed time.Duration)

type counter struct {
	depth   int
	started time.Time
	totals  Totals
}

// Accumulator is the standard Sink. Safe for concurrent use.
//
// Concurrent callers share the depth counter of a kind, so overlapping
// intervals from different goroutines are recorded as their union.
type Accumulator struct {
	mu        sync.Mutex
	now       func() time.Time
	counters  map[Kind]*counter
	observers []Observer
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithClock replaces time.Now. Used by tests to get exact durations.
func WithClock(now func() time.Time) Option {
	return func(a *Accumulator) {
		a.now = now
	}
}

// WithObserver registers an observer for closed intervals.
func WithObserver(o Observer) Option {
	return func(a *Accumulator) {
		a.observers = append(a.observers, o)
	}
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator(opts ...Option) *Accumulator {
	a := &Accumulator{
		now:      time.Now,
		counters: make(map[Kind]*counter),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TimeStart opens an interval for kind, or deepens the current one.
func (a *Accumulator) TimeStart(kind Kind) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := a.counter(kind)
	if c.depth == 0 {
		c.started = a.now()
	}
	c.depth++
}

// TimeStop closes the innermost interval for kind.
// When the depth returns to zero the elapsed wall time is added to the totals.
// An unpaired stop is logged and ignored.
func (a *Accumulator) TimeStop(kind Kind) {
	a.mu.Lock()
	c := a.counter(kind)
	if c.depth == 0 {
		a.mu.Unlock()
		slog.Warn("unpaired timing stop", "kind", kind)
		return
	}
	c.depth--
	if c.depth > 0 {
		a.mu.Unlock()
		return
	}
	elapsed := a.now().Sub(c.started)
	c.totals.Elapsed += elapsed
	c.totals.Count++
	observers := a.observers
	a.mu.Unlock()

	for _, o := range observers {
		o(kind, elapsed)
	}
}

// Depth returns the number of open intervals for kind.
func (a *Accumulator) Depth(kind Kind) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counter(kind).depth
}

// Total returns the accumulated totals for kind.
func (a *Accumulator) Total(kind Kind) Totals {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counter(kind).totals
}

// Snapshot copies the totals of every kind seen so far.
func (a *Accumulator) Snapshot() map[Kind]Totals {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[Kind]Totals, len(a.counters))
	for kind, c := range a.counters {
		out[kind] = c.totals
	}
	return out
}

// Restore adds previously persisted totals, e.g. after loading an execution.
// Open intervals are not affected.
func (a *Accumulator) Restore(totals map[Kind]Totals) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for kind, t := range totals {
		c := a.counter(kind)
		c.totals.Elapsed += t.Elapsed
		c.totals.Count += t.Count
	}
}

// counter must be called with mu held.
func (a *Accumulator) counter(kind Kind) *counter {
	c, ok := a.counters[kind]
	if !ok {
		c = &counter{}
		a.counters[kind] = c
	}
	return c
}
