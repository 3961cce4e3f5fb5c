// Package execution provides the owning context of a shell: identity,
// source registry, timing, bindings and script output.
//
// An Execution can be saved to and loaded from a store. After loading,
// Resume rebuilds every recorded unit through a Reparser in the original
// compile order, which reproduces the original unit names.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/flowshell/internal/registry"
	"github.com/roach88/flowshell/internal/script"
	"github.com/roach88/flowshell/internal/store"
	"github.com/roach88/flowshell/internal/timing"
)

// Execution is safe for concurrent use.
type Execution struct {
	id      string
	scripts *registry.Registry
	timer   *timing.Accumulator

	mu       sync.Mutex
	bindings map[string]string
	output   []string

	timingOpts []timing.Option
}

// Option configures an Execution.
type Option func(*Execution)

// WithID sets the execution ID instead of a fresh UUIDv7.
func WithID(id string) Option {
	return func(e *Execution) {
		e.id = id
	}
}

// WithBindings seeds the variable bindings.
func WithBindings(bindings map[string]string) Option {
	return func(e *Execution) {
		for k, v := range bindings {
			e.bindings[k] = v
		}
	}
}

// WithTimingOptions configures the timing accumulator (clock, observers).
func WithTimingOptions(opts ...timing.Option) Option {
	return func(e *Execution) {
		e.timingOpts = append(e.timingOpts, opts...)
	}
}

// New creates an execution with an empty registry.
func New(opts ...Option) *Execution {
	e := &Execution{
		scripts:  registry.New(),
		bindings: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.id == "" {
		e.id = uuid.Must(uuid.NewV7()).String()
	}
	e.timer = timing.NewAccumulator(e.timingOpts...)
	return e
}

// ID returns the execution ID.
func (e *Execution) ID() string { return e.id }

// Scripts returns the source registry.
func (e *Execution) Scripts() *registry.Registry { return e.scripts }

// Timings returns the timing accumulator.
func (e *Execution) Timings() *timing.Accumulator { return e.timer }

// TimeStart implements timing.Sink.
func (e *Execution) TimeStart(kind timing.Kind) { e.timer.TimeStart(kind) }

// TimeStop implements timing.Sink.
func (e *Execution) TimeStop(kind timing.Kind) { e.timer.TimeStop(kind) }

// Bindings returns a copy of the variable bindings.
func (e *Execution) Bindings() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.bindings))
	for k, v := range e.bindings {
		out[k] = v
	}
	return out
}

// SetBinding sets one variable binding.
// Units prepared earlier keep the bindings they saw at setup.
func (e *Execution) SetBinding(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bindings[name] = value
}

// Echo records a line of script output.
func (e *Execution) Echo(message string) {
	e.mu.Lock()
	e.output = append(e.output, message)
	e.mu.Unlock()
	slog.Info("echo", "execution", e.id, "message", message)
}

// Output returns a copy of all echoed lines.
func (e *Execution) Output() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.output))
	copy(out, e.output)
	return out
}

// Save persists the execution: bindings, every source record and the
// timing totals. Records already stored are left as they are.
func (e *Execution) Save(ctx context.Context, st *store.Store) error {
	if err := st.WriteExecution(ctx, store.ExecutionRecord{ID: e.id, Bindings: e.Bindings()}); err != nil {
		return fmt.Errorf("save execution %s: %w", e.id, err)
	}
	if err := st.WriteScripts(ctx, e.id, e.scripts.Records()); err != nil {
		return fmt.Errorf("save execution %s: %w", e.id, err)
	}
	if err := st.WriteTimings(ctx, e.id, e.timer.Snapshot()); err != nil {
		return fmt.Errorf("save execution %s: %w", e.id, err)
	}
	return nil
}

// Load restores a saved execution. Timing totals continue from the stored values.
func Load(ctx context.Context, st *store.Store, id string, opts ...Option) (*Execution, error) {
	rec, err := st.ReadExecution(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", id, err)
	}
	records, err := st.ReadScripts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", id, err)
	}
	totals, err := st.ReadTimings(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", id, err)
	}

	all := append([]Option{WithID(id), WithBindings(rec.Bindings)}, opts...)
	e := New(all...)
	if err := e.scripts.Restore(records); err != nil {
		return nil, fmt.Errorf("load execution %s: %w", id, err)
	}
	e.timer.Restore(totals)
	return e, nil
}

// Reparser rebuilds a unit from a source record without recording it.
// Implemented by *shell.Shell.
type Reparser interface {
	Reparse(name, source string) (*script.Unit, error)
}

// Resume reparses every record in compile order and returns the units
// keyed by name. The registry is not modified.
func (e *Execution) Resume(r Reparser) (map[string]*script.Unit, error) {
	records := e.scripts.Records()
	units := make(map[string]*script.Unit, len(records))
	for _, rec := range records {
		u, err := r.Reparse(rec.Name, rec.Source)
		if err != nil {
			return nil, fmt.Errorf("resume %s: %w", rec.Name, err)
		}
		if u.Name() != rec.Name {
			return nil, fmt.Errorf("resume %s: reparse produced %q", rec.Name, u.Name())
		}
		units[rec.Name] = u
	}
	slog.Debug("execution resumed", "execution", e.id, "units", len(units))
	return units, nil
}
