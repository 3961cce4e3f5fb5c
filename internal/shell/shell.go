// Package shell turns source text into ready-to-run units for one execution.
//
// The shell keeps three contracts on behalf of its owning execution:
//
// Durability: every unit compiled while an execution is attached gets a
// registry record (name -> exact source text) so it can be rebuilt after a
// restart. Replay goes through Reparse, which never writes a record.
//
// Naming: names are "Unit<N>" and derive from the registry size, so the
// same sequence of compiles yields the same names after a restart. Naming is
// serialized per shell.
//
// Timing: compilation is bracketed by the parse kind and every loader call
// by the load kind. Both brackets close in a defer, so a failed compile
// never leaves the sink unpaired.
//
// Without an execution the shell is in test-compile mode: it compiles and
// resolves references but records nothing and times nothing.
package shell

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/flowshell/internal/config"
	"github.com/roach88/flowshell/internal/loader"
	"github.com/roach88/flowshell/internal/registry"
	"github.com/roach88/flowshell/internal/script"
	"github.com/roach88/flowshell/internal/timing"
)

// Execution is the owning execution as seen by the shell.
type Execution interface {
	timing.Sink
	script.Context

	// Scripts is the execution's source registry.
	Scripts() *registry.Registry
}

// ErrNameInUse is returned when a suggested name already has a record.
var ErrNameInUse = errors.New("unit name already recorded")

// Shell compiles, records, times and prepares units.
type Shell struct {
	exec     Execution
	compiler *script.Compiler
	loader   loader.Loader
	cfg      config.Compiler

	nameMu sync.Mutex
	last   int // number of the newest name handed out

	modMu   sync.Mutex
	modules map[string]*script.Unit
}

// Option configures a Shell.
type Option func(*Shell)

// WithCompiler replaces the default script compiler.
func WithCompiler(c *script.Compiler) Option {
	return func(s *Shell) {
		s.compiler = c
	}
}

// New creates a shell. exec may be nil for test-compile mode.
// base resolves required modules; when exec is set, base is wrapped with
// loader.Timed so resolution time is charged to the load kind.
func New(exec Execution, base loader.Loader, cfg config.Compiler, opts ...Option) *Shell {
	if base == nil {
		base = loader.Chain{}
	}
	s := &Shell{
		exec:     exec,
		compiler: script.NewCompiler(),
		loader:   base,
		cfg:      cfg,
		modules:  make(map[string]*script.Unit),
	}
	if exec != nil {
		s.loader = loader.Timed(base, exec)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execution returns the owning execution, or nil in test-compile mode.
func (s *Shell) Execution() Execution {
	return s.exec
}

// Compile compiles source under a generated name.
func (s *Shell) Compile(source string) (*script.Unit, error) {
	return s.CompileNamed(source, "")
}

// CompileNamed compiles source under suggested, or a generated name when
// suggested is empty.
//
// With an execution attached, a successful compile records name -> source
// and prepares the unit. A failed compile records nothing.
func (s *Shell) CompileNamed(source, suggested string) (*script.Unit, error) {
	if s.exec == nil {
		name := suggested
		if name == "" {
			name = s.compiler.DefaultName()
		}
		return s.parse(name, source, s.defaultVariant(), nil)
	}

	scripts := s.exec.Scripts()
	if suggested != "" && scripts.Has(suggested) {
		return nil, fmt.Errorf("compile %s: %w", suggested, ErrNameInUse)
	}

	for {
		name, generated := suggested, false
		if name == "" {
			name, generated = s.GenerateName(), true
		}

		u, err := s.parse(name, source, s.defaultVariant(), nil)
		if err != nil {
			if generated {
				s.release(name)
			}
			return nil, err
		}

		if !scripts.Put(name, source) {
			if generated {
				// Claimed by a concurrent CompileNamed; take the next name.
				slog.Debug("generated name taken, retrying", "execution", s.exec.ID(), "unit", name)
				continue
			}
			return nil, fmt.Errorf("compile %s: %w", name, ErrNameInUse)
		}
		slog.Debug("unit recorded", "execution", s.exec.ID(), "unit", name, "bytes", len(source))

		if err := s.PrepareUnit(u); err != nil {
			return nil, err
		}
		return u, nil
	}
}

// Reparse rebuilds a unit from its source record during restart.
// The registry is not touched; name is used verbatim.
func (s *Shell) Reparse(name, source string) (*script.Unit, error) {
	u, err := s.parse(name, source, s.defaultVariant(), nil)
	if err != nil {
		return nil, err
	}
	slog.Debug("unit reparsed", "unit", name, "bytes", len(source))

	if err := s.PrepareUnit(u); err != nil {
		return nil, err
	}
	return u, nil
}

// GenerateName returns the next unit name.
//
// With an execution: "Unit<N>" where N is one past the larger of the
// registry size and the newest name handed out, skipping names already
// recorded. Without: the compiler's default naming.
func (s *Shell) GenerateName() string {
	if s.exec == nil {
		return s.compiler.DefaultName()
	}

	s.nameMu.Lock()
	defer s.nameMu.Unlock()

	scripts := s.exec.Scripts()
	n := max(s.last, scripts.Len())
	for {
		n++
		name := unitName(n)
		if !scripts.Has(name) {
			s.last = n
			return name
		}
	}
}

// release gives back a name whose compile failed, if no later name was
// handed out meanwhile. Keeps sequential naming gap-free.
func (s *Shell) release(name string) {
	s.nameMu.Lock()
	defer s.nameMu.Unlock()

	if name == unitName(s.last) {
		s.last--
	}
}

func unitName(n int) string {
	return fmt.Sprintf("Unit%d", n)
}

// PrepareUnit injects the execution into units that require it and runs
// their setup hook. Units that do not require context are left alone, as
// is everything in test-compile mode. Repeated calls are no-ops.
func (s *Shell) PrepareUnit(u script.ContextRequirer) error {
	if s.exec == nil || !u.RequiresContext() {
		return nil
	}
	if err := u.InjectContext(s.exec); err != nil {
		return &InitError{Unit: u.Name(), Err: err}
	}
	return nil
}

// parse compiles one source text inside a parse bracket and resolves its
// literal requires. chain holds the modules currently being resolved.
func (s *Shell) parse(name, source string, fallback script.Variant, chain []string) (*script.Unit, error) {
	if s.exec != nil {
		s.exec.TimeStart(timing.Parse)
		defer s.exec.TimeStop(timing.Parse)
	}

	u, err := s.compiler.Compile(name, source, fallback)
	if err != nil {
		return nil, err
	}
	for _, ref := range u.References() {
		if _, err := s.module(ref, chain); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// module returns the compiled module name, loading and compiling it on
// first use. Modules are library units cached per shell and never recorded;
// the loader can produce them again after a restart.
func (s *Shell) module(name string, chain []string) (*script.Unit, error) {
	if slices.Contains(chain, name) {
		return nil, &script.CompilationError{
			Code:    script.ErrCodeUnresolved,
			Unit:    name,
			Message: "require cycle: " + strings.Join(append(chain, name), " -> "),
		}
	}
	if s.cfg.MaxNesting > 0 && len(chain) >= s.cfg.MaxNesting {
		return nil, &script.CompilationError{
			Code:    script.ErrCodeUnresolved,
			Unit:    name,
			Message: fmt.Sprintf("require nesting exceeds %d", s.cfg.MaxNesting),
		}
	}

	s.modMu.Lock()
	cached, ok := s.modules[name]
	s.modMu.Unlock()
	if ok {
		return cached, nil
	}

	src, err := s.loader.LoadUnit(name)
	if err != nil {
		return nil, &script.CompilationError{
			Code:    script.ErrCodeUnresolved,
			Unit:    name,
			Message: err.Error(),
			Err:     err,
		}
	}

	next := make([]string, len(chain), len(chain)+1)
	copy(next, chain)
	u, err := s.parse(name, src.Text, script.VariantLibrary, append(next, name))
	if err != nil {
		return nil, err
	}
	if err := s.PrepareUnit(u); err != nil {
		return nil, err
	}

	s.modMu.Lock()
	defer s.modMu.Unlock()
	if existing, ok := s.modules[name]; ok {
		return existing, nil
	}
	s.modules[name] = u
	slog.Debug("module loaded", "module", name, "location", src.Location)
	return u, nil
}

func (s *Shell) defaultVariant() script.Variant {
	if s.cfg.PipelineByDefault {
		return script.VariantPipeline
	}
	return script.VariantLibrary
}
