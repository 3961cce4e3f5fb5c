package script

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Variant distinguishes pipeline units from ordinary library units.
type Variant int

const (
	// VariantLibrary units run without an execution context.
	VariantLibrary Variant = iota
	// VariantPipeline units need an execution context injected first.
	VariantPipeline
)

// String returns "library" or "pipeline".
func (v Variant) String() string {
	if v == VariantPipeline {
		return "pipeline"
	}
	return "library"
}

// Context is what a pipeline unit needs from its owning execution.
type Context interface {
	// ID identifies the execution.
	ID() string

	// Bindings returns a copy of the execution's variable bindings.
	Bindings() map[string]string

	// Echo records a line of script output.
	Echo(message string)
}

// ContextRequirer is the capability the shell queries before a unit runs.
type ContextRequirer interface {
	Name() string
	RequiresContext() bool
	InjectContext(ctx Context) error
}

// Unit is a compiled source text.
type Unit struct {
	name     string
	source   string
	proto    *lua.FunctionProto
	variant  Variant
	requires []string
	refs     []string

	mu       sync.Mutex
	ctx      Context
	bindings map[string]string
}

var _ ContextRequirer = (*Unit)(nil)

// Name returns the unit identifier.
func (u *Unit) Name() string { return u.name }

// Source returns the exact text the unit was compiled from.
func (u *Unit) Source() string { return u.source }

// Variant returns the unit variant.
func (u *Unit) Variant() Variant { return u.variant }

// References returns module names from literal require calls.
func (u *Unit) References() []string {
	out := make([]string, len(u.refs))
	copy(out, u.refs)
	return out
}

// Requires returns the bindings declared with --!requires.
func (u *Unit) Requires() []string {
	out := make([]string, len(u.requires))
	copy(out, u.requires)
	return out
}

// RequiresContext reports whether the unit is a pipeline unit.
func (u *Unit) RequiresContext() bool {
	return u.variant == VariantPipeline
}

// Context returns the injected execution context, or nil.
func (u *Unit) Context() Context {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ctx
}

// InjectContext binds ctx and runs the setup hook.
//
// Injecting the same context twice is a no-op. On failure the unit stays
// unbound.
func (u *Unit) InjectContext(ctx Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if ctx == nil {
		return fmt.Errorf("inject %s: nil context", u.name)
	}
	if u.ctx == ctx {
		return nil
	}

	bindings, err := u.setup(ctx)
	if err != nil {
		return err
	}
	u.ctx = ctx
	u.bindings = bindings
	return nil
}

// setup snapshots the bindings and checks every declared requirement.
func (u *Unit) setup(ctx Context) (map[string]string, error) {
	bindings := ctx.Bindings()

	var missing []string
	for _, name := range u.requires {
		if _, ok := bindings[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required binding(s): %s", strings.Join(missing, ", "))
	}
	return bindings, nil
}

// Call runs the unit in L and returns its first result.
//
// Pipeline units get the globals "binding", "echo" and "execution_id"
// installed from their context before the body runs.
func (u *Unit) Call(L *lua.LState) (lua.LValue, error) {
	if u.RequiresContext() {
		if err := u.install(L); err != nil {
			return lua.LNil, &RuntimeError{Unit: u.name, Err: err}
		}
	}

	L.Push(L.NewFunctionFromProto(u.proto))
	if err := L.PCall(0, 1, nil); err != nil {
		return lua.LNil, &RuntimeError{Unit: u.name, Err: err}
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

func (u *Unit) install(L *lua.LState) error {
	u.mu.Lock()
	ctx, bindings := u.ctx, u.bindings
	u.mu.Unlock()

	if ctx == nil {
		return ErrNoContext
	}

	tbl := L.NewTable()
	for k, v := range bindings {
		tbl.RawSetString(k, lua.LString(v))
	}
	L.SetGlobal("binding", tbl)
	L.SetGlobal("execution_id", lua.LString(ctx.ID()))
	L.SetGlobal("echo", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		ctx.Echo(strings.Join(parts, " "))
		return 0
	}))
	return nil
}
