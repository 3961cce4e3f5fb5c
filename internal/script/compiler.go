package script

import (
	"fmt"
	"strings"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// Compiler turns source text into units.
// Safe for concurrent use; it holds no state besides the default-name counter.
type Compiler struct {
	seq atomic.Int64
}

// NewCompiler creates a compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// DefaultName returns "chunk<N>" from a per-compiler counter.
// Used when no execution supplies deterministic names.
func (c *Compiler) DefaultName() string {
	return fmt.Sprintf("chunk%d", c.seq.Add(1))
}

// Compile parses and compiles source under name.
//
// fallback is the variant used when the source carries no variant directive.
// Malformed source returns a *CompilationError with ErrCodeSyntax.
func (c *Compiler) Compile(name, source string, fallback Variant) (*Unit, error) {
	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, &CompilationError{Code: ErrCodeSyntax, Unit: name, Message: err.Error(), Err: err}
	}

	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, &CompilationError{Code: ErrCodeSyntax, Unit: name, Message: err.Error(), Err: err}
	}

	d := parseDirectives(source)
	variant := fallback
	if d.explicit {
		variant = d.variant
	}

	return &Unit{
		name:     name,
		source:   source,
		proto:    proto,
		variant:  variant,
		requires: d.requires,
		refs:     references(chunk),
	}, nil
}
