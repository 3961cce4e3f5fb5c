// Package script compiles Lua source text into executable units.
//
// A Unit is one compiled source text plus what the shell needs to know about
// it before it runs: its variant, the bindings its setup hook demands, and
// the modules it references through literal require calls.
//
// # Variants
//
// Library units are ordinary helper code. Pipeline units need an execution
// context injected before they run; they expose that need through the
// ContextRequirer capability rather than through their concrete type.
//
// # Directives
//
// Leading comment lines starting with "--!" configure a unit:
//
//	--!pipeline            mark as pipeline unit
//	--!library             mark as library unit
//	--!requires a, b       bindings that must exist at injection time
//
// Directives stop at the first line that is neither blank nor a comment.
package script
