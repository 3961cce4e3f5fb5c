package script

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes compilation errors.
type ErrorCode string

const (
	// ErrCodeSyntax indicates malformed source text.
	ErrCodeSyntax ErrorCode = "SYNTAX"

	// ErrCodeUnresolved indicates a referenced module could not be loaded.
	ErrCodeUnresolved ErrorCode = "UNRESOLVED"
)

// CompilationError carries the engine diagnostic for a failed compile.
type CompilationError struct {
	Code ErrorCode

	// Unit is the name the source was compiled under.
	Unit string

	// Message is the engine diagnostic.
	Message string

	// Err is the underlying cause (parse error, loader error).
	Err error
}

// Error implements the error interface.
func (e *CompilationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Unit, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CompilationError) Unwrap() error {
	return e.Err
}

// IsCompilationError reports whether err is or wraps a CompilationError.
func IsCompilationError(err error) bool {
	var ce *CompilationError
	return errors.As(err, &ce)
}

// RuntimeError reports a Lua error raised while running a unit.
type RuntimeError struct {
	Unit string
	Err  error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("run %s: %v", e.Unit, e.Err)
}

// Unwrap returns the Lua error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// ErrNoContext is returned when a pipeline unit runs before injection.
var ErrNoContext = errors.New("pipeline unit has no execution context")
