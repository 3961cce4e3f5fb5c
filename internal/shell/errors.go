package shell

import (
	"errors"
	"fmt"
)

// InitError reports a failed setup hook during unit preparation.
//
// A unit whose setup failed is never returned to the caller: there is no
// safe way to run a partially initialized pipeline unit, so callers should
// treat this error as fatal for the execution.
type InitError struct {
	Unit string
	Err  error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Unit, e.Err)
}

// Unwrap returns the setup hook error.
func (e *InitError) Unwrap() error {
	return e.Err
}

// IsInitError reports whether err is or wraps an InitError.
func IsInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie)
}
