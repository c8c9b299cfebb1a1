package scripting

import (
	"errors"
	"fmt"
)

// ErrArityMismatch is returned when a tool call carries more than one
// positional argument. The call shape is rejected before invocation.
var ErrArityMismatch = errors.New("tool calls accept at most one argument")

// CompileError reports a syntax or semantic failure in tool source. A
// compile failure never corrupts the currently published namespace.
type CompileError struct {
	Line    int
	Col     int
	Message string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error at %d:%d: %s", e.Line, e.Col, e.Message)
	}
	return fmt.Sprintf("compile error: %s", e.Message)
}

// RuntimeError reports that a tool function itself failed during execution.
type RuntimeError struct {
	Tool    string
	Message string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}
