package domain

import (
	"errors"
	"fmt"
)

// ErrDefinitionNotFound is returned when a compiled definition cannot be found in a store.
var ErrDefinitionNotFound = errors.New("definition not found")

// ErrGraphNotFound is returned when a graph source has no graph of the requested name.
var ErrGraphNotFound = errors.New("graph not found")

// ErrInvalidGraph is returned when an authoring graph compiles with error diagnostics.
var ErrInvalidGraph = errors.New("graph has errors")

// ErrUnknownNodeType is returned when decoding a node whose type was never registered.
var ErrUnknownNodeType = errors.New("unknown node type")

// ErrMemberNotFound is returned when a reflected member cannot be resolved.
var ErrMemberNotFound = errors.New("reflected member not found")

// ErrNotSupported is returned by contexts that refuse an operation, such as
// triggers during constant folding.
var ErrNotSupported = errors.New("operation not supported in this context")

// InvariantError marks a broken internal invariant: a compiler bug or a corrupt
// definition. It is raised with panic and is not meant to be recovered by callers.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "invariant violated: " + e.Msg
}

// Invariantf panics with an *InvariantError.
func Invariantf(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}
