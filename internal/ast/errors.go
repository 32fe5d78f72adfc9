package ast

import (
	"errors"
	"fmt"
)

// Structural error codes (E200-E299)
const (
	ErrDuplicateName = "E201" // two statements share a name
	ErrUnknownJoin   = "E202" // join target names no statement
	ErrForwardJoin   = "E203" // join target is not an earlier statement
)

// ErrNotImplemented is returned for syntax that parses but has no defined
// value, such as time delta literals.
var ErrNotImplemented = errors.New("not implemented")

// StructuralError reports misuse of statement names within a block.
// It is raised when a block is compiled and again when it is applied, never
// because of the contents of a stream.
type StructuralError struct {
	// Code identifies the error category (E2xx).
	Code string

	// Name is the statement or join target name involved.
	Name string

	// Message is a human-readable description.
	Message string

	// Statement is the 0-based index of the offending statement.
	Statement int
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	return fmt.Sprintf("[%s] statement %d: %s", e.Code, e.Statement+1, e.Message)
}

// IsStructuralError returns true if err is or wraps a *StructuralError.
func IsStructuralError(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}
