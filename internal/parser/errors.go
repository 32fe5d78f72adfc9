package parser

import (
	"errors"
	"fmt"
	"strings"
)

// SyntaxError reports PQL source that does not match the grammar.
type SyntaxError struct {
	// Offset is the 0-based byte offset of the failure.
	Offset int

	// Line and Column locate the failure (1-based, column in bytes).
	Line   int
	Column int

	// Message describes what was expected.
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d column %d: %s", e.Line, e.Column, e.Message)
}

// IsSyntaxError returns true if err is or wraps a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

func newSyntaxError(input string, offset int, message string) *SyntaxError {
	line, column := lineColumn(input, offset)
	return &SyntaxError{
		Offset:  offset,
		Line:    line,
		Column:  column,
		Message: message,
	}
}

func lineColumn(input string, offset int) (int, int) {
	if offset > len(input) {
		offset = len(input)
	}
	before := input[:offset]
	line := strings.Count(before, "\n") + 1
	column := offset - strings.LastIndexByte(before, '\n')
	return line, column
}
