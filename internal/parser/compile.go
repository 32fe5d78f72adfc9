package parser

import (
	"github.com/roach88/pql/internal/ast"
)

// Compile parses PQL source and validates the block's structure.
//
// Errors are *SyntaxError for malformed text, *ast.StructuralError for
// duplicate names or bad join targets, and an error wrapping
// ast.ErrNotImplemented for time delta literals.
func Compile(source string) (*ast.Block, error) {
	block, err := Parse(source)
	if err != nil {
		return nil, err
	}
	if err := ast.Validate(block); err != nil {
		return nil, err
	}
	return block, nil
}

// MustCompile is like Compile but panics on error.
// Intended for tests and static patterns.
func MustCompile(source string) *ast.Block {
	block, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return block
}
