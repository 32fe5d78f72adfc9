package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/compiler"
	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/parser"
	"github.com/roach88/pql/internal/store"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeReadFailed   = "E002" // Input file unreadable
	ErrCodeDecodeFailed = "E003" // Stream JSON malformed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeStore        = "E008" // Database error

	ErrCodeInvalidRule = "E100" // Rule definition rejected by the compiler

	ErrCodeSyntax         = "E301" // PQL syntax error
	ErrCodeNotImplemented = "E302" // PQL construct without defined semantics
)

// LoadError represents a failure to read command input.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// errorCode maps an error to its CLI code and message. Structural errors
// keep their own E2xx code.
func errorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}

	code := patternErrorCode(err)
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		switch {
		case code != "":
		case compileErr.Field == "cue":
			code = ErrCodeBuildFailed
		default:
			code = ErrCodeInvalidRule
		}
		return code, compileErr.Error()
	}
	if code == "" {
		code = ErrCodeGeneric
	}
	return code, err.Error()
}

func patternErrorCode(err error) string {
	var structural *ast.StructuralError
	switch {
	case parser.IsSyntaxError(err):
		return ErrCodeSyntax
	case errors.As(err, &structural):
		return structural.Code
	case errors.Is(err, ast.ErrNotImplemented):
		return ErrCodeNotImplemented
	}
	return ""
}

// loadPattern reads and compiles a PQL file.
func loadPattern(path string) (*ast.Block, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return parser.Compile(string(data))
}

// loadStream reads a JSON array of events.
func loadStream(path string) (event.Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, notFoundOr(path, err)
	}
	defer f.Close()

	stream, err := event.DecodeStream(f)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: fmt.Sprintf("%s: %v", path, err), Err: err}
	}
	return stream, nil
}

// loadRules compiles a CUE rule file or every .cue file in a directory.
func loadRules(path string) (*compiler.Definitions, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, notFoundOr(path, err)
	}
	if info.IsDir() {
		return compiler.LoadDir(path)
	}
	return compiler.LoadFile(path)
}

// openStore opens the database, creating it if needed.
func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("failed to open database: %v", err), Err: err}
	}
	return st, nil
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, notFoundOr(path, err)
	}
	return data, nil
}

func notFoundOr(path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not found: %s", path), Err: err}
	}
	return &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading %s: %v", path, err), Err: err}
}
