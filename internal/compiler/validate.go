package compiler

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/rule"
)

// Validation error codes (E100-E199)
const (
	ErrUnboundName    = "E101" // emit bind path names no statement
	ErrUnknownType    = "E102" // emitted type missing from the taxonomy
	ErrUnknownParent  = "E103" // taxonomy parent never defined
	ErrUnknownPattern = "E104" // pattern matches a type missing from the taxonomy
	ErrReservedField  = "E105" // emit sets a field the entry controls
)

// ValidationError represents a rule definition error found after
// compilation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks compiled definitions for errors that only show across
// fields: bind paths against statement names, and types against the
// taxonomy. Returns all errors found (does not fail-fast).
func Validate(defs *Definitions) []ValidationError {
	var errs []ValidationError
	if defs.Taxonomy != nil {
		errs = append(errs, validateTaxonomy(defs.Taxonomy)...)
	}
	for _, spec := range defs.Rules {
		errs = append(errs, validateRule(spec, defs.Taxonomy)...)
	}
	return errs
}

func validateTaxonomy(tax *rule.Taxonomy) []ValidationError {
	var errs []ValidationError
	for _, name := range tax.Types() {
		for _, parent := range tax.Parents(name) {
			if !tax.Includes(parent) {
				errs = append(errs, ValidationError{
					Field:   "taxonomy." + name,
					Message: fmt.Sprintf("parent type %q is not defined", parent),
					Code:    ErrUnknownParent,
				})
			}
		}
	}
	return errs
}

func validateRule(spec RuleSpec, tax *rule.Taxonomy) []ValidationError {
	var errs []ValidationError
	prefix := "rule." + spec.Config.Name
	line := spec.Pos.Line()

	names := make(map[string]bool)
	for _, stmt := range spec.Block.Statements {
		if stmt.Name != "" {
			names[stmt.Name] = true
		}
	}

	if tax != nil {
		if types, wildcard := matchedTypes(spec.Block); !wildcard {
			for _, typ := range types {
				if !tax.Includes(typ) {
					errs = append(errs, ValidationError{
						Field:   prefix + ".pattern",
						Message: fmt.Sprintf("pattern matches type %q, which the taxonomy does not define", typ),
						Code:    ErrUnknownPattern,
						Line:    line,
					})
				}
			}
		}
	}

	for i, tmpl := range spec.Config.Emit {
		field := fmt.Sprintf("%s.emit[%d]", prefix, i)

		if tax != nil && !tax.Includes(tmpl.Type) {
			errs = append(errs, ValidationError{
				Field:   field + ".type",
				Message: fmt.Sprintf("type %q is not defined in the taxonomy", tmpl.Type),
				Code:    ErrUnknownType,
				Line:    line,
			})
		}

		for _, reserved := range []string{event.FieldType, event.FieldCausedBy} {
			_, inSet := tmpl.Set[reserved]
			_, inBind := tmpl.Bind[reserved]
			if inSet || inBind {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("field %q is set by the entry", reserved),
					Code:    ErrReservedField,
					Line:    line,
				})
			}
		}

		for _, target := range slices.Sorted(maps.Keys(tmpl.Bind)) {
			name := bindName(tmpl.Bind[target])
			if !names[name] {
				errs = append(errs, ValidationError{
					Field:   field + ".bind." + target,
					Message: fmt.Sprintf("%q is not a statement name in the pattern", name),
					Code:    ErrUnboundName,
					Line:    line,
				})
			}
		}
	}
	return errs
}

func bindName(path string) string {
	name, _, _ := strings.Cut(path, ".")
	return name
}
