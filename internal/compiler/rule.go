package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/parser"
	"github.com/roach88/pql/internal/rule"
)

// RuleSpec is a rule compiled from CUE, with its pattern already parsed
// and validated.
type RuleSpec struct {
	Config rule.Config
	Block  *ast.Block
	Pos    token.Pos
}

// CompileRule parses a CUE value into a RuleSpec. The rule name is the
// struct label:
//
//	rule: "tax-items": {
//		description: "Tax every selected item"
//		pattern:     #"MATCH EACH AS item WHERE type IS "ItemSelected";"#
//		emit: [{type: "TaxEntry", set: {rate: 0.2}, bind: {applied_to: "item"}}]
//	}
//
// The pattern is compiled here, so PQL syntax and structural errors are
// reported with the CUE position of the pattern field.
func CompileRule(v cue.Value) (*RuleSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &RuleSpec{Pos: v.Pos()}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Config.Name = labels[len(labels)-1].Unquoted()
	}
	if spec.Config.Name == "" {
		return nil, &CompileError{Field: "rule", Message: "rule name is required", Pos: v.Pos()}
	}

	desc, _, err := stringField(v, "description")
	if err != nil {
		return nil, err
	}
	spec.Config.Description = desc

	pattern, ok, err := stringField(v, "pattern")
	if err != nil {
		return nil, err
	}
	patternVal := v.LookupPath(cue.ParsePath("pattern"))
	if !ok {
		return nil, &CompileError{
			Field:   "pattern",
			Message: "pattern is required",
			Pos:     v.Pos(),
		}
	}
	spec.Block, err = parser.Compile(pattern)
	if err != nil {
		return nil, &CompileError{
			Field:   "pattern",
			Message: err.Error(),
			Pos:     patternVal.Pos(),
			Err:     err,
		}
	}
	spec.Config.Pattern = pattern

	contextVal := v.LookupPath(cue.ParsePath("context"))
	if contextVal.Exists() {
		spec.Config.Context, err = compileAttrs("context", contextVal)
		if err != nil {
			return nil, err
		}
	}

	spec.Config.Emit, err = parseEmit(v)
	if err != nil {
		return nil, err
	}
	if len(spec.Config.Emit) == 0 {
		return nil, &CompileError{
			Field:   "emit",
			Message: "at least one emit template is required",
			Pos:     v.Pos(),
		}
	}

	return spec, nil
}

// parseEmit extracts the emit templates of a rule.
func parseEmit(v cue.Value) ([]rule.EmitTemplate, error) {
	emitVal := v.LookupPath(cue.ParsePath("emit"))
	if !emitVal.Exists() {
		return nil, nil
	}

	iter, err := emitVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var templates []rule.EmitTemplate
	for i := 0; iter.Next(); i++ {
		tv := iter.Value()
		field := fmt.Sprintf("emit[%d]", i)

		typ, ok, err := stringField(tv, "type")
		if err != nil {
			return nil, err
		}
		if !ok || typ == "" {
			return nil, &CompileError{
				Field:   field + ".type",
				Message: "emitted event type is required",
				Pos:     tv.Pos(),
			}
		}
		tmpl := rule.EmitTemplate{Type: typ}

		setVal := tv.LookupPath(cue.ParsePath("set"))
		if setVal.Exists() {
			tmpl.Set, err = compileAttrs(field+".set", setVal)
			if err != nil {
				return nil, err
			}
		}

		bindVal := tv.LookupPath(cue.ParsePath("bind"))
		if bindVal.Exists() {
			tmpl.Bind, err = parseBind(field+".bind", bindVal)
			if err != nil {
				return nil, err
			}
		}

		templates = append(templates, tmpl)
	}
	return templates, nil
}

func parseBind(field string, v cue.Value) (map[string]string, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	bind := make(map[string]string)
	for iter.Next() {
		name := iter.Selector().Unquoted()
		path, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if err := rule.ValidatePath(path); err != nil {
			return nil, &CompileError{
				Field:   field + "." + name,
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
		bind[name] = path
	}
	return bind, nil
}
