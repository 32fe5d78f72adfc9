package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/pql/internal/event"
)

// compileValue converts a concrete CUE value to an event value.
// Structs are rejected: event fields are flat.
func compileValue(field string, v cue.Value) (event.Value, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return event.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return event.Bool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return event.Int(i), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return event.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return event.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		list := event.List{}
		for i := 0; iter.Next(); i++ {
			elem, err := compileValue(fmt.Sprintf("%s[%d]", field, i), iter.Value())
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		return list, nil
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// compileAttrs converts a CUE struct of scalar fields.
func compileAttrs(field string, v cue.Value) (map[string]event.Value, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	attrs := make(map[string]event.Value)
	for iter.Next() {
		name := iter.Selector().Unquoted()
		val, err := compileValue(field+"."+name, iter.Value())
		if err != nil {
			return nil, err
		}
		attrs[name] = val
	}
	return attrs, nil
}

// stringField reads an optional string field. ok is false when absent.
func stringField(v cue.Value, name string) (s string, ok bool, err error) {
	f := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !f.Exists() {
		return "", false, nil
	}
	s, err = f.String()
	if err != nil {
		return "", true, formatCUEError(err)
	}
	return s, true, nil
}
