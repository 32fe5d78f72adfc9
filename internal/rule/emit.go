package rule

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/engine"
	"github.com/roach88/pql/internal/event"
)

// EmitTemplate describes one event a declarative rule emits per binding.
type EmitTemplate struct {
	// Type of the emitted event.
	Type string

	// Set holds literal field values.
	Set map[string]event.Value

	// Bind maps a field to a binding path. "name.field" reads field from
	// the events bound to name; "name" alone reads their ids. A single
	// bound event yields a scalar, a sequence yields a list.
	Bind map[string]string
}

// templateAction emits one event per template. statements maps each named
// statement of the rule's pattern to whether it binds a single event.
func templateAction(templates []EmitTemplate, statements map[string]bool) Action {
	return func(b engine.Binding, e *Entry) error {
		for i, tmpl := range templates {
			attrs := maps.Clone(tmpl.Set)
			if attrs == nil {
				attrs = make(map[string]event.Value, len(tmpl.Bind))
			}
			for _, field := range slices.Sorted(maps.Keys(tmpl.Bind)) {
				v, err := resolvePath(b, statements, tmpl.Bind[field])
				if err != nil {
					return fmt.Errorf("emit %d (%s) field %q: %w", i, tmpl.Type, field, err)
				}
				attrs[field] = v
			}
			if _, err := e.Emit(tmpl.Type, attrs); err != nil {
				return err
			}
		}
		return nil
	}
}

// resolvePath reads a binding path such as "item.price".
//
// A joined statement with nothing attached is absent from the binding. It
// reads as null when the statement binds single events and as an empty
// list otherwise.
func resolvePath(b engine.Binding, statements map[string]bool, path string) (event.Value, error) {
	name, field, qualified := strings.Cut(path, ".")
	if !qualified {
		field = event.FieldID
	}
	if name == "" || field == "" {
		return nil, fmt.Errorf("invalid path %q", path)
	}

	bound, ok := b[name]
	if !ok {
		single, defined := statements[name]
		switch {
		case !defined:
			return nil, fmt.Errorf("%q is not bound", name)
		case single:
			return event.Null{}, nil
		default:
			return event.List{}, nil
		}
	}
	if e, ok := bound.Event(); ok {
		return e.Get(field), nil
	}
	events := bound.Events()
	values := make(event.List, len(events))
	for i, e := range events {
		values[i] = e.Get(field)
	}
	return values, nil
}

// ValidatePath checks the syntax of a binding path.
func ValidatePath(path string) error {
	name, field, qualified := strings.Cut(path, ".")
	if name == "" || (qualified && (field == "" || strings.Contains(field, "."))) {
		return fmt.Errorf("invalid binding path %q: want name or name.field", path)
	}
	return nil
}

// namedStatements maps the named statements of block to whether their
// matches bind single events. Modifiers apply rightmost first, so EACH or
// a limit of one makes matches single until a later GROUPED BY.
func namedStatements(block *ast.Block) map[string]bool {
	names := make(map[string]bool, len(block.Statements))
	for _, stmt := range block.Statements {
		if stmt.Name == "" {
			continue
		}
		single := false
		for i := len(stmt.Modifiers) - 1; i >= 0; i-- {
			switch m := stmt.Modifiers[i].(type) {
			case *ast.Limit:
				single = single || m.Count == 1
			case *ast.Cardinality:
				switch m.Kind {
				case ast.CardinalityEach:
					single = true
				case ast.CardinalityGroupedBy:
					single = false
				}
			}
		}
		names[stmt.Name] = single
	}
	return names
}
