package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/pql/internal/event"
)

// AssertionError is returned when an assertion fails.
// It includes the emitted events to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string
	Actual   string
	Emitted  event.Stream
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Emitted) > 0 {
		fmt.Fprintf(&buf, "\nEmitted events:\n")
		for i, ev := range e.Emitted {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, ev)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertEmittedContains:
			err = assertEmittedContains(result.Emitted, a)
		case AssertEmittedCount:
			err = assertEmittedCount(result.Emitted, a)
		case AssertEmittedOrder:
			err = assertEmittedOrder(result.Emitted, a)
		case AssertBindingContains:
			err = assertBindingContains(result.Bindings, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

// assertEmittedContains checks for an emitted event of the type whose
// fields include Attrs.
func assertEmittedContains(emitted event.Stream, a Assertion) error {
	for _, e := range emitted {
		if e.Type() == a.EventType && matchFields(eventFields(e), a.Attrs, false) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertEmittedContains,
		Expected: fmt.Sprintf("%s event with %v", a.EventType, a.Attrs),
		Actual:   "not emitted",
		Emitted:  emitted,
	}
}

// assertEmittedCount checks that exactly Count events of the type were
// emitted.
func assertEmittedCount(emitted event.Stream, a Assertion) error {
	count := 0
	for _, e := range emitted {
		if e.Type() == a.EventType {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEmittedCount,
			Expected: fmt.Sprintf("%d %s events", a.Count, a.EventType),
			Actual:   fmt.Sprintf("%d events", count),
			Emitted:  emitted,
		}
	}
	return nil
}

// assertEmittedOrder checks that the first event of each type appears in
// the given order. Other events may appear in between.
func assertEmittedOrder(emitted event.Stream, a Assertion) error {
	positions := make(map[string]int)
	for i, e := range emitted {
		if _, seen := positions[e.Type()]; !seen {
			positions[e.Type()] = i + 1 // 1-indexed for readability
		}
	}

	for _, typ := range a.Types {
		if positions[typ] == 0 {
			return &AssertionError{
				Type:     AssertEmittedOrder,
				Expected: fmt.Sprintf("all types present: %v", a.Types),
				Actual:   fmt.Sprintf("missing type: %s", typ),
				Emitted:  emitted,
			}
		}
	}

	for i := 1; i < len(a.Types); i++ {
		prev, curr := a.Types[i-1], a.Types[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertEmittedOrder,
				Expected: fmt.Sprintf("types in order: %v", a.Types),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Emitted: emitted,
			}
		}
	}
	return nil
}

// assertBindingContains checks for a binding summary agreeing with Binding
// on every name Binding lists.
func assertBindingContains(bindings []map[string]any, a Assertion) error {
	for _, b := range bindings {
		if matchFields(b, a.Binding, false) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertBindingContains,
		Expected: fmt.Sprintf("binding with %v", a.Binding),
		Actual:   fmt.Sprintf("bindings %v", bindings),
	}
}

func eventFields(e event.Event) map[string]any {
	out := make(map[string]any, e.Len())
	for _, f := range e.Fields() {
		out[f] = e.Get(f)
	}
	return out
}

// matchFields compares values with event.Equal after converting both sides
// to event values. With exact, actual must have no extra keys.
func matchFields(actual, want map[string]any, exact bool) bool {
	if exact && len(actual) != len(want) {
		return false
	}
	for k, wv := range want {
		av, ok := actual[k]
		if !ok {
			return false
		}
		a, err := event.FromGo(av)
		if err != nil {
			return false
		}
		w, err := event.FromGo(wv)
		if err != nil {
			return false
		}
		if !event.Equal(a, w) {
			return false
		}
	}
	return true
}
