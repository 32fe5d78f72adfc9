package querysql

import (
	"slices"

	"github.com/roach88/pql/internal/event"
)

// Predicate is a filter over top-level event fields.
//
// Sealed: implemented only by Equals, In and And.
type Predicate interface {
	predicateNode()
}

// Equals matches events whose Field equals Value. A Null value matches
// events where the field is absent or null.
type Equals struct {
	Field string
	Value event.Value
}

func (Equals) predicateNode() {}

// In matches events whose Field equals any of Values.
type In struct {
	Field  string
	Values event.List
}

func (In) predicateNode() {}

// And matches events satisfying every predicate. An empty And matches
// everything.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Select reads events from the store.
type Select struct {
	// Filter restricts the events read; nil reads all of them.
	Filter Predicate

	// Limit caps the number of rows; 0 means no limit.
	Limit int
}

// FromAttrs builds a conjunction of equality predicates, one per field, in
// field name order.
func FromAttrs(attrs map[string]event.Value) Predicate {
	fields := make([]string, 0, len(attrs))
	for f := range attrs {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	preds := make([]Predicate, len(fields))
	for i, f := range fields {
		preds[i] = Equals{Field: f, Value: attrs[f]}
	}
	return And{Predicates: preds}
}
