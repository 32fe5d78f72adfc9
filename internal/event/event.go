package event

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Well-known field names used by collaborators. The engine itself treats every
// field alike.
const (
	FieldID       = "id"
	FieldType     = "type"
	FieldCausedBy = "caused_by"
)

// Event is an immutable schema-free record mapping field names to values.
//
// The zero Event is valid and has no fields. Field access never fails:
// absent fields read as Null.
type Event struct {
	attrs map[string]Value
}

// Stream is an ordered, finite sequence of events.
// A stream is read-only for the duration of one block application.
type Stream []Event

// New creates an Event from attrs. The map is copied; nil values become Null.
func New(attrs map[string]Value) Event {
	copied := make(map[string]Value, len(attrs))
	for k, v := range attrs {
		if v == nil {
			v = Null{}
		}
		copied[k] = v
	}
	return Event{attrs: copied}
}

// FromMap creates an Event from Go native values (see FromGo).
func FromMap(m map[string]any) (Event, error) {
	attrs := make(map[string]Value, len(m))
	for k, v := range m {
		val, err := FromGo(v)
		if err != nil {
			return Event{}, fmt.Errorf("field %q: %w", k, err)
		}
		attrs[k] = val
	}
	return Event{attrs: attrs}, nil
}

// MustFromMap is like FromMap but panics on error.
// Intended for tests and static fixtures.
func MustFromMap(m map[string]any) Event {
	e, err := FromMap(m)
	if err != nil {
		panic(err)
	}
	return e
}

// Get returns the value of field, or Null if the field is absent.
func (e Event) Get(field string) Value {
	if v, ok := e.attrs[field]; ok {
		return v
	}
	return Null{}
}

// Has reports whether field is present.
func (e Event) Has(field string) bool {
	_, ok := e.attrs[field]
	return ok
}

// ID returns the event's id field.
func (e Event) ID() Value {
	return e.Get(FieldID)
}

// Type returns the event's type field as a string ("" if absent or not a string).
func (e Event) Type() string {
	s, _ := e.Get(FieldType).(String)
	return string(s)
}

// Len returns the number of fields.
func (e Event) Len() int {
	return len(e.attrs)
}

// Fields returns the field names in sorted order.
func (e Event) Fields() []string {
	return slices.Sorted(maps.Keys(e.attrs))
}

// Attrs returns a copy of the event's fields.
func (e Event) Attrs() map[string]Value {
	return maps.Clone(e.attrs)
}

// With returns a new Event with attrs layered over e's fields.
// e is not modified.
func (e Event) With(attrs map[string]Value) Event {
	merged := make(map[string]Value, len(e.attrs)+len(attrs))
	maps.Copy(merged, e.attrs)
	for k, v := range attrs {
		if v == nil {
			v = Null{}
		}
		merged[k] = v
	}
	return Event{attrs: merged}
}

// Equal reports whether two events hold equal values for the same fields.
func (e Event) Equal(other Event) bool {
	if len(e.attrs) != len(other.attrs) {
		return false
	}
	for k, v := range e.attrs {
		ov, ok := other.attrs[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

// String renders the event as {field: value, ...} with sorted fields.
func (e Event) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range e.Fields() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(Format(e.attrs[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// IDs returns the id values of the events in order, skipping events without an id.
func (s Stream) IDs() List {
	ids := make(List, 0, len(s))
	for _, e := range s {
		if e.Has(FieldID) {
			ids = append(ids, e.ID())
		}
	}
	return ids
}
