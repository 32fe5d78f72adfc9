package rule

import (
	"fmt"

	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/store"
)

// Entry is the unit a rule firing emits: a set of new events sharing a
// description, context attributes and a cause.
type Entry struct {
	ID          string
	Description string

	// Context is merged into every emitted event and wins over the
	// event's own attributes.
	Context map[string]event.Value

	// Cause lists the ids of the events that made the rule fire.
	Cause event.List

	Events event.Stream

	taxonomy *Taxonomy
	ids      IDGenerator
}

func newEntry(description string, context map[string]event.Value, cause event.List, taxonomy *Taxonomy, ids IDGenerator) *Entry {
	return &Entry{
		ID:          ids.Generate(),
		Description: description,
		Context:     context,
		Cause:       cause,
		taxonomy:    taxonomy,
		ids:         ids,
	}
}

// Emit appends an event of type typ. The event gets attrs, then the entry
// context, then type and caused_by. An id is generated unless attrs has one.
//
// With a taxonomy configured, types it does not define are rejected.
func (e *Entry) Emit(typ string, attrs map[string]event.Value) (event.Event, error) {
	if typ == "" {
		return event.Event{}, fmt.Errorf("emit: missing type")
	}
	if e.taxonomy != nil && !e.taxonomy.Includes(typ) {
		return event.Event{}, fmt.Errorf("emit %s: type not in taxonomy", typ)
	}

	fields := make(map[string]event.Value, len(attrs)+len(e.Context)+3)
	for k, v := range attrs {
		fields[k] = v
	}
	for k, v := range e.Context {
		fields[k] = v
	}
	if _, ok := fields[event.FieldID]; !ok {
		fields[event.FieldID] = event.String(e.ids.Generate())
	}
	fields[event.FieldType] = event.String(typ)
	cause := e.Cause
	if cause == nil {
		cause = event.List{}
	}
	fields[event.FieldCausedBy] = cause

	ev := event.New(fields)
	e.Events = append(e.Events, ev)
	return ev, nil
}

// Record converts the entry for storage.
func (e *Entry) Record() store.Entry {
	return store.Entry{
		ID:          e.ID,
		Description: e.Description,
		Context:     e.Context,
		Cause:       e.Cause,
		Events:      e.Events,
	}
}
