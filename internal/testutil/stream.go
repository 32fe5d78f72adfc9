package testutil

import (
	"github.com/roach88/pql/internal/event"
)

// Event builds an event from alternating field names and Go values.
// Panics on a value event.FromGo cannot convert.
//
//	Event("id", 1, "type", "ItemSelected", "price", 9.5)
func Event(kv ...any) event.Event {
	if len(kv)%2 != 0 {
		panic("testutil.Event: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return event.MustFromMap(m)
}

// Typed returns one event of type typ per id, in order.
func Typed(typ string, ids ...int) event.Stream {
	s := make(event.Stream, len(ids))
	for i, id := range ids {
		s[i] = Event(event.FieldID, id, event.FieldType, typ)
	}
	return s
}

// Concat joins streams into a new one.
func Concat(streams ...event.Stream) event.Stream {
	var out event.Stream
	for _, s := range streams {
		out = append(out, s...)
	}
	return out
}
