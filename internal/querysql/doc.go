// Package querysql compiles event selections to parameterized SQL for the
// SQLite event store.
//
// Events are stored as canonical JSON documents. A Select names a filter
// over top-level event fields; the compiler turns each field predicate into
// a json_extract comparison.
//
//	Select{Filter: And{Predicates: []Predicate{
//	    Equals{Field: "type", Value: event.String("TaxEntry")},
//	    Equals{Field: "applied_to", Value: event.Int(1)},
//	}}}
//
// compiles to
//
//	SELECT body FROM events
//	WHERE json_extract(body, ?) = ? AND json_extract(body, ?) = ?
//	ORDER BY seq ASC, key ASC COLLATE BINARY
//
// with parameters ["$.type", "TaxEntry", "$.applied_to", 1].
//
// Every query carries an ORDER BY on the insertion sequence so a stream read
// back from the store always has the order it was written in. Field paths
// and values are always parameters, never interpolated.
//
// Predicate is a sealed interface: only the types in this package implement
// it, so the compiler's type switch is exhaustive.
package querysql
