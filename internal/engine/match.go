package engine

import (
	"github.com/roach88/pql/internal/event"
)

// Match is one candidate result of a statement.
type Match struct {
	// Events are the matched events in selection order.
	Events event.Stream

	// Singular marks a match that binds to a single event rather than a
	// list when it holds exactly one event.
	Singular bool

	// Join points at the left-hand match this match is attached to.
	// Nil unless the match was produced by a JOINING statement.
	Join *MatchRef
}

// MatchRef addresses a match inside a BlockApplication.
type MatchRef struct {
	Statement int // index into BlockApplication.Applications
	Index     int // index into Application.Matches
}

// Application is the result of evaluating one statement.
type Application struct {
	// Name is the statement name, "" if unnamed.
	Name string

	// Matches is empty when the statement failed.
	Matches []Match

	// Joined marks an application of a JOINING statement.
	Joined bool
}

// Successful reports whether the statement produced at least one match.
func (a *Application) Successful() bool {
	return len(a.Matches) > 0
}

// Cardinality is the number of bindings this statement contributes:
// 0 when unsuccessful, 1 for a joined statement, else the match count.
func (a *Application) Cardinality() int {
	switch {
	case !a.Successful():
		return 0
	case a.Joined:
		return 1
	default:
		return len(a.Matches)
	}
}

// Stats counts work done during one application.
type Stats struct {
	// SubqueryEvaluations counts value expressions actually evaluated.
	SubqueryEvaluations int

	// CacheHits counts value expressions answered from the memo table.
	CacheHits int
}

// BlockApplication is the result of applying a block to a stream.
type BlockApplication struct {
	// Applications holds one entry per statement, in document order.
	Applications []*Application

	Stats Stats
}

// Successful reports whether every statement succeeded.
func (b *BlockApplication) Successful() bool {
	for _, app := range b.Applications {
		if !app.Successful() {
			return false
		}
	}
	return true
}

// Cardinality is the number of named bindings: 0 if unsuccessful, else
// the product of the statement cardinalities.
func (b *BlockApplication) Cardinality() int {
	if !b.Successful() {
		return 0
	}
	n := 1
	for _, app := range b.Applications {
		n *= app.Cardinality()
	}
	return n
}

// Match resolves a reference produced by this application.
func (b *BlockApplication) Match(ref MatchRef) (Match, bool) {
	if ref.Statement < 0 || ref.Statement >= len(b.Applications) {
		return Match{}, false
	}
	matches := b.Applications[ref.Statement].Matches
	if ref.Index < 0 || ref.Index >= len(matches) {
		return Match{}, false
	}
	return matches[ref.Index], true
}
