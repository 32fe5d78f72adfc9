package engine

import (
	"iter"
	"maps"
	"slices"

	"github.com/roach88/pql/internal/event"
)

// Bound is the value a statement name is bound to: a single event when the
// match is singular and holds exactly one event, otherwise a sequence.
type Bound struct {
	events event.Stream
	single bool
}

func boundOf(m Match) Bound {
	return Bound{events: m.Events, single: m.Singular && len(m.Events) == 1}
}

// IsSingle reports whether the name is bound to one event.
func (b Bound) IsSingle() bool { return b.single }

// Event returns the bound event when IsSingle.
func (b Bound) Event() (event.Event, bool) {
	if !b.single {
		return event.Event{}, false
	}
	return b.events[0], true
}

// Events returns the bound events. A single binding yields one element.
func (b Bound) Events() event.Stream { return b.events }

// Document returns the bound value as canonical-JSON input: an Event or a
// Stream.
func (b Bound) Document() any {
	if b.single {
		return b.events[0]
	}
	return b.events
}

// Binding maps statement names to their bound values.
type Binding map[string]Bound

// Names returns the bound names, sorted.
func (b Binding) Names() []string {
	return slices.Sorted(maps.Keys(b))
}

// Document returns the binding as a map suitable for event.BindingHash.
func (b Binding) Document() map[string]any {
	doc := make(map[string]any, len(b))
	for name, bound := range b {
		doc[name] = bound.Document()
	}
	return doc
}

// IDs returns the ids of every bound event in name order, without
// duplicates. Events without an id are skipped.
func (b Binding) IDs() event.List {
	ids := event.List{}
	for _, name := range b.Names() {
		for _, e := range b[name].events {
			id := e.ID()
			if event.IsNull(id) || event.Contains(ids, id) {
				continue
			}
			ids = append(ids, id)
		}
	}
	return ids
}

// Hash is the content hash of the binding's canonical document.
func (b Binding) Hash() (string, error) {
	return event.BindingHash(b.Document())
}

// NamedBindings yields one Binding per combination of the non-joined
// statements' matches, with joined matches merged into the record of the
// match they attach to. Nothing is yielded when the application is
// unsuccessful. The sequence may be iterated more than once.
func (b *BlockApplication) NamedBindings() iter.Seq[Binding] {
	return func(yield func(Binding) bool) {
		if !b.Successful() {
			return
		}

		lists := b.records()
		picks := make([]int, len(lists))
		for {
			binding := Binding{}
			for i, list := range lists {
				maps.Copy(binding, list[picks[i]])
			}
			if !yield(binding) {
				return
			}

			// Advance the rightmost statement first so earlier statements
			// vary slowest.
			i := len(picks) - 1
			for ; i >= 0; i-- {
				picks[i]++
				if picks[i] < len(lists[i]) {
					break
				}
				picks[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}

// Bindings collects NamedBindings into a slice.
func (b *BlockApplication) Bindings() []Binding {
	return slices.Collect(b.NamedBindings())
}

// records builds one record per match of every non-joined statement and
// merges joined matches into the record of their root target. Joined
// statements contribute a single empty record so they do not multiply.
func (b *BlockApplication) records() [][]Binding {
	lists := make([][]Binding, len(b.Applications))
	for i, app := range b.Applications {
		if app.Joined {
			lists[i] = []Binding{{}}
			continue
		}
		lists[i] = make([]Binding, len(app.Matches))
		for j, m := range app.Matches {
			rec := Binding{}
			if app.Name != "" {
				rec[app.Name] = boundOf(m)
			}
			lists[i][j] = rec
		}
	}

	for _, app := range b.Applications {
		if !app.Joined || app.Name == "" {
			continue
		}
		for _, m := range app.Matches {
			if root, ok := b.root(m); ok {
				lists[root.Statement][root.Index][app.Name] = boundOf(m)
			}
		}
	}

	if len(lists) == 0 {
		return [][]Binding{{{}}}
	}
	return lists
}

// root follows join references until it reaches a match of a non-joined
// statement.
func (b *BlockApplication) root(m Match) (MatchRef, bool) {
	ref := m.Join
	for ref != nil {
		target, ok := b.Match(*ref)
		if !ok {
			return MatchRef{}, false
		}
		if target.Join == nil {
			return *ref, true
		}
		ref = target.Join
	}
	return MatchRef{}, false
}
