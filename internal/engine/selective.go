package engine

import (
	"slices"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/event"
)

// selectMatches runs a statement's modifiers over matches, rightmost
// first. It returns false as soon as a cardinality transform fails.
func (ev *evaluator) selectMatches(mods []ast.Modifier, matches []Match) ([]Match, bool) {
	for i := len(mods) - 1; i >= 0; i-- {
		var ok bool
		matches, ok = applyModifier(mods[i], matches)
		if !ok {
			return nil, false
		}
	}
	return matches, true
}

func applyModifier(mod ast.Modifier, matches []Match) ([]Match, bool) {
	switch m := mod.(type) {
	case *ast.Limit:
		out := make([]Match, len(matches))
		for i, match := range matches {
			out[i] = limit(m, match)
		}
		return out, true
	case *ast.Order:
		out := make([]Match, len(matches))
		for i, match := range matches {
			out[i] = order(m, match)
		}
		return out, true
	case *ast.Cardinality:
		var out []Match
		for _, match := range matches {
			result, ok := cardinality(m, match)
			if !ok {
				return nil, false
			}
			out = append(out, result...)
		}
		return out, true
	default:
		return matches, true
	}
}

func limit(l *ast.Limit, m Match) Match {
	n := min(l.Count, len(m.Events))
	var events event.Stream
	switch l.Kind {
	case ast.LimitFirst:
		events = slices.Clone(m.Events[:n])
	case ast.LimitLast:
		events = make(event.Stream, 0, n)
		for i := len(m.Events) - 1; i >= len(m.Events)-n; i-- {
			events = append(events, m.Events[i])
		}
	}
	return Match{
		Events:   events,
		Singular: m.Singular || l.Count == 1,
		Join:     m.Join,
	}
}

func order(o *ast.Order, m Match) Match {
	events := slices.Clone(m.Events)
	slices.SortStableFunc(events, func(a, b event.Event) int {
		c := orderValues(a.Get(o.Field), b.Get(o.Field))
		if o.Descending {
			return -c
		}
		return c
	})
	return Match{Events: events, Singular: m.Singular, Join: m.Join}
}

// orderValues is a total order over values: first by kind, then by
// event.Compare within a kind. Pairs Compare cannot order are ties.
func orderValues(a, b event.Value) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		return ra - rb
	}
	if c, ok := event.Compare(a, b); ok {
		return c
	}
	if ab, ok := a.(event.Bool); ok {
		bb := b.(event.Bool)
		switch {
		case ab == bb:
			return 0
		case !bool(ab):
			return -1
		default:
			return 1
		}
	}
	return 0
}

func kindRank(v event.Value) int {
	switch v.(type) {
	case event.Null, nil:
		return 0
	case event.Bool:
		return 1
	case event.Int, event.Float:
		return 2
	case event.String:
		return 3
	case event.Time:
		return 4
	case event.List:
		return 5
	case event.Regexp:
		return 6
	default:
		return 7
	}
}

func cardinality(c *ast.Cardinality, m Match) ([]Match, bool) {
	switch c.Kind {
	case ast.CardinalityNone:
		if len(m.Events) > 0 {
			return nil, false
		}
		return []Match{m}, true
	case ast.CardinalityAll:
		if len(m.Events) == 0 {
			return nil, false
		}
		return []Match{m}, true
	case ast.CardinalityAny:
		return []Match{m}, true
	case ast.CardinalityEach:
		out := make([]Match, len(m.Events))
		for i, e := range m.Events {
			out[i] = Match{Events: event.Stream{e}, Singular: true, Join: m.Join}
		}
		return out, true
	case ast.CardinalityGroupedBy:
		return groupBy(c.Field, m), true
	default:
		return []Match{m}, true
	}
}

// groupBy partitions m by the value of field, groups in order of first
// appearance.
func groupBy(field string, m Match) []Match {
	var (
		keys   []event.Value
		groups []event.Stream
	)
	for _, e := range m.Events {
		v := e.Get(field)
		idx := slices.IndexFunc(keys, func(k event.Value) bool {
			return event.Equal(k, v)
		})
		if idx < 0 {
			keys = append(keys, v)
			groups = append(groups, nil)
			idx = len(keys) - 1
		}
		groups[idx] = append(groups[idx], e)
	}

	out := make([]Match, len(groups))
	for i, g := range groups {
		out[i] = Match{Events: g}
	}
	return out
}
