package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/event"
)

func TestNamedBindings_Restartable(t *testing.T) {
	stream := event.Stream{
		ev("id", 1, "type", "A"), ev("id", 2, "type", "A"),
		ev("id", 3, "type", "B"), ev("id", 4, "type", "B"),
	}
	result := apply(t, `MATCH EACH AS a WHERE type = "A"; MATCH EACH AS b WHERE type = "B"`, stream)

	seq := result.NamedBindings()
	var first, second int
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	assert.Equal(t, 4, first)
	assert.Equal(t, first, second)
}

func TestNamedBindings_StopEarly(t *testing.T) {
	stream := event.Stream{ev("id", 1), ev("id", 2), ev("id", 3)}
	result := apply(t, `MATCH EACH AS a WHERE id > 0`, stream)

	var seen []Binding
	for b := range result.NamedBindings() {
		seen = append(seen, b)
		if len(seen) == 2 {
			break
		}
	}
	assert.Len(t, seen, 2)
}

func TestNamedBindings_CountMatchesCardinality(t *testing.T) {
	stream := event.Stream{
		ev("id", 1, "type", "A"), ev("id", 2, "type", "A"), ev("id", 3, "type", "A"),
		ev("id", 4, "type", "B"), ev("id", 5, "type", "B"),
		ev("id", 6, "type", "C"),
	}
	srcs := []string{
		`MATCH EACH AS a WHERE type = "A"; MATCH EACH AS b WHERE type = "B"; MATCH ALL AS c WHERE type = "C"`,
		`MATCH GROUPED BY type AS g WHERE id > 0; MATCH EACH WHERE type = "B"`,
		`MATCH ANY WHERE type = "Z"`,
	}
	for _, src := range srcs {
		result := apply(t, src, stream)
		assert.Len(t, result.Bindings(), result.Cardinality(), src)
	}
}

func TestBinding_Bound(t *testing.T) {
	stream := event.Stream{ev("id", 1, "type", "A"), ev("id", 2, "type", "A")}
	result := apply(t, `MATCH FIRST AS one WHERE type = "A"; MATCH ALL AS many WHERE type = "A"`, stream)

	bindings := result.Bindings()
	require.Len(t, bindings, 1)
	b := bindings[0]

	assert.Equal(t, []string{"many", "one"}, b.Names())

	one := b["one"]
	assert.True(t, one.IsSingle())
	e, ok := one.Event()
	require.True(t, ok)
	assert.Equal(t, event.Int(1), e.ID())

	many := b["many"]
	assert.False(t, many.IsSingle())
	_, ok = many.Event()
	assert.False(t, ok)
	assert.Len(t, many.Events(), 2)

	assert.Equal(t, event.List{event.Int(1), event.Int(2)}, b.IDs())
}

func TestBinding_Hash(t *testing.T) {
	stream := event.Stream{ev("id", 1, "type", "A"), ev("id", 2, "type", "A")}
	src := `MATCH EACH AS a WHERE type = "A"`

	first := apply(t, src, stream).Bindings()
	second := apply(t, src, stream).Bindings()
	require.Len(t, first, 2)

	h1, err := first[0].Hash()
	require.NoError(t, err)
	h2, err := second[0].Hash()
	require.NoError(t, err)
	other, err := first[1].Hash()
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "equal bindings hash equally")
	assert.NotEqual(t, h1, other)
	assert.Len(t, h1, 64)
}

func TestBlockApplication_EmptyBlock(t *testing.T) {
	result := &BlockApplication{}
	assert.True(t, result.Successful())
	assert.Equal(t, 1, result.Cardinality())
	assert.Equal(t, []Binding{{}}, result.Bindings())
}

func TestBlockApplication_Match(t *testing.T) {
	stream := event.Stream{ev("id", 1, "type", "A")}
	result := apply(t, `MATCH EACH AS a WHERE type = "A"`, stream)

	m, ok := result.Match(MatchRef{Statement: 0, Index: 0})
	require.True(t, ok)
	assert.True(t, m.Singular)

	_, ok = result.Match(MatchRef{Statement: 1, Index: 0})
	assert.False(t, ok)
	_, ok = result.Match(MatchRef{Statement: 0, Index: 5})
	assert.False(t, ok)
}
