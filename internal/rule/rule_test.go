package rule

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/engine"
	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/parser"
)

const eachItem = `MATCH EACH AS item WHERE type IS "ItemSelected";`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ev(kv ...any) event.Event {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return event.MustFromMap(m)
}

func selected(ids ...int) event.Stream {
	s := make(event.Stream, len(ids))
	for i, id := range ids {
		s[i] = ev("id", id, "type", "ItemSelected", "price", id*10)
	}
	return s
}

func taxRule(t *testing.T, opts ...Option) *Rule {
	t.Helper()
	r, err := New(Config{
		Name:        "tax",
		Description: "tax selected items",
		Pattern:     eachItem,
		Emit: []EmitTemplate{{
			Type: "TaxEntry",
			Set:  map[string]event.Value{"rate": event.Float(0.2)},
			Bind: map[string]string{"applied_to": "item", "base": "item.price"},
		}},
	}, append([]Option{WithLogger(discardLogger())}, opts...)...)
	require.NoError(t, err)
	return r
}

func TestNew_Errors(t *testing.T) {
	noop := WithAction(func(engine.Binding, *Entry) error { return nil })

	t.Run("missing name", func(t *testing.T) {
		_, err := New(Config{Pattern: eachItem}, noop)
		assert.Error(t, err)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := New(Config{Name: "r", Pattern: `MATCH EACH WHERE`}, noop)
		require.Error(t, err)
		assert.True(t, parser.IsSyntaxError(err))
	})

	t.Run("structural error", func(t *testing.T) {
		_, err := New(Config{Name: "r", Pattern: `MATCH ALL AS a WHERE x = 1; MATCH ALL AS a WHERE y = 2`}, noop)
		require.Error(t, err)
		assert.True(t, ast.IsStructuralError(err))
	})

	t.Run("no action", func(t *testing.T) {
		_, err := New(Config{Name: "r", Pattern: eachItem})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no action")
	})

	t.Run("bad bind path", func(t *testing.T) {
		_, err := New(Config{
			Name:    "r",
			Pattern: eachItem,
			Emit:    []EmitTemplate{{Type: "T", Bind: map[string]string{"x": "item."}}},
		})
		assert.Error(t, err)
	})
}

func TestRule_ApplyTemplates(t *testing.T) {
	r := taxRule(t, WithIDGenerator(NewFixedGenerator("entry-1", "tax-1", "entry-2", "tax-2")))

	entries, err := r.Apply(selected(1, 2))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "entry-1", first.ID)
	assert.Equal(t, "tax selected items", first.Description)
	assert.Equal(t, event.List{event.Int(1)}, first.Cause)
	require.Len(t, first.Events, 1)

	tax := first.Events[0]
	assert.Equal(t, event.String("tax-1"), tax.ID())
	assert.Equal(t, "TaxEntry", tax.Type())
	assert.Equal(t, event.Int(1), tax.Get("applied_to"))
	assert.Equal(t, event.Int(10), tax.Get("base"))
	assert.Equal(t, event.Float(0.2), tax.Get("rate"))
	assert.Equal(t, event.List{event.Int(1)}, tax.Get(event.FieldCausedBy))

	assert.Equal(t, "entry-2", entries[1].ID)
	assert.Equal(t, event.Int(2), entries[1].Events[0].Get("applied_to"))
}

func TestRule_ApplyListBinding(t *testing.T) {
	r, err := New(Config{
		Name:    "total",
		Pattern: `MATCH ALL AS items WHERE type IS "ItemSelected";`,
		Emit: []EmitTemplate{{
			Type: "Total",
			Bind: map[string]string{"items": "items", "prices": "items.price"},
		}},
	}, WithIDGenerator(NewFixedGenerator("entry-1", "total-1")), WithLogger(discardLogger()))
	require.NoError(t, err)

	entries, err := r.Apply(selected(1, 2))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	total := entries[0].Events[0]
	assert.Equal(t, event.List{event.Int(1), event.Int(2)}, total.Get("items"))
	assert.Equal(t, event.List{event.Int(10), event.Int(20)}, total.Get("prices"))
	assert.Equal(t, event.List{event.Int(1), event.Int(2)}, total.Get(event.FieldCausedBy))
}

func TestRule_ApplyContextAndTaxonomy(t *testing.T) {
	r, err := New(Config{
		Name:    "tax",
		Pattern: eachItem,
		Emit:    []EmitTemplate{{Type: "Refund"}},
	}, WithTaxonomy(testTaxonomy(t)), WithIDGenerator(NewFixedGenerator("entry-1", "e-1")))
	require.NoError(t, err)

	_, err = r.Apply(selected(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in taxonomy")

	r, err = New(Config{
		Name:    "tax",
		Pattern: eachItem,
		Emit:    []EmitTemplate{{Type: "TaxEntry"}},
		Context: map[string]event.Value{"ledger": event.String("main")},
	}, WithTaxonomy(testTaxonomy(t)), WithIDGenerator(NewFixedGenerator("entry-1", "e-1")))
	require.NoError(t, err)

	entries, err := r.Apply(selected(1))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, event.String("main"), entries[0].Events[0].Get("ledger"))
}

func TestRule_ApplyAction(t *testing.T) {
	var seen []event.List
	r, err := New(Config{Name: "odd", Pattern: eachItem},
		WithIDGenerator(UUIDv7Generator{}),
		WithAction(func(b engine.Binding, e *Entry) error {
			seen = append(seen, b.IDs())
			item, _ := b["item"].Event()
			if item.ID() == event.Int(2) {
				return nil
			}
			_, err := e.Emit("Odd", map[string]event.Value{"item": item.ID()})
			return err
		}))
	require.NoError(t, err)

	entries, err := r.Apply(selected(1, 2, 3))
	require.NoError(t, err)

	assert.Len(t, seen, 3, "action runs once per binding")
	require.Len(t, entries, 2, "bindings emitting nothing produce no entry")
	assert.Equal(t, event.Int(1), entries[0].Events[0].Get("item"))
	assert.Equal(t, event.Int(3), entries[1].Events[0].Get("item"))
}

func TestRule_ApplyActionError(t *testing.T) {
	boom := errors.New("boom")
	r, err := New(Config{Name: "fail", Pattern: eachItem},
		WithAction(func(engine.Binding, *Entry) error { return boom }))
	require.NoError(t, err)

	_, err = r.Apply(selected(1))
	assert.ErrorIs(t, err, boom)
}

func TestRule_ApplyUnboundPath(t *testing.T) {
	r, err := New(Config{
		Name:    "r",
		Pattern: eachItem,
		Emit:    []EmitTemplate{{Type: "T", Bind: map[string]string{"x": "missing.id"}}},
	}, WithIDGenerator(NewFixedGenerator("entry-1")))
	require.NoError(t, err)

	_, err = r.Apply(selected(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"missing" is not bound`)
}

func TestRule_ApplyUnattachedJoin(t *testing.T) {
	r, err := New(Config{
		Name: "audit-tax",
		Pattern: `MATCH EACH AS item WHERE type IS "ItemSelected";
			MATCH EACH AS tax WHERE type IS "TaxEntry" JOINING item WHERE applied_to = item.id;
			MATCH ANY AS credits WHERE type IS "CreditEntry" JOINING item WHERE applied_to = item.id;`,
		Emit: []EmitTemplate{{
			Type: "Audit",
			Bind: map[string]string{
				"item":    "item",
				"tax":     "tax",
				"rate":    "tax.rate",
				"credits": "credits.id",
			},
		}},
	}, WithIDGenerator(NewFixedGenerator("entry-1", "audit-1", "entry-2", "audit-2")), WithLogger(discardLogger()))
	require.NoError(t, err)

	stream := append(selected(1, 2), ev("id", 3, "type", "TaxEntry", "applied_to", 1, "rate", 0.2))
	entries, err := r.Apply(stream)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	attached := entries[0].Events[0]
	assert.Equal(t, event.Int(1), attached.Get("item"))
	assert.Equal(t, event.Int(3), attached.Get("tax"))
	assert.Equal(t, event.Float(0.2), attached.Get("rate"))

	unattached := entries[1].Events[0]
	assert.Equal(t, event.Int(2), unattached.Get("item"))
	assert.Equal(t, event.Null{}, unattached.Get("tax"))
	assert.Equal(t, event.Null{}, unattached.Get("rate"))
	assert.Equal(t, event.List{event.Int(2)}, entries[1].Cause)
}

func TestNamedStatements(t *testing.T) {
	block, err := parser.Compile(`MATCH EACH AS a WHERE type IS "A";
		MATCH ALL AS b WHERE type IS "B";
		MATCH FIRST AS c WHERE type IS "C";
		MATCH GROUPED BY kind AS d WHERE type IS "D";
		MATCH ANY WHERE type IS "E";`)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"a": true, "b": false, "c": true, "d": false}, namedStatements(block))
}

func TestRule_ApplyUnsuccessful(t *testing.T) {
	r, err := New(Config{
		Name:    "none",
		Pattern: `MATCH NONE WHERE type IS "ItemSelected";`,
		Emit:    []EmitTemplate{{Type: "Empty"}},
	})
	require.NoError(t, err)

	entries, err := r.Apply(selected(1))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
