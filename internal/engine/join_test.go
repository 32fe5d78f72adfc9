package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/event"
)

func joinSource(cardinality string) string {
	return `MATCH EACH AS item WHERE type IS "ItemSelected";
		MATCH ` + cardinality + ` AS tax WHERE type IS "TaxEntry" JOINING item WHERE applied_to = item.id;`
}

func items(ids ...int) event.Stream {
	s := make(event.Stream, len(ids))
	for i, id := range ids {
		s[i] = ev("id", id, "type", "ItemSelected")
	}
	return s
}

func tax(id, appliedTo any) event.Event {
	return ev("id", id, "type", "TaxEntry", "applied_to", appliedTo)
}

func TestJoin_NoRightEvents(t *testing.T) {
	stream := items(1, 2)

	for _, card := range []string{"EACH", "ALL"} {
		t.Run(card, func(t *testing.T) {
			result := apply(t, joinSource(card), stream)
			assert.False(t, result.Successful())
			assert.Empty(t, result.Bindings())
		})
	}

	t.Run("ANY", func(t *testing.T) {
		result := apply(t, joinSource("ANY"), stream)
		assert.True(t, result.Successful())
		assert.Equal(t, 2, result.Cardinality())
		assert.Equal(t, []map[string]any{
			{"item": int64(1), "tax": []any{}},
			{"item": int64(2), "tax": []any{}},
		}, summary(result.Bindings()))
	})
}

func TestJoin_EqualNumbers(t *testing.T) {
	stream := append(items(1, 2), tax(3, 1), tax(4, 2))

	tests := []struct {
		card string
		want []map[string]any
	}{
		{"EACH", []map[string]any{
			{"item": int64(1), "tax": int64(3)},
			{"item": int64(2), "tax": int64(4)},
		}},
		{"ALL", []map[string]any{
			{"item": int64(1), "tax": []any{int64(3)}},
			{"item": int64(2), "tax": []any{int64(4)}},
		}},
		{"ANY", []map[string]any{
			{"item": int64(1), "tax": []any{int64(3)}},
			{"item": int64(2), "tax": []any{int64(4)}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.card, func(t *testing.T) {
			result := apply(t, joinSource(tt.card), stream)
			assert.True(t, result.Successful())
			assert.Equal(t, 2, result.Cardinality())
			assert.Equal(t, tt.want, summary(result.Bindings()))
		})
	}
}

func TestJoin_MoreOnLeft(t *testing.T) {
	stream := append(items(1, 2, 3), tax(4, 1), tax(5, 2))

	tests := []struct {
		card string
		want []map[string]any
	}{
		{"EACH", []map[string]any{
			{"item": int64(1), "tax": int64(4)},
			{"item": int64(2), "tax": int64(5)},
			{"item": int64(3)},
		}},
		{"ALL", []map[string]any{
			{"item": int64(1), "tax": []any{int64(4)}},
			{"item": int64(2), "tax": []any{int64(5)}},
			{"item": int64(3)},
		}},
		{"ANY", []map[string]any{
			{"item": int64(1), "tax": []any{int64(4)}},
			{"item": int64(2), "tax": []any{int64(5)}},
			{"item": int64(3)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.card, func(t *testing.T) {
			result := apply(t, joinSource(tt.card), stream)
			assert.True(t, result.Successful())
			assert.Equal(t, 3, result.Cardinality())
			assert.Equal(t, tt.want, summary(result.Bindings()))
		})
	}
}

func TestJoin_MoreOnRight(t *testing.T) {
	stream := append(items(1, 2), tax(3, 1), tax(4, 2), tax(5, nil))

	result := apply(t, joinSource("EACH"), stream)
	assert.Equal(t, 2, result.Cardinality())
	assert.Equal(t, []map[string]any{
		{"item": int64(1), "tax": int64(3)},
		{"item": int64(2), "tax": int64(4)},
	}, summary(result.Bindings()))

	result = apply(t, joinSource("ALL"), stream)
	assert.Equal(t, []map[string]any{
		{"item": int64(1), "tax": []any{int64(3)}},
		{"item": int64(2), "tax": []any{int64(4)}},
	}, summary(result.Bindings()))
}

func TestJoin_Multiple(t *testing.T) {
	stream := append(items(1, 2),
		tax(3, 1), tax(4, 2),
		ev("id", 5, "type", "CreditEntry", "applied_to", 1),
		ev("id", 6, "type", "CreditEntry", "applied_to", 2),
	)
	src := `
		MATCH EACH AS item WHERE type IS "ItemSelected";
		MATCH EACH AS tax WHERE type IS "TaxEntry" JOINING item WHERE applied_to = item.id;
		MATCH EACH AS credit WHERE type IS "CreditEntry" JOINING item WHERE applied_to = item.id;
	`
	result := apply(t, src, stream)

	assert.Equal(t, 2, result.Cardinality())
	assert.Equal(t, []map[string]any{
		{"item": int64(1), "tax": int64(3), "credit": int64(5)},
		{"item": int64(2), "tax": int64(4), "credit": int64(6)},
	}, summary(result.Bindings()))
}

func TestJoin_Chained(t *testing.T) {
	stream := append(items(1),
		tax(2, 1),
		ev("id", 3, "type", "TaxRefund", "tax_id", 2),
	)
	src := `
		MATCH EACH AS item WHERE type IS "ItemSelected";
		MATCH EACH AS tax WHERE type IS "TaxEntry" JOINING item WHERE applied_to = item.id;
		MATCH EACH AS refund WHERE type IS "TaxRefund" JOINING tax WHERE tax_id = tax.id;
	`
	result := apply(t, src, stream)

	require.True(t, result.Successful())
	assert.Equal(t, []map[string]any{
		{"item": int64(1), "tax": int64(2), "refund": int64(3)},
	}, summary(result.Bindings()))

	refund := result.Applications[2].Matches[0]
	require.NotNil(t, refund.Join)
	assert.Equal(t, MatchRef{Statement: 1, Index: 0}, *refund.Join)
}

func TestJoin_ComplexSelection(t *testing.T) {
	stream := append(items(1, 2, 3),
		tax(4, 1), tax(5, 2), tax(6, 1), tax(7, 2),
	)
	src := `
		MATCH EACH AS item WHERE type IS "ItemSelected";
		MATCH FIRST IN ORDER BY id GROUPED BY applied_to AS tax WHERE type IS "TaxEntry" JOINING item WHERE applied_to = item.id;
	`
	result := apply(t, src, stream)

	assert.True(t, result.Successful())
	assert.Equal(t, 3, result.Cardinality())
	assert.Equal(t, []map[string]any{
		{"item": int64(1), "tax": int64(4)},
		{"item": int64(2), "tax": int64(5)},
		{"item": int64(3)},
	}, summary(result.Bindings()))
}

func TestJoin_SubjectInsideValueExpression(t *testing.T) {
	stream := append(items(1, 2),
		tax(3, 1),
		ev("id", 4, "type", "Limit", "item", 1, "max", 1),
	)
	src := `
		MATCH EACH AS item WHERE type IS "ItemSelected";
		MATCH EACH AS tax WHERE type IS "TaxEntry" JOINING item WHERE
			applied_to = item.id AND (COUNT id WHERE type = "Limit" AND item = item.id) = 1;
	`
	result := apply(t, src, stream)

	assert.Equal(t, []map[string]any{
		{"item": int64(1), "tax": int64(3)},
		{"item": int64(2)},
	}, summary(result.Bindings()))
}
