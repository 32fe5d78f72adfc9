package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/event"
)

func emittedStream() event.Stream {
	return event.Stream{
		event.MustFromMap(map[string]any{"id": "e1", "type": "TaxEntry", "applied_to": 1, "rate": 2}),
		event.MustFromMap(map[string]any{"id": "e2", "type": "Audit", "tax": "e1"}),
		event.MustFromMap(map[string]any{"id": "e3", "type": "TaxEntry", "applied_to": 2, "rate": 2}),
	}
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	result := &Result{
		Emitted:  emittedStream(),
		Bindings: []map[string]any{{"item": int64(1), "tax": []any{int64(4)}}},
	}
	assertions := []Assertion{
		{Type: AssertEmittedContains, EventType: "TaxEntry", Attrs: map[string]any{"applied_to": 2}},
		{Type: AssertEmittedCount, EventType: "TaxEntry", Count: 2},
		{Type: AssertEmittedCount, EventType: "Missing", Count: 0},
		{Type: AssertEmittedOrder, Types: []string{"TaxEntry", "Audit"}},
		{Type: AssertBindingContains, Binding: map[string]any{"tax": []any{4}}},
	}

	assert.Empty(t, EvaluateAssertions(result, assertions))
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	result := &Result{
		Emitted:  emittedStream(),
		Bindings: []map[string]any{{"item": int64(1)}},
	}

	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{
			name:      "contains wrong value",
			assertion: Assertion{Type: AssertEmittedContains, EventType: "TaxEntry", Attrs: map[string]any{"applied_to": 3}},
			want:      "not emitted",
		},
		{
			name:      "contains wrong type",
			assertion: Assertion{Type: AssertEmittedContains, EventType: "Audit", Attrs: map[string]any{"rate": 2}},
			want:      "Audit event with",
		},
		{
			name:      "count",
			assertion: Assertion{Type: AssertEmittedCount, EventType: "Audit", Count: 2},
			want:      "Actual: 1 events",
		},
		{
			name:      "order reversed",
			assertion: Assertion{Type: AssertEmittedOrder, Types: []string{"Audit", "TaxEntry"}},
			want:      "Audit (pos 2) should be before TaxEntry (pos 1)",
		},
		{
			name:      "order missing type",
			assertion: Assertion{Type: AssertEmittedOrder, Types: []string{"TaxEntry", "Refund"}},
			want:      "missing type: Refund",
		},
		{
			name:      "binding",
			assertion: Assertion{Type: AssertBindingContains, Binding: map[string]any{"item": 2}},
			want:      "binding with",
		},
		{
			name:      "unknown",
			assertion: Assertion{Type: "trace_order"},
			want:      `unknown assertion type "trace_order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := EvaluateAssertions(result, []Assertion{tt.assertion})
			require.Len(t, failures, 1)
			assert.Contains(t, failures[0], tt.want)
		})
	}
}

func TestAssertionError_ListsEmitted(t *testing.T) {
	err := &AssertionError{
		Type:     AssertEmittedCount,
		Expected: "1 Audit events",
		Actual:   "0 events",
		Emitted:  emittedStream()[:1],
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: emitted_count")
	assert.Contains(t, msg, "Emitted events:")
	assert.Contains(t, msg, "[1]")
}

func TestMatchFields(t *testing.T) {
	actual := map[string]any{"item": int64(1), "tax": []any{int64(4), int64(5)}}

	assert.True(t, matchFields(actual, map[string]any{"item": 1}, false))
	assert.False(t, matchFields(actual, map[string]any{"item": 1}, true))
	assert.True(t, matchFields(actual, map[string]any{"item": 1, "tax": []any{4, 5}}, true))
	assert.False(t, matchFields(actual, map[string]any{"tax": []any{5, 4}}, false))
	assert.False(t, matchFields(actual, map[string]any{"missing": nil}, false))
	assert.False(t, matchFields(actual, map[string]any{"item": map[string]any{}}, false))
}
