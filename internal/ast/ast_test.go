package ast

import (
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eq(field string, lit Side) *Condition {
	return &Condition{First: &Comparison{Left: &Reference{Field: field}, Op: Equals, Right: lit}}
}

func stmt(name string, join string) *Statement {
	s := &Statement{Name: name, Where: eq("type", &StringLiteral{Value: "A"})}
	if join != "" {
		s.Join = &Join{
			Target: join,
			Where: &Condition{First: &Comparison{
				Left:  &Reference{Field: "applied_to"},
				Op:    Equals,
				Right: &Reference{Subject: join, Field: "id"},
			}},
		}
	}
	return s
}

func TestSealedInterfaces(t *testing.T) {
	var _ Modifier = &Limit{}
	var _ Modifier = &Order{}
	var _ Modifier = &Cardinality{}

	var _ Operand = &Condition{}
	var _ Operand = &Comparison{}

	var _ Side = &ValueExpression{}
	var _ Side = &Reference{}

	var _ Literal = &StringLiteral{}
	var _ Literal = &IntegerLiteral{}
	var _ Literal = &FloatLiteral{}
	var _ Literal = &RegexpLiteral{}
	var _ Literal = &NullLiteral{}
	var _ Literal = &NowLiteral{}
	var _ Literal = &ListLiteral{}
	var _ Literal = &TimeDeltaLiteral{}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		block    *Block
		wantCode string
		wantName string
	}{
		{
			name:  "valid join",
			block: &Block{Statements: []*Statement{stmt("item", ""), stmt("tax", "item")}},
		},
		{
			name:  "unnamed statements may repeat",
			block: &Block{Statements: []*Statement{stmt("", ""), stmt("", "")}},
		},
		{
			name:     "duplicate name",
			block:    &Block{Statements: []*Statement{stmt("item", ""), stmt("item", "")}},
			wantCode: ErrDuplicateName,
			wantName: "item",
		},
		{
			name:     "unknown join target",
			block:    &Block{Statements: []*Statement{stmt("item", ""), stmt("tax", "order")}},
			wantCode: ErrUnknownJoin,
			wantName: "order",
		},
		{
			name:     "join to later statement",
			block:    &Block{Statements: []*Statement{stmt("tax", "item"), stmt("item", "")}},
			wantCode: ErrForwardJoin,
			wantName: "item",
		},
		{
			name:     "self join",
			block:    &Block{Statements: []*Statement{stmt("item", "item")}},
			wantCode: ErrForwardJoin,
			wantName: "item",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.block)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, IsStructuralError(err))

			var se *StructuralError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.wantCode, se.Code)
			assert.Equal(t, tt.wantName, se.Name)
		})
	}
}

func TestValidateRejectsTimeDelta(t *testing.T) {
	nested := &ValueExpression{
		Reducer: ReduceMax,
		Field:   "created_at",
		Where:   eq("age", &TimeDeltaLiteral{Amount: 3, Unit: "DAYS", Pos: Pos{Line: 1, Column: 40}}),
	}
	s := &Statement{Where: &Condition{First: &Comparison{
		Left:  &Reference{Field: "created_at"},
		Op:    GreaterThan,
		Right: nested,
	}}}

	err := Validate(&Block{Statements: []*Statement{s}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotImplemented))
	assert.False(t, IsStructuralError(err))
	assert.Contains(t, err.Error(), "3 DAYS")
}

func TestStructuralErrorMessage(t *testing.T) {
	err := &StructuralError{Code: ErrDuplicateName, Name: "x", Message: "dup", Statement: 1}
	assert.Equal(t, "[E201] statement 2: dup", err.Error())

	wrapped := fmt.Errorf("apply: %w", err)
	assert.True(t, IsStructuralError(wrapped))
	assert.False(t, IsStructuralError(errors.New("other")))
}

func TestBlockNames(t *testing.T) {
	b := &Block{Statements: []*Statement{stmt("a", ""), stmt("", ""), stmt("b", "a")}}
	assert.Equal(t, []string{"a", "b"}, b.Names())
	assert.True(t, b.Statements[2].IsJoin())
	assert.False(t, b.Statements[0].IsJoin())
}

func TestOperatorStrings(t *testing.T) {
	assert.Equal(t, "AND", And.String())
	assert.Equal(t, "OR", Or.String())
	assert.Equal(t, "DOES NOT INCLUDE", NotIncludes.String())
	assert.Equal(t, "=~", Matches.String())
	assert.Equal(t, "ComparativeOp(99)", ComparativeOp(99).String())
	assert.Equal(t, "UNION", ReduceUnion.String())
	assert.Equal(t, "GROUPED BY", CardinalityGroupedBy.String())
	assert.Equal(t, "LAST", LimitLast.String())

	assert.True(t, LessThanOrEqual.IsOrdering())
	assert.False(t, Equals.IsOrdering())
}

func TestFormat(t *testing.T) {
	item := &Statement{
		Name:      "item",
		Modifiers: []Modifier{&Cardinality{Kind: CardinalityEach}},
		Where:     eq("type", &StringLiteral{Value: "ItemSelected"}),
	}
	tax := &Statement{
		Name: "tax",
		Modifiers: []Modifier{
			&Limit{Kind: LimitFirst, Count: 1},
			&Order{Field: "id", Descending: true},
			&Cardinality{Kind: CardinalityGroupedBy, Field: "applied_to"},
		},
		Where: &Condition{
			First: &Comparison{Left: &Reference{Field: "type"}, Op: In, Right: &ListLiteral{Elements: []Literal{
				&StringLiteral{Value: `Tax"Entry`},
				&IntegerLiteral{Value: -2},
				&FloatLiteral{Value: 3},
				&NullLiteral{},
			}}},
			Rest: []Clause{
				{Op: And, Operand: &Condition{
					First: &Comparison{Left: &Reference{Field: "label"}, Op: Matches, Right: &RegexpLiteral{Value: regexp.MustCompile(`^Sp+`)}},
					Rest: []Clause{{Op: Or, Operand: &Comparison{
						Left: &Reference{Field: "amount"},
						Op:   LessThan,
						Right: &ValueExpression{
							Reducer: ReduceSum,
							Subset:  []Modifier{&Limit{Kind: LimitLast, Count: 2, Explicit: true}},
							Field:   "amount",
							Where:   eq("applied_to", &Reference{Escapes: 1, Field: "id"}),
						},
					}}},
				}},
				{Op: Or, Operand: &Comparison{Left: &Reference{Field: "created_at"}, Op: LessThanOrEqual, Right: &NowLiteral{}}},
			},
		},
		Join: &Join{
			Target: "item",
			Where:  eq("applied_to", &Reference{Subject: "item", Field: "id"}),
		},
	}

	got := Format(&Block{Statements: []*Statement{item, tax}})

	want := `MATCH EACH AS item WHERE type = "ItemSelected";` + "\n" +
		`MATCH FIRST BY id DESCENDING GROUPED BY applied_to AS tax WHERE type IN ["Tax\"Entry", -2, 3.0, NULL]` +
		` AND (label =~ /^Sp+/ OR amount < (SUM LAST 2 amount WHERE applied_to = ^id))` +
		` OR created_at <= NOW JOINING item WHERE applied_to = item.id;`
	assert.Equal(t, want, got)
}

func TestQuoteString(t *testing.T) {
	assert.Equal(t, `"a\\b\"c\n"`, QuoteString("a\\b\"c\n"))
}
