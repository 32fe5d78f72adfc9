package ast

import (
	"regexp"
)

// Pos is a location in PQL source text.
type Pos struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based, in bytes
}

// Block is a compiled PQL program: statements in document order.
type Block struct {
	Statements []*Statement
}

// Statement (a matching expression) is one filter plus optional selection,
// naming and join clauses.
type Statement struct {
	// Name binds the statement's matches in named bindings ("" = unnamed).
	Name string

	// Modifiers are the selective modifiers in source order.
	// They are applied in reverse order (rightmost first).
	Modifiers []Modifier

	// Where filters the stream.
	Where *Condition

	// Join attaches this statement's matches to an earlier named statement.
	Join *Join

	Pos Pos
}

// IsJoin reports whether the statement joins an earlier statement.
func (s *Statement) IsJoin() bool {
	return s.Join != nil
}

// Join is the JOINING clause of a statement.
type Join struct {
	// Target is the name of an earlier statement.
	Target string

	// Where is evaluated per right-hand event with the left-hand event as
	// subject; qualified references (target.field) read from the subject.
	Where *Condition

	Pos Pos
}

// Modifier is a selective modifier: *Limit, *Order or *Cardinality.
type Modifier interface {
	modifierNode() // Marker method - seals interface to this package
}

// LimitKind selects which end of a match a Limit keeps.
type LimitKind int

const (
	LimitFirst LimitKind = iota
	LimitLast
)

// Limit keeps the first or last Count events of a match (FIRST n / LAST n).
// A Count of 1 marks the resulting match singular.
type Limit struct {
	Kind  LimitKind
	Count int

	// Explicit records whether the count was written in source.
	Explicit bool
}

func (*Limit) modifierNode() {}

// Order sorts a match's events by Field (BY field [DESCENDING]).
type Order struct {
	Field      string
	Descending bool
}

func (*Order) modifierNode() {}

// CardinalityKind is a cardinality-changing transform.
type CardinalityKind int

const (
	CardinalityNone CardinalityKind = iota
	CardinalityAll
	CardinalityAny
	CardinalityEach
	CardinalityGroupedBy
)

// Cardinality maps one match to zero, one or many matches.
type Cardinality struct {
	Kind CardinalityKind

	// Field is the grouping key for CardinalityGroupedBy.
	Field string
}

func (*Cardinality) modifierNode() {}

// Condition is a chain of operands combined left to right by logical
// operators. There is no precedence: A AND B OR C is (A AND B) OR C.
type Condition struct {
	First Operand
	Rest  []Clause
}

func (*Condition) operandNode() {}

// Clause is one (operator, operand) pair following the first operand.
type Clause struct {
	Op      LogicalOp
	Operand Operand
}

// Operand is an element of a condition chain: *Comparison or a
// parenthesized *Condition.
type Operand interface {
	operandNode() // Marker method - seals interface to this package
}

// Comparison compares two sides with a comparative operator.
type Comparison struct {
	Left  Side
	Op    ComparativeOp
	Right Side
}

func (*Comparison) operandNode() {}

// Side is one side of a comparison: a Literal, a *ValueExpression or a
// *Reference.
type Side interface {
	sideNode() // Marker method - seals interface to this package
}

// ValueExpression is a nested aggregation sub-query:
//
//	(SUM amount WHERE type IS "CreditRedeemed" AND applied_to = ^id)
//
// The filter runs over the whole stream with the enclosing candidate
// pushed on the context stack. The projected Field values are reduced by
// Reducer, or returned as a list when Reducer is ReduceNone.
type ValueExpression struct {
	Reducer ReductiveOp

	// Subset holds *Limit and *Order modifiers applied before projection.
	Subset []Modifier

	Field string
	Where *Condition

	// Correlated records whether any reference inside the expression reads
	// from an enclosing scope or a join subject. Uncorrelated expressions
	// evaluate to the same value for every candidate of one application.
	Correlated bool
}

func (*ValueExpression) sideNode() {}

// Reference reads a field from an event in scope.
//
// Escapes counts the ^ markers: 0 reads the current candidate, 1 the
// immediately enclosing candidate, and so on. Subject is set for qualified
// references (name.field) which, inside a join condition, read the
// left-hand subject event instead of the context stack.
type Reference struct {
	Escapes int
	Subject string
	Field   string
}

func (*Reference) sideNode() {}

// Literal is a static value.
type Literal interface {
	Side
	literalNode() // Marker method - seals interface to this package
}

// StringLiteral is a quoted string; Value excludes the quotes.
type StringLiteral struct{ Value string }

// IntegerLiteral is an integer.
type IntegerLiteral struct{ Value int64 }

// FloatLiteral is a decimal number.
type FloatLiteral struct{ Value float64 }

// RegexpLiteral is a /pattern/ regular expression compiled at parse time.
type RegexpLiteral struct{ Value *regexp.Regexp }

// NullLiteral is NULL.
type NullLiteral struct{}

// NowLiteral is NOW; it evaluates to the application's current instant.
type NowLiteral struct{}

// ListLiteral is [a, b, ...].
type ListLiteral struct{ Elements []Literal }

// TimeDeltaLiteral is a duration such as 3 DAYS. It has no defined value:
// compiling a block that contains one fails with ErrNotImplemented.
type TimeDeltaLiteral struct {
	Amount int64
	Unit   string
	Pos    Pos
}

func (*StringLiteral) sideNode()    {}
func (*IntegerLiteral) sideNode()   {}
func (*FloatLiteral) sideNode()     {}
func (*RegexpLiteral) sideNode()    {}
func (*NullLiteral) sideNode()      {}
func (*NowLiteral) sideNode()       {}
func (*ListLiteral) sideNode()      {}
func (*TimeDeltaLiteral) sideNode() {}

func (*StringLiteral) literalNode()    {}
func (*IntegerLiteral) literalNode()   {}
func (*FloatLiteral) literalNode()     {}
func (*RegexpLiteral) literalNode()    {}
func (*NullLiteral) literalNode()      {}
func (*NowLiteral) literalNode()       {}
func (*ListLiteral) literalNode()      {}
func (*TimeDeltaLiteral) literalNode() {}

// Names returns the statement names in document order, skipping unnamed ones.
func (b *Block) Names() []string {
	var names []string
	for _, s := range b.Statements {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}
