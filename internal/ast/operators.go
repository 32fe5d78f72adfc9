package ast

import "fmt"

// LogicalOp combines two condition operands.
type LogicalOp int

const (
	And LogicalOp = iota
	Or
)

func (op LogicalOp) String() string {
	switch op {
	case And:
		return "AND"
	case Or:
		return "OR"
	default:
		return fmt.Sprintf("LogicalOp(%d)", int(op))
	}
}

// ComparativeOp compares two values.
type ComparativeOp int

const (
	Equals ComparativeOp = iota
	NotEquals
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
	Matches     // regular expression match against a string
	In          // left is an element of right
	NotIn       // left is not an element of right
	Includes    // right is an element of left
	NotIncludes // right is not an element of left
	Intersects  // non-empty intersection
	Disjoint    // empty intersection
)

var comparativeSymbols = [...]string{
	Equals:             "=",
	NotEquals:          "!=",
	GreaterThan:        ">",
	GreaterThanOrEqual: ">=",
	LessThan:           "<",
	LessThanOrEqual:    "<=",
	Matches:            "=~",
	In:                 "IN",
	NotIn:              "NOT IN",
	Includes:           "INCLUDES",
	NotIncludes:        "DOES NOT INCLUDE",
	Intersects:         "INTERSECTS",
	Disjoint:           "DISJOINT",
}

// String returns the canonical source spelling of the operator.
func (op ComparativeOp) String() string {
	if op >= 0 && int(op) < len(comparativeSymbols) {
		return comparativeSymbols[op]
	}
	return fmt.Sprintf("ComparativeOp(%d)", int(op))
}

// IsOrdering reports whether op is one of >, >=, <, <=.
func (op ComparativeOp) IsOrdering() bool {
	switch op {
	case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual:
		return true
	default:
		return false
	}
}

// ReductiveOp collapses a sequence of values into one.
type ReductiveOp int

const (
	ReduceNone ReductiveOp = iota // no reducer: the expression yields a list
	ReduceMax
	ReduceMin
	ReduceSum
	ReduceCount
	ReduceUnion
)

func (op ReductiveOp) String() string {
	switch op {
	case ReduceNone:
		return ""
	case ReduceMax:
		return "MAX"
	case ReduceMin:
		return "MIN"
	case ReduceSum:
		return "SUM"
	case ReduceCount:
		return "COUNT"
	case ReduceUnion:
		return "UNION"
	default:
		return fmt.Sprintf("ReductiveOp(%d)", int(op))
	}
}

func (k CardinalityKind) String() string {
	switch k {
	case CardinalityNone:
		return "NONE"
	case CardinalityAll:
		return "ALL"
	case CardinalityAny:
		return "ANY"
	case CardinalityEach:
		return "EACH"
	case CardinalityGroupedBy:
		return "GROUPED BY"
	default:
		return fmt.Sprintf("CardinalityKind(%d)", int(k))
	}
}

func (k LimitKind) String() string {
	switch k {
	case LimitFirst:
		return "FIRST"
	case LimitLast:
		return "LAST"
	default:
		return fmt.Sprintf("LimitKind(%d)", int(k))
	}
}
