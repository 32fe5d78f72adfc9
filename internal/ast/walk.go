package ast

// WalkSides calls fn for every Side reachable from cond, depth first in
// source order. It descends into parenthesized conditions, list literals
// and the conditions of nested value expressions. fn returning false stops
// the descent below that side.
func WalkSides(cond *Condition, fn func(Side) bool) {
	if cond == nil {
		return
	}
	walkOperand(cond.First, fn)
	for _, clause := range cond.Rest {
		walkOperand(clause.Operand, fn)
	}
}

func walkOperand(op Operand, fn func(Side) bool) {
	switch o := op.(type) {
	case *Condition:
		WalkSides(o, fn)
	case *Comparison:
		walkSide(o.Left, fn)
		walkSide(o.Right, fn)
	}
}

func walkSide(side Side, fn func(Side) bool) {
	if side == nil || !fn(side) {
		return
	}
	switch s := side.(type) {
	case *ValueExpression:
		WalkSides(s.Where, fn)
	case *ListLiteral:
		for _, elem := range s.Elements {
			walkSide(elem, fn)
		}
	}
}
