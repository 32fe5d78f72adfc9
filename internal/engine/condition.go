package engine

import (
	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/event"
)

// test evaluates cond for the candidate at the head of sc.
//
// Operands combine left to right without precedence. When the running
// result is false, the operand after an AND is skipped entirely.
func (ev *evaluator) test(cond *ast.Condition, sc *scope) bool {
	result := ev.operand(cond.First, sc)
	for _, clause := range cond.Rest {
		switch clause.Op {
		case ast.And:
			if !result {
				continue
			}
			result = ev.operand(clause.Operand, sc)
		case ast.Or:
			right := ev.operand(clause.Operand, sc)
			result = result || right
		}
	}
	return result
}

func (ev *evaluator) operand(op ast.Operand, sc *scope) bool {
	switch o := op.(type) {
	case *ast.Condition:
		return ev.test(o, sc)
	case *ast.Comparison:
		left := ev.resolve(o.Left, sc)
		right := ev.resolve(o.Right, sc)
		return compare(o.Op, left, right)
	default:
		return false
	}
}

// resolve produces the value of one side of a comparison.
func (ev *evaluator) resolve(side ast.Side, sc *scope) event.Value {
	switch s := side.(type) {
	case *ast.Reference:
		if s.Subject != "" && sc.subject != nil {
			return sc.subject.Get(s.Field)
		}
		e, ok := sc.lookup(s.Escapes)
		if !ok {
			return event.Null{}
		}
		return e.Get(s.Field)
	case *ast.ValueExpression:
		return ev.valueExpression(s, sc)
	case ast.Literal:
		return ev.literal(s)
	default:
		return event.Null{}
	}
}

func (ev *evaluator) literal(lit ast.Literal) event.Value {
	switch l := lit.(type) {
	case *ast.StringLiteral:
		return event.String(l.Value)
	case *ast.IntegerLiteral:
		return event.Int(l.Value)
	case *ast.FloatLiteral:
		return event.Float(l.Value)
	case *ast.RegexpLiteral:
		return event.Regexp{Regexp: l.Value}
	case *ast.NullLiteral:
		return event.Null{}
	case *ast.NowLiteral:
		return ev.now
	case *ast.ListLiteral:
		list := make(event.List, len(l.Elements))
		for i, elem := range l.Elements {
			list[i] = ev.literal(elem)
		}
		return list
	case *ast.TimeDeltaLiteral:
		// Rejected by ast.Validate before evaluation starts.
		return event.Null{}
	default:
		return event.Null{}
	}
}

// valueExpression evaluates a nested sub-query with the current candidate
// pushed on the scope chain. Uncorrelated expressions are memoized for the
// rest of the application.
func (ev *evaluator) valueExpression(ve *ast.ValueExpression, sc *scope) event.Value {
	cacheable := ev.cache != nil && !ve.Correlated
	if cacheable {
		if v, ok := ev.cache[ve]; ok {
			ev.stats.CacheHits++
			return v
		}
	}
	ev.stats.SubqueryEvaluations++

	events := ev.filter(ve.Where, sc, sc.subject)
	if len(ve.Subset) > 0 {
		selected, _ := ev.selectMatches(ve.Subset, []Match{{Events: events}})
		events = selected[0].Events
	}

	values := make(event.List, len(events))
	for i, e := range events {
		values[i] = e.Get(ve.Field)
	}

	var result event.Value = values
	if ve.Reducer != ast.ReduceNone {
		result = reduce(ve.Reducer, values)
	}

	if cacheable {
		ev.cache[ve] = result
	}
	return result
}
