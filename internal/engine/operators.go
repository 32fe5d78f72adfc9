package engine

import (
	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/event"
)

// compare applies a comparative operator. Type mismatches are false,
// never errors.
func compare(op ast.ComparativeOp, left, right event.Value) bool {
	switch op {
	case ast.Equals:
		return event.Equal(left, right)
	case ast.NotEquals:
		return !event.Equal(left, right)
	case ast.GreaterThan, ast.GreaterThanOrEqual, ast.LessThan, ast.LessThanOrEqual:
		c, ok := event.Compare(left, right)
		if !ok {
			return false
		}
		switch op {
		case ast.GreaterThan:
			return c > 0
		case ast.GreaterThanOrEqual:
			return c >= 0
		case ast.LessThan:
			return c < 0
		default:
			return c <= 0
		}
	case ast.Matches:
		return matches(left, right)
	case ast.In:
		return event.IsCollection(right) && event.Contains(right, left)
	case ast.NotIn:
		return event.IsCollection(right) && !event.Contains(right, left)
	case ast.Includes:
		return event.IsCollection(left) && event.Contains(left, right)
	case ast.NotIncludes:
		return event.IsCollection(left) && !event.Contains(left, right)
	case ast.Intersects:
		return len(event.Intersection(left, right)) > 0
	case ast.Disjoint:
		if !bothLists(left, right) {
			return false
		}
		return len(event.Intersection(left, right)) == 0
	default:
		return false
	}
}

// matches accepts the pattern on either side.
func matches(left, right event.Value) bool {
	if re, ok := right.(event.Regexp); ok && re.Regexp != nil {
		s, ok := left.(event.String)
		return ok && re.MatchString(string(s))
	}
	if re, ok := left.(event.Regexp); ok && re.Regexp != nil {
		s, ok := right.(event.String)
		return ok && re.MatchString(string(s))
	}
	return false
}

func bothLists(a, b event.Value) bool {
	_, aok := a.(event.List)
	_, bok := b.(event.List)
	return aok && bok
}

// reduce folds the projected values of a value expression.
func reduce(op ast.ReductiveOp, values event.List) event.Value {
	switch op {
	case ast.ReduceMax:
		return extreme(values, 1, event.NegativeInfinity())
	case ast.ReduceMin:
		return extreme(values, -1, event.PositiveInfinity())
	case ast.ReduceSum:
		return sum(values)
	case ast.ReduceCount:
		return event.Int(len(values))
	case ast.ReduceUnion:
		return union(values)
	default:
		return values
	}
}

// extreme returns the greatest (sign 1) or least (sign -1) value. Nulls
// and values that do not order against the current best are skipped.
func extreme(values event.List, sign int, empty event.Value) event.Value {
	var best event.Value
	for _, v := range values {
		if event.IsNull(v) {
			continue
		}
		if best == nil {
			if _, ok := event.Compare(v, v); ok {
				best = v
			}
			continue
		}
		if c, ok := event.Compare(v, best); ok && c*sign > 0 {
			best = v
		}
	}
	if best == nil {
		return empty
	}
	return best
}

// sum adds the numeric values. The total stays Int until a Float is seen.
func sum(values event.List) event.Value {
	var (
		total   int64
		ftotal  float64
		isFloat bool
	)
	for _, v := range values {
		switch n := v.(type) {
		case event.Int:
			total += int64(n)
			ftotal += float64(n)
		case event.Float:
			ftotal += float64(n)
			isFloat = true
		}
	}
	if isFloat {
		return event.Float(ftotal)
	}
	return event.Int(total)
}

// union flattens list values into one list without duplicates, keeping
// first appearance order.
func union(values event.List) event.Value {
	out := event.List{}
	add := func(v event.Value) {
		if event.IsNull(v) || event.Contains(out, v) {
			return
		}
		out = append(out, v)
	}
	for _, v := range values {
		if list, ok := v.(event.List); ok {
			for _, elem := range list {
				add(elem)
			}
			continue
		}
		add(v)
	}
	return out
}
