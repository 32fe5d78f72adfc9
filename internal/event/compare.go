package event

import (
	"cmp"
	"strings"
	"time"
)

// Equal reports whether two values are equal.
//
// Int and Float compare numerically (1 = 1.0). Null equals only Null.
// Lists are equal element-wise, regular expressions by source text.
// Values of unrelated types are never equal.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}

	if x, ok := numeric(a); ok {
		y, ok := numeric(b)
		if !ok {
			return false
		}
		if ai, aok := a.(Int); aok {
			if bi, bok := b.(Int); bok {
				return ai == bi
			}
		}
		return x == y
	}

	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Regexp:
		bv, ok := b.(Regexp)
		if !ok || av.Regexp == nil || bv.Regexp == nil {
			return ok && av.Regexp == bv.Regexp
		}
		return av.String() == bv.String()
	case Time:
		bv, ok := b.(Time)
		return ok && av.Equal(bv.Time)
	default:
		return false
	}
}

// Compare orders two values.
//
// The boolean result is false when the pair has no ordering: the left
// operand is not ordinal (Null, Bool, List, Regexp) or the operands are of
// incompatible kinds. Callers treat an unordered pair as "condition not met"
// rather than an error.
//
// Ordinal pairs: numeric/numeric, String/String, Time/Time, and Time against
// an RFC 3339 String in either position.
func Compare(a, b Value) (int, bool) {
	if x, ok := numeric(a); ok {
		y, ok := numeric(b)
		if !ok {
			return 0, false
		}
		ai, aok := a.(Int)
		bi, bok := b.(Int)
		if aok && bok {
			return cmp.Compare(ai, bi), true
		}
		if x != x || y != y {
			return 0, false
		}
		return cmp.Compare(x, y), true
	}

	switch av := a.(type) {
	case String:
		switch bv := b.(type) {
		case String:
			return strings.Compare(string(av), string(bv)), true
		case Time:
			at, ok := parseTime(string(av))
			if !ok {
				return 0, false
			}
			return at.Compare(bv.Time), true
		}
	case Time:
		switch bv := b.(type) {
		case Time:
			return av.Compare(bv.Time), true
		case String:
			bt, ok := parseTime(string(bv))
			if !ok {
				return 0, false
			}
			return av.Compare(bt), true
		}
	}
	return 0, false
}

// Contains reports whether collection holds member.
//
// A List contains any element Equal to member; a String contains a String
// member as a substring. Any other collection contains nothing.
func Contains(collection, member Value) bool {
	switch c := collection.(type) {
	case List:
		for _, elem := range c {
			if Equal(elem, member) {
				return true
			}
		}
		return false
	case String:
		m, ok := member.(String)
		return ok && strings.Contains(string(c), string(m))
	default:
		return false
	}
}

// IsCollection reports whether v can be searched by Contains.
func IsCollection(v Value) bool {
	switch v.(type) {
	case List, String:
		return true
	default:
		return false
	}
}

// Intersection returns the elements of a that also appear in b, without
// duplicates, in first-seen order. Non-list operands yield nil.
func Intersection(a, b Value) List {
	al, ok := a.(List)
	if !ok {
		return nil
	}
	bl, ok := b.(List)
	if !ok {
		return nil
	}
	var out List
	for _, elem := range al {
		if Contains(bl, elem) && !Contains(out, elem) {
			out = append(out, elem)
		}
	}
	return out
}

// Number returns v as a float64 when v is numeric.
func Number(v Value) (float64, bool) {
	return numeric(v)
}

func numeric(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	default:
		return 0, false
	}
}

func parseTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Truthy reports whether v counts as true in a boolean context. Only Null
// and Bool(false) are false.
func Truthy(v Value) bool {
	switch b := v.(type) {
	case Null:
		return false
	case Bool:
		return bool(b)
	default:
		return v != nil
	}
}
