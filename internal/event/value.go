package event

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Value is a sealed interface representing the values an event field can hold.
// Only Null, String, Int, Float, Bool, List, Regexp and Time implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents an absent or null field.
// Using an explicit type ensures every field read yields a Value.
type Null struct{}

func (Null) value() {}

// String represents a string value.
type String string

func (String) value() {}

// Int represents an integer value.
type Int int64

func (Int) value() {}

// Float represents a floating point value.
// Reductive operators produce Float(±Inf) for empty MAX/MIN.
type Float float64

func (Float) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// List represents an ordered sequence of values.
type List []Value

func (List) value() {}

// Regexp represents a compiled regular expression.
type Regexp struct {
	*regexp.Regexp
}

func (Regexp) value() {}

// Time represents an instant.
type Time struct {
	time.Time
}

func (Time) value() {}

// NewRegexp compiles pattern into a Regexp value.
func NewRegexp(pattern string) (Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Regexp{}, err
	}
	return Regexp{re}, nil
}

// NewTime wraps t as a Time value.
func NewTime(t time.Time) Time {
	return Time{t}
}

// NegativeInfinity is the identity of MAX over an empty sequence.
func NegativeInfinity() Float {
	return Float(math.Inf(-1))
}

// PositiveInfinity is the identity of MIN over an empty sequence.
func PositiveInfinity() Float {
	return Float(math.Inf(1))
}

// IsNull reports whether v is Null (or a nil interface).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// FromGo converts a Go native value into a Value.
//
// Supported inputs: nil, bool, string, all integer kinds, float32/float64,
// time.Time, *regexp.Regexp, []any, []string, []int and Value itself.
// Maps are rejected: events are flat records.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer out of int64 range: %d", val)
		}
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case time.Time:
		return Time{val}, nil
	case *regexp.Regexp:
		return Regexp{val}, nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			item, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = item
		}
		return list, nil
	case []string:
		list := make(List, len(val))
		for i, elem := range val {
			list[i] = String(elem)
		}
		return list, nil
	case []int:
		list := make(List, len(val))
		for i, elem := range val {
			list[i] = Int(elem)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// ToGo converts a Value back into a Go native value.
// Lists become []any, Null becomes nil.
func ToGo(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case Regexp:
		return val.Regexp
	case Time:
		return val.Time
	default:
		return nil
	}
}

// Format renders a value for human-readable output.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case String:
		return strconv.Quote(string(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return formatFloat(float64(val))
	case Bool:
		return strconv.FormatBool(bool(val))
	case List:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = Format(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Regexp:
		if val.Regexp == nil {
			return "//"
		}
		return "/" + val.String() + "/"
	case Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
