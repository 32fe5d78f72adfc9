package event

import (
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("a")
	var _ Value = Int(1)
	var _ Value = Float(1.5)
	var _ Value = Bool(true)
	var _ Value = List{Int(1)}
	var _ Value = Regexp{regexp.MustCompile("a")}
	var _ Value = Time{time.Unix(0, 0)}
}

func TestFromGo(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"bool", true, Bool(true)},
		{"string", "x", String("x")},
		{"int", 7, Int(7)},
		{"int32", int32(-3), Int(-3)},
		{"uint16", uint16(9), Int(9)},
		{"float64", 2.5, Float(2.5)},
		{"time", ts, Time{ts}},
		{"value passthrough", String("v"), String("v")},
		{"any slice", []any{"a", 1, nil}, List{String("a"), Int(1), Null{}}},
		{"string slice", []string{"a", "b"}, List{String("a"), String("b")}},
		{"int slice", []int{1, 2}, List{Int(1), Int(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.in)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "want %s, got %s", Format(tt.want), Format(got))
		})
	}
}

func TestFromGoRejectsMaps(t *testing.T) {
	_, err := FromGo(map[string]any{"a": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported value type")
}

func TestFromGoRejectsHugeUint(t *testing.T) {
	_, err := FromGo(uint64(math.MaxUint64))
	require.Error(t, err)
}

func TestToGoRoundTrip(t *testing.T) {
	in := []any{"a", int64(1), 2.5, true, nil}
	v, err := FromGo(in)
	require.NoError(t, err)
	assert.Equal(t, in, ToGo(v))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Null{}, "null"},
		{String(`say "hi"`), `"say \"hi\""`},
		{Int(-4), "-4"},
		{Float(3), "3.0"},
		{Float(0.25), "0.25"},
		{NegativeInfinity(), "-Infinity"},
		{PositiveInfinity(), "Infinity"},
		{Bool(false), "false"},
		{List{Int(1), String("a")}, `[1, "a"]`},
		{Regexp{regexp.MustCompile(`^ab+$`)}, "/^ab+$/"},
		{Time{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}, "2024-01-02T03:04:05Z"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.v))
		})
	}
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(Null{}))
	assert.False(t, IsNull(String("")))
	assert.False(t, IsNull(Int(0)))
}
