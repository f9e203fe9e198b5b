package value

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", "", `""`},
		{"int", Int(42), "42"},
		{"min int64", Int(math.MinInt64), "-9223372036854775808"},
		{"float", Float(1.5), "1.5"},
		{"integral float", Float(2), "2"},
		{"bool", Bool(false), "false"},
		{"time", Time(time.Date(2020, 1, 1, 0, 0, 0, 500, time.UTC)), `"2020-01-01T00:00:00.0000005Z"`},
		{"set sorted", NewSet("b", "a"), `["a","b"]`},
		{"empty set", NewSet(), `[]`},
		{"string slice keeps order", []string{"b", "a"}, `["b","a"]`},
		{"nested", map[string]any{"z": []any{1, "x"}, "a": map[string]any{}}, `{"a":{},"z":[1,"x"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRejects(t *testing.T) {
	for _, input := range []any{nil, math.NaN(), Float(math.Inf(-1)), struct{}{}} {
		_, err := MarshalCanonical(input)
		assert.Error(t, err, "input %#v", input)
	}
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(result))
}

func TestMarshalCanonicalNormalizesNFC(t *testing.T) {
	result, err := MarshalCanonical(map[string]any{"cafe\u0301": "e\u0301"})
	require.NoError(t, err)
	assert.Equal(t, "{\"caf\u00e9\":\"\u00e9\"}", string(result))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// Literal backslash followed by u2028 text stays escaped.
	result, err = MarshalCanonical(`x\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(result))
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...) which sorts before
	// U+FF61 in UTF-16 but after it in UTF-8.
	m := map[string]int{"\uff61": 1, "\U0001F600": 2, "a": 3}
	assert.Equal(t, []string{"a", "\U0001F600", "\uff61"}, SortedKeys(m))
}
