package value

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Kind names the variant held by a Value.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindTime   Kind = "time"
	KindSet    Kind = "set"
)

// Value is a sealed interface over the primitive types an attribute may hold.
// Set is only produced for multi-valued fields such as tags; user-defined
// fields are always scalar.
type Value interface {
	Kind() Kind
	value() // Sealed - only the types below implement it
}

// String is a text value.
type String string

func (String) value()     {}
func (String) Kind() Kind { return KindString }

// Int is a 64-bit signed integer value.
type Int int64

func (Int) value()     {}
func (Int) Kind() Kind { return KindInt }

// Float is a finite 64-bit floating point value.
type Float float64

func (Float) value()     {}
func (Float) Kind() Kind { return KindFloat }

// Bool is a boolean value.
type Bool bool

func (Bool) value()     {}
func (Bool) Kind() Kind { return KindBool }

// Time is a UTC timestamp with nanosecond precision.
type Time time.Time

func (Time) value()     {}
func (Time) Kind() Kind { return KindTime }

// Time returns the wrapped time.Time.
func (t Time) Time() time.Time { return time.Time(t) }

// UnixNano returns the timestamp as nanoseconds since the Unix epoch.
func (t Time) UnixNano() int64 { return time.Time(t).UnixNano() }

// Set is an unordered set of strings. Membership is exact and case-sensitive.
type Set map[string]struct{}

func (Set) value()     {}
func (Set) Kind() Kind { return KindSet }

// NewSet builds a Set from items, collapsing duplicates.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Has reports whether item is a member of the set.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Sorted returns the members in byte order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	slices.Sort(out)
	return out
}

// Bounds of a Time value: the int64 nanosecond range.
var (
	MinTime = time.Unix(0, math.MinInt64).UTC()
	MaxTime = time.Unix(0, math.MaxInt64).UTC()
)

// NewTime validates t and returns it as a UTC Time value.
func NewTime(t time.Time) (Time, error) {
	if t.Before(MinTime) || t.After(MaxTime) {
		return Time{}, fmt.Errorf("timestamp %s outside supported range", t.Format(time.RFC3339))
	}
	return Time(t.UTC().Round(0)), nil
}

// TimeFromUnixNano rebuilds a Time from its storage form.
func TimeFromUnixNano(ns int64) Time {
	return Time(time.Unix(0, ns).UTC())
}

// From converts a Go native to a Value.
//
// Accepted: string, all signed and unsigned integer kinds (uint values must
// fit in int64), float32/float64 (finite only), bool, time.Time and any
// Value. Strings are NFC normalized.
func From(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("nil is not a valid value")
	case String:
		return String(norm.NFC.String(string(val))), nil
	case string:
		return String(norm.NFC.String(val)), nil
	case Int:
		return val, nil
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
		return fromUint(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUint(val)
	case Float:
		return fromFloat(float64(val))
	case float32:
		return fromFloat(float64(val))
	case float64:
		return fromFloat(val)
	case Bool:
		return val, nil
	case bool:
		return Bool(val), nil
	case Time:
		return NewTime(time.Time(val))
	case time.Time:
		return NewTime(val)
	case Set:
		out := make(Set, len(val))
		for item := range val {
			out[norm.NFC.String(item)] = struct{}{}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// MustFrom is like From but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFrom(v any) Value {
	val, err := From(v)
	if err != nil {
		panic(err)
	}
	return val
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("float %v is not finite", f)
	}
	return Float(f), nil
}

// Parse interprets command-line text as the most specific value it spells:
// an integer, a float, a boolean, an RFC 3339 timestamp, or else a string.
func Parse(text string) Value {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Int(n)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Float(f)
	}
	switch text {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
		if tv, err := NewTime(t); err == nil {
			return tv
		}
	}
	return String(norm.NFC.String(text))
}

// Format renders v for human-readable output.
func Format(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Time:
		return val.Time().Format(time.RFC3339Nano)
	case Set:
		return "[" + strings.Join(val.Sorted(), ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
