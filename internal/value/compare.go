package value

import (
	"cmp"
	"strings"
	"time"
)

// IsNumeric reports whether v is an Int or a Float.
func IsNumeric(v Value) bool {
	switch v.(type) {
	case Int, Float:
		return true
	}
	return false
}

// Equal reports whether a and b hold the same value.
//
// Int and Float compare numerically with each other. Every other pair of
// different kinds is unequal. Times compare by instant, sets by membership.
func Equal(a, b Value) bool {
	if IsNumeric(a) && IsNumeric(b) {
		c, _ := Compare(a, b)
		return c == 0
	}
	switch x := a.(type) {
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Time:
		y, ok := b.(Time)
		return ok && x.Time().Equal(y.Time())
	case Set:
		y, ok := b.(Set)
		if !ok || len(x) != len(y) {
			return false
		}
		for item := range x {
			if !y.Has(item) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders a and b. The boolean result is false when the pair has no
// ordering: only numbers, strings and timestamps are ordered, and only
// against their own kind (Int and Float count as one kind).
//
// Int against Int compares exactly; any pair involving a Float compares as
// float64.
func Compare(a, b Value) (int, bool) {
	switch x := a.(type) {
	case Int:
		switch y := b.(type) {
		case Int:
			return cmp.Compare(x, y), true
		case Float:
			return cmp.Compare(float64(x), float64(y)), true
		}
	case Float:
		switch y := b.(type) {
		case Int:
			return cmp.Compare(float64(x), float64(y)), true
		case Float:
			return cmp.Compare(x, y), true
		}
	case String:
		if y, ok := b.(String); ok {
			return strings.Compare(string(x), string(y)), true
		}
	case Time:
		if y, ok := b.(Time); ok {
			return time.Time(x).Compare(time.Time(y)), true
		}
	}
	return 0, false
}
