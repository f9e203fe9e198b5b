package filter

import (
	"strings"

	"github.com/jeandet/tscat/internal/value"
)

// Evaluate reports whether e satisfies p. A nil p matches.
//
// Evaluate never fails: a missing field, a nil literal, an invalid regular
// expression or a kind mismatch make the affected leaf false.
func Evaluate(p Predicate, e Entity) bool {
	if p == nil {
		return true
	}

	switch pred := p.(type) {
	case Compare:
		return evalCompare(pred, e)
	case *Compare:
		return evalCompare(*pred, e)
	case Member:
		return evalMember(pred, e)
	case *Member:
		return evalMember(*pred, e)
	case InSet:
		return evalInSet(pred, e)
	case *InSet:
		return evalInSet(*pred, e)
	case Has:
		_, ok := e.Lookup(string(pred.Field))
		return ok
	case *Has:
		_, ok := e.Lookup(string(pred.Field))
		return ok
	case Match:
		return evalMatch(pred, e)
	case *Match:
		return evalMatch(*pred, e)
	case And:
		return evalAnd(pred.Predicates, e)
	case *And:
		return evalAnd(pred.Predicates, e)
	case Or:
		return evalOr(pred.Predicates, e)
	case *Or:
		return evalOr(pred.Predicates, e)
	case Negation:
		return !Evaluate(pred.Predicate, e)
	case *Negation:
		return !Evaluate(pred.Predicate, e)
	default:
		return false
	}
}

// Apply returns the items satisfying p, preserving order.
func Apply[T Entity](p Predicate, items []T) []T {
	if p == nil {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if Evaluate(p, item) {
			out = append(out, item)
		}
	}
	return out
}

func evalCompare(c Compare, e Entity) bool {
	if c.Value == nil {
		return false
	}
	v, ok := e.Lookup(string(c.Field))
	if !ok {
		return false
	}

	switch c.Op {
	case Eq:
		return value.Equal(v, c.Value)
	case Ne:
		return !value.Equal(v, c.Value)
	}

	cmp, ok := value.Compare(v, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case Lt:
		return cmp < 0
	case Le:
		return cmp <= 0
	case Gt:
		return cmp > 0
	case Ge:
		return cmp >= 0
	default:
		return false
	}
}

func evalMember(m Member, e Entity) bool {
	needle, ok := m.Value.(value.String)
	if !ok {
		return false
	}
	v, ok := e.Lookup(string(m.Field))
	if !ok {
		return false
	}

	switch haystack := v.(type) {
	case value.Set:
		return haystack.Has(string(needle))
	case value.String:
		return strings.Contains(string(haystack), string(needle))
	default:
		return false
	}
}

func evalInSet(in InSet, e Entity) bool {
	v, ok := e.Lookup(string(in.Field))
	if !ok {
		return false
	}
	for _, candidate := range in.Values {
		if candidate != nil && value.Equal(v, candidate) {
			return true
		}
	}
	return false
}

func evalMatch(m Match, e Entity) bool {
	re, err := m.compiled()
	if err != nil {
		return false
	}
	v, ok := e.Lookup(string(m.Field))
	if !ok {
		return false
	}
	s, ok := v.(value.String)
	if !ok {
		return false
	}
	return re.MatchString(string(s))
}

func evalAnd(ps []Predicate, e Entity) bool {
	for _, p := range ps {
		if !Evaluate(p, e) {
			return false
		}
	}
	return true
}

func evalOr(ps []Predicate, e Entity) bool {
	for _, p := range ps {
		if Evaluate(p, e) {
			return true
		}
	}
	return false
}
