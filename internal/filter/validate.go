package filter

import (
	"fmt"
	"strings"

	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/value"
)

// Validate checks that p is structurally well formed: field names are set,
// operators are known, literals are present and regular expressions compile.
// A nil p is valid.
//
// Problems are collected over the whole tree and returned as one
// *model.ValidationError.
//
// Validate is a pure function with no side effects.
func Validate(p Predicate) error {
	v := &validator{}
	v.validatePredicate(p, true)
	if len(v.issues) == 0 {
		return nil
	}
	return &model.ValidationError{Field: "filter", Message: strings.Join(v.issues, "; ")}
}

// validator accumulates issues during traversal.
type validator struct {
	issues []string
}

func (v *validator) addIssue(format string, args ...any) {
	v.issues = append(v.issues, fmt.Sprintf(format, args...))
}

// validatePredicate recursively validates a predicate node. root allows a
// nil predicate at the top of the tree only.
func (v *validator) validatePredicate(p Predicate, root bool) {
	if p == nil {
		if !root {
			v.addIssue("nil predicate inside a compound predicate")
		}
		return
	}

	switch pred := p.(type) {
	case Compare:
		v.validateCompare(pred)
	case *Compare:
		v.validateCompare(*pred)
	case Member:
		v.validateMember(pred)
	case *Member:
		v.validateMember(*pred)
	case InSet:
		v.validateInSet(pred)
	case *InSet:
		v.validateInSet(*pred)
	case Has:
		v.validateField(pred.Field)
	case *Has:
		v.validateField(pred.Field)
	case Match:
		v.validateMatch(pred)
	case *Match:
		v.validateMatch(*pred)
	case And:
		v.validateChildren(pred.Predicates)
	case *And:
		v.validateChildren(pred.Predicates)
	case Or:
		v.validateChildren(pred.Predicates)
	case *Or:
		v.validateChildren(pred.Predicates)
	case Negation:
		v.validatePredicate(pred.Predicate, false)
	case *Negation:
		v.validatePredicate(pred.Predicate, false)
	default:
		v.addIssue("unknown predicate type %T", p)
	}
}

func (v *validator) validateField(f Field) {
	if f == "" {
		v.addIssue("empty field name")
	}
}

func (v *validator) validateCompare(c Compare) {
	v.validateField(c.Field)
	if !c.Op.Valid() {
		v.addIssue("unknown operator %q on field %q", c.Op, c.Field)
	}
	if c.Value == nil {
		v.addIssue("missing or unsupported literal for field %q", c.Field)
	}
}

func (v *validator) validateMember(m Member) {
	v.validateField(m.Field)
	if m.Value == nil {
		v.addIssue("missing or unsupported literal in %q membership", m.Field)
		return
	}
	if _, ok := m.Value.(value.String); !ok {
		v.addIssue("membership literal for %q must be a string, got %s", m.Field, m.Value.Kind())
	}
}

func (v *validator) validateInSet(in InSet) {
	v.validateField(in.Field)
	for i, lit := range in.Values {
		if lit == nil {
			v.addIssue("missing or unsupported literal %d in %q set", i, in.Field)
		}
	}
}

func (v *validator) validateMatch(m Match) {
	v.validateField(m.Field)
	if _, err := m.compiled(); err != nil {
		v.addIssue("invalid pattern for %q: %v", m.Field, err)
	}
}

func (v *validator) validateChildren(ps []Predicate) {
	for _, p := range ps {
		v.validatePredicate(p, false)
	}
}
