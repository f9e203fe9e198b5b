package filter

import (
	"regexp"

	"github.com/jeandet/tscat/internal/value"
)

// Predicate is a boolean condition over one entity.
//
// This is a sealed interface - only types in this package implement it.
// Both the value and pointer forms of each node are accepted everywhere;
// the builders return pointers.
//
// A nil Predicate matches every entity.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Entity is anything a predicate can be evaluated against.
// *model.Event and *model.Catalogue implement it.
type Entity interface {
	Lookup(name string) (value.Value, bool)
}

// Op is a comparison operator.
type Op string

const (
	Eq Op = "=="
	Ne Op = "!="
	Lt Op = "<"
	Le Op = "<="
	Gt Op = ">"
	Ge Op = ">="
)

// Valid reports whether op is one of the six comparison operators.
func (op Op) Valid() bool {
	switch op {
	case Eq, Ne, Lt, Le, Gt, Ge:
		return true
	}
	return false
}

// Field names an attribute, resolved per entity at evaluation time.
type Field string

// Compare tests <field> <op> <value>.
//
// Eq and Ne use value.Equal. The ordering operators are defined only for
// numbers, strings and timestamps; any other pairing is false.
type Compare struct {
	Field Field
	Op    Op
	Value value.Value
}

// Member tests that Value is an element of a set-valued field (tags), or a
// substring of a string field. It is the node built by In.
type Member struct {
	Value value.Value
	Field Field
}

// InSet tests that the field value equals one of Values.
type InSet struct {
	Field  Field
	Values []value.Value
}

// Has tests that the field is defined on the entity.
type Has struct {
	Field Field
}

// Match tests that a string field matches the regular expression Pattern.
//
// Build it with Field.Matches so the pattern is compiled once. A Match
// built as a struct literal compiles its pattern on every evaluation.
type Match struct {
	Field   Field
	Pattern string

	re  *regexp.Regexp
	err error
}

// And is true when every child is true. An empty And is true.
type And struct {
	Predicates []Predicate
}

// Or is true when any child is true. An empty Or is false.
type Or struct {
	Predicates []Predicate
}

// Negation inverts its child. It is the node built by Not.
type Negation struct {
	Predicate Predicate
}

func (Compare) predicateNode()  {}
func (Member) predicateNode()   {}
func (InSet) predicateNode()    {}
func (Has) predicateNode()      {}
func (Match) predicateNode()    {}
func (And) predicateNode()      {}
func (Or) predicateNode()       {}
func (Negation) predicateNode() {}

// literal converts a Go native for use in a predicate. An unsupported value
// becomes nil, which Validate reports and Evaluate treats as never matching.
func literal(v any) value.Value {
	val, err := value.From(v)
	if err != nil {
		return nil
	}
	return val
}

func (f Field) compare(op Op, v any) *Compare {
	return &Compare{Field: f, Op: op, Value: literal(v)}
}

// Eq builds f == v.
func (f Field) Eq(v any) *Compare { return f.compare(Eq, v) }

// Ne builds f != v.
func (f Field) Ne(v any) *Compare { return f.compare(Ne, v) }

// Lt builds f < v.
func (f Field) Lt(v any) *Compare { return f.compare(Lt, v) }

// Le builds f <= v.
func (f Field) Le(v any) *Compare { return f.compare(Le, v) }

// Gt builds f > v.
func (f Field) Gt(v any) *Compare { return f.compare(Gt, v) }

// Ge builds f >= v.
func (f Field) Ge(v any) *Compare { return f.compare(Ge, v) }

// Contains builds v in f: tag membership or substring.
func (f Field) Contains(v any) *Member {
	return &Member{Value: literal(v), Field: f}
}

// OneOf builds f in [values...].
func (f Field) OneOf(values ...any) *InSet {
	lits := make([]value.Value, len(values))
	for i, v := range values {
		lits[i] = literal(v)
	}
	return &InSet{Field: f, Values: lits}
}

// Exists builds has(f).
func (f Field) Exists() *Has {
	return &Has{Field: f}
}

// Matches builds f ~ pattern, compiling pattern now. An invalid pattern is
// reported by Validate.
func (f Field) Matches(pattern string) *Match {
	re, err := regexp.Compile(pattern)
	return &Match{Field: f, Pattern: pattern, re: re, err: err}
}

// compiled returns the compiled pattern.
func (m Match) compiled() (*regexp.Regexp, error) {
	if m.re != nil || m.err != nil {
		return m.re, m.err
	}
	return regexp.Compile(m.Pattern)
}

// In builds v in field, the membership form read left to right:
//
//	filter.In("b", filter.Field("tags"))
func In(v any, field Field) *Member {
	return field.Contains(v)
}

// All builds the conjunction of ps.
func All(ps ...Predicate) *And {
	return &And{Predicates: ps}
}

// Any builds the disjunction of ps.
func Any(ps ...Predicate) *Or {
	return &Or{Predicates: ps}
}

// Not builds the negation of p.
func Not(p Predicate) *Negation {
	return &Negation{Predicate: p}
}
