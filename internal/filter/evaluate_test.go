package filter

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/value"
)

var (
	t0 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func newEvent(t *testing.T, n int, author string, attrs ...model.Attr) *model.Event {
	t.Helper()
	id := uuid.MustParse("00000000-0000-0000-0000-00000000000" + string(rune('0'+n)))
	e, err := model.NewEvent(id, t0.Add(time.Duration(n)*time.Minute), t1, author, attrs...)
	require.NoError(t, err)
	return e
}

func TestApplyTagMembership(t *testing.T) {
	events := []*model.Event{
		newEvent(t, 1, "Patrick", model.WithTags("a", "b")),
		newEvent(t, 2, "Patrick", model.WithTags("b", "c")),
		newEvent(t, 3, "Patrick", model.WithTags("c", "d")),
	}

	got := Apply(In("b", Field("tags")), events)
	require.Len(t, got, 2)
	assert.Same(t, events[0], got[0])
	assert.Same(t, events[1], got[1])

	assert.Empty(t, Apply(In("B", Field("tags")), events), "tag match is case-sensitive")
	assert.Len(t, Apply(nil, events), 3)
}

func TestEvaluateLeaves(t *testing.T) {
	e := newEvent(t, 1, "Patrick Boettcher",
		model.With("field1", 2),
		model.With("ratio", 0.5),
		model.With("flag", true),
		model.With("mission", "MMS-1"),
		model.WithTags("a", "b"),
	)

	tests := []struct {
		name string
		pred Predicate
		want bool
	}{
		{"int equals", Field("field1").Eq(2), true},
		{"int equals float", Field("field1").Eq(2.0), true},
		{"int not equal", Field("field1").Ne(3), true},
		{"int vs string never equal", Field("field1").Eq("2"), false},
		{"int vs string ne is true", Field("field1").Ne("2"), true},
		{"int ordering", Field("field1").Ge(2), true},
		{"float vs int ordering", Field("ratio").Lt(1), true},
		{"string ordering", Field("mission").Gt("MMS"), true},
		{"bool equality", Field("flag").Eq(true), true},
		{"bool ordering is false", Field("flag").Gt(false), false},
		{"cross-kind ordering is false", Field("mission").Lt(5), false},
		{"time ordering on fixed field", Field("start").Lt(t1), true},
		{"author equality", Field("author").Eq("Patrick Boettcher"), true},
		{"substring of string field", In("Boett", Field("author")), true},
		{"missing substring", In("Alexis", Field("author")), false},
		{"tag member", Field("tags").Contains("a"), true},
		{"tag member on int field", In("2", Field("field1")), false},
		{"one of", Field("mission").OneOf("THEMIS", "MMS-1"), true},
		{"none of", Field("mission").OneOf("THEMIS"), false},
		{"has dynamic", Field("ratio").Exists(), true},
		{"has fixed", Field("stop").Exists(), true},
		{"has tags always", Field("tags").Exists(), true},
		{"matches", Field("mission").Matches(`^MMS-\d$`), true},
		{"matches without compile cache", &Match{Field: "mission", Pattern: "^THEMIS"}, false},
		{"match on non-string", Field("field1").Matches("2"), false},
		{"invalid regexp never matches", Field("mission").Matches("("), false},
		{"tags equal set", Field("tags").Eq(value.NewSet("b", "a")), true},
		{"tags eq scalar is false", Field("tags").Eq("a"), false},
		{"tags ne scalar is true", Field("tags").Ne("a"), true},
		{"value form compare", Compare{Field: "field1", Op: Eq, Value: value.Int(2)}, true},
		{"unknown op", Compare{Field: "field1", Op: "<>", Value: value.Int(2)}, false},
		{"nil literal", Field("field1").Eq(struct{}{}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.pred, e))
		})
	}
}

func TestEvaluateMissingFieldIsFalse(t *testing.T) {
	e := newEvent(t, 1, "Patrick")

	for _, p := range []Predicate{
		Field("nope").Eq(1),
		Field("nope").Ne(1),
		Field("nope").Lt(1),
		In("x", Field("nope")),
		Field("nope").OneOf(1, 2),
		Field("nope").Exists(),
		Field("nope").Matches(".*"),
	} {
		assert.False(t, Evaluate(p, e), Format(p))
	}

	// Negating a missing-field leaf is true.
	assert.True(t, Evaluate(Not(Field("nope").Eq(1)), e))
}

func TestEvaluateConnectives(t *testing.T) {
	e := newEvent(t, 1, "Patrick", model.With("x", 1))
	yes := Field("x").Eq(1)
	no := Field("x").Eq(2)

	assert.True(t, Evaluate(nil, e))
	assert.True(t, Evaluate(All(), e))
	assert.False(t, Evaluate(Any(), e))
	assert.True(t, Evaluate(All(yes, yes), e))
	assert.False(t, Evaluate(All(yes, no), e))
	assert.True(t, Evaluate(Any(no, yes), e))
	assert.False(t, Evaluate(Any(no, no), e))
	assert.True(t, Evaluate(Not(no), e))
	assert.False(t, Evaluate(Not(Not(no)), e))
	assert.True(t, Evaluate(And{Predicates: []Predicate{yes}}, e))
	assert.True(t, Evaluate(Or{Predicates: []Predicate{yes}}, e))
}

func TestEvaluateCatalogue(t *testing.T) {
	c, err := model.NewCatalogue(uuid.New(), "Test1", "Patrick", model.With("mission", "MMS"))
	require.NoError(t, err)

	assert.True(t, Evaluate(Field("name").Eq("Test1"), c))
	assert.True(t, Evaluate(Field("mission").Eq("MMS"), c))
	assert.False(t, Evaluate(Field("start").Exists(), c))
}
