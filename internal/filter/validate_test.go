package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/value"
)

func TestValidateAccepts(t *testing.T) {
	for _, p := range []Predicate{
		nil,
		All(),
		Any(In("a", Field("tags")), Field("x").Eq(1)),
		Not(Field("y").Matches("^a")),
		Field("m").OneOf("a", 2, true),
		Compare{Field: "x", Op: Le, Value: value.Float(1)},
	} {
		assert.NoError(t, Validate(p), Format(p))
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
	}{
		{"empty field", Field("").Eq(1)},
		{"unknown op", &Compare{Field: "x", Op: "=~", Value: value.Int(1)}},
		{"nil literal", &Compare{Field: "x", Op: Eq}},
		{"unsupported literal", Field("x").Eq([]int{1})},
		{"non-string membership", In(3, Field("tags"))},
		{"nil set element", Field("x").OneOf(1, nil)},
		{"bad regexp", Field("x").Matches("(")},
		{"nil child of and", All(Field("x").Eq(1), nil)},
		{"nil child of not", Not(nil)},
		{"empty has", &Has{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.pred)
			require.Error(t, err)
			var ve *model.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, "filter", ve.Field)
		})
	}
}

func TestValidateCollectsAllIssues(t *testing.T) {
	err := Validate(All(Field("").Eq(1), Field("x").Matches("(")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty field name")
	assert.Contains(t, err.Error(), "invalid pattern")
}
