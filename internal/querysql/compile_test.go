package querysql

import (
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeandet/tscat/internal/filter"
	"github.com/jeandet/tscat/internal/value"
)

// whereSQL renders a compiled predicate as a prepared WHERE clause.
func whereSQL(t *testing.T, target Target, p filter.Predicate) (string, []any, bool) {
	t.Helper()
	res, err := NewSQLCompiler(target).Compile(p)
	require.NoError(t, err)
	sql, args, err := Dialect().From("x").Where(res.Where).Prepared(true).ToSQL()
	require.NoError(t, err)
	return sql, args, res.Exact
}

func TestCompileNilIsTrue(t *testing.T) {
	sql, args, exact := whereSQL(t, Events, nil)
	assert.Contains(t, sql, "1 = 1")
	assert.Empty(t, args)
	assert.True(t, exact)
}

func TestCompileFixedColumns(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		pred     filter.Predicate
		contains string
		args     []any
	}{
		{"author equals", filter.Field("author").Eq("Patrick"), "`e`.`author` = ?", []any{"Patrick"}},
		{"author not equal", filter.Field("author").Ne("Patrick"), "`e`.`author` != ?", []any{"Patrick"}},
		{"start before", filter.Field("start").Lt(t0), "`e`.`start` < ?", []any{t0.UnixNano()}},
		{"stop at or after", filter.Field("stop").Ge(t0), "`e`.`stop` >= ?", []any{t0.UnixNano()}},
		{"author substring", filter.In("Pat", filter.Field("author")), "instr(e.author, ?) > 0", []any{"Pat"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, exact := whereSQL(t, Events, tt.pred)
			assert.Contains(t, sql, tt.contains)
			assert.Equal(t, tt.args, args)
			assert.True(t, exact)
		})
	}
}

func TestCompileKindMismatchOnFixedColumn(t *testing.T) {
	sql, args, exact := whereSQL(t, Events, filter.Field("start").Eq("yesterday"))
	assert.Contains(t, sql, "0 = 1")
	assert.Empty(t, args)
	assert.True(t, exact)

	sql, _, _ = whereSQL(t, Events, filter.Field("author").Ne(3))
	assert.Contains(t, sql, "1 = 1")
}

func TestCompileDynamicFields(t *testing.T) {
	tests := []struct {
		name     string
		pred     filter.Predicate
		contains string
		args     []any
	}{
		{
			"string equals",
			filter.Field("mission").Eq("MMS"),
			"EXISTS (SELECT 1 FROM event_fields f WHERE f.owner_seq = e.seq AND f.name = ? AND f.kind = 'string' AND f.text_value = ?)",
			[]any{"mission", "MMS"},
		},
		{
			"int compares against ints and floats",
			filter.Field("field1").Ge(2),
			"((f.kind = 'int' AND f.int_value >= ?) OR (f.kind = 'float' AND f.num_value >= ?))",
			[]any{"field1", int64(2), float64(2)},
		},
		{
			"float compares numerically",
			filter.Field("ratio").Lt(0.5),
			"f.kind IN ('int', 'float') AND f.num_value < ?",
			[]any{"ratio", 0.5},
		},
		{
			"bool equality",
			filter.Field("flag").Eq(true),
			"f.kind = 'bool' AND f.int_value = ?",
			[]any{"flag", int64(1)},
		},
		{
			"not equal requires presence",
			filter.Field("mission").Ne("MMS"),
			"f.name = ? AND NOT (f.kind = 'string' AND f.text_value = ?)",
			[]any{"mission", "MMS"},
		},
		{
			"has",
			filter.Field("mission").Exists(),
			"f.name = ?)",
			[]any{"mission"},
		},
		{
			"substring",
			filter.In("MM", filter.Field("mission")),
			"f.kind = 'string' AND instr(f.text_value, ?) > 0",
			[]any{"mission", "MM"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, exact := whereSQL(t, Events, tt.pred)
			assert.Contains(t, sql, tt.contains)
			assert.Equal(t, tt.args, args)
			assert.True(t, exact)
		})
	}
}

func TestCompileBoolOrderingIsFalse(t *testing.T) {
	sql, args, exact := whereSQL(t, Events, filter.Field("flag").Gt(false))
	assert.Contains(t, sql, "0 = 1")
	assert.Empty(t, args)
	assert.True(t, exact)
}

func TestCompileTags(t *testing.T) {
	sql, args, exact := whereSQL(t, Events, filter.In("b", filter.Field("tags")))
	assert.Contains(t, sql, "EXISTS (SELECT 1 FROM event_tags t WHERE t.owner_seq = e.seq AND t.tag = ?)")
	assert.Equal(t, []any{"b"}, args)
	assert.True(t, exact)

	sql, _, _ = whereSQL(t, Catalogues, filter.In("b", filter.Field("tags")))
	assert.Contains(t, sql, "FROM catalogue_tags t WHERE t.owner_seq = c.seq")

	_, _, exact = whereSQL(t, Events, filter.Field("tags").Eq(value.NewSet("a")))
	assert.False(t, exact, "set equality is checked in memory")

	sql, _, exact = whereSQL(t, Events, filter.Field("tags").Eq("a"))
	assert.Contains(t, sql, "0 = 1")
	assert.True(t, exact)
}

func TestCompileExactness(t *testing.T) {
	match := filter.Field("mission").Matches("^M")
	eq := filter.Field("mission").Eq("MMS")

	tests := []struct {
		name  string
		pred  filter.Predicate
		exact bool
	}{
		{"match", match, false},
		{"and with match", filter.All(eq, match), false},
		{"or of exact", filter.Any(eq, eq), true},
		{"not exact", filter.Not(eq), true},
		{"not over match", filter.Not(match), false},
		{"one of", filter.Field("mission").OneOf("MMS", 3), true},
		{"empty and", filter.All(), true},
		{"empty or", filter.Any(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewSQLCompiler(Events).Compile(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.exact, res.Exact)
		})
	}
}

func TestCompileNotOverMatchIsTrue(t *testing.T) {
	sql, args, _ := whereSQL(t, Events, filter.Not(filter.Field("mission").Matches("^M")))
	assert.Contains(t, sql, "1 = 1")
	assert.Empty(t, args)
}

func TestSelect(t *testing.T) {
	q, err := NewSQLCompiler(Events).Select(
		[]string{"seq", "uuid"},
		filter.Field("author").Eq("Patrick"),
		goqu.L("e.seq > ?", 10),
	)
	require.NoError(t, err)

	assert.Contains(t, q.SQL, "FROM `events` AS `e`")
	assert.Contains(t, q.SQL, "`e`.`seq` AS `seq`")
	assert.Contains(t, q.SQL, "ORDER BY `e`.`seq` ASC")
	assert.Equal(t, []any{"Patrick", int64(10)}, q.Args)
	assert.True(t, q.Exact)
}
