package querysql

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/jeandet/tscat/internal/filter"
	"github.com/jeandet/tscat/internal/value"
)

// DialectName is the goqu dialect every statement is generated for.
const DialectName = "sqlite3"

// Dialect returns the goqu dialect wrapper used by the store.
func Dialect() goqu.DialectWrapper {
	return goqu.Dialect(DialectName)
}

var (
	alwaysTrue  = goqu.L("1 = 1")
	alwaysFalse = goqu.L("0 = 1")
)

// Result is a compiled predicate.
type Result struct {
	// Where is the WHERE clause expression (never nil).
	Where exp.Expression

	// Exact is true when Where selects exactly the rows the predicate
	// matches. When false, Where selects a superset and the caller must
	// re-filter rows with filter.Evaluate.
	Exact bool
}

// SQLCompiler compiles filter predicates to parameterized SQLite expressions
// over one Target.
//
// CRITICAL: All literals are parameterized (never interpolated into the SQL
// text); only table and column names from the Target appear verbatim.
type SQLCompiler struct {
	target Target
}

// NewSQLCompiler creates a compiler for t.
func NewSQLCompiler(t Target) *SQLCompiler {
	return &SQLCompiler{target: t}
}

// Compile converts p to a WHERE expression. A nil p compiles to "1 = 1".
//
// The generated SQL agrees with filter.Evaluate on every row when Exact is
// set. Regular expressions are never pushed down; a Match narrows the rows
// to those holding a string in the field and reports Exact false.
func (c *SQLCompiler) Compile(p filter.Predicate) (Result, error) {
	where, exact, err := c.compilePredicate(p)
	if err != nil {
		return Result{}, err
	}
	return Result{Where: where, Exact: exact}, nil
}

// compilePredicate returns the expression and whether it is exact.
func (c *SQLCompiler) compilePredicate(p filter.Predicate) (exp.Expression, bool, error) {
	if p == nil {
		return alwaysTrue, true, nil
	}

	switch pred := p.(type) {
	case filter.Compare:
		return c.compileCompare(pred)
	case *filter.Compare:
		return c.compileCompare(*pred)
	case filter.Member:
		return c.compileMember(pred), true, nil
	case *filter.Member:
		return c.compileMember(*pred), true, nil
	case filter.InSet:
		return c.compileInSet(pred)
	case *filter.InSet:
		return c.compileInSet(*pred)
	case filter.Has:
		return c.compileHas(pred.Field), true, nil
	case *filter.Has:
		return c.compileHas(pred.Field), true, nil
	case filter.Match:
		return c.compileMatch(pred.Field), false, nil
	case *filter.Match:
		return c.compileMatch(pred.Field), false, nil
	case filter.And:
		return c.compileJunction(pred.Predicates, goqu.And, alwaysTrue)
	case *filter.And:
		return c.compileJunction(pred.Predicates, goqu.And, alwaysTrue)
	case filter.Or:
		return c.compileJunction(pred.Predicates, goqu.Or, alwaysFalse)
	case *filter.Or:
		return c.compileJunction(pred.Predicates, goqu.Or, alwaysFalse)
	case filter.Negation:
		return c.compileNegation(pred.Predicate)
	case *filter.Negation:
		return c.compileNegation(pred.Predicate)
	default:
		return nil, false, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileJunction(
	ps []filter.Predicate,
	join func(...exp.Expression) exp.ExpressionList,
	empty exp.Expression,
) (exp.Expression, bool, error) {
	if len(ps) == 0 {
		return empty, true, nil
	}
	exprs := make([]exp.Expression, 0, len(ps))
	exact := true
	for _, child := range ps {
		expr, childExact, err := c.compilePredicate(child)
		if err != nil {
			return nil, false, err
		}
		exprs = append(exprs, expr)
		exact = exact && childExact
	}
	return join(exprs...), exact, nil
}

// compileNegation pushes NOT down only over exact children; the negation of
// a superset is not a superset of the negation.
func (c *SQLCompiler) compileNegation(p filter.Predicate) (exp.Expression, bool, error) {
	expr, exact, err := c.compilePredicate(p)
	if err != nil {
		return nil, false, err
	}
	if !exact {
		return alwaysTrue, false, nil
	}
	return goqu.L("NOT (?)", expr), true, nil
}

func (c *SQLCompiler) compileCompare(cmp filter.Compare) (exp.Expression, bool, error) {
	if cmp.Value == nil || !cmp.Op.Valid() {
		return alwaysFalse, true, nil
	}
	name := string(cmp.Field)

	if col, ok := c.target.Columns[name]; ok {
		return c.compileColumnCompare(col, cmp.Op, cmp.Value), true, nil
	}
	if name == FieldTags {
		return c.compileTagsCompare(cmp.Op, cmp.Value)
	}
	return c.compileDynamicCompare(name, cmp.Op, cmp.Value), true, nil
}

// compileColumnCompare compares a fixed column. A literal of another kind
// never equals the column and has no ordering with it.
func (c *SQLCompiler) compileColumnCompare(col Column, op filter.Op, lit value.Value) exp.Expression {
	param, ok := columnParam(col, lit)
	if !ok {
		return mismatch(op)
	}
	ident := goqu.T(c.target.Alias).Col(col.Name)
	switch op {
	case filter.Eq:
		return ident.Eq(param)
	case filter.Ne:
		return ident.Neq(param)
	case filter.Lt:
		return ident.Lt(param)
	case filter.Le:
		return ident.Lte(param)
	case filter.Gt:
		return ident.Gt(param)
	default:
		return ident.Gte(param)
	}
}

// columnParam converts lit to the storage form of col, if the kinds agree.
func columnParam(col Column, lit value.Value) (any, bool) {
	switch col.Kind {
	case value.KindString:
		if s, ok := lit.(value.String); ok {
			return string(s), true
		}
	case value.KindTime:
		if t, ok := lit.(value.Time); ok {
			return t.UnixNano(), true
		}
	}
	return nil, false
}

// mismatch is the result of comparing values of unrelated kinds: only
// "not equal" holds.
func mismatch(op filter.Op) exp.Expression {
	if op == filter.Ne {
		return alwaysTrue
	}
	return alwaysFalse
}

// compileTagsCompare handles comparisons against the tag set. Scalars never
// equal a set; set equality is checked in memory.
func (c *SQLCompiler) compileTagsCompare(op filter.Op, lit value.Value) (exp.Expression, bool, error) {
	if _, isSet := lit.(value.Set); isSet && (op == filter.Eq || op == filter.Ne) {
		return alwaysTrue, false, nil
	}
	return mismatch(op), true, nil
}

// compileDynamicCompare compares a dynamic field through an EXISTS
// subquery on the fields table. Absent fields never match, including for
// "not equal".
func (c *SQLCompiler) compileDynamicCompare(name string, op filter.Op, lit value.Value) exp.Expression {
	if op == filter.Ne {
		eq, args, ok := fieldCondition(filter.Eq, lit)
		if !ok {
			return c.fieldExists(name, "", nil)
		}
		return c.fieldExists(name, "NOT ("+eq+")", args)
	}
	cond, args, ok := fieldCondition(op, lit)
	if !ok {
		return alwaysFalse
	}
	return c.fieldExists(name, cond, args)
}

// fieldCondition returns the SQL condition on a fields-table row (alias f)
// for "<row value> op lit", mirroring value.Equal and value.Compare.
func fieldCondition(op filter.Op, lit value.Value) (string, []any, bool) {
	sqlOp := sqlOperator(op)
	ordering := op != filter.Eq && op != filter.Ne

	switch v := lit.(type) {
	case value.String:
		return fmt.Sprintf("f.kind = 'string' AND f.text_value %s ?", sqlOp), []any{string(v)}, true
	case value.Int:
		return fmt.Sprintf("((f.kind = 'int' AND f.int_value %s ?) OR (f.kind = 'float' AND f.num_value %s ?))", sqlOp, sqlOp),
			[]any{int64(v), float64(v)}, true
	case value.Float:
		return fmt.Sprintf("f.kind IN ('int', 'float') AND f.num_value %s ?", sqlOp), []any{float64(v)}, true
	case value.Bool:
		if ordering {
			return "", nil, false
		}
		return fmt.Sprintf("f.kind = 'bool' AND f.int_value %s ?", sqlOp), []any{boolParam(bool(v))}, true
	case value.Time:
		return fmt.Sprintf("f.kind = 'time' AND f.int_value %s ?", sqlOp), []any{v.UnixNano()}, true
	default:
		return "", nil, false
	}
}

func boolParam(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func sqlOperator(op filter.Op) string {
	if op == filter.Eq {
		return "="
	}
	return string(op)
}

// fieldExists builds EXISTS over the entity's row for name, with an optional
// extra condition on alias f.
func (c *SQLCompiler) fieldExists(name, cond string, args []any) exp.Expression {
	sql := fmt.Sprintf("EXISTS (SELECT 1 FROM %s f WHERE f.owner_seq = %s.seq AND f.name = ?",
		c.target.FieldsTable, c.target.Alias)
	params := []any{name}
	if cond != "" {
		sql += " AND " + cond
		params = append(params, args...)
	}
	return goqu.L(sql+")", params...)
}

func (c *SQLCompiler) compileMember(m filter.Member) exp.Expression {
	needle, ok := m.Value.(value.String)
	if !ok {
		return alwaysFalse
	}
	name := string(m.Field)

	if name == FieldTags {
		return goqu.L(
			fmt.Sprintf("EXISTS (SELECT 1 FROM %s t WHERE t.owner_seq = %s.seq AND t.tag = ?)",
				c.target.TagsTable, c.target.Alias),
			string(needle))
	}
	if col, ok := c.target.Columns[name]; ok {
		if col.Kind != value.KindString {
			return alwaysFalse
		}
		return goqu.L(fmt.Sprintf("instr(%s.%s, ?) > 0", c.target.Alias, col.Name), string(needle))
	}
	return c.fieldExists(name, "f.kind = 'string' AND instr(f.text_value, ?) > 0", []any{string(needle)})
}

func (c *SQLCompiler) compileInSet(in filter.InSet) (exp.Expression, bool, error) {
	preds := make([]filter.Predicate, 0, len(in.Values))
	for _, v := range in.Values {
		if v == nil {
			continue
		}
		preds = append(preds, &filter.Compare{Field: in.Field, Op: filter.Eq, Value: v})
	}
	return c.compileJunction(preds, goqu.Or, alwaysFalse)
}

func (c *SQLCompiler) compileHas(field filter.Field) exp.Expression {
	name := string(field)
	if _, ok := c.target.Columns[name]; ok || name == FieldTags {
		return alwaysTrue
	}
	return c.fieldExists(name, "", nil)
}

// compileMatch narrows to rows holding a string in the field; the pattern
// itself is checked in memory.
func (c *SQLCompiler) compileMatch(field filter.Field) exp.Expression {
	name := string(field)
	if col, ok := c.target.Columns[name]; ok {
		if col.Kind != value.KindString {
			return alwaysFalse
		}
		return alwaysTrue
	}
	if name == FieldTags {
		return alwaysFalse
	}
	return c.fieldExists(name, "f.kind = 'string'", nil)
}
