package querysql

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/jeandet/tscat/internal/filter"
)

// Query is a compiled, parameterized SELECT statement.
type Query struct {
	SQL   string
	Args  []any
	Exact bool
}

// Select builds a SELECT of columns from the target table, filtered by p and
// any extra conditions, ordered by seq so results come back in creation
// order.
func (c *SQLCompiler) Select(columns []string, p filter.Predicate, extra ...exp.Expression) (Query, error) {
	res, err := c.Compile(p)
	if err != nil {
		return Query{}, fmt.Errorf("compile filter: %w", err)
	}

	t := c.target
	cols := make([]any, len(columns))
	for i, col := range columns {
		cols[i] = goqu.T(t.Alias).Col(col).As(col)
	}
	where := append([]exp.Expression{res.Where}, extra...)

	sql, args, err := Dialect().
		From(goqu.T(t.Table).As(t.Alias)).
		Select(cols...).
		Where(where...).
		Order(goqu.T(t.Alias).Col("seq").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Query{}, fmt.Errorf("build select: %w", err)
	}
	return Query{SQL: sql, Args: args, Exact: res.Exact}, nil
}
