// Package querysql compiles filter predicates to parameterized SQLite WHERE
// clauses with goqu.
//
// Fixed attributes compile to column comparisons. Dynamic fields and tags
// live in side tables and compile to EXISTS subqueries correlated on the
// entity's seq. The compiler reports whether the SQL is exact; when it is
// not (regular expressions, negated supersets, set equality on tags) the
// store re-filters the returned rows with filter.Evaluate.
package querysql
