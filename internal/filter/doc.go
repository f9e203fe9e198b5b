// Package filter implements the predicate language used to select events and
// catalogues.
//
// A Predicate is a small sealed tree: comparisons, membership tests, field
// presence, regular expressions, and the boolean connectives And, Or and Not.
// Fields are resolved lazily per entity through Entity.Lookup, so predicates
// mix fixed attributes (start, author, name), dynamic fields and the
// multi-valued tags field without knowing which is which.
//
// Evaluation never fails. A field that is absent on an entity makes the leaf
// that references it false. Comparing values of different kinds is false,
// except that ints and floats compare numerically.
//
// Predicates can be built in Go:
//
//	filter.All(
//	    filter.In("b", filter.Field("tags")),
//	    filter.Field("field1").Ge(2),
//	)
//
// or parsed from text (see Parse):
//
//	'b' in tags and field1 >= 2 or not has(field2)
//
// Predicates are also compiled to SQL by package querysql; Evaluate is the
// reference semantics that compilation must agree with.
package filter
