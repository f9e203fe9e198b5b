package tscat

import (
	"github.com/jeandet/tscat/internal/filter"
	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/value"
)

// Entities and their attributes.
type (
	Event     = model.Event
	Catalogue = model.Catalogue
	Attr      = model.Attr
	Fields    = model.Fields
	Value     = value.Value
)

// With builds a dynamic attribute for CreateEvent and CreateCatalogue.
func With(name string, v any) Attr { return model.With(name, v) }

// WithTags builds the tags attribute.
func WithTags(tags ...string) Attr { return model.WithTags(tags...) }

// Filters.
type (
	Predicate = filter.Predicate
	Field     = filter.Field
)

// In matches when v is an element of the set-valued field (tags), or a
// substring of a string field.
func In(v any, field Field) Predicate { return filter.In(v, field) }

// All matches when every predicate matches. All() is true.
func All(ps ...Predicate) Predicate { return filter.All(ps...) }

// Any matches when at least one predicate matches. Any() is false.
func Any(ps ...Predicate) Predicate { return filter.Any(ps...) }

// Not inverts p.
func Not(p Predicate) Predicate { return filter.Not(p) }

// ParseFilter parses the text filter syntax, e.g.
//
//	'b' in tags and field1 >= 2 or not has(field2)
func ParseFilter(text string) (Predicate, error) { return filter.Parse(text) }

// FormatFilter renders p in the syntax ParseFilter accepts.
func FormatFilter(p Predicate) string { return filter.Format(p) }

// EqualEvents reports whether two event lists hold equal events in order,
// ignoring identity.
func EqualEvents(a, b []*Event) bool { return model.EqualEvents(a, b) }

// EqualCatalogues reports whether two catalogue lists hold equal catalogues
// in order, ignoring identity.
func EqualCatalogues(a, b []*Catalogue) bool { return model.EqualCatalogues(a, b) }
