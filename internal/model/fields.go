package model

import (
	"fmt"
	"slices"

	"golang.org/x/text/unicode/norm"

	"github.com/jeandet/tscat/internal/value"
)

// Fixed and reserved attribute names.
const (
	FieldUUID   = "uuid"
	FieldStart  = "start"
	FieldStop   = "stop"
	FieldAuthor = "author"
	FieldName   = "name"
	FieldTags   = "tags"
)

var (
	eventFixedFields     = map[string]bool{FieldUUID: true, FieldStart: true, FieldStop: true, FieldAuthor: true}
	catalogueFixedFields = map[string]bool{FieldUUID: true, FieldName: true, FieldAuthor: true}
)

// Fields is the dynamic, schema-free attribute bag of an entity.
// Values are always scalar (never a value.Set).
type Fields map[string]value.Value

// Names returns the field names in byte order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clone returns a copy of f. Values are immutable so the copy is deep.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Equal reports whether f and o hold the same names with equal values.
func (f Fields) Equal(o Fields) bool {
	if len(f) != len(o) {
		return false
	}
	for k, v := range f {
		ov, ok := o[k]
		if !ok || !value.Equal(v, ov) {
			return false
		}
	}
	return true
}

// Attr is one named attribute passed to a constructor.
type Attr struct {
	Name  string
	Value any
}

// With builds a dynamic field attribute. v is converted by value.From.
func With(name string, v any) Attr {
	return Attr{Name: name, Value: v}
}

// WithTags builds the reserved tags attribute.
func WithTags(tags ...string) Attr {
	return Attr{Name: FieldTags, Value: tags}
}

// FieldsFrom converts a map of Go natives into attributes, in name order.
func FieldsFrom(m map[string]any) []Attr {
	attrs := make([]Attr, 0, len(m))
	for _, name := range value.SortedKeys(m) {
		attrs = append(attrs, With(name, m[name]))
	}
	return attrs
}

// buildAttrs converts attrs into a field bag and a tag set. Fixed field names
// are rejected; a name set twice keeps the last value.
func buildAttrs(fixed map[string]bool, attrs []Attr) (Fields, value.Set, error) {
	fields := make(Fields, len(attrs))
	tags := value.NewSet()
	for _, attr := range attrs {
		name := norm.NFC.String(attr.Name)
		if name == FieldTags {
			t, err := TagsFrom(attr.Value)
			if err != nil {
				return nil, nil, err
			}
			tags = t
			continue
		}
		v, err := fieldValue(fixed, name, attr.Value)
		if err != nil {
			return nil, nil, err
		}
		fields[name] = v
	}
	return fields, tags, nil
}

// fieldValue validates one dynamic field assignment.
func fieldValue(fixed map[string]bool, name string, raw any) (value.Value, error) {
	if name == "" {
		return nil, NewValidationError("", "field name is empty")
	}
	if fixed[name] {
		return nil, NewValidationError(name, "shadows a fixed field")
	}
	v, err := value.From(raw)
	if err != nil {
		return nil, NewValidationError(name, "%v", err)
	}
	if v.Kind() == value.KindSet {
		return nil, NewValidationError(name, "only %q may hold a set", FieldTags)
	}
	return v, nil
}

// TagsFrom converts a sequence of strings into a tag set.
// Accepted: nil, []string, []any holding only strings, and value.Set.
// A bare string is rejected rather than split into characters.
func TagsFrom(v any) (value.Set, error) {
	switch val := v.(type) {
	case nil:
		return value.NewSet(), nil
	case []string:
		return normalizedSet(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for i, elem := range val {
			s, ok := elem.(string)
			if !ok {
				return nil, NewValidationError(FieldTags, "element %d is %T, not a string", i, elem)
			}
			items = append(items, s)
		}
		return normalizedSet(items), nil
	case value.Set:
		return normalizedSet(val.Sorted()), nil
	default:
		return nil, NewValidationError(FieldTags, "must be a sequence of strings, got %T", v)
	}
}

func normalizedSet(items []string) value.Set {
	s := make(value.Set, len(items))
	for _, item := range items {
		s[norm.NFC.String(item)] = struct{}{}
	}
	return s
}

// validateFields re-checks a field bag that may have been edited directly.
func validateFields(fixed map[string]bool, fields Fields) error {
	for name, v := range fields {
		if name == FieldTags {
			return NewValidationError(name, "tags must be set through Tags, not Fields")
		}
		if v == nil {
			return NewValidationError(name, "value is nil")
		}
		if _, err := fieldValue(fixed, name, v); err != nil {
			return err
		}
	}
	return nil
}

// normalizeFields returns a copy of fields with names and values in NFC.
func normalizeFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for name, v := range fields {
		out[norm.NFC.String(name)] = value.MustFrom(v)
	}
	return out
}

func lookupDynamic(fields Fields, tags value.Set, name string) (value.Value, bool) {
	if name == FieldTags {
		if tags == nil {
			return value.NewSet(), true
		}
		return tags, true
	}
	v, ok := fields[name]
	return v, ok
}

func setDynamic(fixed map[string]bool, fields *Fields, tags *value.Set, name string, raw any) error {
	name = norm.NFC.String(name)
	if name == FieldTags {
		t, err := TagsFrom(raw)
		if err != nil {
			return err
		}
		*tags = t
		return nil
	}
	v, err := fieldValue(fixed, name, raw)
	if err != nil {
		return err
	}
	if *fields == nil {
		*fields = make(Fields)
	}
	(*fields)[name] = v
	return nil
}

func tagsEqual(a, b value.Set) bool {
	if a == nil {
		a = value.NewSet()
	}
	if b == nil {
		b = value.NewSet()
	}
	return value.Equal(a, b)
}

func describeAttrs(fields Fields, tags value.Set) string {
	return fmt.Sprintf("fields=%d tags=%v", len(fields), tags.Sorted())
}
