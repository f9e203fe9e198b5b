package model

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/jeandet/tscat/internal/value"
)

// Catalogue is a named collection of events. Membership lives in the store,
// not on the struct.
type Catalogue struct {
	UUID   uuid.UUID
	Name   string
	Author string
	Fields Fields
	Tags   value.Set
}

// NewCatalogue validates its arguments and builds a catalogue.
// Dynamic field handling matches NewEvent; uuid, name and author are fixed.
func NewCatalogue(id uuid.UUID, name, author string, attrs ...Attr) (*Catalogue, error) {
	if id == uuid.Nil {
		return nil, NewValidationError(FieldUUID, "is nil")
	}
	if name == "" {
		return nil, NewValidationError(FieldName, "is empty")
	}
	fields, tags, err := buildAttrs(catalogueFixedFields, attrs)
	if err != nil {
		return nil, err
	}
	return &Catalogue{
		UUID:   id,
		Name:   norm.NFC.String(name),
		Author: norm.NFC.String(author),
		Fields: fields,
		Tags:   tags,
	}, nil
}

// Get returns the named attribute or an AttributeNotFoundError.
func (c *Catalogue) Get(name string) (value.Value, error) {
	v, ok := c.Lookup(name)
	if !ok {
		return nil, &AttributeNotFoundError{Name: name}
	}
	return v, nil
}

// Lookup resolves a fixed field, "tags" or a dynamic field.
func (c *Catalogue) Lookup(name string) (value.Value, bool) {
	switch name {
	case FieldUUID:
		return value.String(c.UUID.String()), true
	case FieldName:
		return value.String(c.Name), true
	case FieldAuthor:
		return value.String(c.Author), true
	}
	return lookupDynamic(c.Fields, c.Tags, name)
}

// Set assigns a dynamic field, or the tag set when name is "tags".
func (c *Catalogue) Set(name string, v any) error {
	return setDynamic(catalogueFixedFields, &c.Fields, &c.Tags, name, v)
}

// Unset removes a dynamic field.
func (c *Catalogue) Unset(name string) {
	delete(c.Fields, name)
}

// Validate re-checks the catalogue invariants.
func (c *Catalogue) Validate() error {
	if c.UUID == uuid.Nil {
		return NewValidationError(FieldUUID, "is nil")
	}
	if c.Name == "" {
		return NewValidationError(FieldName, "is empty")
	}
	return validateFields(catalogueFixedFields, c.Fields)
}

// Snapshot validates c and returns a normalized deep copy.
func (c *Catalogue) Snapshot() (*Catalogue, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Catalogue{
		UUID:   c.UUID,
		Name:   norm.NFC.String(c.Name),
		Author: norm.NFC.String(c.Author),
		Fields: normalizeFields(c.Fields),
		Tags:   normalizedSet(c.Tags.Sorted()),
	}, nil
}

// Clone returns a deep copy of c.
func (c *Catalogue) Clone() *Catalogue {
	out := *c
	out.Fields = c.Fields.Clone()
	out.Tags = value.NewSet(c.Tags.Sorted()...)
	return &out
}

// Equal compares every attribute except identity.
func (c *Catalogue) Equal(o *Catalogue) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Name == o.Name &&
		c.Author == o.Author &&
		c.Fields.Equal(o.Fields) &&
		tagsEqual(c.Tags, o.Tags)
}

func (c *Catalogue) String() string {
	return fmt.Sprintf("Catalogue(%s name=%q author=%q %s)", c.UUID, c.Name, c.Author, describeAttrs(c.Fields, c.Tags))
}

// EqualCatalogues compares two catalogue lists element-wise with Equal.
func EqualCatalogues(a, b []*Catalogue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
