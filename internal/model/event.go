package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/jeandet/tscat/internal/value"
)

// Event is a time interval annotated with an author, dynamic fields and tags.
type Event struct {
	UUID   uuid.UUID
	Start  time.Time
	Stop   time.Time
	Author string
	Fields Fields
	Tags   value.Set
}

// NewEvent validates its arguments and builds an event.
//
// attrs that are not the reserved "tags" become dynamic fields; a name that
// shadows uuid, start, stop or author is a ValidationError.
func NewEvent(id uuid.UUID, start, stop time.Time, author string, attrs ...Attr) (*Event, error) {
	if id == uuid.Nil {
		return nil, NewValidationError(FieldUUID, "is nil")
	}
	s, err := value.NewTime(start)
	if err != nil {
		return nil, NewValidationError(FieldStart, "%v", err)
	}
	e, err := value.NewTime(stop)
	if err != nil {
		return nil, NewValidationError(FieldStop, "%v", err)
	}
	if s.Time().After(e.Time()) {
		return nil, NewValidationError(FieldStart, "start %s is after stop %s",
			value.FormatTime(start), value.FormatTime(stop))
	}
	fields, tags, err := buildAttrs(eventFixedFields, attrs)
	if err != nil {
		return nil, err
	}
	return &Event{
		UUID:   id,
		Start:  s.Time(),
		Stop:   e.Time(),
		Author: norm.NFC.String(author),
		Fields: fields,
		Tags:   tags,
	}, nil
}

// Get returns the named attribute or an AttributeNotFoundError.
func (e *Event) Get(name string) (value.Value, error) {
	v, ok := e.Lookup(name)
	if !ok {
		return nil, &AttributeNotFoundError{Name: name}
	}
	return v, nil
}

// Lookup resolves a fixed field, "tags" or a dynamic field.
func (e *Event) Lookup(name string) (value.Value, bool) {
	switch name {
	case FieldUUID:
		return value.String(e.UUID.String()), true
	case FieldStart:
		return value.Time(e.Start), true
	case FieldStop:
		return value.Time(e.Stop), true
	case FieldAuthor:
		return value.String(e.Author), true
	}
	return lookupDynamic(e.Fields, e.Tags, name)
}

// Set assigns a dynamic field, or the tag set when name is "tags".
func (e *Event) Set(name string, v any) error {
	return setDynamic(eventFixedFields, &e.Fields, &e.Tags, name, v)
}

// Unset removes a dynamic field. Removing an absent field is a no-op.
func (e *Event) Unset(name string) {
	delete(e.Fields, name)
}

// Validate re-checks the event invariants.
func (e *Event) Validate() error {
	if e.UUID == uuid.Nil {
		return NewValidationError(FieldUUID, "is nil")
	}
	if _, err := value.NewTime(e.Start); err != nil {
		return NewValidationError(FieldStart, "%v", err)
	}
	if _, err := value.NewTime(e.Stop); err != nil {
		return NewValidationError(FieldStop, "%v", err)
	}
	if e.Start.After(e.Stop) {
		return NewValidationError(FieldStart, "start %s is after stop %s",
			value.FormatTime(e.Start), value.FormatTime(e.Stop))
	}
	return validateFields(eventFixedFields, e.Fields)
}

// Snapshot validates e and returns a normalized deep copy: UTC times and
// NFC strings. Sessions stage snapshots so later edits to e are not seen.
func (e *Event) Snapshot() (*Event, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &Event{
		UUID:   e.UUID,
		Start:  e.Start.UTC().Round(0),
		Stop:   e.Stop.UTC().Round(0),
		Author: norm.NFC.String(e.Author),
		Fields: normalizeFields(e.Fields),
		Tags:   normalizedSet(e.Tags.Sorted()),
	}, nil
}

// Clone returns a deep copy of e.
func (e *Event) Clone() *Event {
	c := *e
	c.Fields = e.Fields.Clone()
	c.Tags = value.NewSet(e.Tags.Sorted()...)
	return &c
}

// Equal compares every attribute except identity.
func (e *Event) Equal(o *Event) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.Start.Equal(o.Start) &&
		e.Stop.Equal(o.Stop) &&
		e.Author == o.Author &&
		e.Fields.Equal(o.Fields) &&
		tagsEqual(e.Tags, o.Tags)
}

func (e *Event) String() string {
	return fmt.Sprintf("Event(%s %s..%s author=%q %s)", e.UUID,
		value.FormatTime(e.Start), value.FormatTime(e.Stop), e.Author, describeAttrs(e.Fields, e.Tags))
}

// EqualEvents compares two event lists element-wise with Equal.
func EqualEvents(a, b []*Event) bool {
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
