package querysql

import "github.com/jeandet/tscat/internal/value"

// FieldTags is the reserved set-valued field backed by a tags table.
const FieldTags = "tags"

// Column maps a fixed attribute to a column of the entity table.
type Column struct {
	Name string
	// Kind is the value kind the attribute resolves to. Times are stored as
	// INTEGER nanoseconds since the Unix epoch.
	Kind value.Kind
}

// Target describes the tables backing one entity kind.
type Target struct {
	// Table is the entity table, selected under Alias.
	Table string
	Alias string

	// Columns maps fixed attribute names to columns of Table.
	Columns map[string]Column

	// FieldsTable holds dynamic fields: (owner_seq, name, kind, text_value,
	// int_value, num_value).
	FieldsTable string

	// TagsTable holds tags: (owner_seq, tag).
	TagsTable string
}

// Events is the Target for the events table.
var Events = Target{
	Table: "events",
	Alias: "e",
	Columns: map[string]Column{
		"uuid":   {Name: "uuid", Kind: value.KindString},
		"start":  {Name: "start", Kind: value.KindTime},
		"stop":   {Name: "stop", Kind: value.KindTime},
		"author": {Name: "author", Kind: value.KindString},
	},
	FieldsTable: "event_fields",
	TagsTable:   "event_tags",
}

// Catalogues is the Target for the catalogues table.
var Catalogues = Target{
	Table: "catalogues",
	Alias: "c",
	Columns: map[string]Column{
		"uuid":   {Name: "uuid", Kind: value.KindString},
		"name":   {Name: "name", Kind: value.KindString},
		"author": {Name: "author", Kind: value.KindString},
	},
	FieldsTable: "catalogue_fields",
	TagsTable:   "catalogue_tags",
}
