package store

import (
	"database/sql"
	"fmt"

	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/value"
)

// Storage kinds of a fields-table row. They match the kind names the SQL
// compiler filters on.
const (
	kindString = string(value.KindString)
	kindInt    = string(value.KindInt)
	kindFloat  = string(value.KindFloat)
	kindBool   = string(value.KindBool)
	kindTime   = string(value.KindTime)
)

// fieldRow is one row of event_fields or catalogue_fields.
type fieldRow struct {
	OwnerSeq int64           `db:"owner_seq"`
	Name     string          `db:"name"`
	Kind     string          `db:"kind"`
	Text     sql.NullString  `db:"text_value"`
	Int      sql.NullInt64   `db:"int_value"`
	Num      sql.NullFloat64 `db:"num_value"`
}

// tagRow is one row of event_tags or catalogue_tags.
type tagRow struct {
	OwnerSeq int64  `db:"owner_seq"`
	Tag      string `db:"tag"`
}

// encodeField converts a dynamic field to its row form. Ints are mirrored
// into num_value so numeric comparisons across int and float need one column.
func encodeField(owner int64, name string, v value.Value) (fieldRow, error) {
	row := fieldRow{OwnerSeq: owner, Name: name}
	switch val := v.(type) {
	case value.String:
		row.Kind = kindString
		row.Text = sql.NullString{String: string(val), Valid: true}
	case value.Int:
		row.Kind = kindInt
		row.Int = sql.NullInt64{Int64: int64(val), Valid: true}
		row.Num = sql.NullFloat64{Float64: float64(val), Valid: true}
	case value.Float:
		row.Kind = kindFloat
		row.Num = sql.NullFloat64{Float64: float64(val), Valid: true}
	case value.Bool:
		row.Kind = kindBool
		var b int64
		if val {
			b = 1
		}
		row.Int = sql.NullInt64{Int64: b, Valid: true}
	case value.Time:
		row.Kind = kindTime
		row.Int = sql.NullInt64{Int64: val.UnixNano(), Valid: true}
	default:
		return fieldRow{}, model.NewValidationError(name, "cannot store %T", v)
	}
	return row, nil
}

// decode converts a row back to its value.
func (r fieldRow) decode() (value.Value, error) {
	switch r.Kind {
	case kindString:
		return value.String(r.Text.String), nil
	case kindInt:
		return value.Int(r.Int.Int64), nil
	case kindFloat:
		return value.Float(r.Num.Float64), nil
	case kindBool:
		return value.Bool(r.Int.Int64 != 0), nil
	case kindTime:
		return value.TimeFromUnixNano(r.Int.Int64), nil
	default:
		return nil, fmt.Errorf("field %q: unknown stored kind %q", r.Name, r.Kind)
	}
}
