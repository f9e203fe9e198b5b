package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/jeandet/tscat/internal/filter"
	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/querysql"
	"github.com/jeandet/tscat/internal/value"
)

var (
	eventColumns     = []string{"seq", "uuid", "start", "stop", "author"}
	catalogueColumns = []string{"seq", "uuid", "name", "author"}
	seqColumn        = []string{"seq"}
)

type eventRow struct {
	Seq    int64  `db:"seq"`
	UUID   string `db:"uuid"`
	Start  int64  `db:"start"`
	Stop   int64  `db:"stop"`
	Author string `db:"author"`
}

type catalogueRow struct {
	Seq    int64  `db:"seq"`
	UUID   string `db:"uuid"`
	Name   string `db:"name"`
	Author string `db:"author"`
}

// Events returns the events matching pred, in creation order.
// A nil pred matches every event. A non-nil catalogue restricts the result
// to its members; an unknown catalogue is a *model.NotFoundError.
func (s *Store) Events(ctx context.Context, pred filter.Predicate, catalogue uuid.UUID) ([]*model.Event, error) {
	var extra []exp.Expression
	if catalogue != uuid.Nil {
		catSeq, err := s.seq(ctx, catalogueTables, catalogue)
		if err != nil {
			return nil, err
		}
		extra = append(extra, goqu.L(
			"EXISTS (SELECT 1 FROM memberships m WHERE m.catalogue_seq = ? AND m.event_seq = e.seq)", catSeq))
	}

	compiler := querysql.NewSQLCompiler(querysql.Events)
	q, err := compiler.Select(eventColumns, pred, extra...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, q.SQL, q.Args...); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	if len(rows) == 0 {
		return []*model.Event{}, nil
	}

	owners, err := compiler.Select(seqColumn, pred, extra...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	fields, tags, err := s.loadAttributes(ctx, eventTables, owners)
	if err != nil {
		return nil, err
	}

	events := make([]*model.Event, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.UUID)
		if err != nil {
			return nil, fmt.Errorf("event %d: invalid uuid %q: %w", row.Seq, row.UUID, err)
		}
		events = append(events, &model.Event{
			UUID:   id,
			Start:  value.TimeFromUnixNano(row.Start).Time(),
			Stop:   value.TimeFromUnixNano(row.Stop).Time(),
			Author: row.Author,
			Fields: fieldsOf(fields, row.Seq),
			Tags:   tagsOf(tags, row.Seq),
		})
	}

	if !q.Exact {
		events = filter.Apply(pred, events)
	}
	return events, nil
}

// Catalogues returns the catalogues matching pred, in creation order.
// A nil pred matches every catalogue.
func (s *Store) Catalogues(ctx context.Context, pred filter.Predicate) ([]*model.Catalogue, error) {
	compiler := querysql.NewSQLCompiler(querysql.Catalogues)
	q, err := compiler.Select(catalogueColumns, pred)
	if err != nil {
		return nil, fmt.Errorf("query catalogues: %w", err)
	}
	var rows []catalogueRow
	if err := s.db.SelectContext(ctx, &rows, q.SQL, q.Args...); err != nil {
		return nil, fmt.Errorf("query catalogues: %w", err)
	}
	if len(rows) == 0 {
		return []*model.Catalogue{}, nil
	}

	owners, err := compiler.Select(seqColumn, pred)
	if err != nil {
		return nil, fmt.Errorf("query catalogues: %w", err)
	}
	fields, tags, err := s.loadAttributes(ctx, catalogueTables, owners)
	if err != nil {
		return nil, err
	}

	catalogues := make([]*model.Catalogue, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.UUID)
		if err != nil {
			return nil, fmt.Errorf("catalogue %d: invalid uuid %q: %w", row.Seq, row.UUID, err)
		}
		catalogues = append(catalogues, &model.Catalogue{
			UUID:   id,
			Name:   row.Name,
			Author: row.Author,
			Fields: fieldsOf(fields, row.Seq),
			Tags:   tagsOf(tags, row.Seq),
		})
	}

	if !q.Exact {
		catalogues = filter.Apply(pred, catalogues)
	}
	return catalogues, nil
}

// Catalogue returns one catalogue by identity.
func (s *Store) Catalogue(ctx context.Context, id uuid.UUID) (*model.Catalogue, error) {
	found, err := s.Catalogues(ctx, filter.Field(model.FieldUUID).Eq(id.String()))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, &model.NotFoundError{Kind: model.KindCatalogue, ID: id}
	}
	return found[0], nil
}

// Event returns one event by identity.
func (s *Store) Event(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	found, err := s.Events(ctx, filter.Field(model.FieldUUID).Eq(id.String()), uuid.Nil)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, &model.NotFoundError{Kind: model.KindEvent, ID: id}
	}
	return found[0], nil
}

// loadAttributes reads the fields and tags of every row selected by owners,
// keyed by owner seq.
func (s *Store) loadAttributes(ctx context.Context, tb tables, owners querysql.Query) (map[int64]model.Fields, map[int64]value.Set, error) {
	var fieldRows []fieldRow
	err := s.db.SelectContext(ctx, &fieldRows, fmt.Sprintf(`
		SELECT owner_seq, name, kind, text_value, int_value, num_value
		FROM %s WHERE owner_seq IN (%s)
	`, tb.fields, owners.SQL), owners.Args...)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s fields: %w", tb.kind, err)
	}
	fields := make(map[int64]model.Fields)
	for _, row := range fieldRows {
		v, err := row.decode()
		if err != nil {
			return nil, nil, fmt.Errorf("load %s fields: %w", tb.kind, err)
		}
		if fields[row.OwnerSeq] == nil {
			fields[row.OwnerSeq] = make(model.Fields)
		}
		fields[row.OwnerSeq][row.Name] = v
	}

	var tagRows []tagRow
	err = s.db.SelectContext(ctx, &tagRows, fmt.Sprintf(`
		SELECT owner_seq, tag FROM %s WHERE owner_seq IN (%s)
	`, tb.tags, owners.SQL), owners.Args...)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s tags: %w", tb.kind, err)
	}
	tags := make(map[int64]value.Set)
	for _, row := range tagRows {
		if tags[row.OwnerSeq] == nil {
			tags[row.OwnerSeq] = value.NewSet()
		}
		tags[row.OwnerSeq][row.Tag] = struct{}{}
	}
	return fields, tags, nil
}

// seq resolves an identity outside any write transaction.
func (s *Store) seq(ctx context.Context, tb tables, id uuid.UUID) (int64, error) {
	var seq int64
	err := s.db.GetContext(ctx, &seq, fmt.Sprintf(`SELECT seq FROM %s WHERE uuid = ?`, tb.entity), id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &model.NotFoundError{Kind: tb.kind, ID: id}
	}
	if err != nil {
		return 0, fmt.Errorf("lookup %s %s: %w", tb.kind, id, err)
	}
	return seq, nil
}

func fieldsOf(m map[int64]model.Fields, seq int64) model.Fields {
	if f, ok := m[seq]; ok {
		return f
	}
	return model.Fields{}
}

func tagsOf(m map[int64]value.Set, seq int64) value.Set {
	if t, ok := m[seq]; ok {
		return t
	}
	return value.NewSet()
}
