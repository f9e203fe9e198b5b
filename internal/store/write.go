package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/value"
)

// tables names the rows backing one entity kind.
type tables struct {
	kind   string
	entity string
	fields string
	tags   string
}

var (
	eventTables     = tables{kind: model.KindEvent, entity: "events", fields: "event_fields", tags: "event_tags"}
	catalogueTables = tables{kind: model.KindCatalogue, entity: "catalogues", fields: "catalogue_fields", tags: "catalogue_tags"}
)

// Apply writes a batch of mutations in one transaction, in order.
// Either every mutation is applied or none is.
//
// A reference to an unknown event or catalogue is a *model.NotFoundError;
// inserting an identity that already exists is a *model.ValidationError.
func (s *Store) Apply(ctx context.Context, muts []model.Mutation) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range muts {
		if err := tx.Apply(ctx, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Tx is an open write transaction. Statements are prepared on first use and
// reused for the rest of the transaction.
//
// A Tx is not safe for concurrent use.
type Tx struct {
	tx    *sqlx.Tx
	stmts map[string]*sqlx.Stmt
	named map[string]*sqlx.NamedStmt
	seqs  map[string]map[uuid.UUID]int64
	done  bool
}

// Begin opens a write transaction. The caller must Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Tx{
		tx:    tx,
		stmts: make(map[string]*sqlx.Stmt),
		named: make(map[string]*sqlx.NamedStmt),
		seqs: map[string]map[uuid.UUID]int64{
			eventTables.entity:     {},
			catalogueTables.entity: {},
		},
	}, nil
}

// Commit makes the transaction's writes durable.
func (t *Tx) Commit() error {
	t.closeStatements()
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards the transaction's writes. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.closeStatements()
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// Apply writes one mutation.
func (t *Tx) Apply(ctx context.Context, m model.Mutation) error {
	switch mut := m.(type) {
	case model.InsertEvent:
		return t.insertEvent(ctx, mut.Event)
	case *model.InsertEvent:
		return t.insertEvent(ctx, mut.Event)
	case model.InsertCatalogue:
		return t.insertCatalogue(ctx, mut.Catalogue)
	case *model.InsertCatalogue:
		return t.insertCatalogue(ctx, mut.Catalogue)
	case model.UpdateEvent:
		return t.updateEvent(ctx, mut.Event)
	case *model.UpdateEvent:
		return t.updateEvent(ctx, mut.Event)
	case model.UpdateCatalogue:
		return t.updateCatalogue(ctx, mut.Catalogue)
	case *model.UpdateCatalogue:
		return t.updateCatalogue(ctx, mut.Catalogue)
	case model.AddMembers:
		return t.addMembers(ctx, mut)
	case *model.AddMembers:
		return t.addMembers(ctx, *mut)
	default:
		return fmt.Errorf("unsupported mutation type: %T", m)
	}
}

func (t *Tx) insertEvent(ctx context.Context, e *model.Event) error {
	if e == nil {
		return model.NewValidationError("", "insert of nil event")
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := t.mustNotExist(ctx, eventTables, e.UUID); err != nil {
		return err
	}

	stmt, err := t.prepare(ctx, `INSERT INTO events (uuid, start, stop, author) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	res, err := stmt.ExecContext(ctx, e.UUID.String(), e.Start.UnixNano(), e.Stop.UnixNano(), e.Author)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.UUID, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.UUID, err)
	}
	t.seqs[eventTables.entity][e.UUID] = seq

	return t.writeAttributes(ctx, eventTables, seq, e.Fields, e.Tags)
}

func (t *Tx) insertCatalogue(ctx context.Context, c *model.Catalogue) error {
	if c == nil {
		return model.NewValidationError("", "insert of nil catalogue")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := t.mustNotExist(ctx, catalogueTables, c.UUID); err != nil {
		return err
	}

	stmt, err := t.prepare(ctx, `INSERT INTO catalogues (uuid, name, author) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	res, err := stmt.ExecContext(ctx, c.UUID.String(), c.Name, c.Author)
	if err != nil {
		return fmt.Errorf("insert catalogue %s: %w", c.UUID, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert catalogue %s: %w", c.UUID, err)
	}
	t.seqs[catalogueTables.entity][c.UUID] = seq

	return t.writeAttributes(ctx, catalogueTables, seq, c.Fields, c.Tags)
}

func (t *Tx) updateEvent(ctx context.Context, e *model.Event) error {
	if e == nil {
		return model.NewValidationError("", "update of nil event")
	}
	if err := e.Validate(); err != nil {
		return err
	}
	seq, err := t.seq(ctx, eventTables, e.UUID)
	if err != nil {
		return err
	}

	stmt, err := t.prepare(ctx, `UPDATE events SET start = ?, stop = ?, author = ? WHERE seq = ?`)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, e.Start.UnixNano(), e.Stop.UnixNano(), e.Author, seq); err != nil {
		return fmt.Errorf("update event %s: %w", e.UUID, err)
	}
	if err := t.clearAttributes(ctx, eventTables, seq); err != nil {
		return err
	}
	return t.writeAttributes(ctx, eventTables, seq, e.Fields, e.Tags)
}

func (t *Tx) updateCatalogue(ctx context.Context, c *model.Catalogue) error {
	if c == nil {
		return model.NewValidationError("", "update of nil catalogue")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	seq, err := t.seq(ctx, catalogueTables, c.UUID)
	if err != nil {
		return err
	}

	stmt, err := t.prepare(ctx, `UPDATE catalogues SET name = ?, author = ? WHERE seq = ?`)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, c.Name, c.Author, seq); err != nil {
		return fmt.Errorf("update catalogue %s: %w", c.UUID, err)
	}
	if err := t.clearAttributes(ctx, catalogueTables, seq); err != nil {
		return err
	}
	return t.writeAttributes(ctx, catalogueTables, seq, c.Fields, c.Tags)
}

// addMembers links events to a catalogue. Uses ON CONFLICT DO NOTHING so
// adding an existing member is a no-op.
func (t *Tx) addMembers(ctx context.Context, m model.AddMembers) error {
	catSeq, err := t.seq(ctx, catalogueTables, m.Catalogue)
	if err != nil {
		return err
	}

	stmt, err := t.prepare(ctx, `
		INSERT INTO memberships (catalogue_seq, event_seq) VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return err
	}
	for _, id := range m.Events {
		evSeq, err := t.seq(ctx, eventTables, id)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, catSeq, evSeq); err != nil {
			return fmt.Errorf("add event %s to catalogue %s: %w", id, m.Catalogue, err)
		}
	}
	return nil
}

// writeAttributes inserts the dynamic fields and tags of the entity at seq.
func (t *Tx) writeAttributes(ctx context.Context, tb tables, seq int64, fields model.Fields, tags value.Set) error {
	if len(fields) > 0 {
		stmt, err := t.prepareNamed(ctx, fmt.Sprintf(`
			INSERT INTO %s (owner_seq, name, kind, text_value, int_value, num_value)
			VALUES (:owner_seq, :name, :kind, :text_value, :int_value, :num_value)
		`, tb.fields))
		if err != nil {
			return err
		}
		for _, name := range fields.Names() {
			row, err := encodeField(seq, name, fields[name])
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, row); err != nil {
				return fmt.Errorf("write %s field %q: %w", tb.kind, name, err)
			}
		}
	}

	if len(tags) > 0 {
		stmt, err := t.prepareNamed(ctx, fmt.Sprintf(
			`INSERT INTO %s (owner_seq, tag) VALUES (:owner_seq, :tag)`, tb.tags))
		if err != nil {
			return err
		}
		for _, tag := range tags.Sorted() {
			if _, err := stmt.ExecContext(ctx, tagRow{OwnerSeq: seq, Tag: tag}); err != nil {
				return fmt.Errorf("write %s tag %q: %w", tb.kind, tag, err)
			}
		}
	}
	return nil
}

// clearAttributes deletes every field and tag of the entity at seq.
func (t *Tx) clearAttributes(ctx context.Context, tb tables, seq int64) error {
	for _, table := range []string{tb.fields, tb.tags} {
		stmt, err := t.prepare(ctx, fmt.Sprintf(`DELETE FROM %s WHERE owner_seq = ?`, table))
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, seq); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// seq resolves an identity to its row sequence number.
func (t *Tx) seq(ctx context.Context, tb tables, id uuid.UUID) (int64, error) {
	if seq, ok := t.seqs[tb.entity][id]; ok {
		return seq, nil
	}
	stmt, err := t.prepare(ctx, fmt.Sprintf(`SELECT seq FROM %s WHERE uuid = ?`, tb.entity))
	if err != nil {
		return 0, err
	}
	var seq int64
	if err := stmt.GetContext(ctx, &seq, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &model.NotFoundError{Kind: tb.kind, ID: id}
		}
		return 0, fmt.Errorf("lookup %s %s: %w", tb.kind, id, err)
	}
	t.seqs[tb.entity][id] = seq
	return seq, nil
}

func (t *Tx) mustNotExist(ctx context.Context, tb tables, id uuid.UUID) error {
	_, err := t.seq(ctx, tb, id)
	if err == nil {
		return model.NewValidationError(model.FieldUUID, "%s %s already exists", tb.kind, id)
	}
	if model.IsNotFound(err) {
		return nil
	}
	return err
}

func (t *Tx) prepare(ctx context.Context, query string) (*sqlx.Stmt, error) {
	if stmt, ok := t.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := t.tx.PreparexContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	t.stmts[query] = stmt
	return stmt, nil
}

func (t *Tx) prepareNamed(ctx context.Context, query string) (*sqlx.NamedStmt, error) {
	if stmt, ok := t.named[query]; ok {
		return stmt, nil
	}
	stmt, err := t.tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	t.named[query] = stmt
	return stmt, nil
}

func (t *Tx) closeStatements() {
	for _, stmt := range t.stmts {
		stmt.Close()
	}
	for _, stmt := range t.named {
		stmt.Close()
	}
	clear(t.stmts)
	clear(t.named)
}
