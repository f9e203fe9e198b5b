package tscat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jeandet/tscat/internal/metrics"
	"github.com/jeandet/tscat/internal/model"
)

// Session stages mutations and applies them atomically at Commit.
//
// Entities created in a session can be passed to its other methods right
// away, but queries only see them once the session commits.
//
// A Session is not safe for concurrent use.
type Session struct {
	b      *Backend
	muts   []model.Mutation
	staged map[uuid.UUID]string // identity -> entity kind
	closed bool
}

// Begin opens a session. Only one session may be open per Backend; Begin
// fails with ErrSessionActive while another is open.
//
// Callers defer Rollback, which is a no-op once Commit has run:
//
//	s, err := b.Begin(ctx)
//	if err != nil {
//		return err
//	}
//	defer s.Rollback()
//	...
//	return s.Commit(ctx)
func (b *Backend) Begin(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active != nil {
		return nil, ErrSessionActive
	}
	s := &Session{b: b, staged: make(map[uuid.UUID]string)}
	b.active = s
	b.logger.Debug("session opened")
	return s, nil
}

// Session runs fn inside a new session. It commits when fn returns nil.
// When fn returns an error the session is rolled back and the error is
// returned; when fn panics the session is rolled back and the panic
// continues.
func (b *Backend) Session(ctx context.Context, fn func(*Session) error) error {
	s, err := b.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			s.Rollback()
			panic(r)
		}
	}()

	if err := fn(s); err != nil {
		s.Rollback()
		return err
	}
	return s.Commit(ctx)
}

// CreateEvent stages a new event.
func (s *Session) CreateEvent(start, stop time.Time, author string, attrs ...Attr) (*Event, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	e, err := model.NewEvent(s.b.ids.NewID(), start, stop, author, attrs...)
	if err != nil {
		return nil, err
	}
	if err := s.stageEvent(e); err != nil {
		return nil, err
	}
	return e, nil
}

// CreateCatalogue stages a new catalogue.
func (s *Session) CreateCatalogue(name, author string, attrs ...Attr) (*Catalogue, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	c, err := model.NewCatalogue(s.b.ids.NewID(), name, author, attrs...)
	if err != nil {
		return nil, err
	}
	if err := s.stageCatalogue(c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddEventsToCatalogue stages membership of events in c. c must be staged in
// this session or already stored; event references are checked at commit.
func (s *Session) AddEventsToCatalogue(ctx context.Context, c *Catalogue, events ...*Event) error {
	if s.closed {
		return ErrSessionClosed
	}
	m, err := addMembers(c, events)
	if err != nil {
		return err
	}
	if s.staged[c.UUID] != model.KindCatalogue {
		if _, err := s.b.store.Catalogue(ctx, c.UUID); err != nil {
			return err
		}
	}
	s.muts = append(s.muts, m)
	return nil
}

// UpdateEvent stages the current state of e. Later edits to e are not
// included unless UpdateEvent is called again.
func (s *Session) UpdateEvent(e *Event) error {
	if s.closed {
		return ErrSessionClosed
	}
	if e == nil {
		return model.NewValidationError("", "event is nil")
	}
	snap, err := e.Snapshot()
	if err != nil {
		return err
	}
	s.muts = append(s.muts, model.UpdateEvent{Event: snap})
	return nil
}

// UpdateCatalogue stages the current state of c.
func (s *Session) UpdateCatalogue(c *Catalogue) error {
	if s.closed {
		return ErrSessionClosed
	}
	if c == nil {
		return model.NewValidationError("", "catalogue is nil")
	}
	snap, err := c.Snapshot()
	if err != nil {
		return err
	}
	s.muts = append(s.muts, model.UpdateCatalogue{Catalogue: snap})
	return nil
}

// Pending returns the number of staged mutations.
func (s *Session) Pending() int {
	return len(s.muts)
}

// Commit applies every staged mutation in one transaction. On failure
// nothing is applied and the cause is returned wrapped in a *CommitError.
// The session is closed either way.
func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	defer s.close()

	if err := s.b.store.Apply(ctx, s.muts); err != nil {
		metrics.Sessions.WithLabelValues(metrics.OutcomeFailed).Inc()
		s.b.logger.Warn("session commit failed", "mutations", len(s.muts), "error", err)
		return &CommitError{Err: err}
	}

	metrics.Sessions.WithLabelValues(metrics.OutcomeCommitted).Inc()
	metrics.MutationsApplied.Add(float64(len(s.muts)))
	for _, kind := range s.staged {
		metrics.EntitiesCreated.WithLabelValues(kind).Inc()
	}
	s.b.logger.Info("session committed", "mutations", len(s.muts), "created", len(s.staged))
	return nil
}

// Rollback discards every staged mutation and closes the session. It is a
// no-op on a closed session.
func (s *Session) Rollback() {
	if s.closed {
		return
	}
	metrics.Sessions.WithLabelValues(metrics.OutcomeRolledBack).Inc()
	s.b.logger.Info("session rolled back", "mutations", len(s.muts))
	s.close()
}

func (s *Session) close() {
	s.closed = true
	s.muts = nil

	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.b.active == s {
		s.b.active = nil
	}
}

// stageEvent stages the insertion of a snapshot of e.
func (s *Session) stageEvent(e *Event) error {
	snap, err := e.Snapshot()
	if err != nil {
		return err
	}
	s.muts = append(s.muts, model.InsertEvent{Event: snap})
	s.staged[e.UUID] = model.KindEvent
	return nil
}

// stageCatalogue stages the insertion of a snapshot of c.
func (s *Session) stageCatalogue(c *Catalogue) error {
	snap, err := c.Snapshot()
	if err != nil {
		return err
	}
	s.muts = append(s.muts, model.InsertCatalogue{Catalogue: snap})
	s.staged[c.UUID] = model.KindCatalogue
	return nil
}
