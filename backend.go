package tscat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeandet/tscat/internal/filter"
	"github.com/jeandet/tscat/internal/metrics"
	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/store"
)

// Store is the persistence boundary of a Backend. *store.Store is the
// production implementation.
type Store interface {
	// Apply writes a batch of mutations atomically.
	Apply(ctx context.Context, muts []model.Mutation) error

	// Events lists events matching pred in creation order, restricted to
	// the members of catalogue unless it is uuid.Nil.
	Events(ctx context.Context, pred filter.Predicate, catalogue uuid.UUID) ([]*model.Event, error)

	// Catalogues lists catalogues matching pred in creation order.
	Catalogues(ctx context.Context, pred filter.Predicate) ([]*model.Catalogue, error)

	// Catalogue returns one catalogue or a *model.NotFoundError.
	Catalogue(ctx context.Context, id uuid.UUID) (*model.Catalogue, error)

	// DeleteAll removes every entity.
	DeleteAll(ctx context.Context) error

	Close() error
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = l
	}
}

// WithIDGenerator sets the identity source for new entities.
// Default: time-sortable UUIDv7.
func WithIDGenerator(g model.IDGenerator) Option {
	return func(b *Backend) {
		b.ids = g
	}
}

// Backend is a handle on one catalogue store.
//
// Thread-safety: the session slot is guarded by a mutex, so concurrent
// Begin calls are safe; everything else is serialized by the store.
type Backend struct {
	store  Store
	logger *slog.Logger
	ids    model.IDGenerator

	mu     sync.Mutex
	active *Session
}

// Open opens (or creates) the SQLite database at path.
// Use store.MemoryPath (":memory:") for a private in-memory database.
func Open(path string, opts ...Option) (*Backend, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}
	return New(s, opts...), nil
}

// New creates a Backend over an already opened store.
func New(s Store, opts ...Option) *Backend {
	b := &Backend{
		store:  s,
		logger: slog.Default(),
		ids:    model.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Close releases the store. An open session is abandoned.
func (b *Backend) Close() error {
	return b.store.Close()
}

// CreateEvent creates and immediately commits an event.
func (b *Backend) CreateEvent(ctx context.Context, start, stop time.Time, author string, attrs ...Attr) (*Event, error) {
	e, err := model.NewEvent(b.ids.NewID(), start, stop, author, attrs...)
	if err != nil {
		return nil, err
	}
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := b.apply(ctx, model.InsertEvent{Event: snap}); err != nil {
		return nil, err
	}
	metrics.EntitiesCreated.WithLabelValues(model.KindEvent).Inc()
	return e, nil
}

// CreateCatalogue creates and immediately commits a catalogue.
func (b *Backend) CreateCatalogue(ctx context.Context, name, author string, attrs ...Attr) (*Catalogue, error) {
	c, err := model.NewCatalogue(b.ids.NewID(), name, author, attrs...)
	if err != nil {
		return nil, err
	}
	snap, err := c.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := b.apply(ctx, model.InsertCatalogue{Catalogue: snap}); err != nil {
		return nil, err
	}
	metrics.EntitiesCreated.WithLabelValues(model.KindCatalogue).Inc()
	return c, nil
}

// AddEventsToCatalogue links events to c and commits. Adding an existing
// member is a no-op.
func (b *Backend) AddEventsToCatalogue(ctx context.Context, c *Catalogue, events ...*Event) error {
	m, err := addMembers(c, events)
	if err != nil {
		return err
	}
	return b.apply(ctx, m)
}

// UpdateEvent commits the current state of e.
func (b *Backend) UpdateEvent(ctx context.Context, e *Event) error {
	if e == nil {
		return model.NewValidationError("", "event is nil")
	}
	snap, err := e.Snapshot()
	if err != nil {
		return err
	}
	return b.apply(ctx, model.UpdateEvent{Event: snap})
}

// UpdateCatalogue commits the current state of c.
func (b *Backend) UpdateCatalogue(ctx context.Context, c *Catalogue) error {
	if c == nil {
		return model.NewValidationError("", "catalogue is nil")
	}
	snap, err := c.Snapshot()
	if err != nil {
		return err
	}
	return b.apply(ctx, model.UpdateCatalogue{Catalogue: snap})
}

// EventQuery selects events. A nil Catalogue means every event and a nil
// Filter matches everything; together they intersect.
type EventQuery struct {
	Catalogue *Catalogue
	Filter    Predicate
}

// GetEvents returns the committed events selected by q, in creation order.
func (b *Backend) GetEvents(ctx context.Context, q EventQuery) ([]*Event, error) {
	if err := filter.Validate(q.Filter); err != nil {
		return nil, err
	}
	catalogue := uuid.Nil
	if q.Catalogue != nil {
		catalogue = q.Catalogue.UUID
	}

	defer observeQuery(model.KindEvent, time.Now())
	events, err := b.store.Events(ctx, q.Filter, catalogue)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	return events, nil
}

// GetCatalogues returns the committed catalogues matching p, in creation
// order. A nil p lists every catalogue.
func (b *Backend) GetCatalogues(ctx context.Context, p Predicate) ([]*Catalogue, error) {
	if err := filter.Validate(p); err != nil {
		return nil, err
	}

	defer observeQuery(model.KindCatalogue, time.Now())
	catalogues, err := b.store.Catalogues(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("get catalogues: %w", err)
	}
	return catalogues, nil
}

// Discard deletes every event, catalogue and membership. It is not
// transactional with respect to sessions: an open session keeps its staged
// mutations, whose references may no longer resolve at commit.
func (b *Backend) Discard(ctx context.Context) error {
	if err := b.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("discard: %w", err)
	}
	b.logger.Info("store discarded")
	return nil
}

// apply commits mutations outside any session.
func (b *Backend) apply(ctx context.Context, muts ...model.Mutation) error {
	if err := b.store.Apply(ctx, muts); err != nil {
		return err
	}
	metrics.MutationsApplied.Add(float64(len(muts)))
	b.logger.Debug("mutations applied", "count", len(muts))
	return nil
}

func addMembers(c *Catalogue, events []*Event) (model.AddMembers, error) {
	if c == nil {
		return model.AddMembers{}, model.NewValidationError("catalogue", "is nil")
	}
	ids := make([]uuid.UUID, 0, len(events))
	for i, e := range events {
		if e == nil {
			return model.AddMembers{}, model.NewValidationError("events", "element %d is nil", i)
		}
		ids = append(ids, e.UUID)
	}
	return model.AddMembers{Catalogue: c.UUID, Events: ids}, nil
}

func observeQuery(kind string, start time.Time) {
	metrics.QueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
