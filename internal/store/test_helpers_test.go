package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/testutil"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err, "Open() failed")
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent builds the n-th test event, starting n minutes after T0.
func createTestEvent(t *testing.T, n uint64, attrs ...model.Attr) *model.Event {
	t.Helper()
	e, err := model.NewEvent(testutil.ID(n),
		testutil.At(time.Duration(n)*time.Minute), testutil.T1, "Patrick", attrs...)
	require.NoError(t, err)
	return e
}

// createTestCatalogue builds a test catalogue with identity n.
func createTestCatalogue(t *testing.T, n uint64, name string, attrs ...model.Attr) *model.Catalogue {
	t.Helper()
	c, err := model.NewCatalogue(testutil.ID(n), name, "Patrick", attrs...)
	require.NoError(t, err)
	return c
}

// insert applies one insert mutation per entity.
func insert(t *testing.T, s *Store, entities ...any) {
	t.Helper()
	muts := make([]model.Mutation, 0, len(entities))
	for _, ent := range entities {
		switch e := ent.(type) {
		case *model.Event:
			muts = append(muts, model.InsertEvent{Event: e})
		case *model.Catalogue:
			muts = append(muts, model.InsertCatalogue{Catalogue: e})
		default:
			t.Fatalf("insert: unsupported %T", ent)
		}
	}
	require.NoError(t, s.Apply(context.Background(), muts))
}

func ids[T any](items []T, id func(T) uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, item := range items {
		out[i] = id(item)
	}
	return out
}

func eventIDs(events []*model.Event) []uuid.UUID {
	return ids(events, func(e *model.Event) uuid.UUID { return e.UUID })
}

func catalogueIDs(cats []*model.Catalogue) []uuid.UUID {
	return ids(cats, func(c *model.Catalogue) uuid.UUID { return c.UUID })
}
