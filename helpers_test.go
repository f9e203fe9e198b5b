package tscat

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeandet/tscat/internal/store"
	"github.com/jeandet/tscat/internal/testutil"
)

// newTestBackend opens a private in-memory backend with sequential ids.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(store.MemoryPath,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIDGenerator(testutil.NewSequentialIDs()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func minutes(n int) time.Time {
	return testutil.At(time.Duration(n) * time.Minute)
}

func mustEvent(t *testing.T, b *Backend, attrs ...Attr) *Event {
	t.Helper()
	e, err := b.CreateEvent(context.Background(), testutil.T0, testutil.T1, "Patrick", attrs...)
	require.NoError(t, err)
	return e
}

func mustCatalogue(t *testing.T, b *Backend, name string, attrs ...Attr) *Catalogue {
	t.Helper()
	c, err := b.CreateCatalogue(context.Background(), name, "Patrick", attrs...)
	require.NoError(t, err)
	return c
}

func mustEvents(t *testing.T, b *Backend, q EventQuery) []*Event {
	t.Helper()
	events, err := b.GetEvents(context.Background(), q)
	require.NoError(t, err)
	return events
}
