package tscat

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeandet/tscat/internal/metrics"
	tsutil "github.com/jeandet/tscat/internal/testutil"
	"github.com/jeandet/tscat/internal/value"
)

func TestSession_Commit(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	committed := testutil.ToFloat64(metrics.Sessions.WithLabelValues(metrics.OutcomeCommitted))

	var created *Event
	err := b.Session(ctx, func(s *Session) error {
		e, err := s.CreateEvent(tsutil.T0, tsutil.T1, "Patrick", WithTags("a"))
		if err != nil {
			return err
		}
		c, err := s.CreateCatalogue("Test1", "Patrick")
		if err != nil {
			return err
		}
		created = e

		// Staged entities are not visible before commit.
		events, err := b.GetEvents(ctx, EventQuery{})
		require.NoError(t, err)
		assert.Empty(t, events)

		return s.AddEventsToCatalogue(ctx, c, e)
	})
	require.NoError(t, err)

	cats, err := b.GetCatalogues(ctx, nil)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	members := mustEvents(t, b, EventQuery{Catalogue: cats[0]})
	require.Len(t, members, 1)
	assert.Equal(t, created.UUID, members[0].UUID)
	assert.Equal(t, committed+1, testutil.ToFloat64(metrics.Sessions.WithLabelValues(metrics.OutcomeCommitted)))
}

func TestSession_ErrorRollsBack(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := b.Session(ctx, func(s *Session) error {
		if _, err := s.CreateEvent(tsutil.T0, tsutil.T1, "Patrick"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, mustEvents(t, b, EventQuery{}))

	// The slot is free again.
	s, err := b.Begin(ctx)
	require.NoError(t, err)
	s.Rollback()
}

func TestSession_PanicRollsBack(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	assert.PanicsWithValue(t, "boom", func() {
		_ = b.Session(ctx, func(s *Session) error {
			if _, err := s.CreateEvent(tsutil.T0, tsutil.T1, "Patrick"); err != nil {
				return err
			}
			panic("boom")
		})
	})
	assert.Empty(t, mustEvents(t, b, EventQuery{}))

	_, err := b.Begin(ctx)
	assert.NoError(t, err)
}

func TestSession_OnlyOneActive(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	s, err := b.Begin(ctx)
	require.NoError(t, err)

	_, err = b.Begin(ctx)
	assert.ErrorIs(t, err, ErrSessionActive)
	assert.ErrorIs(t, b.Session(ctx, func(*Session) error { return nil }), ErrSessionActive)

	require.NoError(t, s.Commit(ctx))
	s2, err := b.Begin(ctx)
	require.NoError(t, err)
	s2.Rollback()
}

func TestSession_ClosedSessionFails(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	s, err := b.Begin(ctx)
	require.NoError(t, err)
	s.Rollback()
	s.Rollback() // no-op

	_, err = s.CreateEvent(tsutil.T0, tsutil.T1, "Patrick")
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.CreateCatalogue("c", "Patrick")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.Commit(ctx), ErrSessionClosed)
	assert.ErrorIs(t, s.UpdateEvent(nil), ErrSessionClosed)
}

func TestSession_RollbackAfterCommitIsNoop(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	s, err := b.Begin(ctx)
	require.NoError(t, err)
	defer s.Rollback()

	_, err = s.CreateEvent(tsutil.T0, tsutil.T1, "Patrick")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pending())
	require.NoError(t, s.Commit(ctx))

	s.Rollback()
	assert.Len(t, mustEvents(t, b, EventQuery{}), 1)
}

func TestSession_UnknownCatalogue(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	other := newTestBackend(t)
	foreign := mustCatalogue(t, other, "elsewhere")
	foreign.UUID = tsutil.ID(77)

	err := b.Session(ctx, func(s *Session) error {
		e, err := s.CreateEvent(tsutil.T0, tsutil.T1, "Patrick")
		if err != nil {
			return err
		}
		return s.AddEventsToCatalogue(ctx, foreign, e)
	})
	assert.True(t, IsNotFound(err))
	assert.Empty(t, mustEvents(t, b, EventQuery{}))
}

func TestSession_CommitFailureAppliesNothing(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	c := mustCatalogue(t, b, "c")

	s, err := b.Begin(ctx)
	require.NoError(t, err)
	defer s.Rollback()

	e, err := s.CreateEvent(tsutil.T0, tsutil.T1, "Patrick")
	require.NoError(t, err)
	require.NoError(t, s.AddEventsToCatalogue(ctx, c, e))

	// The catalogue disappears before commit.
	require.NoError(t, b.Discard(ctx))

	err = s.Commit(ctx)
	var ce *CommitError
	require.True(t, errors.As(err, &ce))
	assert.True(t, IsNotFound(ce))
	assert.Empty(t, mustEvents(t, b, EventQuery{}))
}

func TestSession_UnknownEventSurfacesAtCommit(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	c := mustCatalogue(t, b, "c")
	ghost := mustEvent(t, newTestBackend(t))
	ghost.UUID = tsutil.ID(99)

	err := b.Session(ctx, func(s *Session) error {
		if _, err := s.CreateEvent(tsutil.T0, tsutil.T1, "Patrick"); err != nil {
			return err
		}
		return s.AddEventsToCatalogue(ctx, c, ghost)
	})
	var ce *CommitError
	require.True(t, errors.As(err, &ce))
	assert.Empty(t, mustEvents(t, b, EventQuery{}))
}

func TestSession_UpdateStagesSnapshot(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	e := mustEvent(t, b, With("field1", 1))

	err := b.Session(ctx, func(s *Session) error {
		require.NoError(t, e.Set("field1", 2))
		if err := s.UpdateEvent(e); err != nil {
			return err
		}
		// Edits after staging are not committed.
		return e.Set("field1", 3)
	})
	require.NoError(t, err)

	got := mustEvents(t, b, EventQuery{})
	require.Len(t, got, 1)
	v, err := got[0].Get("field1")
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), v)
}
