package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/testutil"
	"github.com/jeandet/tscat/internal/value"
)

func TestApply_InsertEventRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := createTestEvent(t, 1,
		model.With("s", "héllo"),
		model.With("i", -42),
		model.With("f", 0.25),
		model.With("b", true),
		model.With("when", time.Date(2021, 6, 1, 12, 0, 0, 123456789, time.UTC)),
		model.WithTags("a", "b"),
	)
	insert(t, s, e)

	got, err := s.Event(ctx, e.UUID)
	require.NoError(t, err)
	assert.Equal(t, e.UUID, got.UUID)
	assert.True(t, e.Equal(got), "got %s", got)
	assert.Equal(t, value.Int(-42), got.Fields["i"])
	assert.Equal(t, value.Float(0.25), got.Fields["f"])
	assert.Equal(t, value.Bool(true), got.Fields["b"])
	assert.Equal(t, []string{"a", "b"}, got.Tags.Sorted())
}

func TestApply_InsertCatalogueRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := createTestCatalogue(t, 1, "Test1", model.With("mission", "MMS"), model.WithTags("x"))
	insert(t, s, c)

	got, err := s.Catalogue(ctx, c.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Test1", got.Name)
	assert.True(t, c.Equal(got))
}

func TestApply_DuplicateInsertIsValidationError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := createTestEvent(t, 1)
	insert(t, s, e)

	err := s.Apply(ctx, []model.Mutation{model.InsertEvent{Event: e}})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	err = s.Apply(ctx, []model.Mutation{
		model.InsertEvent{Event: createTestEvent(t, 2)},
		model.InsertEvent{Event: createTestEvent(t, 2)},
	})
	require.Error(t, err)
	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Events, "failed batch must not leave rows")
}

func TestApply_RollsBackOnUnknownReference(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	missing := testutil.ID(99)
	err := s.Apply(ctx, []model.Mutation{
		model.InsertEvent{Event: createTestEvent(t, 1)},
		model.InsertCatalogue{Catalogue: createTestCatalogue(t, 2, "c")},
		model.AddMembers{Catalogue: testutil.ID(2), Events: []uuid.UUID{testutil.ID(1), missing}},
	})
	require.Error(t, err)

	var nf *model.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, model.KindEvent, nf.Kind)
	assert.Equal(t, missing, nf.ID)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)
}

func TestApply_UnknownCatalogue(t *testing.T) {
	s := createTestStore(t)

	err := s.Apply(context.Background(), []model.Mutation{
		&model.AddMembers{Catalogue: testutil.ID(5)},
	})
	var nf *model.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, model.KindCatalogue, nf.Kind)
}

func TestApply_MembershipIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := createTestEvent(t, 1)
	c := createTestCatalogue(t, 2, "c")
	insert(t, s, e, c)

	add := model.AddMembers{Catalogue: c.UUID, Events: []uuid.UUID{e.UUID, e.UUID}}
	require.NoError(t, s.Apply(ctx, []model.Mutation{add}))
	require.NoError(t, s.Apply(ctx, []model.Mutation{add}))

	members, err := s.Events(ctx, nil, c.UUID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{e.UUID}, eventIDs(members))
}

func TestApply_UpdateReplacesAttributes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := createTestEvent(t, 1, model.With("keep", 1), model.With("drop", "x"), model.WithTags("a"))
	insert(t, s, e)

	updated := e.Clone()
	updated.Author = "Alexis"
	updated.Stop = updated.Stop.Add(time.Hour)
	updated.Unset("drop")
	require.NoError(t, updated.Set("keep", 2))
	require.NoError(t, updated.Set("tags", []string{"z"}))
	require.NoError(t, s.Apply(ctx, []model.Mutation{model.UpdateEvent{Event: updated}}))

	got, err := s.Event(ctx, e.UUID)
	require.NoError(t, err)
	assert.True(t, updated.Equal(got), "got %s", got)
	_, ok := got.Fields["drop"]
	assert.False(t, ok)
}

func TestApply_UpdateCatalogue(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := createTestCatalogue(t, 1, "before")
	insert(t, s, c)

	updated := c.Clone()
	updated.Name = "after"
	require.NoError(t, updated.Set("k", 1.5))
	require.NoError(t, s.Apply(ctx, []model.Mutation{&model.UpdateCatalogue{Catalogue: updated}}))

	got, err := s.Catalogue(ctx, c.UUID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)
	assert.Equal(t, value.Float(1.5), got.Fields["k"])
}

func TestApply_UpdateUnknownIsNotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.Apply(context.Background(), []model.Mutation{model.UpdateEvent{Event: createTestEvent(t, 1)}})
	assert.True(t, model.IsNotFound(err))
}

func TestApply_InvalidEntityIsRejected(t *testing.T) {
	s := createTestStore(t)

	e := createTestEvent(t, 1)
	e.Start = e.Stop.Add(time.Second)
	err := s.Apply(context.Background(), []model.Mutation{model.InsertEvent{Event: e}})
	assert.True(t, model.IsValidation(err))
}

func TestApply_EmptyBatch(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.Apply(context.Background(), nil))
}

func TestTx_RollbackAfterCommitIsNoop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Apply(ctx, model.InsertEvent{Event: createTestEvent(t, 1)}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback())

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Events)
}

func TestTx_Rollback(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Apply(ctx, model.InsertEvent{Event: createTestEvent(t, 1)}))
	require.NoError(t, tx.Rollback())

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Events)
}
