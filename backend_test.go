package tscat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeandet/tscat/internal/testutil"
)

func TestGetEvents_TagScenario(t *testing.T) {
	b := newTestBackend(t)

	e1 := mustEvent(t, b, WithTags("a", "b"))
	e2 := mustEvent(t, b, WithTags("b", "c"))
	mustEvent(t, b, WithTags("c", "d"))

	got := mustEvents(t, b, EventQuery{Filter: In("b", Field("tags"))})
	require.Len(t, got, 2)
	assert.Equal(t, e1.UUID, got[0].UUID)
	assert.Equal(t, e2.UUID, got[1].UUID)
	assert.True(t, EqualEvents([]*Event{e1, e2}, got))
}

func TestGetEvents_QueryShapes(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	e1 := mustEvent(t, b, With("field1", 1))
	e2 := mustEvent(t, b, With("field1", 2))
	e3 := mustEvent(t, b, With("field2", "x"))
	c := mustCatalogue(t, b, "c")
	require.NoError(t, b.AddEventsToCatalogue(ctx, c, e2, e3))

	assert.Len(t, mustEvents(t, b, EventQuery{}), 3)
	assert.True(t, EqualEvents([]*Event{e2, e3}, mustEvents(t, b, EventQuery{Catalogue: c})))
	assert.True(t, EqualEvents([]*Event{e1, e2}, mustEvents(t, b, EventQuery{Filter: Field("field1").Exists()})))
	assert.True(t, EqualEvents([]*Event{e2}, mustEvents(t, b, EventQuery{Catalogue: c, Filter: Field("field1").Exists()})))
}

func TestGetEvents_MissingFieldNeverMatches(t *testing.T) {
	b := newTestBackend(t)
	mustEvent(t, b)

	for _, p := range []Predicate{
		Field("nope").Eq(1),
		Field("nope").Ne(1),
		Field("nope").Gt(0),
		In("x", Field("nope")),
	} {
		events, err := b.GetEvents(context.Background(), EventQuery{Filter: p})
		require.NoError(t, err)
		assert.Empty(t, events, FormatFilter(p))
	}
}

func TestGetEvents_InvalidFilter(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.GetEvents(context.Background(), EventQuery{Filter: Field("").Eq(1)})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "filter", ve.Field)
}

func TestGetCatalogues(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	c1 := mustCatalogue(t, b, "Test1", With("mission", "MMS"))
	c2 := mustCatalogue(t, b, "Test2")

	all, err := b.GetCatalogues(ctx, nil)
	require.NoError(t, err)
	assert.True(t, EqualCatalogues([]*Catalogue{c1, c2}, all))

	p, err := ParseFilter("mission == 'MMS'")
	require.NoError(t, err)
	got, err := b.GetCatalogues(ctx, p)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c1.UUID, got[0].UUID)
}

func TestCreateEvent_Validation(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	_, err := b.CreateEvent(ctx, testutil.T1, testutil.T0, "Patrick")
	assert.True(t, IsValidation(err))

	_, err = b.CreateEvent(ctx, testutil.T0, testutil.T1, "Patrick", With("start", 1))
	assert.True(t, IsValidation(err))

	_, err = b.CreateCatalogue(ctx, "", "Patrick")
	assert.True(t, IsValidation(err))

	assert.Empty(t, mustEvents(t, b, EventQuery{}))
}

func TestGet_UnsetFieldFails(t *testing.T) {
	b := newTestBackend(t)
	e := mustEvent(t, b, With("field1", 1))

	_, err := e.Get("field2")
	var nf *AttributeNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "field2", nf.Name)
}

func TestAmbientFailureKeepsEarlierCalls(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	e := mustEvent(t, b)
	c := mustCatalogue(t, b, "c")
	require.NoError(t, b.Discard(ctx))
	mustEvent(t, b)

	err := b.AddEventsToCatalogue(ctx, c, e)
	assert.True(t, IsNotFound(err))
	assert.Len(t, mustEvents(t, b, EventQuery{}), 1)
}

func TestAddEventsToCatalogue_Idempotent(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	e := mustEvent(t, b)
	c := mustCatalogue(t, b, "c")
	require.NoError(t, b.AddEventsToCatalogue(ctx, c, e))
	require.NoError(t, b.AddEventsToCatalogue(ctx, c, e, e))

	assert.Len(t, mustEvents(t, b, EventQuery{Catalogue: c}), 1)
}

func TestUpdateEvent(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	e := mustEvent(t, b, With("field1", 1))
	require.NoError(t, e.Set("field1", 5))
	require.NoError(t, e.Set("tags", []string{"new"}))
	require.NoError(t, b.UpdateEvent(ctx, e))

	got := mustEvents(t, b, EventQuery{Filter: Field("field1").Eq(5)})
	require.Len(t, got, 1)
	assert.True(t, got[0].Tags.Has("new"))

	e.Stop = e.Start.Add(-1)
	assert.True(t, IsValidation(b.UpdateEvent(ctx, e)))
}

func TestEquality_IgnoresIdentity(t *testing.T) {
	b1 := newTestBackend(t)
	b2 := newTestBackend(t)

	mustEvent(t, b2) // shifts identities in b2
	e1 := mustEvent(t, b1, With("x", 1), WithTags("t"))
	e2 := mustEvent(t, b2, With("x", 1.0), WithTags("t"))

	assert.NotEqual(t, e1.UUID, e2.UUID)
	assert.True(t, e1.Equal(e2))
}

func TestDiscard(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	e := mustEvent(t, b)
	c := mustCatalogue(t, b, "c")
	require.NoError(t, b.AddEventsToCatalogue(ctx, c, e))

	require.NoError(t, b.Discard(ctx))
	assert.Empty(t, mustEvents(t, b, EventQuery{}))
	cats, err := b.GetCatalogues(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, cats)
}
