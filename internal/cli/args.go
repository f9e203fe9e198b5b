package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeandet/tscat"
	"github.com/jeandet/tscat/internal/filter"
	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/value"
)

// timeLayouts are the accepted --start/--stop spellings, most precise first.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseTime reads a timestamp flag. Times without a zone are UTC.
func parseTime(flag, text string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("--%s: %q is not an RFC 3339 time or date", flag, text)
}

// parseAttrs turns repeated --field name=value and --tag flags into
// attributes. Values are typed by value.Parse.
func parseAttrs(fields, tags []string) ([]tscat.Attr, error) {
	attrs := make([]tscat.Attr, 0, len(fields)+1)
	for _, kv := range fields {
		name, text, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--field: %q is not name=value", kv)
		}
		attrs = append(attrs, tscat.With(name, value.Parse(text)))
	}
	if len(tags) > 0 {
		attrs = append(attrs, tscat.WithTags(tags...))
	}
	return attrs, nil
}

// parseIDs parses uuid arguments.
func parseIDs(args []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(args))
	for i, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("%q is not a uuid: %w", arg, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// parseFilter parses an optional --filter expression.
func parseFilter(text string) (tscat.Predicate, error) {
	if text == "" {
		return nil, nil
	}
	return tscat.ParseFilter(text)
}

// byUUID selects entities whose uuid is one of ids.
func byUUID(ids []uuid.UUID) tscat.Predicate {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id.String()
	}
	return filter.Field(model.FieldUUID).OneOf(values...)
}

// lookupCatalogue returns the stored catalogue id or a NotFoundError.
func lookupCatalogue(ctx context.Context, b *tscat.Backend, id uuid.UUID) (*tscat.Catalogue, error) {
	found, err := b.GetCatalogues(ctx, byUUID([]uuid.UUID{id}))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, &tscat.NotFoundError{Kind: model.KindCatalogue, ID: id}
	}
	return found[0], nil
}

// lookupEvents returns the stored events ids, in argument order, or a
// NotFoundError naming the first missing one.
func lookupEvents(ctx context.Context, b *tscat.Backend, ids []uuid.UUID) ([]*tscat.Event, error) {
	found, err := b.GetEvents(ctx, tscat.EventQuery{Filter: byUUID(ids)})
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*tscat.Event, len(found))
	for _, e := range found {
		byID[e.UUID] = e
	}
	events := make([]*tscat.Event, len(ids))
	for i, id := range ids {
		e, ok := byID[id]
		if !ok {
			return nil, &tscat.NotFoundError{Kind: model.KindEvent, ID: id}
		}
		events[i] = e
	}
	return events, nil
}
