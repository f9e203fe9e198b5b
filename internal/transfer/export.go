package transfer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/value"
)

// Export encodes one catalogue together with its member events.
func Export(c *model.Catalogue, events []*model.Event) ([]byte, error) {
	if c == nil {
		return nil, model.NewValidationError("catalogue", "is nil")
	}
	members := make([]uuid.UUID, len(events))
	for i, e := range events {
		members[i] = e.UUID
	}
	return Encode(&Bundle{
		Events:     events,
		Catalogues: []*model.Catalogue{c},
		Members:    map[uuid.UUID][]uuid.UUID{c.UUID: members},
	})
}

// Encode writes b as a canonical export document.
func Encode(b *Bundle) ([]byte, error) {
	events := make([]any, 0, len(b.Events))
	for _, e := range b.Events {
		events = append(events, map[string]any{
			"uuid":       e.UUID.String(),
			"start":      e.Start,
			"stop":       e.Stop,
			"author":     e.Author,
			"tags":       e.Tags.Sorted(),
			"attributes": attributes(e.Fields),
		})
	}

	catalogues := make([]any, 0, len(b.Catalogues))
	for _, c := range b.Catalogues {
		members := b.Members[c.UUID]
		refs := make([]string, len(members))
		for i, id := range members {
			refs[i] = id.String()
		}
		catalogues = append(catalogues, map[string]any{
			"uuid":       c.UUID.String(),
			"name":       c.Name,
			"author":     c.Author,
			"tags":       c.Tags.Sorted(),
			"attributes": attributes(c.Fields),
			"events":     refs,
		})
	}

	data, err := value.MarshalCanonical(map[string]any{
		"version":    Version,
		"events":     events,
		"catalogues": catalogues,
	})
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// attributes renders dynamic fields as {"type": kind, "value": v}.
func attributes(fields model.Fields) map[string]any {
	out := make(map[string]any, len(fields))
	for name, v := range fields {
		out[name] = map[string]any{
			"type":  string(v.Kind()),
			"value": v,
		}
	}
	return out
}
