package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jeandet/tscat"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Index    int    // Position in the scenario's assertion list
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: assertions[%d] %s\n", e.Index, e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the committed state.
// Returns a slice of error messages for failed assertions.
func (h *Harness) EvaluateAssertions(ctx context.Context, assertions []Assertion) []string {
	var errs []string
	for i, assertion := range assertions {
		if err := h.evaluate(ctx, i, assertion); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func (h *Harness) evaluate(ctx context.Context, index int, a Assertion) error {
	pred, err := tscat.ParseFilter(a.Filter)
	if err != nil {
		return fmt.Errorf("assertions[%d]: invalid filter %q: %w", index, a.Filter, err)
	}

	var labels []string
	switch a.Type {
	case AssertEvents, AssertEventCount:
		q := tscat.EventQuery{Filter: pred}
		if a.Catalogue != "" {
			c, ok := h.catalogues[a.Catalogue]
			if !ok {
				return fmt.Errorf("assertions[%d]: unknown catalogue label %q", index, a.Catalogue)
			}
			q.Catalogue = c
		}
		events, err := h.backend.GetEvents(ctx, q)
		if err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		labels = h.eventLabels(events)
	case AssertCatalogues, AssertCatalogueCount:
		catalogues, err := h.backend.GetCatalogues(ctx, pred)
		if err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		labels = h.catalogueLabels(catalogues)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	switch a.Type {
	case AssertEventCount, AssertCatalogueCount:
		if len(labels) != *a.Count {
			return &AssertionError{
				Index:    index,
				Type:     a.Type,
				Expected: fmt.Sprintf("%d match(es)", *a.Count),
				Actual:   fmt.Sprintf("%d match(es): %v", len(labels), labels),
			}
		}
	default:
		if !slices.Equal(labels, a.Expect) {
			return &AssertionError{
				Index:    index,
				Type:     a.Type,
				Expected: fmt.Sprintf("%v", a.Expect),
				Actual:   fmt.Sprintf("%v", labels),
			}
		}
	}
	return nil
}

func (h *Harness) eventLabels(events []*tscat.Event) []string {
	labels := make([]string, len(events))
	for i, e := range events {
		labels[i] = h.labelOf(e.UUID)
	}
	return labels
}

func (h *Harness) catalogueLabels(catalogues []*tscat.Catalogue) []string {
	labels := make([]string, len(catalogues))
	for i, c := range catalogues {
		labels[i] = h.labelOf(c.UUID)
	}
	return labels
}

// snapshot captures the committed content in canonical form. Entities are
// listed in creation order and named by label; membership lists are labels
// too.
func (h *Harness) snapshot(ctx context.Context) (map[string]any, error) {
	events, err := h.backend.GetEvents(ctx, tscat.EventQuery{})
	if err != nil {
		return nil, err
	}
	catalogues, err := h.backend.GetCatalogues(ctx, nil)
	if err != nil {
		return nil, err
	}

	eventList := make([]any, len(events))
	for i, e := range events {
		eventList[i] = map[string]any{
			"label":  h.labelOf(e.UUID),
			"uuid":   e.UUID.String(),
			"start":  e.Start,
			"stop":   e.Stop,
			"author": e.Author,
			"fields": fieldMap(e.Fields),
			"tags":   e.Tags,
		}
	}

	catalogueList := make([]any, len(catalogues))
	for i, c := range catalogues {
		members, err := h.backend.GetEvents(ctx, tscat.EventQuery{Catalogue: c})
		if err != nil {
			return nil, err
		}
		catalogueList[i] = map[string]any{
			"label":   h.labelOf(c.UUID),
			"uuid":    c.UUID.String(),
			"name":    c.Name,
			"author":  c.Author,
			"fields":  fieldMap(c.Fields),
			"tags":    c.Tags,
			"members": h.eventLabels(members),
		}
	}

	return map[string]any{
		"events":     eventList,
		"catalogues": catalogueList,
	}, nil
}

func fieldMap(fields tscat.Fields) map[string]any {
	m := make(map[string]any, len(fields))
	for name, v := range fields {
		m[name] = v
	}
	return m
}

