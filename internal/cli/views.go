package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/value"
)

// EventView is the output form of an event.
type EventView struct {
	UUID   string         `json:"uuid"`
	Start  string         `json:"start"`
	Stop   string         `json:"stop"`
	Author string         `json:"author"`
	Tags   []string       `json:"tags"`
	Fields map[string]any `json:"fields"`
}

// CatalogueView is the output form of a catalogue.
type CatalogueView struct {
	UUID   string         `json:"uuid"`
	Name   string         `json:"name"`
	Author string         `json:"author"`
	Tags   []string       `json:"tags"`
	Fields map[string]any `json:"fields"`
}

// EventList is the payload of commands returning events.
type EventList struct {
	Events []EventView `json:"events"`
}

// CatalogueList is the payload of commands returning catalogues.
type CatalogueList struct {
	Catalogues []CatalogueView `json:"catalogues"`
}

// Message is a one-line payload with optional counters.
type Message struct {
	Message string         `json:"message"`
	Counts  map[string]int `json:"counts,omitempty"`
}

func newEventView(e *model.Event) EventView {
	return EventView{
		UUID:   e.UUID.String(),
		Start:  value.FormatTime(e.Start),
		Stop:   value.FormatTime(e.Stop),
		Author: e.Author,
		Tags:   e.Tags.Sorted(),
		Fields: plainFields(e.Fields),
	}
}

func newCatalogueView(c *model.Catalogue) CatalogueView {
	return CatalogueView{
		UUID:   c.UUID.String(),
		Name:   c.Name,
		Author: c.Author,
		Tags:   c.Tags.Sorted(),
		Fields: plainFields(c.Fields),
	}
}

func newEventList(events []*model.Event) EventList {
	views := make([]EventView, len(events))
	for i, e := range events {
		views[i] = newEventView(e)
	}
	return EventList{Events: views}
}

func newCatalogueList(catalogues []*model.Catalogue) CatalogueList {
	views := make([]CatalogueView, len(catalogues))
	for i, c := range catalogues {
		views[i] = newCatalogueView(c)
	}
	return CatalogueList{Catalogues: views}
}

// plainFields converts dynamic fields to JSON natives. Times become
// RFC 3339 strings.
func plainFields(fields model.Fields) map[string]any {
	out := make(map[string]any, len(fields))
	for name, v := range fields {
		switch val := v.(type) {
		case value.String:
			out[name] = string(val)
		case value.Int:
			out[name] = int64(val)
		case value.Float:
			out[name] = float64(val)
		case value.Bool:
			out[name] = bool(val)
		default:
			out[name] = value.Format(v)
		}
	}
	return out
}

func (l EventList) renderText(w io.Writer) {
	if len(l.Events) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tSTART\tSTOP\tAUTHOR\tTAGS\tFIELDS")
	for _, e := range l.Events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.UUID, e.Start, e.Stop, e.Author, strings.Join(e.Tags, ","), formatFields(e.Fields))
	}
	tw.Flush()
}

func (l CatalogueList) renderText(w io.Writer) {
	if len(l.Catalogues) == 0 {
		fmt.Fprintln(w, "no catalogues")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tNAME\tAUTHOR\tTAGS\tFIELDS")
	for _, c := range l.Catalogues {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.UUID, c.Name, c.Author, strings.Join(c.Tags, ","), formatFields(c.Fields))
	}
	tw.Flush()
}

func (e EventView) renderText(w io.Writer) {
	EventList{Events: []EventView{e}}.renderText(w)
}

func (c CatalogueView) renderText(w io.Writer) {
	CatalogueList{Catalogues: []CatalogueView{c}}.renderText(w)
}

func (m Message) renderText(w io.Writer) {
	fmt.Fprintln(w, m.Message)
}

// formatFields renders fields as name=value pairs in name order.
func formatFields(fields map[string]any) string {
	parts := make([]string, 0, len(fields))
	for _, name := range value.SortedKeys(fields) {
		parts = append(parts, fmt.Sprintf("%s=%v", name, fields[name]))
	}
	return strings.Join(parts, " ")
}
