package cli

import (
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jeandet/tscat"
)

// EventCreateOptions holds flags for the event create command.
type EventCreateOptions struct {
	*RootOptions
	Start     string
	Stop      string
	Author    string
	Fields    []string
	Tags      []string
	Catalogue string
}

// EventListOptions holds flags for the event list command.
type EventListOptions struct {
	*RootOptions
	Filter    string
	Catalogue string
}

// NewEventCommand creates the event command group.
func NewEventCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Create and list events",
	}
	cmd.AddCommand(newEventCreateCommand(rootOpts))
	cmd.AddCommand(newEventListCommand(rootOpts))
	return cmd
}

func newEventCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Long: `Create an event and commit it immediately.

Field values are typed from their text: integers, floats, true/false and
RFC 3339 timestamps, anything else is a string.

Example:
  tscat event create --start 2020-01-01T00:00:00Z --stop 2020-01-01T01:00:00Z \
    --author alice --field quality=3 --tag shock --tag solar-wind`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Start, "start", "", "start time, RFC 3339 (required)")
	cmd.Flags().StringVar(&opts.Stop, "stop", "", "stop time, RFC 3339 (required)")
	cmd.Flags().StringVar(&opts.Author, "author", "", "author (default from config)")
	cmd.Flags().StringArrayVar(&opts.Fields, "field", nil, "dynamic field name=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&opts.Catalogue, "catalogue", "", "add the event to this catalogue uuid")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("stop")

	return cmd
}

func runEventCreate(opts *EventCreateOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	start, err := parseTime("start", opts.Start)
	if err != nil {
		return f.Usage(err)
	}
	stop, err := parseTime("stop", opts.Stop)
	if err != nil {
		return f.Usage(err)
	}
	author := opts.Author
	if author == "" {
		author = opts.Config.Author
	}
	if author == "" {
		return f.Usage(errors.New("--author is required when no author is configured"))
	}
	attrs, err := parseAttrs(opts.Fields, opts.Tags)
	if err != nil {
		return f.Usage(err)
	}
	var catID uuid.UUID
	if opts.Catalogue != "" {
		if catID, err = uuid.Parse(opts.Catalogue); err != nil {
			return f.Usage(err)
		}
	}

	b, err := opts.openBackend(f)
	if err != nil {
		return err
	}
	defer opts.closeBackend(b)

	if catID == uuid.Nil {
		e, err := b.CreateEvent(ctx, start, stop, author, attrs...)
		if err != nil {
			return f.Fail("create event", err)
		}
		return f.Success(newEventView(e))
	}

	c, err := lookupCatalogue(ctx, b, catID)
	if err != nil {
		return f.Fail("create event", err)
	}
	var e *tscat.Event
	err = b.Session(ctx, func(s *tscat.Session) error {
		var err error
		if e, err = s.CreateEvent(start, stop, author, attrs...); err != nil {
			return err
		}
		return s.AddEventsToCatalogue(ctx, c, e)
	})
	if err != nil {
		return f.Fail("create event", err)
	}
	f.VerboseLog("added to catalogue %s", c.UUID)
	return f.Success(newEventView(e))
}

func newEventListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		Long: `List committed events in creation order.

Example:
  tscat event list --filter "'shock' in tags and quality >= 2"
  tscat event list --catalogue 0190c6d2-7f1e-7c3a-9b1e-2f4a5b6c7d8e`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter expression")
	cmd.Flags().StringVar(&opts.Catalogue, "catalogue", "", "only events of this catalogue uuid")

	return cmd
}

func runEventList(opts *EventListOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	pred, err := parseFilter(opts.Filter)
	if err != nil {
		return f.Fail("invalid filter", err)
	}
	var catID uuid.UUID
	if opts.Catalogue != "" {
		if catID, err = uuid.Parse(opts.Catalogue); err != nil {
			return f.Usage(err)
		}
	}

	b, err := opts.openBackend(f)
	if err != nil {
		return err
	}
	defer opts.closeBackend(b)

	q := tscat.EventQuery{Filter: pred}
	if catID != uuid.Nil {
		if q.Catalogue, err = lookupCatalogue(ctx, b, catID); err != nil {
			return f.Fail("list events", err)
		}
	}
	events, err := b.GetEvents(ctx, q)
	if err != nil {
		return f.Fail("list events", err)
	}
	f.VerboseLog("%d event(s)", len(events))
	return f.Success(newEventList(events))
}
