package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// CatalogueCreateOptions holds flags for the catalogue create command.
type CatalogueCreateOptions struct {
	*RootOptions
	Name   string
	Author string
	Fields []string
	Tags   []string
}

// CatalogueListOptions holds flags for the catalogue list command.
type CatalogueListOptions struct {
	*RootOptions
	Filter string
}

// NewCatalogueCommand creates the catalogue command group.
func NewCatalogueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "catalogue",
		Aliases: []string{"catalog"},
		Short:   "Create, list and fill catalogues",
	}
	cmd.AddCommand(newCatalogueCreateCommand(rootOpts))
	cmd.AddCommand(newCatalogueListCommand(rootOpts))
	cmd.AddCommand(newCatalogueAddCommand(rootOpts))
	return cmd
}

func newCatalogueCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogueCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a catalogue",
		Long: `Create a catalogue and commit it immediately.

Example:
  tscat catalogue create --name "Magnetopause crossings" --author alice --tag mms`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogueCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "catalogue name (required)")
	cmd.Flags().StringVar(&opts.Author, "author", "", "author (default from config)")
	cmd.Flags().StringArrayVar(&opts.Fields, "field", nil, "dynamic field name=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runCatalogueCreate(opts *CatalogueCreateOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

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

	b, err := opts.openBackend(f)
	if err != nil {
		return err
	}
	defer opts.closeBackend(b)

	c, err := b.CreateCatalogue(cmd.Context(), opts.Name, author, attrs...)
	if err != nil {
		return f.Fail("create catalogue", err)
	}
	return f.Success(newCatalogueView(c))
}

func newCatalogueListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogueListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogues",
		Long: `List committed catalogues in creation order.

Example:
  tscat catalogue list --filter "author == 'alice'"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogueList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter expression")

	return cmd
}

func runCatalogueList(opts *CatalogueListOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	pred, err := parseFilter(opts.Filter)
	if err != nil {
		return f.Fail("invalid filter", err)
	}

	b, err := opts.openBackend(f)
	if err != nil {
		return err
	}
	defer opts.closeBackend(b)

	catalogues, err := b.GetCatalogues(cmd.Context(), pred)
	if err != nil {
		return f.Fail("list catalogues", err)
	}
	return f.Success(newCatalogueList(catalogues))
}

func newCatalogueAddCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <catalogue-uuid> <event-uuid>...",
		Short: "Add events to a catalogue",
		Long: `Add events to a catalogue. Events already in the catalogue are left as they are.

Example:
  tscat catalogue add 0190c6d2-7f1e-7c3a-9b1e-2f4a5b6c7d8e 0190c6d3-0a2b-7d4c-8e5f-6a7b8c9d0e1f`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogueAdd(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runCatalogueAdd(opts *RootOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	ids, err := parseIDs(args)
	if err != nil {
		return f.Usage(err)
	}

	b, err := opts.openBackend(f)
	if err != nil {
		return err
	}
	defer opts.closeBackend(b)

	c, err := lookupCatalogue(ctx, b, ids[0])
	if err != nil {
		return f.Fail("add events", err)
	}
	events, err := lookupEvents(ctx, b, ids[1:])
	if err != nil {
		return f.Fail("add events", err)
	}
	if err := b.AddEventsToCatalogue(ctx, c, events...); err != nil {
		return f.Fail("add events", err)
	}
	return f.Success(Message{
		Message: fmt.Sprintf("added %d event(s) to %s", len(events), c.Name),
		Counts:  map[string]int{"events": len(events)},
	})
}
