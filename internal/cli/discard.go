package cli

import (
	"github.com/spf13/cobra"
)

// DiscardOptions holds flags for the discard command.
type DiscardOptions struct {
	*RootOptions
	Yes bool
}

// NewDiscardCommand creates the discard command.
func NewDiscardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiscardOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "discard",
		Short: "Delete every event and catalogue",
		Long: `Delete every event, catalogue and membership from the database.

This cannot be undone. Pass --yes to confirm.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscard(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm deletion")

	return cmd
}

func runDiscard(opts *DiscardOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if !opts.Yes {
		_ = f.Error(ErrCodeUsage, "refusing to discard without --yes", nil)
		return NewExitError(ExitCommandError, "discard not confirmed")
	}

	b, err := opts.openBackend(f)
	if err != nil {
		return err
	}
	defer opts.closeBackend(b)

	if err := b.Discard(cmd.Context()); err != nil {
		return f.Fail("discard", err)
	}
	return f.Success(Message{Message: "store discarded"})
}
