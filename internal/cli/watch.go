package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeandet/tscat/internal/watch"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Pattern string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Import export files dropped into a directory",
		Long: `Watch a directory tree and import every export document written into it.

Files are matched on their path relative to <dir> with a doublestar
pattern. A file that fails to import is logged and retried on its next
write. Runs until interrupted.

Example:
  tscat watch ./inbox
  tscat watch ./inbox --pattern 'mms/**/*.json' --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Pattern, "pattern", "", "doublestar pattern of files to import (default from config: **/*.json)")

	return cmd
}

func runWatch(opts *WatchOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	pattern := opts.Pattern
	if pattern == "" {
		pattern = opts.Config.Watch.Pattern
	}
	info, err := os.Stat(dir)
	if err != nil {
		_ = f.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot watch directory", err)
	}
	if !info.IsDir() {
		return f.Usage(fmt.Errorf("not a directory: %s", dir))
	}

	b, err := opts.openBackend(f)
	if err != nil {
		return err
	}
	defer opts.closeBackend(b)

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			opts.Logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	imported := 0
	w := &watch.Watcher{
		Dir:     dir,
		Pattern: pattern,
		Logger:  opts.Logger,
		Ready: func() {
			if f.Format != "json" {
				fmt.Fprintf(f.Writer, "Watching %s for %s. Press Ctrl-C to stop.\n", dir, pattern)
			}
		},
		Import: func(ctx context.Context, path string, data []byte) error {
			catalogues, err := b.ImportJSON(ctx, data)
			if err != nil {
				return err
			}
			imported++
			f.VerboseLog("imported %s: %d catalogue(s)", path, len(catalogues))
			return nil
		},
	}

	if err := w.Run(ctx); err != nil {
		return f.Fail("watch", err)
	}

	return f.Success(Message{
		Message: fmt.Sprintf("stopped watching %s after %d import(s)", dir, imported),
		Counts:  map[string]int{"imported": imported},
	})
}

