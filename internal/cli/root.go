package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeandet/tscat"
	"github.com/jeandet/tscat/internal/config"
)

// RootOptions holds global flags for all commands, and the configuration
// resolved from them before any subcommand runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string

	// LookupEnv reads environment overrides. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{config.FormatText, config.FormatJSON}

// NewRootCommand creates the root command for the tscat CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tscat",
		Short: "tscat - time-series event catalogues",
		Long: `Manage catalogues of time-stamped events.

Events are time intervals with an author, free-form fields and tags.
Catalogues group events by name. Everything is stored in one SQLite file.

Settings are read from --config (YAML), then TSCAT_DB, TSCAT_AUTHOR and
TSCAT_LOG_LEVEL, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", config.FormatText, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config: tscat.db)")

	// Add subcommands
	cmd.AddCommand(NewEventCommand(opts))
	cmd.AddCommand(NewCatalogueCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewDiscardCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, NewRootCommand(), args, stdout, stderr)
}

func execute(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// Argument and flag errors raised by cobra itself.
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}
	return GetExitCode(err)
}

// resolve layers defaults, the config file, the environment and changed
// flags, then installs the logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return o.configError(cmd, err)
	}
	lookup := o.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg.ApplyEnv(lookup)

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DB = o.Database
	}
	if flags.Changed("format") {
		cfg.Format = o.Format
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return o.configError(cmd, err)
	}

	o.Config = cfg
	o.Format = cfg.Format
	o.Database = cfg.DB

	level, _ := cfg.Level()
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(o.Logger)
	return nil
}

func (o *RootOptions) configError(cmd *cobra.Command, err error) error {
	format := o.Format
	if !isValidFormat(format) {
		format = config.FormatText
	}
	f := &OutputFormatter{Format: format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
	_ = f.Error(ErrCodeConfig, err.Error(), nil)
	return WrapExitError(ExitCommandError, "invalid configuration", err)
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// openBackend opens the configured database.
func (o *RootOptions) openBackend(f *OutputFormatter) (*tscat.Backend, error) {
	o.Logger.Debug("opening database", "path", o.Database)
	b, err := tscat.Open(o.Database, tscat.WithLogger(o.Logger))
	if err != nil {
		_ = f.Error(ErrCodeStore, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return b, nil
}

// closeBackend closes b, logging any error.
func (o *RootOptions) closeBackend(b *tscat.Backend) {
	if err := b.Close(); err != nil {
		o.Logger.Error("error closing database", "error", err)
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
