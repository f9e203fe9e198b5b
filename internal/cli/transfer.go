package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/jeandet/tscat"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// ExportResult is the JSON payload of the export command.
type ExportResult struct {
	Path     string             `json:"path,omitempty"`
	Bytes    int                `json:"bytes"`
	Document jsoniter.RawMessage `json:"document,omitempty"`
}

// ImportedFile reports the outcome of importing one file.
type ImportedFile struct {
	Path       string          `json:"path"`
	Catalogues []CatalogueView `json:"catalogues,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// ImportResult is the payload of the import command.
type ImportResult struct {
	Files  []ImportedFile `json:"files"`
	Failed int            `json:"failed"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <catalogue-uuid>",
		Short: "Export a catalogue and its events as JSON",
		Long: `Export a catalogue with its member events as a canonical JSON document.

The same catalogue always exports to the same bytes. Without -o the
document is written to stdout.

Example:
  tscat export 0190c6d2-7f1e-7c3a-9b1e-2f4a5b6c7d8e -o crossings.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the document to this file")

	return cmd
}

func runExport(opts *ExportOptions, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	ids, err := parseIDs([]string{arg})
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
		return f.Fail("export", err)
	}
	doc, err := b.ExportJSON(ctx, c)
	if err != nil {
		return f.Fail("export", err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, doc, 0o644); err != nil {
			_ = f.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write export", err)
		}
		f.VerboseLog("wrote %d bytes to %s", len(doc), opts.Output)
		if f.Format == "json" {
			return f.Success(ExportResult{Path: opts.Output, Bytes: len(doc)})
		}
		return f.Success(Message{Message: fmt.Sprintf("exported %s to %s", c.Name, opts.Output)})
	}

	if f.Format == "json" {
		return f.Success(ExportResult{Bytes: len(doc), Document: doc})
	}
	_, err = fmt.Fprintln(f.Writer, string(doc))
	return err
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file-or-glob>...",
		Short: "Import exported JSON documents",
		Long: `Import export documents. Arguments may be doublestar globs.

Each file is imported in its own session. Entities already stored with the
same content are reused, so importing a file twice changes nothing.

Example:
  tscat import crossings.json
  tscat import 'inbox/**/*.json'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	paths, err := expandPaths(args)
	if err != nil {
		return f.Usage(err)
	}
	if len(paths) == 0 {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("no files match %v", args), nil)
		return NewExitError(ExitCommandError, "no files to import")
	}

	b, err := opts.openBackend(f)
	if err != nil {
		return err
	}
	defer opts.closeBackend(b)

	result := ImportResult{Files: make([]ImportedFile, 0, len(paths))}
	for _, path := range paths {
		f.VerboseLog("importing %s", path)
		file := ImportedFile{Path: path}
		catalogues, err := importFile(ctx, b, path)
		if err != nil {
			file.Error = err.Error()
			result.Failed++
		} else {
			file.Catalogues = newCatalogueList(catalogues).Catalogues
		}
		result.Files = append(result.Files, file)
	}

	if result.Failed == 0 {
		return f.Success(result)
	}

	if f.Format == "json" {
		if err := json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeValidation,
				Message: fmt.Sprintf("%d of %d file(s) failed to import", result.Failed, len(paths)),
			},
		}); err != nil {
			return err
		}
	} else {
		result.renderText(f.GetErrWriter())
	}
	return NewExitError(ExitFailure, fmt.Sprintf("import failed for %d file(s)", result.Failed))
}

func importFile(ctx context.Context, b *tscat.Backend, path string) ([]*tscat.Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return b.ImportJSON(ctx, data)
}

// expandPaths resolves glob arguments to files, in argument order without
// duplicates. Plain paths are kept even when they do not exist, so the
// read error is reported for them.
func expandPaths(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	for _, arg := range args {
		if !hasMeta(arg) {
			add(arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", arg, err)
		}
		for _, m := range matches {
			add(m)
		}
	}
	return paths, nil
}

func hasMeta(path string) bool {
	for _, c := range path {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

func (r ImportResult) renderText(w io.Writer) {
	for _, file := range r.Files {
		if file.Error != "" {
			fmt.Fprintf(w, "✗ %s: %s\n", file.Path, file.Error)
			continue
		}
		names := make([]string, len(file.Catalogues))
		for i, c := range file.Catalogues {
			names[i] = c.Name
		}
		fmt.Fprintf(w, "✓ %s: %v\n", file.Path, names)
	}
}
