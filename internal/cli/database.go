package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/msig/internal/matcher"
	"github.com/roach88/msig/internal/store"
)

// TransferResult is the outcome of an import or export.
type TransferResult struct {
	Session string `json:"session"`
	Path    string `json:"path"`
	Read    int    `json:"read"`
	Written int    `json:"written"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file.msig]",
		Short: "Record a signature file in the signature database",
		Long: `Load a signature file and record its signatures in the database given
by --db. Signatures whose digest is already recorded keep their existing
name. The file defaults to --sigs.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Sigs
			if len(args) == 1 {
				path = args[0]
			}
			return runImport(rootOpts, path, cmd)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	st, err := requireStore(opts, formatter, false)
	if err != nil {
		return err
	}
	defer st.Close()

	session := newSession(opts, opts.logger(cmd.ErrOrStderr()), st)
	result := TransferResult{Session: session.ID(), Path: path}

	result.Read, err = session.LoadAll(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("signature file not found: %s", path), nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, fmt.Sprintf("loading %s", path), err)
	}

	result.Written, err = session.Persist(cmd.Context())
	if errors.Is(err, matcher.ErrNoSignatures) {
		return formatter.Fail(ExitFailure, ErrCodeNoSignatures, fmt.Sprintf("no valid signatures in %s", path), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "recording signatures", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %d new signature%s from %s (%d already recorded)\n",
		result.Written, pluralS(result.Written), path, result.Read-result.Written)
	return nil
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the signature database to a signature file",
		Long: `Write every signature recorded in the database given by --db to a
signature file, in digest order.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "signature file to write (default --sigs)")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	st, err := requireStore(opts.RootOptions, formatter, true)
	if err != nil {
		return err
	}
	defer st.Close()

	output := opts.Output
	if output == "" {
		output = opts.Sigs
	}

	session := newSession(opts.RootOptions, opts.logger(cmd.ErrOrStderr()), st)
	result := TransferResult{Session: session.ID(), Path: output}

	if result.Read, err = session.Restore(cmd.Context()); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "reading signature database", err)
	}
	result.Written, err = session.SaveAll(output)
	if errors.Is(err, matcher.ErrNoSignatures) {
		return formatter.Fail(ExitFailure, ErrCodeNoSignatures, "signature database is empty", nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing %s", output), err)
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Exported %d signature%s to %s\n", result.Written, pluralS(result.Written), output)
	return nil
}

func requireStore(opts *RootOptions, formatter *OutputFormatter, readOnly bool) (*store.Store, error) {
	if opts.DB == "" {
		return nil, formatter.Fail(ExitCommandError, ErrCodeNoDatabase, "--db is required", nil)
	}
	st, err := openStore(opts, readOnly)
	if err != nil {
		return nil, storeError(formatter, opts.DB, err)
	}
	return st, nil
}
