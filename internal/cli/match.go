package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/msig/internal/matcher"
)

// MatchResult is the outcome of a match pass.
type MatchResult struct {
	Session    string           `json:"session"`
	Signatures int              `json:"signatures"`
	Renames    []matcher.Rename `json:"renames"`
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <input>",
		Short: "Recognise known functions in an input",
		Long: `Compare the signature of every function of an IR file or ELF binary
against the known signatures and print the proposed renames.

Known signatures come from --sigs when the file exists and from --db when
a database is configured.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runMatch(opts *RootOptions, input string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())
	ctx := cmd.Context()

	st, err := openStore(opts, true)
	if err != nil {
		return storeError(formatter, opts.DB, err)
	}
	if st != nil {
		defer st.Close()
	}

	session := newSession(opts, logger, st)
	if err := loadKnown(ctx, session, opts, formatter); err != nil {
		return err
	}
	if session.Set().Len() == 0 {
		return formatter.Fail(ExitFailure, ErrCodeNoSignatures, "no known signatures", nil)
	}

	host, closer, err := openHost(input)
	if err != nil {
		return hostError(formatter, input, err)
	}
	defer closer.Close()

	renames, err := session.Apply(ctx, host)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return formatter.Fail(ExitCommandError, ErrCodeCanceled, "match interrupted", err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "match failed", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(MatchResult{
			Session:    session.ID(),
			Signatures: session.Set().Len(),
			Renames:    renames,
		})
	}
	if len(renames) == 0 {
		fmt.Fprintln(formatter.Writer, "No known functions found")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ Found %d known function%s\n\n", len(renames), pluralS(len(renames)))
	for _, r := range renames {
		fmt.Fprintf(formatter.Writer, "  %#x  %s → %s\n", r.Entry, r.OldName, r.NewName)
	}
	return nil
}

// loadKnown fills the session from the signature file, when present, and
// from the database, when configured.
func loadKnown(ctx context.Context, session *matcher.Session, opts *RootOptions, formatter *OutputFormatter) error {
	if _, err := os.Stat(opts.Sigs); err == nil {
		n, err := session.LoadAll(opts.Sigs)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, fmt.Sprintf("loading %s", opts.Sigs), err)
		}
		formatter.VerboseLog("loaded %d signature(s) from %s", n, opts.Sigs)
	}
	if opts.DB != "" {
		n, err := session.Restore(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "reading signature database", err)
		}
		formatter.VerboseLog("restored %d signature(s) from %s", n, opts.DB)
	}
	return nil
}
