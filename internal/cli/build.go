package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/msig/internal/matcher"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Output string // signature file, defaults to --sigs
}

// BuildResult is the outcome of a build pass.
type BuildResult struct {
	Session   string              `json:"session"`
	Report    matcher.BuildReport `json:"report"`
	Output    string              `json:"output"`
	Saved     int                 `json:"saved"`
	Persisted int                 `json:"persisted"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <input>",
		Short: "Build signatures for the named functions of an input",
		Long: `Decompile every eligible function of an IR file or ELF binary and save
its signature.

Library functions, thunks, functions shorter than 10 bytes and functions
without a user-given name are skipped. With --db the signatures are also
recorded in the signature database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "signature file to write (default --sigs)")

	return cmd
}

func runBuild(opts *BuildOptions, input string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	output := opts.Output
	if output == "" {
		output = opts.Sigs
	}

	host, closer, err := openHost(input)
	if err != nil {
		return hostError(formatter, input, err)
	}
	defer closer.Close()

	st, err := openStore(opts.RootOptions, false)
	if err != nil {
		return storeError(formatter, opts.DB, err)
	}
	if st != nil {
		defer st.Close()
	}

	session := newSession(opts.RootOptions, logger, st)
	ctx := cmd.Context()

	report, err := session.Build(ctx, host)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return interrupted(formatter, session, output, err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "build failed", err)
	}
	formatter.VerboseLog("considered %d, skipped %d, failed %d, rejected %d",
		report.Considered, report.Skipped, report.Failed, report.Rejected)

	result := BuildResult{Session: session.ID(), Report: report, Output: output}

	result.Saved, err = session.SaveAll(output)
	if errors.Is(err, matcher.ErrNoSignatures) {
		return formatter.Fail(ExitFailure, ErrCodeNoSignatures, "no signatures were built", nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing %s", output), err)
	}

	if st != nil {
		if result.Persisted, err = session.Persist(ctx); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "recording signatures", err)
		}
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Built %d signature%s from %d function%s\n",
		report.Added, pluralS(report.Added), report.Considered, pluralS(report.Considered))
	fmt.Fprintf(formatter.Writer, "Wrote %d signature%s to %s\n", result.Saved, pluralS(result.Saved), output)
	if st != nil {
		fmt.Fprintf(formatter.Writer, "Recorded %d new signature%s in %s\n",
			result.Persisted, pluralS(result.Persisted), opts.DB)
	}
	return nil
}

// interrupted reports a canceled build after writing whatever was built
// before the interruption to output.
func interrupted(formatter *OutputFormatter, session *matcher.Session, output string, cause error) error {
	saved, err := session.SaveAll(output)
	if err != nil && !errors.Is(err, matcher.ErrNoSignatures) {
		return formatter.Fail(ExitCommandError, ErrCodeCanceled,
			fmt.Sprintf("build interrupted; writing %s failed", output), errors.Join(cause, err))
	}
	return formatter.Fail(ExitCommandError, ErrCodeCanceled,
		fmt.Sprintf("build interrupted after %d signature%s", saved, pluralS(saved)), cause)
}
