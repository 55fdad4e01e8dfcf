package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/msig/internal/msig"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [file.msig]",
		Short: "List the signatures of a signature file",
		Long: `Load a signature file and print its valid signatures in digest order.

Invalid and duplicate lines are reported on stderr and left out. The file
defaults to --sigs.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Sigs
			if len(args) == 1 {
				path = args[0]
			}
			return runList(rootOpts, path, cmd)
		},
	}
	return cmd
}

func runList(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	set := msig.NewSet(msig.WithLogger(logger), msig.WithStrict(opts.Strict))
	if _, err := set.LoadFile(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("signature file not found: %s", path), nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, fmt.Sprintf("loading %s", path), err)
	}

	sigs := set.All()
	if formatter.IsJSON() {
		results := make([]SigResult, len(sigs))
		for i, sig := range sigs {
			results[i] = newSigResult(0, sig)
		}
		return formatter.Success(results)
	}
	for _, sig := range sigs {
		fmt.Fprintln(formatter.Writer, sig.String())
	}
	return nil
}
