package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/msig/internal/msig"
)

// SigResult is one computed signature.
type SigResult struct {
	Entry    uint64 `json:"entry,omitempty"`
	Digest   string `json:"digest"`
	Name     string `json:"name"`
	TooShort bool   `json:"too_short,omitempty"`
}

func newSigResult(entry uint64, sig msig.Signature) SigResult {
	return SigResult{
		Entry:    entry,
		Digest:   sig.Digest.String(),
		Name:     sig.Name,
		TooShort: sig.TooShort,
	}
}

// NewSigCommand creates the sig command.
func NewSigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sig <input>",
		Short: "Print the signature of every function",
		Long: `Print the signature of every function of an IR file or ELF binary.

Text output is in signature file format, so it can be redirected into a
.msig file. Nothing is filtered: short and unnamed functions are included.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSig(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runSig(opts *RootOptions, input string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	host, closer, err := openHost(input)
	if err != nil {
		return hostError(formatter, input, err)
	}
	defer closer.Close()

	ctx := cmd.Context()
	results := []SigResult{}
	for _, fi := range host.Functions() {
		fn, err := host.Decompile(ctx, fi)
		if err != nil {
			formatter.VerboseLog("skipping %s at %#x: %v", fi.Name, fi.Entry, err)
			continue
		}
		if fn.Name == "" {
			fn.Name = fi.Name
		}
		sig := msig.FromIR(fn)
		if sig.TooShort {
			formatter.VerboseLog("%s at %#x is too short for a reliable signature", fn.Name, fi.Entry)
		}
		results = append(results, newSigResult(fi.Entry, sig))
	}

	if formatter.IsJSON() {
		return formatter.Success(results)
	}
	for _, r := range results {
		fmt.Fprintf(formatter.Writer, "%s %s\n", r.Digest, r.Name)
	}
	return nil
}
