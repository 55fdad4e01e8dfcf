package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/msig/internal/config"
)

// RootOptions holds global flags for all commands. PersistentPreRunE
// replaces the flag values with the resolved configuration.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Format     string // "json" | "text"
	DB         string // signature database, empty for none
	Sigs       string // signature file
	Strict     bool   // strict signature file parsing

	// Logger overrides the logger built from Verbose (for testing).
	Logger *slog.Logger
}

// NewRootCommand creates the root command for the msig CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "msig",
		Short: "msig - microcode signatures",
		Long: `Recognise known functions in binaries by the signature of their microcode.

Signatures hash a function's microcode with register and stack allocation
erased, so the same source compiled into different binaries is recognised.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default msig.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, config.KeyVerbose, "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, config.KeyFormat, "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, config.KeyDB, "", "signature database (SQLite)")
	cmd.PersistentFlags().StringVar(&opts.Sigs, config.KeySigs, config.DefaultSigs, "signature file")
	cmd.PersistentFlags().BoolVar(&opts.Strict, config.KeyStrict, false, "reject malformed signature lines")

	// Add subcommands
	cmd.AddCommand(NewSigCommand(opts))
	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewMatchCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// resolve merges flags, environment and config file into opts.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	formatter := o.formatter(cmd)

	v := config.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "binding flags", err)
	}
	if err := config.ReadFile(v, o.ConfigFile); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "loading config", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "loading config", err)
	}

	o.Verbose = cfg.Verbose
	o.Format = cfg.Format
	o.DB = cfg.DB
	o.Sigs = cfg.Sigs
	o.Strict = cfg.Strict
	return nil
}

// logger returns the logger for a command run. Logs go to w, which is
// stderr in normal use so JSON output stays clean.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// formatter builds the output formatter for a command run.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
