package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/msig/internal/ir"
	"github.com/roach88/msig/internal/matcher"
	"github.com/roach88/msig/internal/store"
	"github.com/roach88/msig/internal/x86"
)

// openHost serves an input file as a decompiler host. Files with an IR
// extension (.yaml, .yml, .json, .cue) are read as exported microcode;
// anything else is opened as an x86-64 ELF binary.
func openHost(path string) (matcher.Host, io.Closer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, err
	}
	if _, err := ir.FormatOf(path); err == nil {
		fns, err := ir.LoadFile(path)
		if err != nil {
			return nil, nil, err
		}
		return matcher.NewMemoryHost(fns), io.NopCloser(nil), nil
	}
	bin, err := x86.OpenELF(path)
	if err != nil {
		return nil, nil, err
	}
	return bin, bin, nil
}

// hostError reports a failure to open an input file.
func hostError(f *OutputFormatter, path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("input not found: %s", path), nil)
	}
	return f.Fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("reading %s", path), err)
}

// openStore opens the configured database, or returns nil when none is
// configured. Commands that only read pass readOnly so that a wrong path
// fails instead of creating an empty database.
func openStore(opts *RootOptions, readOnly bool) (*store.Store, error) {
	if opts.DB == "" {
		return nil, nil
	}
	if readOnly {
		return store.OpenReadOnly(opts.DB)
	}
	return store.Open(opts.DB)
}

// storeError reports a failure to open the database.
func storeError(f *OutputFormatter, path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("signature database not found: %s", path), nil)
	}
	return f.Fail(ExitCommandError, ErrCodeStore, "opening signature database", err)
}

// newSession creates a session wired to the run's logger and store.
func newSession(opts *RootOptions, logger *slog.Logger, st *store.Store) *matcher.Session {
	sopts := []matcher.Option{
		matcher.WithLogger(logger),
		matcher.WithStrict(opts.Strict),
	}
	if st != nil {
		sopts = append(sopts, matcher.WithStore(st))
	}
	return matcher.NewSession(sopts...)
}

func pluralS(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
