package x86

import (
	"context"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/roach88/msig/internal/ir"
	"github.com/roach88/msig/internal/matcher"
)

// ErrNoText is returned for binaries without a .text section.
var ErrNoText = errors.New("no .text section found")

// Binary is an x86-64 ELF file served as a decompiler host. Functions come
// from the STT_FUNC symbols that live in .text.
type Binary struct {
	closer io.Closer
	base   uint64
	code   []byte
	funcs  []matcher.FuncInfo
}

var _ matcher.Host = (*Binary)(nil)

// OpenELF opens and indexes the ELF file at path.
func OpenELF(path string) (*Binary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	b, err := NewBinary(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	b.closer = f
	return b, nil
}

// NewBinary parses an ELF image from r. The caller keeps ownership of r.
func NewBinary(r io.ReaderAt) (*Binary, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}
	defer f.Close()

	if f.Machine != elf.EM_X86_64 {
		return nil, fmt.Errorf("unsupported machine %s", f.Machine)
	}

	textSec := f.Section(".text")
	if textSec == nil {
		return nil, ErrNoText
	}
	code, err := textSec.Data()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read .text section: %w", err)
	}

	syms, err := f.Symbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, fmt.Errorf("failed to read symbols: %w", err)
	}

	b := &Binary{base: textSec.Addr, code: code}
	b.funcs = textFunctions(syms, f.Sections, textSec)
	return b, nil
}

func textFunctions(syms []elf.Symbol, sections []*elf.Section, text *elf.Section) []matcher.FuncInfo {
	textIdx := elf.SectionIndex(slices.Index(sections, text))
	end := text.Addr + text.Size

	seen := make(map[uint64]bool)
	var funcs []matcher.FuncInfo
	for _, sym := range syms {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC || sym.Section != textIdx {
			continue
		}
		if sym.Size == 0 || sym.Value < text.Addr || sym.Value+sym.Size > end {
			continue
		}
		// Aliases share an address; the first symbol names it.
		if seen[sym.Value] {
			continue
		}
		seen[sym.Value] = true
		funcs = append(funcs, matcher.FuncInfo{
			Entry: sym.Value,
			End:   sym.Value + sym.Size,
			Name:  sym.Name,
		})
	}
	slices.SortFunc(funcs, func(a, b matcher.FuncInfo) int {
		switch {
		case a.Entry < b.Entry:
			return -1
		case a.Entry > b.Entry:
			return 1
		}
		return 0
	})
	return funcs
}

// Functions lists the symbolized functions in address order.
func (b *Binary) Functions() []matcher.FuncInfo {
	return slices.Clone(b.funcs)
}

// Decompile lifts the bytes between fi.Entry and fi.End.
func (b *Binary) Decompile(ctx context.Context, fi matcher.FuncInfo) (*ir.Function, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fi.Entry < b.base || fi.End <= fi.Entry || fi.End-b.base > uint64(len(b.code)) {
		return nil, fmt.Errorf("function %q at %#x is outside .text", fi.Name, fi.Entry)
	}
	return Lift(b.code[fi.Entry-b.base:fi.End-b.base], fi.Entry, fi.Name)
}

// Close releases the underlying file when the binary was opened by path.
func (b *Binary) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}
