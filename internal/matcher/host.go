package matcher

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/roach88/msig/internal/ir"
)

// FuncInfo describes one function of the analysed binary as the host sees
// it before decompilation.
type FuncInfo struct {
	Entry uint64
	End   uint64 // zero when the host does not know the function's extent
	Name  string

	// Library and Thunk mark functions that are never signed.
	Library bool
	Thunk   bool

	// Chunks counts non-contiguous tail chunks. Functions with tails are
	// signed regardless of their entry chunk size.
	Chunks int
}

// Size returns the size of the entry chunk in bytes.
func (fi FuncInfo) Size() uint64 {
	if fi.End < fi.Entry {
		return 0
	}
	return fi.End - fi.Entry
}

// Host is the decompiler the matcher drives.
type Host interface {
	// Functions lists the functions of the binary in address order.
	Functions() []FuncInfo

	// Decompile produces the microcode of one function.
	Decompile(ctx context.Context, fi FuncInfo) (*ir.Function, error)
}

// MemoryHost serves functions that were already decompiled, such as the
// contents of an exported IR file.
type MemoryHost struct {
	fns []ir.Function
}

// NewMemoryHost creates a host over the given functions.
func NewMemoryHost(fns []ir.Function) *MemoryHost {
	return &MemoryHost{fns: fns}
}

// Functions lists the functions in the order they were given.
func (h *MemoryHost) Functions() []FuncInfo {
	infos := make([]FuncInfo, len(h.fns))
	for i, fn := range h.fns {
		infos[i] = FuncInfo{Entry: fn.Entry, Name: fn.Name}
	}
	return infos
}

// Decompile returns a copy of the first function with the requested entry
// and name.
func (h *MemoryHost) Decompile(_ context.Context, fi FuncInfo) (*ir.Function, error) {
	for i := range h.fns {
		if h.fns[i].Entry == fi.Entry && h.fns[i].Name == fi.Name {
			fn := h.fns[i]
			return &fn, nil
		}
	}
	return nil, fmt.Errorf("function %q at %#x not found", fi.Name, fi.Entry)
}

// dummyPrefixes are prefixes of names a disassembler generates from an
// address or counter.
var dummyPrefixes = []string{
	"sub_", "loc_", "locret_", "nullsub_", "j_sub_", "unk_", "off_",
	"byte_", "word_", "dword_", "qword_", "def_", "jpt_", "asc_",
	"stru_", "algn_", "func_",
}

// IsUserName reports whether a function name was given by a person or a
// symbol table rather than generated from the function's address.
func IsUserName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 && !(unicode.IsLetter(r) || strings.ContainsRune("_.?@$~", r)) {
			return false
		}
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	for _, prefix := range dummyPrefixes {
		rest, ok := strings.CutPrefix(name, prefix)
		if ok && rest != "" && isHex(rest) {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
