package matcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/roach88/msig/internal/ir"
	"github.com/roach88/msig/internal/testutil"
)

// fakeHost serves prepared functions and failures keyed by entry address.
type fakeHost struct {
	infos    []FuncInfo
	fns      map[uint64]*ir.Function
	failures map[uint64]error

	// onDecompile runs before every decompilation.
	onDecompile func(FuncInfo)
	decompiled  []uint64
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		fns:      map[uint64]*ir.Function{},
		failures: map[uint64]error{},
	}
}

func (h *fakeHost) add(fi FuncInfo, fn *ir.Function) {
	h.infos = append(h.infos, fi)
	if fn != nil {
		h.fns[fi.Entry] = fn
	}
}

func (h *fakeHost) fail(fi FuncInfo, err error) {
	h.infos = append(h.infos, fi)
	h.failures[fi.Entry] = err
}

func (h *fakeHost) Functions() []FuncInfo { return h.infos }

func (h *fakeHost) Decompile(_ context.Context, fi FuncInfo) (*ir.Function, error) {
	if h.onDecompile != nil {
		h.onDecompile(fi)
	}
	h.decompiled = append(h.decompiled, fi.Entry)
	if err, ok := h.failures[fi.Entry]; ok {
		return nil, err
	}
	fn, ok := h.fns[fi.Entry]
	if !ok {
		return nil, errors.New("no function")
	}
	// The host does not fill in names; the session takes them from FuncInfo.
	out := *fn
	out.Name = ""
	return &out, nil
}

// info describes a function of the given size at entry.
func info(entry uint64, size uint64, name string) FuncInfo {
	return FuncInfo{Entry: entry, End: entry + size, Name: name}
}

// newTestSession creates a session with a fixed ID that logs into the
// returned buffer.
func newTestSession(t *testing.T, opts ...Option) (*Session, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	base := []Option{
		WithLogger(logger),
		WithIDGenerator(testutil.NewFixedSessionGenerator("test-session")),
	}
	return NewSession(append(base, opts...)...), &logs
}
