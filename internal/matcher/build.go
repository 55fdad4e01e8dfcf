package matcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/msig/internal/ir"
	"github.com/roach88/msig/internal/msig"
)

var errNoMicrocode = errors.New("no microcode")

// BuildReport summarises a build pass.
type BuildReport struct {
	Considered int `json:"considered"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Added      int `json:"added"`
	Rejected   int `json:"rejected"`
}

// Rename is a proposed function rename from a match pass.
type Rename struct {
	Entry   uint64 `json:"entry"`
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// eligible reports whether a build pass signs the function.
func eligible(fi FuncInfo) bool {
	if fi.Library || fi.Thunk {
		return false
	}
	if fi.End != 0 && fi.Chunks == 0 && fi.Size() < msig.MinFuncLength {
		return false
	}
	return IsUserName(fi.Name)
}

// Build decompiles every eligible function of the host and adds its
// signature. On cancellation the report covers the functions processed so
// far and ctx.Err() is returned.
func (s *Session) Build(ctx context.Context, host Host) (BuildReport, error) {
	var report BuildReport
	for _, fi := range host.Functions() {
		if err := ctx.Err(); err != nil {
			s.logger.Info("build is canceled", "added", report.Added)
			return report, err
		}
		report.Considered++
		if !eligible(fi) {
			report.Skipped++
			continue
		}

		s.logger.Debug("decompiling", "entry", fmt.Sprintf("%#x", fi.Entry), "name", fi.Name)
		fn, err := s.decompile(ctx, host, fi)
		if err != nil {
			report.Failed++
			continue
		}
		if err := s.Add(fn); err != nil {
			report.Rejected++
			continue
		}
		report.Added++
	}
	return report, nil
}

// Apply decompiles every non-library function and proposes a rename for
// each one whose signature is known under a different name.
func (s *Session) Apply(ctx context.Context, host Host) ([]Rename, error) {
	renames := []Rename{}
	if s.set.Len() == 0 {
		s.logger.Info("no signatures are defined")
		return renames, nil
	}
	for _, fi := range host.Functions() {
		if err := ctx.Err(); err != nil {
			s.logger.Info("match is canceled", "renames", len(renames))
			return renames, err
		}
		if fi.Library || fi.Thunk {
			continue
		}
		fn, err := s.decompile(ctx, host, fi)
		if err != nil {
			continue
		}
		name, ok := s.Match(fn)
		if !ok || name == fi.Name {
			continue
		}
		renames = append(renames, Rename{Entry: fi.Entry, OldName: fi.Name, NewName: name})
	}
	return renames, nil
}

func (s *Session) decompile(ctx context.Context, host Host, fi FuncInfo) (*ir.Function, error) {
	fn, err := host.Decompile(ctx, fi)
	if err == nil && fn == nil {
		err = errNoMicrocode
	}
	if err != nil {
		s.logger.Warn("decompile failed", "entry", fmt.Sprintf("%#x", fi.Entry), "name", fi.Name, "err", err)
		return nil, err
	}
	if fn.Name == "" {
		fn.Name = fi.Name
	}
	if fn.Entry == 0 {
		fn.Entry = fi.Entry
	}
	return fn, nil
}
