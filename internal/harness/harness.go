package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/msig/internal/ir"
	"github.com/roach88/msig/internal/matcher"
	"github.com/roach88/msig/internal/msig"
	"github.com/roach88/msig/internal/store"
	"github.com/roach88/msig/internal/testutil"
)

// Outcome classes recorded in traces and matched by expect.error.
const (
	OutcomeOK           = "ok"
	OutcomeMiss         = "miss"
	OutcomeInvalid      = "invalid"
	OutcomeDuplicate    = "duplicate"
	OutcomeNoSignatures = "no_signatures"
	OutcomeError        = "error"
)

// Harness is the scenario execution engine.
// It runs scenarios with a fixed session ID in an isolated directory.
type Harness struct {
	store   *store.Store
	session *matcher.Session
	idGen   *testutil.FixedSessionGenerator
	fns     map[string]*ir.Function
	dir     string
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database and a scratch directory
// that is removed afterwards. A returned error means the scenario itself
// is broken (unknown function, unreadable IR file); failed expectations
// are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	fns, err := scenarioFunctions(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	dir, err := os.MkdirTemp("", "msig-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	h := &Harness{
		store:  st,
		idGen:  testutil.NewFixedSessionGenerator(scenario.Session),
		fns:    fns,
		dir:    dir,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.session = h.newSession()

	ctx := context.Background()
	result := NewResult()
	for i := range scenario.Steps {
		if err := h.executeStep(ctx, i, &scenario.Steps[i], result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for _, sig := range h.session.Set().All() {
		result.Signatures = append(result.Signatures, sig.String())
	}

	actx := &AssertionContext{Session: h.session, Dir: dir}
	for _, errMsg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// scenarioFunctions converts the inline functions and loads the IR files,
// indexed by name.
func scenarioFunctions(scenario *Scenario) (map[string]*ir.Function, error) {
	doc := ir.File{Functions: scenario.Functions}
	fns, err := doc.Convert()
	if err != nil {
		return nil, fmt.Errorf("functions: %w", err)
	}
	for _, path := range scenario.Files {
		loaded, err := ir.LoadFile(path)
		if err != nil {
			return nil, err
		}
		fns = append(fns, loaded...)
	}

	byName := make(map[string]*ir.Function, len(fns))
	for i := range fns {
		if _, dup := byName[fns[i].Name]; dup {
			return nil, fmt.Errorf("function %q is defined twice", fns[i].Name)
		}
		byName[fns[i].Name] = &fns[i]
	}
	return byName, nil
}

func (h *Harness) newSession() *matcher.Session {
	return matcher.NewSession(
		matcher.WithLogger(h.logger),
		matcher.WithStore(h.store),
		matcher.WithIDGenerator(h.idGen),
	)
}

func (h *Harness) function(name string) (*ir.Function, error) {
	fn, ok := h.fns[name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	// Steps must not share mutable state through the map.
	cp := *fn
	return &cp, nil
}

func (h *Harness) path(name string) string {
	return filepath.Join(h.dir, filepath.Base(name))
}

// executeStep runs one step, records it and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step *Step, result *Result) error {
	event := TraceEvent{Step: i, Kind: step.Kind()}
	var count int
	var stepErr error

	switch event.Kind {
	case StepAdd:
		fn, err := h.function(step.Add)
		if err != nil {
			return err
		}
		event.Target = step.Add
		event.Digest = msig.FromIR(fn).Digest.String()
		stepErr = h.session.Add(fn)

	case StepMatch:
		fn, err := h.function(step.Match)
		if err != nil {
			return err
		}
		event.Target = step.Match
		event.Digest = msig.FromIR(fn).Digest.String()
		name, ok := h.session.Match(fn)
		event.Outcome = OutcomeMiss
		if ok {
			event.Outcome = OutcomeOK
			event.Name = name
		}

	case StepSave:
		event.Target = step.Save
		count, stepErr = h.session.SaveAll(h.path(step.Save))
		event.Count = &count

	case StepLoad:
		event.Target = step.Load
		count, stepErr = h.session.LoadAll(h.path(step.Load))
		event.Count = &count

	case StepWrite:
		event.Target = step.Write
		if err := os.WriteFile(h.path(step.Write), []byte(step.Content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", step.Write, err)
		}

	case StepReset:
		h.session = h.newSession()
		event.Session = h.session.ID()

	case StepPersist:
		count, stepErr = h.session.Persist(ctx)
		event.Count = &count

	case StepRestore:
		count, stepErr = h.session.Restore(ctx)
		event.Count = &count
	}

	if event.Outcome == "" {
		event.Outcome = outcomeOf(stepErr)
	}
	result.AddTrace(event)

	h.logger.Info("step completed", "step", i, "kind", event.Kind, "outcome", event.Outcome)

	for _, msg := range checkExpect(step.Expect, event) {
		result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, event.Kind, msg))
	}
	return nil
}

// outcomeOf classifies a step error.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, msig.ErrInvalid):
		return OutcomeInvalid
	case errors.Is(err, msig.ErrDuplicate):
		return OutcomeDuplicate
	case errors.Is(err, matcher.ErrNoSignatures):
		return OutcomeNoSignatures
	default:
		return OutcomeError
	}
}

// checkExpect compares a recorded step against its expect clause.
func checkExpect(expect *Expect, event TraceEvent) []string {
	var msgs []string
	if expect == nil {
		if event.Outcome == OutcomeError {
			msgs = append(msgs, "unexpected error")
		}
		return msgs
	}

	want := OutcomeOK
	switch {
	case expect.Error != "":
		want = expect.Error
	case expect.Miss:
		want = OutcomeMiss
	}
	if event.Outcome != want {
		msgs = append(msgs, fmt.Sprintf("expected outcome %s, got %s", want, event.Outcome))
	}
	if expect.Name != "" && event.Name != expect.Name {
		msgs = append(msgs, fmt.Sprintf("expected name %q, got %q", expect.Name, event.Name))
	}
	if expect.Count != nil {
		got := 0
		if event.Count != nil {
			got = *event.Count
		}
		if got != *expect.Count {
			msgs = append(msgs, fmt.Sprintf("expected count %d, got %d", *expect.Count, got))
		}
	}
	return msgs
}
