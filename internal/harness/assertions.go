package harness

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/msig/internal/matcher"
)

// AssertionContext holds the state assertions inspect.
type AssertionContext struct {
	Session *matcher.Session
	Dir     string // scratch directory of the scenario
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type       string   // Assertion type for categorization
	Expected   string   // Human-readable expected outcome
	Actual     string   // Human-readable actual outcome
	Signatures []string // Final set content for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Signatures) > 0 {
		fmt.Fprintf(&buf, "\nSignatures:\n")
		for _, line := range e.Signatures {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var msgs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertSetSize:
			err = assertSetSize(actx, a)
		case AssertSetContains:
			err = assertSetContains(actx, a)
		case AssertFileLines:
			err = assertFileLines(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func signatureLines(actx *AssertionContext) []string {
	sigs := actx.Session.Set().All()
	lines := make([]string, len(sigs))
	for i, sig := range sigs {
		lines[i] = sig.String()
	}
	return lines
}

func assertSetSize(actx *AssertionContext, a Assertion) error {
	if n := actx.Session.Set().Len(); n != a.Count {
		return &AssertionError{
			Type:       AssertSetSize,
			Expected:   fmt.Sprintf("%d signatures", a.Count),
			Actual:     fmt.Sprintf("%d signatures", n),
			Signatures: signatureLines(actx),
		}
	}
	return nil
}

func assertSetContains(actx *AssertionContext, a Assertion) error {
	for _, sig := range actx.Session.Set().All() {
		if sig.Name == a.Name {
			return nil
		}
	}
	return &AssertionError{
		Type:       AssertSetContains,
		Expected:   fmt.Sprintf("signature named %q", a.Name),
		Actual:     "not found in set",
		Signatures: signatureLines(actx),
	}
}

func assertFileLines(actx *AssertionContext, a Assertion) error {
	f, err := os.Open(filepath.Join(actx.Dir, filepath.Base(a.File)))
	if err != nil {
		return &AssertionError{
			Type:     AssertFileLines,
			Expected: fmt.Sprintf("%d lines in %s", a.Count, a.File),
			Actual:   err.Error(),
		}
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", a.File, err)
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertFileLines,
			Expected: fmt.Sprintf("%d lines in %s", a.Count, a.File),
			Actual:   fmt.Sprintf("%d lines", n),
		}
	}
	return nil
}
