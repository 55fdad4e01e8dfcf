package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/msig/internal/ir"
)

// Scenario defines an end-to-end signature scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session is the fixed session ID. If empty, defaults to
	// "test-session-default".
	Session string `yaml:"session,omitempty"`

	// Functions are the microcode functions steps refer to by name.
	Functions []ir.FuncDoc `yaml:"functions,omitempty"`

	// Files lists IR files whose functions are added to Functions. Paths
	// are relative to the scenario file.
	Files []string `yaml:"files,omitempty"`

	// Steps drive the session in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one action on the session. Exactly one action field is set.
type Step struct {
	Add     string `yaml:"add,omitempty"`
	Match   string `yaml:"match,omitempty"`
	Save    string `yaml:"save,omitempty"`
	Load    string `yaml:"load,omitempty"`
	Write   string `yaml:"write,omitempty"`
	Reset   bool   `yaml:"reset,omitempty"`
	Persist bool   `yaml:"persist,omitempty"`
	Restore bool   `yaml:"restore,omitempty"`

	// Content is the file body for write steps.
	Content string `yaml:"content,omitempty"`

	// Expect specifies the expected outcome. If nil, any outcome except
	// an unexpected error is accepted.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Error is the expected error class: "invalid", "duplicate",
	// "no_signatures", or "error" for any other failure.
	Error string `yaml:"error,omitempty"`

	// Name is the expected match result.
	Name string `yaml:"name,omitempty"`

	// Miss expects a match step to find nothing.
	Miss bool `yaml:"miss,omitempty"`

	// Count is the expected number of signatures saved, loaded, persisted
	// or restored.
	Count *int `yaml:"count,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "set_size": the set holds exactly Count signatures
	// - "set_contains": a signature named Name is present
	// - "file_lines": File has exactly Count lines
	Type string `yaml:"type"`

	Name  string `yaml:"name,omitempty"`
	File  string `yaml:"file,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertSetSize     = "set_size"
	AssertSetContains = "set_contains"
	AssertFileLines   = "file_lines"
)

// Step kinds, as recorded in traces.
const (
	StepAdd     = "add"
	StepMatch   = "match"
	StepSave    = "save"
	StepLoad    = "load"
	StepWrite   = "write"
	StepReset   = "reset"
	StepPersist = "persist"
	StepRestore = "restore"
)

// Kind returns which action the step performs.
func (s *Step) Kind() string {
	switch {
	case s.Add != "":
		return StepAdd
	case s.Match != "":
		return StepMatch
	case s.Save != "":
		return StepSave
	case s.Load != "":
		return StepLoad
	case s.Write != "":
		return StepWrite
	case s.Reset:
		return StepReset
	case s.Persist:
		return StepPersist
	case s.Restore:
		return StepRestore
	}
	return ""
}

func (s *Step) actionCount() int {
	n := 0
	for _, set := range []bool{
		s.Add != "", s.Match != "", s.Save != "", s.Load != "", s.Write != "",
		s.Reset, s.Persist, s.Restore,
	} {
		if set {
			n++
		}
	}
	return n
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve IR file paths relative to the scenario BEFORE validation
	base := filepath.Dir(path)
	for i, file := range scenario.Files {
		if !filepath.IsAbs(file) {
			scenario.Files[i] = filepath.Join(base, file)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, file := range s.Files {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			return fmt.Errorf("IR file not found: %s", file)
		}
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		if step.actionCount() != 1 {
			return fmt.Errorf("steps[%d]: exactly one action is required", i)
		}
		if step.Kind() == StepWrite && step.Content == "" {
			return fmt.Errorf("steps[%d]: content is required for write", i)
		}
		if step.Expect != nil {
			if err := validateExpect(i, step); err != nil {
				return err
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateExpect(index int, step *Step) error {
	e := step.Expect
	switch e.Error {
	case "", "invalid", "duplicate", "no_signatures", "error":
	default:
		return fmt.Errorf("steps[%d].expect: unknown error class %q", index, e.Error)
	}
	if (e.Name != "" || e.Miss) && step.Kind() != StepMatch {
		return fmt.Errorf("steps[%d].expect: name and miss only apply to match", index)
	}
	if e.Name != "" && e.Miss {
		return fmt.Errorf("steps[%d].expect: name and miss are exclusive", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSetSize:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for set_size", index)
		}
	case AssertSetContains:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for set_contains", index)
		}
	case AssertFileLines:
		if a.File == "" {
			return fmt.Errorf("assertions[%d]: file is required for file_lines", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
