package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a scenario file into a temp dir and returns its path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.yaml"), []byte("functions: []\n"), 0o644))

	path := filepath.Join(dir, "test.yaml")
	content := `
name: test_scenario
description: "Scenario for validation"
session: fixed-id
files:
  - lib.yaml
functions:
  - name: ret_only
    entry: 0x1000
    blocks:
      - - op: 58
steps:
  - add: ret_only
  - match: ret_only
    expect: {miss: true}
  - save: out.msig
    expect: {error: no_signatures, count: 0}
  - write: extra.msig
    content: |
      00112233445566778899AABBCCDDEEFF extra
  - reset: true
assertions:
  - type: set_size
    count: 0
  - type: file_lines
    file: extra.msig
    count: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "fixed-id", scenario.Session)
	assert.Equal(t, []string{filepath.Join(dir, "lib.yaml")}, scenario.Files)
	require.Len(t, scenario.Functions, 1)
	assert.Equal(t, uint64(0x1000), scenario.Functions[0].Entry)

	require.Len(t, scenario.Steps, 5)
	kinds := make([]string, len(scenario.Steps))
	for i := range scenario.Steps {
		kinds[i] = scenario.Steps[i].Kind()
	}
	assert.Equal(t, []string{StepAdd, StepMatch, StepSave, StepWrite, StepReset}, kinds)
	assert.Equal(t, "00112233445566778899AABBCCDDEEFF extra\n", scenario.Steps[3].Content)
	require.NotNil(t, scenario.Steps[2].Expect.Count)
	assert.Equal(t, 0, *scenario.Steps[2].Expect.Count)
	assert.Len(t, scenario.Assertions, 2)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "Misspelled key"
steps:
  - persist: true
assertion:
  - type: set_size
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "x"
steps: [{persist: true}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: x
steps: [{persist: true}]
`,
			wantErr: "description is required",
		},
		{
			name: "no steps",
			content: `
name: x
description: "x"
`,
			wantErr: "steps list is required",
		},
		{
			name: "missing IR file",
			content: `
name: x
description: "x"
files: [absent.yaml]
steps: [{persist: true}]
`,
			wantErr: "IR file not found",
		},
		{
			name: "empty step",
			content: `
name: x
description: "x"
steps: [{expect: {count: 1}}]
`,
			wantErr: "steps[0]: exactly one action is required",
		},
		{
			name: "two actions",
			content: `
name: x
description: "x"
steps: [{add: f, persist: true}]
`,
			wantErr: "steps[0]: exactly one action is required",
		},
		{
			name: "write without content",
			content: `
name: x
description: "x"
steps: [{write: a.msig}]
`,
			wantErr: "content is required for write",
		},
		{
			name: "unknown error class",
			content: `
name: x
description: "x"
steps: [{add: f, expect: {error: exploded}}]
`,
			wantErr: `unknown error class "exploded"`,
		},
		{
			name: "name outside match",
			content: `
name: x
description: "x"
steps: [{add: f, expect: {name: g}}]
`,
			wantErr: "name and miss only apply to match",
		},
		{
			name: "name and miss",
			content: `
name: x
description: "x"
steps: [{match: f, expect: {name: g, miss: true}}]
`,
			wantErr: "name and miss are exclusive",
		},
		{
			name: "assertion without type",
			content: `
name: x
description: "x"
steps: [{persist: true}]
assertions: [{count: 1}]
`,
			wantErr: "assertions[0]: type is required",
		},
		{
			name: "unknown assertion",
			content: `
name: x
description: "x"
steps: [{persist: true}]
assertions: [{type: trace_contains}]
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "set_contains without name",
			content: `
name: x
description: "x"
steps: [{persist: true}]
assertions: [{type: set_contains}]
`,
			wantErr: "name is required for set_contains",
		},
		{
			name: "file_lines without file",
			content: `
name: x
description: "x"
steps: [{persist: true}]
assertions: [{type: file_lines, count: 2}]
`,
			wantErr: "file is required for file_lines",
		},
		{
			name: "negative set_size",
			content: `
name: x
description: "x"
steps: [{persist: true}]
assertions: [{type: set_size, count: -1}]
`,
			wantErr: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStepKind_Empty(t *testing.T) {
	var s Step
	assert.Equal(t, "", s.Kind())
	assert.Equal(t, 0, s.actionCount())
}
