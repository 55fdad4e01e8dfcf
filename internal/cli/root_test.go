package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns what it printed on
// stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "msig", cmd.Use)
	assert.Contains(t, cmd.Long, "signature")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"sig", "build", "match", "list", "import", "export"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	sigsFlag := cmd.PersistentFlags().Lookup("sigs")
	require.NotNil(t, sigsFlag)
	assert.Equal(t, "signatures.msig", sigsFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)
}

func TestOutputFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"build", "export"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)

		outputFlag := sub.Flags().Lookup("output")
		require.NotNil(t, outputFlag, name)
		assert.Equal(t, "o", outputFlag.Shorthand)
	}
}

func TestRoot_InvalidFormat(t *testing.T) {
	out, err := execute(t, "--format", "xml", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `invalid format "xml"`)
}

func TestRoot_EnvironmentConfig(t *testing.T) {
	dir := t.TempDir()
	sigs := filepath.Join(dir, "env.msig")
	_, err := execute(t, "build", "testdata/lib.yaml", "--sigs", sigs)
	require.NoError(t, err)

	t.Setenv("MSIG_SIGS", sigs)
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Equal(t, readLines(t, sigs), strings.Split(strings.TrimSuffix(out, "\n"), "\n"))
}

func TestRoot_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	sigs := filepath.Join(dir, "cfg.msig")
	cfg := filepath.Join(dir, "msig.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("sigs: "+sigs+"\nformat: json\n"), 0o644))

	out, err := execute(t, "--config", cfg, "build", "testdata/lib.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"ok"`)
	assert.FileExists(t, sigs)
}

func TestRoot_ConfigFileMissing(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
