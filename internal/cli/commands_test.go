package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msig/internal/store"
)

var sigLine = regexp.MustCompile(`^[0-9A-F]{32} \S+$`)

func sigResults(t *testing.T, out string) []SigResult {
	t.Helper()
	var resp struct {
		Status string      `json:"status"`
		Data   []SigResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func digestOf(t *testing.T, results []SigResult, name string) string {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r.Digest
		}
	}
	t.Fatalf("no signature named %s", name)
	return ""
}

// buildLib builds testdata/lib.yaml into a fresh signature file.
func buildLib(t *testing.T, extra ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lib.msig")
	args := append([]string{"build", "testdata/lib.yaml", "-o", path}, extra...)
	_, err := execute(t, args...)
	require.NoError(t, err)
	return path
}

func TestSig_Text(t *testing.T) {
	out, err := execute(t, "sig", "testdata/lib.yaml")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 3, "sig does not filter functions")
	for _, line := range lines {
		assert.Regexp(t, sigLine, line)
	}
	assert.Contains(t, out, " counter_loop\n")
	assert.Contains(t, out, " sub_401200\n")
}

func TestSig_AllocationIndependent(t *testing.T) {
	libOut, err := execute(t, "--format", "json", "sig", "testdata/lib.yaml")
	require.NoError(t, err)
	targetOut, err := execute(t, "--format", "json", "sig", "testdata/target.json")
	require.NoError(t, err)

	lib := sigResults(t, libOut)
	target := sigResults(t, targetOut)

	assert.Equal(t, digestOf(t, lib, "counter_loop"), digestOf(t, target, "sub_500000"))
	assert.Equal(t, digestOf(t, lib, "copy_helper"), digestOf(t, target, "copy_helper"))
	assert.NotEqual(t, digestOf(t, lib, "sub_401200"), digestOf(t, target, "sub_500200"))
	assert.Equal(t, uint64(0x401000), lib[0].Entry)
}

func TestSig_MissingInput(t *testing.T) {
	out, err := execute(t, "sig", "testdata/absent.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestSig_NotAnELF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	out, err := execute(t, "sig", path)
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeInput)
}

func TestBuild_WritesSignatureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.msig")
	out, err := execute(t, "build", "testdata/lib.yaml", "-o", path)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Built 2 signatures from 3 functions")
	assert.Contains(t, out, "Wrote 2 signatures to "+path)

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Regexp(t, sigLine, line)
	}
	assert.Less(t, lines[0], lines[1], "file is in digest order")
}

func TestBuild_JSONReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.msig")
	out, err := execute(t, "--format", "json", "build", "testdata/lib.yaml", "--sigs", path)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   BuildResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 3, resp.Data.Report.Considered)
	assert.Equal(t, 1, resp.Data.Report.Skipped)
	assert.Equal(t, 2, resp.Data.Report.Added)
	assert.Equal(t, path, resp.Data.Output)
	assert.NotEmpty(t, resp.Data.Session)
}

func TestBuild_NothingEligible(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "anon.yaml")
	require.NoError(t, os.WriteFile(input, []byte(`functions:
  - name: sub_1000
    entry: 0x1000
    blocks:
      - - op: 58
`), 0o644))
	output := filepath.Join(dir, "anon.msig")

	out, err := execute(t, "build", input, "-o", output)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNoSignatures)
	assert.NoFileExists(t, output)
}

func TestBuild_Canceled(t *testing.T) {
	output := filepath.Join(t.TempDir(), "lib.msig")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"build", "testdata/lib.yaml", "-o", output})
	err := cmd.ExecuteContext(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeCanceled)
	assert.Contains(t, buf.String(), "build interrupted after 0 signatures")
	assert.NoFileExists(t, output)
}

func TestBuild_RecordsInDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "sigs.db")
	path := filepath.Join(t.TempDir(), "lib.msig")

	out, err := execute(t, "build", "testdata/lib.yaml", "-o", path, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded 2 new signatures in "+db)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	count, err := st.CountSignatures(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMatch_FromFile(t *testing.T) {
	sigs := buildLib(t)

	out, err := execute(t, "match", "testdata/target.json", "--sigs", sigs)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Found 1 known function")
	assert.Contains(t, out, "0x500000  sub_500000 → counter_loop")
	assert.NotContains(t, out, "copy_helper →", "same-name matches are not renames")
}

func TestMatch_JSON(t *testing.T) {
	sigs := buildLib(t)

	out, err := execute(t, "--format", "json", "match", "testdata/target.json", "--sigs", sigs)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   MatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.Data.Signatures)
	require.Len(t, resp.Data.Renames, 1)
	assert.Equal(t, uint64(0x500000), resp.Data.Renames[0].Entry)
	assert.Equal(t, "sub_500000", resp.Data.Renames[0].OldName)
	assert.Equal(t, "counter_loop", resp.Data.Renames[0].NewName)
}

func TestMatch_FromDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "sigs.db")
	buildLib(t, "--db", db)

	absent := filepath.Join(t.TempDir(), "absent.msig")
	out, err := execute(t, "match", "testdata/target.json", "--db", db, "--sigs", absent)
	require.NoError(t, err)
	assert.Contains(t, out, "sub_500000 → counter_loop")
}

func TestMatch_NoKnownSignatures(t *testing.T) {
	absent := filepath.Join(t.TempDir(), "absent.msig")
	out, err := execute(t, "match", "testdata/target.json", "--sigs", absent)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNoSignatures)
}

func TestMatch_NothingFound(t *testing.T) {
	sigs := buildLib(t)
	out, err := execute(t, "match", "testdata/lib.yaml", "--sigs", sigs)
	require.NoError(t, err)
	assert.Contains(t, out, "No known functions found")
}

func TestList(t *testing.T) {
	sigs := buildLib(t)

	out, err := execute(t, "list", sigs)
	require.NoError(t, err)
	assert.Equal(t, readLines(t, sigs), strings.Split(strings.TrimSuffix(out, "\n"), "\n"))
}

func TestList_SkipsBadLines(t *testing.T) {
	sigs := buildLib(t)
	good := readLines(t, sigs)
	messy := filepath.Join(t.TempDir(), "messy.msig")
	content := "\nnot a signature\n" + good[1] + "\n" + good[0] + "\n" + good[0] + "\n"
	require.NoError(t, os.WriteFile(messy, []byte(content), 0o644))

	out, err := execute(t, "--format", "json", "list", messy)
	require.NoError(t, err)
	results := sigResults(t, out)
	require.Len(t, results, 2)
	assert.Equal(t, good[0], results[0].Digest+" "+results[0].Name)
}

func TestList_NotFound(t *testing.T) {
	out, err := execute(t, "list", filepath.Join(t.TempDir(), "absent.msig"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestImportExport(t *testing.T) {
	sigs := buildLib(t)
	db := filepath.Join(t.TempDir(), "sigs.db")

	out, err := execute(t, "import", sigs, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Imported 2 new signatures")

	out, err = execute(t, "import", sigs, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Imported 0 new signatures")
	assert.Contains(t, out, "(2 already recorded)")

	exported := filepath.Join(t.TempDir(), "exported.msig")
	out, err = execute(t, "export", "--db", db, "-o", exported)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Exported 2 signatures to "+exported)
	assert.Equal(t, readLines(t, sigs), readLines(t, exported))
}

func TestImport_RequiresDatabase(t *testing.T) {
	sigs := buildLib(t)
	out, err := execute(t, "import", sigs)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNoDatabase)
}

func TestExport_EmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "export", "--db", db, "-o", filepath.Join(t.TempDir(), "out.msig"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNoSignatures)
}

func TestExport_MissingDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "typo.db")
	out, err := execute(t, "export", "--db", db, "-o", filepath.Join(t.TempDir(), "out.msig"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
	assert.NoFileExists(t, db, "export must not create the database")
}

func TestMatch_MissingDatabase(t *testing.T) {
	sigs := buildLib(t)
	db := filepath.Join(t.TempDir(), "typo.db")

	out, err := execute(t, "match", "testdata/target.json", "--sigs", sigs, "--db", db)
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeNotFound)
	assert.NoFileExists(t, db)
}
