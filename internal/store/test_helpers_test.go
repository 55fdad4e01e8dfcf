package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/msig/internal/msig"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testSig creates a signature from an arbitrary body.
func testSig(name, body string) msig.Signature {
	return msig.FromBytes(name, []byte(body))
}
