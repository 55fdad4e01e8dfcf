package store

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msig/internal/msig"
)

func TestReadSignatures_DigestOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, sig := range []msig.Signature{
		testSig("alpha_fn", "alpha-body"),
		testSig("bravo_fn", "bravo-body"),
		testSig("charlie_fn", "charlie-body"),
	} {
		_, err := s.WriteSignature(ctx, sig, "session-1")
		require.NoError(t, err)
	}

	sigs, err := s.ReadSignatures(ctx)
	require.NoError(t, err)
	require.Len(t, sigs, 3)

	names := []string{sigs[0].Name, sigs[1].Name, sigs[2].Name}
	assert.Equal(t, []string{"alpha_fn", "charlie_fn", "bravo_fn"}, names)
	assert.True(t, slices.IsSortedFunc(sigs, func(a, b msig.Signature) int {
		return a.Digest.Compare(b.Digest)
	}))
}

func TestReadSignatures_Empty(t *testing.T) {
	s := createTestStore(t)

	sigs, err := s.ReadSignatures(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sigs)
	assert.Empty(t, sigs)
}

func TestReadSession_WriteOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WriteSignature(ctx, testSig("bravo_fn", "bravo-body"), "build-a")
	require.NoError(t, err)
	_, err = s.WriteSignature(ctx, testSig("other_fn", "other-body"), "build-b")
	require.NoError(t, err)
	_, err = s.WriteSignature(ctx, testSig("alpha_fn", "alpha-body"), "build-a")
	require.NoError(t, err)

	sigs, err := s.ReadSession(ctx, "build-a")
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.Equal(t, "bravo_fn", sigs[0].Name)
	assert.Equal(t, "alpha_fn", sigs[1].Name)
}

func TestReadByName(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WriteSignature(ctx, testSig("memcpy", "memcpy-v1"), "session-1")
	require.NoError(t, err)
	_, err = s.WriteSignature(ctx, testSig("memcpy", "memcpy-v2"), "session-1")
	require.NoError(t, err)
	_, err = s.WriteSignature(ctx, testSig("memset", "memset-v1"), "session-1")
	require.NoError(t, err)

	sigs, err := s.ReadByName(ctx, "memcpy")
	require.NoError(t, err)
	assert.Len(t, sigs, 2)
}

func TestLookup_Miss(t *testing.T) {
	s := createTestStore(t)

	_, ok, err := s.Lookup(context.Background(), testSig("x", "nothing").Digest)
	require.NoError(t, err)
	assert.False(t, ok)
}
