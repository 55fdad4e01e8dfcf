package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msig/internal/msig"
)

func TestWriteSignature(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	inserted, err := s.WriteSignature(ctx, testSig("alpha_fn", "alpha-body"), "session-1")
	require.NoError(t, err)
	assert.True(t, inserted)

	n, err := s.CountSignatures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWriteSignature_FirstWriterWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WriteSignature(ctx, testSig("first", "same-body"), "session-1")
	require.NoError(t, err)

	inserted, err := s.WriteSignature(ctx, testSig("second", "same-body"), "session-2")
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate digest must not be inserted")

	sig, ok, err := s.Lookup(ctx, testSig("", "same-body").Digest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", sig.Name)
}

func TestWriteSignature_RejectsInvalid(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WriteSignature(ctx, msig.Signature{Name: "zero"}, "session-1")
	assert.True(t, errors.Is(err, msig.ErrInvalid))

	_, err = s.WriteSignature(ctx, testSig("", "body"), "session-1")
	assert.True(t, errors.Is(err, msig.ErrInvalid))
}

func TestWriteSignatures_Batch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sigs := []msig.Signature{
		testSig("alpha_fn", "alpha-body"),
		testSig("bravo_fn", "bravo-body"),
		testSig("alpha_dup", "alpha-body"),
	}

	inserted, err := s.WriteSignatures(ctx, sigs, "session-1")
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = s.WriteSignatures(ctx, sigs, "session-2")
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestWriteSignatures_InvalidRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sigs := []msig.Signature{
		testSig("alpha_fn", "alpha-body"),
		{Name: "broken"},
	}

	_, err := s.WriteSignatures(ctx, sigs, "session-1")
	require.Error(t, err)

	n, err := s.CountSignatures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "failed batch must leave no rows")
}

func TestWriteSignature_KeepsTooShort(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	short := testSig("stub", "")
	require.True(t, short.TooShort)
	_, err := s.WriteSignature(ctx, short, "session-1")
	require.NoError(t, err)

	got, ok, err := s.Lookup(ctx, short.Digest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.TooShort)
}
