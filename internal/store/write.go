package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/msig/internal/msig"
)

const insertSignatureSQL = `
	INSERT INTO signatures (digest, name, too_short, session, seq)
	SELECT ?, ?, ?, ?, COALESCE(MAX(seq), 0) + 1 FROM signatures WHERE true
	ON CONFLICT(digest) DO NOTHING
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WriteSignature inserts a signature written by the given session.
// Returns inserted=false when a row with the same digest already exists;
// the existing row is left untouched.
//
// Invalid signatures are rejected with msig.ErrInvalid before reaching the
// database.
func (s *Store) WriteSignature(ctx context.Context, sig msig.Signature, session string) (bool, error) {
	return writeSignature(ctx, s.db, sig, session)
}

// WriteSignatures inserts signatures in one transaction and returns how
// many rows were new. Invalid signatures abort the whole batch.
func (s *Store) WriteSignatures(ctx context.Context, sigs []msig.Signature, session string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write signatures: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	inserted := 0
	for _, sig := range sigs {
		ok, err := writeSignature(ctx, tx, sig, session)
		if err != nil {
			return 0, err
		}
		if ok {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write signatures: commit: %w", err)
	}
	return inserted, nil
}

func writeSignature(ctx context.Context, db execer, sig msig.Signature, session string) (bool, error) {
	if !sig.Valid() {
		return false, fmt.Errorf("write signature %q: %w", sig.String(), msig.ErrInvalid)
	}

	result, err := db.ExecContext(ctx, insertSignatureSQL,
		sig.Digest[:],
		sig.Name,
		sig.TooShort,
		session,
	)
	if err != nil {
		return false, fmt.Errorf("write signature: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write signature: rows affected: %w", err)
	}
	return n > 0, nil
}
