package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/msig/internal/msig"
)

// ReadSignatures returns every signature ordered by digest.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ReadSignatures(ctx context.Context) ([]msig.Signature, error) {
	return s.query(ctx, `
		SELECT digest, name, too_short FROM signatures
		ORDER BY digest ASC
	`)
}

// ReadSession returns the signatures written by one session in the order
// they were written.
func (s *Store) ReadSession(ctx context.Context, session string) ([]msig.Signature, error) {
	return s.query(ctx, `
		SELECT digest, name, too_short FROM signatures
		WHERE session = ?
		ORDER BY seq ASC
	`, session)
}

// ReadByName returns every signature stored under a name, ordered by digest.
func (s *Store) ReadByName(ctx context.Context, name string) ([]msig.Signature, error) {
	return s.query(ctx, `
		SELECT digest, name, too_short FROM signatures
		WHERE name = ?
		ORDER BY digest ASC
	`, name)
}

// Lookup returns the signature stored for a digest.
func (s *Store) Lookup(ctx context.Context, d msig.Digest) (msig.Signature, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT digest, name, too_short FROM signatures WHERE digest = ?
	`, d[:])
	sig, err := scanSignature(row)
	if errors.Is(err, sql.ErrNoRows) {
		return msig.Signature{}, false, nil
	}
	if err != nil {
		return msig.Signature{}, false, err
	}
	return sig, true, nil
}

// CountSignatures returns the number of stored signatures.
func (s *Store) CountSignatures(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM signatures").Scan(&n); err != nil {
		return 0, fmt.Errorf("count signatures: %w", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]msig.Signature, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signatures: %w", err)
	}
	defer rows.Close()

	sigs := []msig.Signature{}
	for rows.Next() {
		sig, err := scanSignature(rows)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signatures: %w", err)
	}
	return sigs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSignature(row scanner) (msig.Signature, error) {
	var (
		sig    msig.Signature
		digest []byte
	)
	if err := row.Scan(&digest, &sig.Name, &sig.TooShort); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return msig.Signature{}, err
		}
		return msig.Signature{}, fmt.Errorf("scan signature: %w", err)
	}
	if len(digest) != msig.DigestSize {
		return msig.Signature{}, fmt.Errorf("scan signature: digest has %d bytes", len(digest))
	}
	copy(sig.Digest[:], digest)
	return sig, nil
}
