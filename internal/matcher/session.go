package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/msig/internal/ir"
	"github.com/roach88/msig/internal/msig"
	"github.com/roach88/msig/internal/store"
)

var (
	// ErrNoSignatures is returned by SaveAll and Persist when the session
	// has nothing to write.
	ErrNoSignatures = errors.New("no signatures are defined")

	// ErrNoStore is returned by Persist and Restore when the session was
	// created without a store.
	ErrNoStore = errors.New("session has no store")
)

// SessionIDGenerator generates session IDs.
type SessionIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Session holds the signature set of one analysis session.
type Session struct {
	id     string
	set    *msig.Set
	store  *store.Store
	logger *slog.Logger
	strict bool
	idGen  SessionIDGenerator
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for the session and its set.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore attaches a signature database used by Persist and Restore.
// The session does not take ownership; the caller closes the store.
func WithStore(st *store.Store) Option {
	return func(s *Session) {
		s.store = st
	}
}

// WithStrict enables strict parsing of signature files.
func WithStrict(strict bool) Option {
	return func(s *Session) {
		s.strict = strict
	}
}

// WithIDGenerator overrides the session ID generator (for testing).
func WithIDGenerator(gen SessionIDGenerator) Option {
	return func(s *Session) {
		s.idGen = gen
	}
}

// NewSession creates a session with an empty signature set.
func NewSession(opts ...Option) *Session {
	s := &Session{
		logger: slog.Default(),
		idGen:  UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.id = s.idGen.Generate()
	s.logger = s.logger.With("session", s.id)
	s.set = msig.NewSet(msig.WithLogger(s.logger), msig.WithStrict(s.strict))
	return s
}

// ID returns the session ID recorded with every persisted signature.
func (s *Session) ID() string {
	return s.id
}

// Set returns the session's signature set.
func (s *Session) Set() *msig.Set {
	return s.set
}

// Add computes the signature of fn and adds it to the set. A nil function
// is ignored. Rejected signatures are logged by the set and returned as
// msig.ErrInvalid or msig.ErrDuplicate.
func (s *Session) Add(fn *ir.Function) error {
	if fn == nil {
		return nil
	}
	_, err := s.set.Add(fn)
	return err
}

// Match returns the name of the known function whose signature equals the
// signature of fn.
func (s *Session) Match(fn *ir.Function) (string, bool) {
	if fn == nil {
		return "", false
	}
	name, ok := s.set.Match(fn)
	if ok {
		s.logger.Info("signature found", "entry", fmt.Sprintf("%#x", fn.Entry), "name", name)
	}
	return name, ok
}

// SaveAll writes the set to a signature file.
func (s *Session) SaveAll(path string) (int, error) {
	if s.set.Len() == 0 {
		s.logger.Info("no signatures are defined")
		return 0, ErrNoSignatures
	}
	n, err := s.set.SaveFile(path)
	if err != nil {
		s.logger.Error("could not save signatures", "path", path, "err", err)
		return n, err
	}
	return n, nil
}

// LoadAll adds the signatures of a signature file to the set.
func (s *Session) LoadAll(path string) (int, error) {
	n, err := s.set.LoadFile(path)
	if err != nil {
		s.logger.Error("could not load signatures", "path", path, "err", err)
		return n, err
	}
	return n, nil
}

// Persist writes the set to the attached store under the session ID.
// Returns the number of rows that were new to the store.
func (s *Session) Persist(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, ErrNoStore
	}
	sigs := s.set.All()
	if len(sigs) == 0 {
		return 0, ErrNoSignatures
	}
	n, err := s.store.WriteSignatures(ctx, sigs, s.id)
	if err != nil {
		s.logger.Error("could not persist signatures", "err", err)
		return 0, err
	}
	s.logger.Info("signatures persisted", "count", n, "duplicates", len(sigs)-n)
	return n, nil
}

// Restore adds every signature of the attached store to the set. Returns
// the number of signatures inserted.
func (s *Session) Restore(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, ErrNoStore
	}
	sigs, err := s.store.ReadSignatures(ctx)
	if err != nil {
		s.logger.Error("could not restore signatures", "err", err)
		return 0, err
	}
	n := 0
	for _, sig := range sigs {
		if err := s.set.Insert(sig); err != nil {
			s.logger.Debug("skipped stored signature", "sig", sig.String(), "err", err)
			continue
		}
		n++
	}
	s.logger.Info("signatures restored", "count", n)
	return n, nil
}
