package msig

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/msig/internal/ir"
)

var (
	// ErrInvalid is returned when a signature has an empty or multi-line
	// name or a zero digest.
	ErrInvalid = errors.New("invalid signature")

	// ErrDuplicate is returned when a signature with the same digest is
	// already in the set.
	ErrDuplicate = errors.New("duplicate signature")
)

// Set is a collection of signatures ordered by digest. Entries are only
// ever inserted; a Set never shrinks.
type Set struct {
	mu     sync.Mutex
	sigs   []Signature
	logger *slog.Logger
	strict bool
}

// Option configures a Set.
type Option func(*Set)

// WithLogger sets the logger used for diagnostics. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Set) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStrict makes Load reject lines whose digest field is not 32 hex
// digits instead of parsing them leniently.
func WithStrict(strict bool) Option {
	return func(s *Set) {
		s.strict = strict
	}
}

// NewSet creates an empty set.
func NewSet(opts ...Option) *Set {
	s := &Set{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of signatures in the set.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sigs)
}

// All returns a copy of the signatures in digest order.
func (s *Set) All() []Signature {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sigs)
}

// Insert validates a signature and adds it unless its digest is already
// present. Returns ErrInvalid or ErrDuplicate when the signature is
// discarded.
func (s *Set) Insert(sig Signature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(sig)
}

func (s *Set) insertLocked(sig Signature) error {
	if !sig.Valid() {
		return ErrInvalid
	}
	if sig.TooShort {
		s.logger.Warn("too short signature", "name", sig.Name)
	}
	i, found := s.search(sig.Digest)
	if found {
		return ErrDuplicate
	}
	s.sigs = slices.Insert(s.sigs, i, sig)
	return nil
}

// Add computes the signature of fn and inserts it. The returned signature
// is the one computed, whether or not it was inserted.
func (s *Set) Add(fn *ir.Function) (Signature, error) {
	sig := FromIR(fn)
	if err := s.Insert(sig); err != nil {
		s.logger.Warn("bad signature", "sig", sig.String(), "err", err)
		return sig, err
	}
	s.logger.Info("signature added", "entry", fmt.Sprintf("%#x", fn.Entry), "name", sig.Name)
	return sig, nil
}

// Lookup returns the stored signature with the given digest.
func (s *Set) Lookup(d Digest) (Signature, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, found := s.search(d)
	if !found {
		return Signature{}, false
	}
	return s.sigs[i], true
}

// Match returns the name stored for the digest of fn. The probe signature
// is not validated, so short functions match short stored signatures.
func (s *Set) Match(fn *ir.Function) (string, bool) {
	if s.Len() == 0 {
		return "", false
	}
	stored, ok := s.Lookup(FromIR(fn).Digest)
	if !ok {
		return "", false
	}
	return stored.Name, true
}

// search must be called with mu held.
func (s *Set) search(d Digest) (int, bool) {
	return slices.BinarySearchFunc(s.sigs, d, func(sig Signature, target Digest) int {
		return sig.Digest.Compare(target)
	})
}

// Save writes every signature as one line, in digest order. Returns the
// number of lines written.
func (s *Set) Save(w io.Writer) (int, error) {
	sigs := s.All()
	bw := bufio.NewWriter(w)
	count := 0
	for _, sig := range sigs {
		if _, err := bw.WriteString(sig.String() + "\n"); err != nil {
			return count, fmt.Errorf("write signature: %w", err)
		}
		count++
	}
	if err := bw.Flush(); err != nil {
		return count, fmt.Errorf("flush signatures: %w", err)
	}
	return count, nil
}

// SaveFile truncates path and saves the set into it.
func (s *Set) SaveFile(path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("open %s for writing: %w", path, err)
	}
	count, err := s.Save(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", path, cerr)
	}
	if err != nil {
		return count, err
	}
	s.logger.Info("signatures saved", "count", count, "path", path)
	return count, nil
}

// Load reads signature lines and inserts them. Bad and duplicate lines are
// logged and skipped; blank lines are ignored. Returns the number of
// signatures inserted and the first read error, if any.
func (s *Set) Load(r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	count := 0
	lineNo := 0
	for {
		line, readErr := br.ReadString('\n')
		if line != "" {
			lineNo++
			if s.loadLine(line, lineNo) {
				count++
			}
		}
		if readErr == io.EOF {
			return count, nil
		}
		if readErr != nil {
			return count, fmt.Errorf("read signatures: %w", readErr)
		}
	}
}

func (s *Set) loadLine(line string, lineNo int) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	var sig Signature
	if s.strict {
		var err error
		if sig, err = ParseStrict(line); err != nil {
			s.logger.Warn("bad signature", "line", lineNo, "err", err)
			return false
		}
	} else {
		sig = Parse(line)
	}
	if err := s.Insert(sig); err != nil {
		s.logger.Warn("bad signature", "line", lineNo, "sig", sig.String(), "err", err)
		return false
	}
	return true
}

// LoadFile opens path and loads it into the set.
func (s *Set) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s for reading: %w", path, err)
	}
	defer f.Close()

	count, err := s.Load(f)
	if err != nil {
		return count, err
	}
	s.logger.Info("signatures loaded", "count", count, "path", path)
	return count, nil
}
