package msig

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/msig/internal/ir"
)

// DigestSize is the size of a signature digest in bytes.
const DigestSize = md5.Size

// MinFuncLength is the canonical encoding length below which a signature
// is considered weak.
const MinFuncLength = 10

// ErrMalformed is returned by ParseStrict for lines that do not follow the
// file format.
var ErrMalformed = errors.New("malformed signature line")

// Digest identifies a signature.
type Digest [DigestSize]byte

// IsZero reports whether every byte of the digest is zero.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Compare orders digests byte-lexicographically.
func (d Digest) Compare(other Digest) int {
	return bytes.Compare(d[:], other[:])
}

// String formats the digest as 32 uppercase hex digits.
func (d Digest) String() string {
	return strings.ToUpper(hex.EncodeToString(d[:]))
}

// Signature is a function fingerprint: the digest of its canonical
// microcode and its display name.
type Signature struct {
	Digest Digest
	Name   string

	// TooShort is set at build time when the canonical encoding was shorter
	// than MinFuncLength. Signature files do not carry it.
	TooShort bool
}

// FromIR computes the signature of a function.
func FromIR(fn *ir.Function) Signature {
	return FromBytes(fn.Name, ir.Canonical(fn))
}

// FromBytes computes a signature from an already serialized canonical
// encoding. The name is cleaned the same way Parse cleans it, so a saved
// signature loads back unchanged.
func FromBytes(name string, canonical []byte) Signature {
	return Signature{
		Digest:   md5.Sum(canonical),
		Name:     cleanName(name),
		TooShort: len(canonical) < MinFuncLength,
	}
}

// Parse reads a signature from one line of a signature file. Parsing never
// fails; a line that does not follow the format yields a signature that
// Valid rejects, or one with a partial digest.
func Parse(line string) Signature {
	var sig Signature
	i := 0
	for ; i < DigestSize; i++ {
		b, ok := hexByte(line, i*2)
		if !ok {
			break
		}
		sig.Digest[i] = b
	}
	if start := i*2 + 1; start < len(line) {
		sig.Name = cleanName(line[start:])
	}
	return sig
}

// ParseStrict reads a signature and rejects lines whose digest field is
// not exactly 32 hex digits followed by a separator.
func ParseStrict(line string) (Signature, error) {
	if len(line) < DigestSize*2+1 {
		return Signature{}, fmt.Errorf("%w: line too short", ErrMalformed)
	}
	var sig Signature
	if _, err := hex.Decode(sig.Digest[:], []byte(line[:DigestSize*2])); err != nil {
		return Signature{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if sep := line[DigestSize*2]; sep != ' ' && sep != '\t' {
		return Signature{}, fmt.Errorf("%w: missing separator after digest", ErrMalformed)
	}
	sig.Name = cleanName(line[DigestSize*2+1:])
	return sig, nil
}

// String formats the signature as one line of a signature file, without
// the line terminator.
func (s Signature) String() string {
	return s.Digest.String() + " " + s.Name
}

// Valid reports whether the signature can be stored: the name must be a
// single non-empty line and the digest must not be all zeros. TooShort
// does not affect validity.
func (s Signature) Valid() bool {
	return s.Name != "" && !strings.ContainsAny(s.Name, "\r\n") && !s.Digest.IsZero()
}

func hexByte(s string, at int) (byte, bool) {
	if at+2 > len(s) {
		return 0, false
	}
	hi, ok1 := fromHexChar(s[at])
	lo, ok2 := fromHexChar(s[at+1])
	if !ok1 || !ok2 {
		return 0, false
	}
	return hi<<4 | lo, true
}

func fromHexChar(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func cleanName(s string) string {
	s = strings.TrimRight(s, "\r\n")
	return norm.NFC.String(strings.TrimSpace(s))
}
