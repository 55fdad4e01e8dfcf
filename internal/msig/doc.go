// Package msig implements microcode signatures and the signature set.
//
// A Signature is the MD5 digest of a function's canonical microcode
// encoding (see internal/ir) plus the function's display name. Signatures
// are identified by digest alone: two signatures with equal digests are
// duplicates regardless of their names, and the first one inserted wins.
//
// # File Format
//
// Signature files hold one signature per line:
//
//	<32 uppercase hex digits> <name>
//
// There is no header, footer or checksum. Files are written in digest
// order. The default parser is lenient: hex decoding stops at the first
// pair that is not two hex digits and the remainder of the line, after one
// skipped separator, becomes the name.
//
// # Concurrency
//
// Set guards every operation with a mutex, so check-then-insert in Add and
// probe-then-compare in Match are atomic.
package msig
