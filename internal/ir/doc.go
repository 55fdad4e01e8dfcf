// Package ir provides the decompiler microcode model consumed by the
// signature engine, and its canonical byte encoding.
//
// The host decompiler owns the real IR; this package mirrors the parts a
// signature needs. All other internal packages import ir; ir imports
// nothing internal.
//
// Key constraints on the canonical encoding:
//   - Register, global and stack operands encode with one shared tag, so
//     functions differing only in register or stack allocation collide
//   - Fields are concatenated without separators or length prefixes; the
//     buffer is a hash pre-image and is never parsed back
//   - Call argument lists contribute nothing
//   - Integers are little-endian and fixed width
package ir
