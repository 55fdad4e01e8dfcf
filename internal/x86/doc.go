// Package x86 is a reference host that lifts x86-64 machine code into the
// microcode model of internal/ir.
//
// The lifting is structural rather than semantic. Each machine instruction
// becomes one microcode instruction whose opcode identifies the mnemonic
// and whose operands keep the instruction's shape:
//   - registers become register operands
//   - rsp/rbp relative memory becomes stack operands
//   - rip relative and absolute memory becomes global operands
//   - other memory becomes a nested address instruction
//   - branch targets inside the function become block references
//   - calls and jumps out of the function become addresses of globals
//
// NOP and INT3 padding is dropped, so alignment differences between
// compilers do not change a function's signature.
package x86
