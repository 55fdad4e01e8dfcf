// Package matcher ties signature computation, the signature set and its
// persistence together for per-function use by a host tool.
//
// A Session replaces process-wide state: create one at the start of an
// analysis, offer it functions one at a time, and drop it at the end.
//
// Two passes are provided over a Host that can enumerate and decompile
// functions:
//   - Build adds the signature of every eligible named function
//   - Apply proposes renames for functions whose signature is known
//
// Neither pass aborts on a single failure. Decompilation errors, invalid
// signatures and duplicates are logged and the function is skipped.
// Cancelling the context stops a pass between functions; work already done
// is kept.
package matcher
