// Package store provides SQLite-backed durable storage for signature
// databases.
//
// The store is an alternative to the text signature file for long-lived
// collections built across many analysis sessions. It follows the same
// policy as the in-memory set:
//   - Digest is the primary key; inserts use ON CONFLICT DO NOTHING so the
//     first writer wins and later duplicates are reported, not merged
//   - Rows are never updated or deleted
//   - Reads are ordered by digest (BLOB comparison is byte-lexicographic)
//
// Every row records the session that wrote it and a monotonic seq, so a
// single build pass can be listed or exported on its own.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// OpenReadOnly serves commands that only read. It never creates the file
// and leaves the schema alone.
package store
