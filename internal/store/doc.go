// Package store provides durable line-oriented storage for the scale.
//
// Everything the scale persists is a named file of text lines: the daily
// nutrition CSV, the current meal's line list and the pending delivery
// backlog. LineStore is the only storage surface the rest of the system
// sees:
//
//   - AppendLine: add one line at the end of a file (creating it)
//   - ReadLines: return every line of a file in write order
//   - DeleteFile: remove a file; deleting a missing file is not an error
//
// There is no in-place edit or delete of a single line. Callers that need
// to drop records rewrite the file wholesale.
//
// # Backends
//
//   - DirStore: one regular file per name under a root directory
//   - SQLiteStore: one table keyed by (file, seq), WAL mode
//   - MemStore: in-process map for tests and dry runs
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Failing to open a backend is fatal to startup: the log is the source of
// truth for meals that were never delivered.
package store
