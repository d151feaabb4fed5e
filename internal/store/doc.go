// Package store provides SQLite-backed history for kibitz sessions.
//
// A session is one run of the front-end against one engine. Within it the
// store keeps:
//   - Evaluations: the three scores of every static evaluation, by FEN
//   - Search results: depth, score, principal variation and best move of
//     every search that was stopped
//
// # Ordering
//
// Rows within a session carry a seq assigned at insert time
// (MAX(seq)+1 per table). Queries order by seq ASC; started_at is only
// used to list sessions newest first.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Rows must reference an existing session
package store
