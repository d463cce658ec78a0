// Package store is the local persistent object store of gophdrive.
//
// # Overview
//
// Store is the CRUD + query contract over models.FileEntry records. Two
// implementations exist:
//
//   - SQLiteStore: the durable store, an embedded SQLite database opened once
//     per process (Open) with embedded goose migrations applied on open.
//   - MemoryStore: same contract in memory, for tests and injection.
//
// # Invariants
//
// Ids come from a cryptographically random generator and are recorded in a
// ledger that deletion never touches, so an id is never handed out twice. A
// collision surfaces as ErrWriteConflict, which Create handles by generating a
// new id and retrying. Entries are immutable; there is no update.
//
// Listings are ordered by CreatedAt descending with ties in insertion order,
// computed at query time. Every mutation is a single transaction.
//
// # Errors
//
// Failures are typed with the sentinels in internal/common:
// ErrStorageUnavailable, ErrorNotFound, ErrWriteConflict,
// ErrTransactionFailure and ErrValidation.
package store
