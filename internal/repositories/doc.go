// Package repositories implements SQLite persistence for user-authored lists.
//
// [ListStore] keeps one database per [models.CollectionKind] (notes.db, tasks.db), each with a single
// append-only table of (id, text, created_at). Ids come from SQLite AUTOINCREMENT, so they only grow
// and are never reused.
//
// Ordering differs by kind: notes list newest-first (descending id), tasks list in insertion order.
//
// Each kind has its own read/write lock. Appends are single-row transactions taken under the write lock,
// so a reader never sees a half-written record and one kind never blocks the other.
//
// Failures of the database layer are returned as [StorageError], which matches [shared.ErrStorageIO].
// Blank input is rejected with [shared.ErrEmptyInput] before any I/O.
package repositories
