// Package storage defines the uniform backend contract the sync engine
// writes through, and the factory that selects a concrete store.
//
// Concrete backends:
//   - postgres: relational store on pgx; composite key enforced as a
//     primary key, inserts dedupe via ON CONFLICT DO NOTHING.
//   - sqlite: embedded single-writer file store; INSERT OR IGNORE.
//   - mongo: document store; unique compound index, unordered inserts
//     tolerate duplicate-key errors.
//
// All three dedupe on insert (DedupeOnInsert capability), so re-running
// a backfill is idempotent at the store. Backends that cannot accept
// concurrent writers (sqlite) report ConcurrentWrites=false and the
// engine serializes inserts per table.
package storage
