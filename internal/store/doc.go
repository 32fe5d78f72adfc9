// Package store provides SQLite-backed durable storage for event streams.
//
// The store is an append-only log of three tables:
//   - events: one canonical JSON document per event, keyed by content id
//   - entries: the units rules emit, each owning the events it added
//   - rule_firings: (rule, binding hash) pairs, one per fired binding
//
// # Ordering
//
// Every event gets a seq on insert. Reads always ORDER BY seq, so a stream
// read back has the order it was written in and applying a block to it is
// reproducible.
//
// # Idempotency
//
// Events are keyed by event.ContentID: appending the same event twice stores
// it once. Firings are UNIQUE(rule, binding_hash): a rule never fires twice
// for the same binding.
//
// # Transactions
//
// A Transaction collects entries and firings in memory and writes them in
// one SQL transaction on Persist. A persisted Transaction rejects further
// use with ErrTransactionPersisted.
//
// # Schema
//
// schema.sql creates the tables on every Open. Later additions are
// numbered migrations tracked in PRAGMA user_version. Connections run in
// WAL mode with a single writer and a 5 second busy timeout.
package store
