package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/pql/internal/event"
)

// ErrTransactionPersisted is returned when a persisted Transaction is used
// again.
var ErrTransactionPersisted = errors.New("transaction already persisted")

// Entry is one unit of emitted events, written together.
type Entry struct {
	ID          string
	Description string
	Context     map[string]event.Value
	Cause       event.List
	Events      event.Stream
}

// Firing records that a rule fired for one binding.
type Firing struct {
	Rule        string
	BindingHash string
	EntryID     string // "" when the rule emitted nothing
}

// AppendEvents writes events that belong to no entry, such as an ingested
// stream. Events already stored (same content id) are skipped. Returns the
// number of events inserted.
func (s *Store) AppendEvents(ctx context.Context, events event.Stream) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	inserted, err := insertEvents(ctx, tx, "", events)
	if err != nil {
		return 0, fmt.Errorf("append events: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append events: commit: %w", err)
	}
	return inserted, nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, entryID string, events event.Stream) (int, error) {
	var owner any
	if entryID != "" {
		owner = entryID
	}

	inserted := 0
	for i, e := range events {
		body, key, err := marshalEvent(e)
		if err != nil {
			return 0, fmt.Errorf("event %d: %w", i, err)
		}

		var typ any
		if t := e.Type(); t != "" {
			typ = t
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO events (key, type, entry_id, body)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO NOTHING
		`, key, typ, owner, body)
		if err != nil {
			return 0, fmt.Errorf("event %d: insert: %w", i, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("event %d: rows affected: %w", i, err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

// Transaction collects entries and firings and writes them atomically.
//
// Thread-safety: a Transaction is safe for concurrent use.
type Transaction struct {
	store *Store

	mu        sync.Mutex
	entries   []Entry
	firings   []Firing
	pending   map[firingKey]bool
	persisted bool
}

type firingKey struct {
	rule, hash string
}

// Begin starts a Transaction against s. Nothing is written until Persist.
func (s *Store) Begin() *Transaction {
	return &Transaction{store: s, pending: make(map[firingKey]bool)}
}

// Add queues an entry and its events.
func (t *Transaction) Add(e Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.persisted {
		return ErrTransactionPersisted
	}
	if e.ID == "" {
		return fmt.Errorf("add entry: missing id")
	}
	t.entries = append(t.entries, e)
	return nil
}

// RecordFiring queues a firing. Recording the same (rule, hash) twice in
// one transaction keeps the first.
func (t *Transaction) RecordFiring(f Firing) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.persisted {
		return ErrTransactionPersisted
	}
	k := firingKey{f.Rule, f.BindingHash}
	if t.pending[k] {
		return nil
	}
	t.pending[k] = true
	t.firings = append(t.firings, f)
	return nil
}

// Fired reports whether rule already fired for hash, either in this
// transaction or in a persisted one.
func (t *Transaction) Fired(ctx context.Context, rule, hash string) (bool, error) {
	t.mu.Lock()
	pending := t.pending[firingKey{rule, hash}]
	t.mu.Unlock()

	if pending {
		return true, nil
	}
	return t.store.HasFired(ctx, rule, hash)
}

// Entries returns the queued entries in the order they were added.
func (t *Transaction) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Persist writes every queued entry, its events and every queued firing in
// one SQL transaction. A Transaction can be persisted once.
func (t *Transaction) Persist(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.persisted {
		return ErrTransactionPersisted
	}

	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range t.entries {
		if err := insertEntry(ctx, tx, e); err != nil {
			return fmt.Errorf("persist: entry %s: %w", e.ID, err)
		}
	}

	for _, f := range t.firings {
		var entryID any
		if f.EntryID != "" {
			entryID = f.EntryID
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rule_firings (rule, binding_hash, entry_id)
			VALUES (?, ?, ?)
			ON CONFLICT(rule, binding_hash) DO NOTHING
		`, f.Rule, f.BindingHash, entryID)
		if err != nil {
			return fmt.Errorf("persist: firing %s: %w", f.Rule, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist: commit: %w", err)
	}
	t.persisted = true
	return nil
}

// Persisted reports whether Persist has succeeded.
func (t *Transaction) Persisted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.persisted
}

func insertEntry(ctx context.Context, tx *sql.Tx, e Entry) error {
	contextJSON, err := marshalContext(e.Context)
	if err != nil {
		return err
	}
	causeJSON, err := event.MarshalCanonical(nonNilList(e.Cause))
	if err != nil {
		return fmt.Errorf("marshal cause: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (id, description, context, cause)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.ID, e.Description, contextJSON, string(causeJSON))
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	if _, err := insertEvents(ctx, tx, e.ID, e.Events); err != nil {
		return err
	}
	return nil
}

func nonNilList(l event.List) event.List {
	if l == nil {
		return event.List{}
	}
	return l
}
