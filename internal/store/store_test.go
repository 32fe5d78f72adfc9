package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/querysql"
)

// createTestStore opens a fresh store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ev(kv ...any) event.Event {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return event.MustFromMap(m)
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"events", "entries", "rule_firings"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found after idempotent opens", table)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_events_type'",
	).Scan(&name)
	assert.NoError(t, err, "migration v1 index missing")
}

func TestOpen_MigratesOlderDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("DROP INDEX idx_events_type")
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.verifyPragma("user_version", "1"))
	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_events_type'",
	).Scan(&name)
	assert.NoError(t, err, "index not restored by migration")
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "events.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open event store")
}

func TestClose_Nil(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestAppendEvents_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	stream := event.Stream{
		ev("id", 1, "type", "ItemSelected", "price", 2.0),
		ev("id", 2, "type", "ItemSelected", "tags", []any{"a", "b"}),
		ev("id", 3, "type", "TaxEntry", "applied_to", 1, "paid", true),
	}
	n, err := s.AppendEvents(ctx, stream)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range stream {
		assert.True(t, stream[i].Equal(got[i]), "event %d: want %s, got %s", i, stream[i], got[i])
	}
	assert.IsType(t, event.Float(0), got[0].Get("price"), "floats survive storage")
}

func TestAppendEvents_Deduplicates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	stream := event.Stream{ev("id", 1, "type", "A"), ev("id", 1, "type", "A")}
	n, err := s.AppendEvents(ctx, stream)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.AppendEvents(ctx, event.Stream{ev("id", 1, "type", "A"), ev("id", 2, "type", "A")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestQuery(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.AppendEvents(ctx, event.Stream{
		ev("id", 1, "type", "ItemSelected"),
		ev("id", 2, "type", "TaxEntry", "applied_to", 1),
		ev("id", 3, "type", "TaxEntry", "applied_to", 2),
		ev("id", 4, "type", "TaxEntry", "applied_to", 1),
		ev("id", 5, "type", "Flag", "on", true),
		ev("id", 6, "type", "Flag", "on", false),
	})
	require.NoError(t, err)

	got, err := s.Query(ctx, map[string]event.Value{
		"type":       event.String("TaxEntry"),
		"applied_to": event.Int(1),
	})
	require.NoError(t, err)
	assert.Equal(t, event.List{event.Int(2), event.Int(4)}, got.IDs())

	got, err = s.Query(ctx, map[string]event.Value{"on": event.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, event.List{event.Int(5)}, got.IDs())

	got, err = s.Query(ctx, map[string]event.Value{"applied_to": event.Null{}, "type": event.String("Flag")})
	require.NoError(t, err)
	assert.Equal(t, event.List{event.Int(5), event.Int(6)}, got.IDs())

	got, err = s.Query(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, got, 6)

	got, err = s.Select(ctx, querysql.Select{
		Filter: querysql.In{Field: "id", Values: event.List{event.Int(6), event.Int(1)}},
		Limit:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, event.List{event.Int(1)}, got.IDs(), "results keep insertion order")

	empty, err := s.Query(ctx, map[string]event.Value{"type": event.String("Missing")})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = s.Query(ctx, map[string]event.Value{"bad field": event.Int(1)})
	assert.Error(t, err)
}

func TestTransaction_Persist(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tx := s.Begin()
	entry := Entry{
		ID:          "entry-1",
		Description: "tax applied",
		Context:     map[string]event.Value{"region": event.String("EU")},
		Cause:       event.List{event.Int(1)},
		Events: event.Stream{
			ev("id", "e-1", "type", "TaxEntry", "applied_to", 1),
			ev("id", "e-2", "type", "TaxEntry", "applied_to", 2),
		},
	}
	require.NoError(t, tx.Add(entry))
	require.NoError(t, tx.RecordFiring(Firing{Rule: "tax", BindingHash: "h1", EntryID: "entry-1"}))
	assert.Len(t, tx.Entries(), 1)

	// Nothing is visible before Persist.
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, tx.Persist(ctx))
	assert.True(t, tx.Persisted())

	got, err := s.ReadEntry(ctx, "entry-1")
	require.NoError(t, err)
	assert.Equal(t, "tax applied", got.Description)
	assert.Equal(t, map[string]event.Value{"region": event.String("EU")}, got.Context)
	assert.Equal(t, event.List{event.Int(1)}, got.Cause)
	assert.Equal(t, event.List{event.String("e-1"), event.String("e-2")}, got.Events.IDs())

	fired, err := s.HasFired(ctx, "tax", "h1")
	require.NoError(t, err)
	assert.True(t, fired)

	firings, err := s.Firings(ctx, "tax")
	require.NoError(t, err)
	assert.Equal(t, []Firing{{Rule: "tax", BindingHash: "h1", EntryID: "entry-1"}}, firings)
}

func TestTransaction_PersistOnce(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tx := s.Begin()
	require.NoError(t, tx.Persist(ctx))

	assert.ErrorIs(t, tx.Persist(ctx), ErrTransactionPersisted)
	assert.ErrorIs(t, tx.Add(Entry{ID: "late"}), ErrTransactionPersisted)
	assert.ErrorIs(t, tx.RecordFiring(Firing{Rule: "r", BindingHash: "h"}), ErrTransactionPersisted)
}

func TestTransaction_AddRequiresID(t *testing.T) {
	s := createTestStore(t)
	assert.Error(t, s.Begin().Add(Entry{}))
}

func TestTransaction_Fired(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := s.Begin()
	require.NoError(t, first.RecordFiring(Firing{Rule: "r", BindingHash: "h"}))
	require.NoError(t, first.RecordFiring(Firing{Rule: "r", BindingHash: "h"}))

	fired, err := first.Fired(ctx, "r", "h")
	require.NoError(t, err)
	assert.True(t, fired, "pending firings count")

	second := s.Begin()
	fired, err = second.Fired(ctx, "r", "h")
	require.NoError(t, err)
	assert.False(t, fired, "other transactions see only persisted firings")

	require.NoError(t, first.Persist(ctx))
	fired, err = second.Fired(ctx, "r", "h")
	require.NoError(t, err)
	assert.True(t, fired)

	firings, err := s.Firings(ctx, "r")
	require.NoError(t, err)
	assert.Len(t, firings, 1)
	assert.Equal(t, "", firings[0].EntryID)
}

func TestReadEntry_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadEntry(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
