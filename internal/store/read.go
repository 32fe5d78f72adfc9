package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/querysql"
)

// All returns every stored event in insertion order.
func (s *Store) All(ctx context.Context) (event.Stream, error) {
	return s.Select(ctx, querysql.Select{})
}

// Query returns the events whose fields equal attrs, in insertion order.
// An empty attrs selects every event.
func (s *Store) Query(ctx context.Context, attrs map[string]event.Value) (event.Stream, error) {
	return s.Select(ctx, querysql.Select{Filter: querysql.FromAttrs(attrs)})
}

// Select runs a compiled selection.
//
// Returns an empty stream (not nil) if nothing matches.
func (s *Store) Select(ctx context.Context, q querysql.Select) (event.Stream, error) {
	query, params, err := s.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	stream := event.Stream{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e, err := unmarshalEvent(body)
		if err != nil {
			return nil, err
		}
		stream = append(stream, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return stream, nil
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// HasFired reports whether a persisted firing exists for (rule, hash).
func (s *Store) HasFired(ctx context.Context, rule, hash string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM rule_firings
		WHERE rule = ? AND binding_hash = ?
	`, rule, hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check firing: %w", err)
	}
	return count > 0, nil
}

// Firings returns every persisted firing of rule in insertion order.
func (s *Store) Firings(ctx context.Context, rule string) ([]Firing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule, binding_hash, entry_id
		FROM rule_firings
		WHERE rule = ?
		ORDER BY seq ASC
	`, rule)
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	firings := []Firing{}
	for rows.Next() {
		var (
			f       Firing
			entryID sql.NullString
		)
		if err := rows.Scan(&f.Rule, &f.BindingHash, &entryID); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		f.EntryID = entryID.String
		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firings: %w", err)
	}
	return firings, nil
}

// ReadEntry retrieves an entry and its events by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadEntry(ctx context.Context, id string) (Entry, error) {
	var (
		e                  Entry
		contextJSON, cause string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, description, context, cause
		FROM entries
		WHERE id = ?
	`, id).Scan(&e.ID, &e.Description, &contextJSON, &cause)
	if err != nil {
		return Entry{}, fmt.Errorf("read entry %s: %w", id, err)
	}

	if e.Context, err = unmarshalContext(contextJSON); err != nil {
		return Entry{}, err
	}
	if e.Cause, err = unmarshalList(cause); err != nil {
		return Entry{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM events
		WHERE entry_id = ?
		ORDER BY seq ASC, key ASC COLLATE BINARY
	`, id)
	if err != nil {
		return Entry{}, fmt.Errorf("read entry events: %w", err)
	}
	defer rows.Close()

	e.Events = event.Stream{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return Entry{}, fmt.Errorf("scan event: %w", err)
		}
		ev, err := unmarshalEvent(body)
		if err != nil {
			return Entry{}, err
		}
		e.Events = append(e.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return Entry{}, fmt.Errorf("iterate entry events: %w", err)
	}
	return e, nil
}
