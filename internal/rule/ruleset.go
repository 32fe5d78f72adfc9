package rule

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/store"
)

// RuleSet applies rules in order over a growing stream.
type RuleSet struct {
	rules      []*Rule
	maxEntries int
	logger     *slog.Logger
}

// SetOption configures a RuleSet.
type SetOption func(*RuleSet)

// WithMaxEntries bounds the entries one Apply may emit.
// Default: DefaultMaxEntries.
func WithMaxEntries(n int) SetOption {
	return func(rs *RuleSet) {
		if n > 0 {
			rs.maxEntries = n
		}
	}
}

// WithSetLogger sets the logger for rule set diagnostics.
func WithSetLogger(logger *slog.Logger) SetOption {
	return func(rs *RuleSet) {
		if logger != nil {
			rs.logger = logger
		}
	}
}

// NewRuleSet returns a rule set running rules in the given order.
func NewRuleSet(rules []*Rule, opts ...SetOption) *RuleSet {
	rs := &RuleSet{
		rules:      slices.Clone(rules),
		maxEntries: DefaultMaxEntries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// Rules returns the rules in application order.
func (rs *RuleSet) Rules() []*Rule {
	return slices.Clone(rs.rules)
}

// Apply runs every rule once. Events emitted by a rule are appended to the
// stream before the next rule runs, so later rules see them.
//
// With a non-nil tx, a rule does not fire again for a binding it already
// fired for in tx or in the store behind it. Entries and firings are queued
// in tx, and tx is persisted once all rules have run.
func (rs *RuleSet) Apply(ctx context.Context, stream event.Stream, tx *store.Transaction) ([]*Entry, error) {
	q := newQuota(rs.maxEntries)
	current := slices.Clone(stream)

	var entries []*Entry
	for _, r := range rs.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		produced, err := rs.applyRule(ctx, r, current, tx, q)
		if err != nil {
			return nil, err
		}
		for _, entry := range produced {
			current = append(current, entry.Events...)
		}
		entries = append(entries, produced...)
	}

	if tx != nil {
		if err := tx.Persist(ctx); err != nil {
			return nil, fmt.Errorf("rule set: %w", err)
		}
	}
	rs.logger.Debug("rule set applied",
		"rules", len(rs.rules),
		"entries", len(entries),
		"stream", len(current))
	return entries, nil
}

func (rs *RuleSet) applyRule(ctx context.Context, r *Rule, stream event.Stream, tx *store.Transaction, q *quota) ([]*Entry, error) {
	bindings, err := r.Bindings(stream)
	if err != nil {
		return nil, err
	}

	var produced []*Entry
	for b := range bindings {
		var hash string
		if tx != nil {
			hash, err = b.Hash()
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.name, err)
			}
			fired, err := tx.Fired(ctx, r.name, hash)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.name, err)
			}
			if fired {
				rs.logger.Debug("binding already fired", "rule", r.name, "hash", hash)
				continue
			}
		}

		entry, err := r.Run(b)
		if err != nil {
			return nil, err
		}

		if tx != nil {
			f := store.Firing{Rule: r.name, BindingHash: hash}
			if entry != nil {
				f.EntryID = entry.ID
			}
			if err := tx.RecordFiring(f); err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.name, err)
			}
		}
		if entry == nil {
			continue
		}

		if err := q.check(r.name); err != nil {
			return nil, err
		}
		if tx != nil {
			if err := tx.Add(entry.Record()); err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.name, err)
			}
		}
		produced = append(produced, entry)
	}
	return produced, nil
}
