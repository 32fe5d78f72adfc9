// Package rule turns PQL matches into new events.
//
// A Rule pairs a compiled pattern with an action. Applying the rule to a
// stream runs the action once per named binding; each action call gets an
// Entry through which it emits events. Emitted events carry the entry's
// context attributes and a caused_by list of the bound event ids.
//
// A RuleSet applies rules in order. Events emitted by one rule are visible
// to the rules after it. Backed by a store.Transaction, a RuleSet fires a
// rule at most once per binding across runs and persists what it emitted.
package rule
