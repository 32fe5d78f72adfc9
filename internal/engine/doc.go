// Package engine applies compiled PQL blocks to event streams.
//
// Apply evaluates each statement of a block, in document order, against
// the whole stream and returns a BlockApplication. Downstream code ranges
// over NamedBindings to decide how many times to fire an action and with
// which events.
//
// PIPELINE (per statement):
//
//  1. Filter: every event of the stream is tested against the WHERE
//     condition; survivors form one Match.
//  2. Select: modifiers are applied right to left. Limits and orderings
//     reshape each Match; a cardinality transform maps one Match to zero,
//     one or many.
//  3. Join: a JOINING statement attaches each of its Matches to the Matches
//     of an earlier named statement whose events satisfy the join condition.
//
// CONDITIONS:
//
// Operands are combined strictly left to right; AND and OR have the same
// precedence. A false running result skips the right operand of a
// following AND, so sub-queries behind it are never evaluated. Type
// mismatches make comparisons false; they never fail the application.
//
// SCOPES:
//
// A value expression such as (SUM amount WHERE applied_to = ^id) filters
// the whole stream with the enclosing candidate pushed on a scope chain.
// A reference with n escape markers reads the candidate n levels out.
// Qualified references (item.id) inside a join condition read the
// left-hand event of the join.
//
// DETERMINISM:
//
// Apply is a pure function of (block, stream, NOW). It performs no I/O,
// does not mutate its inputs and keeps all state local to the call, so one
// block may be applied to many streams concurrently.
package engine
