// Package event provides the schema-free event model evaluated by PQL.
//
// This package contains value and record types only. The ast, engine, store
// and rule packages import event; event imports nothing internal, which keeps
// it the foundational layer.
//
// Key design constraints:
//   - Value is a sealed interface; only the types in this package implement it
//   - Events are immutable after construction; absent fields read as Null
//   - Canonical JSON (sorted keys, NFC strings) is the only encoding used for
//     content-addressed hashing
package event
