// Package harness runs PQL conformance scenarios.
//
// A scenario is a YAML file naming a PQL pattern, an input stream and the
// expected outcome:
//
//	name: join-each-any
//	description: Every item binds the tax entries applied to it
//	pql: |
//	  MATCH EACH AS item WHERE type IS "ItemSelected";
//	  MATCH ANY AS tax WHERE type IS "TaxEntry" JOINING item WHERE applied_to = item.id;
//	stream:
//	  - {id: 1, type: ItemSelected}
//	  - {id: 2, type: TaxEntry, applied_to: 1}
//	expect:
//	  successful: true
//	  cardinality: 1
//	  bindings:
//	    - {item: 1, tax: [2]}
//
// Expected bindings map each statement name to the bound event id, or to a
// list of ids when the statement binds a sequence.
//
// A scenario may also list CUE rule files. Their rules are applied to the
// stream first, through an in-memory store, and the pattern then runs over
// the grown stream. Assertions check the events the rules emitted.
//
// Every pattern is applied twice; differing bindings fail the scenario.
// NOW evaluates to a fixed instant (testutil.Epoch unless the scenario sets
// now), and emitted ids come from a testutil.SequenceGenerator, so results
// are byte-identical across runs and can be compared with golden files.
package harness
