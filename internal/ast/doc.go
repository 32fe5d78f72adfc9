// Package ast defines the abstract syntax tree of the pattern query language.
//
// A Block is an ordered list of Statements. Each Statement filters the
// stream with a Condition, reshapes the result with selective Modifiers and
// may join an earlier named Statement:
//
//	MATCH EACH AS item WHERE type IS "ItemSelected";
//	MATCH ANY AS tax WHERE type IS "TaxEntry" JOINING item WHERE applied_to = item.id;
//
// SEALED INTERFACES:
//
// Modifier, Operand, Side and Literal are sealed interfaces using the marker
// method pattern. Only types in this package implement them, so every
// evaluation site can switch exhaustively:
//
//	switch lit := side.(type) {
//	case *StringLiteral:
//	case *ValueExpression:
//	case *Reference:
//	...
//	}
//
// IMMUTABILITY:
//
// Nodes are built once by the parser and never mutated afterwards. A Block
// can be applied to many streams, from many goroutines, at the same time.
package ast
