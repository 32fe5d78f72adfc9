// Package parser turns PQL source text into an ast.Block.
//
// The lexer scans the whole input up front; a hand-written recursive
// descent parser then walks the token slice with arbitrary lookahead.
//
// # Grammar
//
//	block       := statement (";" statement)* ";"?
//	statement   := "MATCH" modifier* ("AS" name)? "WHERE" condition
//	               ("JOINING" name "WHERE" condition)?
//	modifier    := limit | order | cardinality
//	limit       := ("FIRST" | "LAST") integer?
//	order       := ("IN" "ORDER")? "BY" name ("DESCENDING" | "DESC" | "ASCENDING" | "ASC")?
//	cardinality := "NONE" | "ALL" | "ANY" | "EACH" | "GROUPED" "BY" name
//	condition   := operand (("AND" | "OR") operand)*
//	operand     := "(" condition ")" | side comparator side
//	side        := literal | reference | "(" reducer? (limit | order)* name "WHERE" condition ")"
//	reference   := "^"* name ("." name)?
//
// Keywords are upper case and reserved.
package parser

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/roach88/pql/internal/ast"
)

// Parser is a recursive descent parser over a token slice.
type Parser struct {
	input  string
	tokens []Token
	pos    int
}

// Parse parses PQL source into a block without structural validation.
// Use Compile to also check statement names and joins.
func Parse(input string) (*ast.Block, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &Parser{input: input, tokens: tokens}
	return p.parseBlock()
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	if p.current().Type == TokenEOF {
		return nil, p.errorf("empty block: expected MATCH")
	}

	block := &ast.Block{}
	for p.current().Type != TokenEOF {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, s)

		if p.current().Type == TokenSemicolon {
			p.advance()
			continue
		}
		if p.current().Type != TokenEOF {
			return nil, p.unexpected("';' or end of input")
		}
	}
	return block, nil
}

func (p *Parser) parseStatement() (*ast.Statement, error) {
	start := p.current()
	if err := p.expectKeyword("MATCH"); err != nil {
		return nil, err
	}

	s := &ast.Statement{Pos: p.position(start.Position)}

	mods, err := p.parseModifiers(true)
	if err != nil {
		return nil, err
	}
	s.Modifiers = mods

	if p.acceptKeyword("AS") {
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		s.Name = name
	}

	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	if s.Where, err = p.parseCondition(); err != nil {
		return nil, err
	}

	if p.isKeyword("JOINING") {
		joinTok := p.advance()
		target, err := p.expectName()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("WHERE"); err != nil {
			return nil, err
		}
		where, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		s.Join = &ast.Join{Target: target, Where: where, Pos: p.position(joinTok.Position)}
	}

	return s, nil
}

// parseModifiers reads selective modifiers until a token that cannot start
// one. Cardinality transforms are only allowed when withCardinality is set,
// and at most once.
func (p *Parser) parseModifiers(withCardinality bool) ([]ast.Modifier, error) {
	var mods []ast.Modifier
	sawCardinality := false

	for {
		tok := p.current()
		if tok.Type != TokenKeyword {
			return mods, nil
		}

		switch tok.Value {
		case "FIRST", "LAST":
			p.advance()
			limit := &ast.Limit{Kind: ast.LimitFirst, Count: 1}
			if tok.Value == "LAST" {
				limit.Kind = ast.LimitLast
			}
			if p.current().Type == TokenInteger {
				n, err := p.parseCount()
				if err != nil {
					return nil, err
				}
				limit.Count = n
				limit.Explicit = true
			}
			mods = append(mods, limit)

		case "IN", "BY":
			if tok.Value == "IN" {
				if !p.peekKeyword(1, "ORDER") {
					return mods, nil
				}
				p.advance()
				p.advance()
			}
			if err := p.expectKeyword("BY"); err != nil {
				return nil, err
			}
			field, err := p.expectName()
			if err != nil {
				return nil, err
			}
			order := &ast.Order{Field: field}
			switch {
			case p.acceptKeyword("DESCENDING"), p.acceptKeyword("DESC"):
				order.Descending = true
			case p.acceptKeyword("ASCENDING"), p.acceptKeyword("ASC"):
			}
			mods = append(mods, order)

		case "NONE", "ALL", "ANY", "EACH", "GROUPED":
			if !withCardinality {
				return nil, p.errorf("%s is not allowed in a value expression", tok.Value)
			}
			if sawCardinality {
				return nil, p.errorf("only one of NONE, ALL, ANY, EACH or GROUPED BY is allowed")
			}
			sawCardinality = true
			p.advance()

			card := &ast.Cardinality{}
			switch tok.Value {
			case "NONE":
				card.Kind = ast.CardinalityNone
			case "ALL":
				card.Kind = ast.CardinalityAll
			case "ANY":
				card.Kind = ast.CardinalityAny
			case "EACH":
				card.Kind = ast.CardinalityEach
			case "GROUPED":
				if err := p.expectKeyword("BY"); err != nil {
					return nil, err
				}
				field, err := p.expectName()
				if err != nil {
					return nil, err
				}
				card.Kind = ast.CardinalityGroupedBy
				card.Field = field
			}
			mods = append(mods, card)

		default:
			return mods, nil
		}
	}
}

func (p *Parser) parseCount() (int, error) {
	tok := p.advance()
	n, err := strconv.Atoi(tok.Value)
	if err != nil || n < 0 {
		return 0, p.errorAt(tok.Position, fmt.Sprintf("invalid count %s", tok.Value))
	}
	return n, nil
}

// parseCondition reads an operand chain. Operators are collected left to
// right without precedence.
func (p *Parser) parseCondition() (*ast.Condition, error) {
	first, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	cond := &ast.Condition{First: first}

	for {
		var op ast.LogicalOp
		switch {
		case p.isKeyword("AND"):
			op = ast.And
		case p.isKeyword("OR"):
			op = ast.Or
		default:
			return cond, nil
		}
		p.advance()

		operand, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		cond.Rest = append(cond.Rest, ast.Clause{Op: op, Operand: operand})
	}
}

func (p *Parser) parseOperand() (ast.Operand, error) {
	if p.current().Type == TokenParenOpen && !p.startsValueExpression() {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenParenClose, "')'"); err != nil {
			return nil, err
		}
		return cond, nil
	}

	left, err := p.parseSide()
	if err != nil {
		return nil, err
	}
	op, err := p.parseComparator()
	if err != nil {
		return nil, err
	}
	right, err := p.parseSide()
	if err != nil {
		return nil, err
	}
	return &ast.Comparison{Left: left, Op: op, Right: right}, nil
}

// startsValueExpression reports whether the "(" at the current position
// opens a value expression rather than a nested condition: it must be
// followed by a reducer, a subset modifier, or "name WHERE".
func (p *Parser) startsValueExpression() bool {
	next := p.peek(1)
	switch next.Type {
	case TokenKeyword:
		switch next.Value {
		case "MAX", "MIN", "SUM", "COUNT", "UNION", "FIRST", "LAST", "BY":
			return true
		case "IN":
			return p.peekKeyword(2, "ORDER")
		}
		return false
	case TokenName:
		return p.peekKeyword(2, "WHERE")
	default:
		return false
	}
}

func (p *Parser) parseComparator() (ast.ComparativeOp, error) {
	tok := p.current()
	switch tok.Type {
	case TokenEqual:
		p.advance()
		return ast.Equals, nil
	case TokenNotEqual:
		p.advance()
		return ast.NotEquals, nil
	case TokenGreater:
		p.advance()
		return ast.GreaterThan, nil
	case TokenGreaterEqual:
		p.advance()
		return ast.GreaterThanOrEqual, nil
	case TokenLess:
		p.advance()
		return ast.LessThan, nil
	case TokenLessEqual:
		p.advance()
		return ast.LessThanOrEqual, nil
	case TokenMatch:
		p.advance()
		return ast.Matches, nil
	case TokenKeyword:
		switch tok.Value {
		case "IS":
			p.advance()
			if p.acceptKeyword("NOT") {
				return ast.NotEquals, nil
			}
			return ast.Equals, nil
		case "MATCHES":
			p.advance()
			return ast.Matches, nil
		case "IN":
			p.advance()
			return ast.In, nil
		case "NOT":
			p.advance()
			if err := p.expectKeyword("IN"); err != nil {
				return 0, err
			}
			return ast.NotIn, nil
		case "INCLUDES":
			p.advance()
			return ast.Includes, nil
		case "DOES":
			p.advance()
			if err := p.expectKeyword("NOT"); err != nil {
				return 0, err
			}
			if err := p.expectKeyword("INCLUDE"); err != nil {
				return 0, err
			}
			return ast.NotIncludes, nil
		case "EXCLUDES":
			p.advance()
			return ast.NotIncludes, nil
		case "INTERSECTS":
			p.advance()
			return ast.Intersects, nil
		case "DISJOINT":
			p.advance()
			return ast.Disjoint, nil
		}
	}
	return 0, p.unexpected("comparison operator")
}

func (p *Parser) parseSide() (ast.Side, error) {
	tok := p.current()
	switch tok.Type {
	case TokenParenOpen:
		return p.parseValueExpression()
	case TokenCaret, TokenName:
		return p.parseReference()
	default:
		return p.parseLiteral()
	}
}

func (p *Parser) parseValueExpression() (*ast.ValueExpression, error) {
	if err := p.expect(TokenParenOpen, "'('"); err != nil {
		return nil, err
	}

	ve := &ast.ValueExpression{}
	if tok := p.current(); tok.Type == TokenKeyword {
		switch tok.Value {
		case "MAX":
			ve.Reducer = ast.ReduceMax
		case "MIN":
			ve.Reducer = ast.ReduceMin
		case "SUM":
			ve.Reducer = ast.ReduceSum
		case "COUNT":
			ve.Reducer = ast.ReduceCount
		case "UNION":
			ve.Reducer = ast.ReduceUnion
		}
		if ve.Reducer != ast.ReduceNone {
			p.advance()
		}
	}

	subset, err := p.parseModifiers(false)
	if err != nil {
		return nil, err
	}
	ve.Subset = subset

	if ve.Field, err = p.expectName(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	if ve.Where, err = p.parseCondition(); err != nil {
		return nil, err
	}
	if err := p.expect(TokenParenClose, "')'"); err != nil {
		return nil, err
	}

	ve.Correlated = escapes(ve.Where, 0)
	return ve, nil
}

// escapes reports whether any reference in cond reads outside a value
// expression nested depth levels below the one being analysed, or reads a
// join subject.
func escapes(cond *ast.Condition, depth int) bool {
	found := false
	check := func(op ast.Operand) {
		if !found && operandEscapes(op, depth) {
			found = true
		}
	}
	check(cond.First)
	for _, clause := range cond.Rest {
		check(clause.Operand)
	}
	return found
}

func operandEscapes(op ast.Operand, depth int) bool {
	switch o := op.(type) {
	case *ast.Condition:
		return escapes(o, depth)
	case *ast.Comparison:
		return sideEscapes(o.Left, depth) || sideEscapes(o.Right, depth)
	default:
		return false
	}
}

func sideEscapes(side ast.Side, depth int) bool {
	switch s := side.(type) {
	case *ast.Reference:
		return s.Subject != "" || s.Escapes > depth
	case *ast.ValueExpression:
		return escapes(s.Where, depth+1)
	default:
		return false
	}
}

func (p *Parser) parseReference() (*ast.Reference, error) {
	ref := &ast.Reference{}
	for p.current().Type == TokenCaret {
		p.advance()
		ref.Escapes++
	}

	name, err := p.expectName()
	if err != nil {
		return nil, err
	}

	if p.current().Type == TokenDot {
		p.advance()
		field, err := p.expectName()
		if err != nil {
			return nil, err
		}
		ref.Subject = name
		ref.Field = field
		return ref, nil
	}

	ref.Field = name
	return ref, nil
}

func (p *Parser) parseLiteral() (ast.Literal, error) {
	tok := p.current()
	switch tok.Type {
	case TokenString:
		p.advance()
		return &ast.StringLiteral{Value: tok.Value}, nil

	case TokenInteger:
		p.advance()
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.errorAt(tok.Position, fmt.Sprintf("integer out of range: %s", tok.Value))
		}
		if unit := p.current(); unit.Type == TokenKeyword && timeUnits[unit.Value] {
			p.advance()
			return &ast.TimeDeltaLiteral{Amount: n, Unit: unit.Value, Pos: p.position(tok.Position)}, nil
		}
		return &ast.IntegerLiteral{Value: n}, nil

	case TokenFloat:
		p.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorAt(tok.Position, fmt.Sprintf("invalid number: %s", tok.Value))
		}
		return &ast.FloatLiteral{Value: f}, nil

	case TokenRegex:
		p.advance()
		re, err := regexp.Compile(tok.Value)
		if err != nil {
			return nil, p.errorAt(tok.Position, fmt.Sprintf("invalid regular expression: %v", err))
		}
		return &ast.RegexpLiteral{Value: re}, nil

	case TokenBracketOpen:
		p.advance()
		list := &ast.ListLiteral{}
		if p.current().Type == TokenBracketClose {
			p.advance()
			return list, nil
		}
		for {
			elem, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			list.Elements = append(list.Elements, elem)
			if p.current().Type == TokenComma {
				p.advance()
				continue
			}
			if err := p.expect(TokenBracketClose, "',' or ']'"); err != nil {
				return nil, err
			}
			return list, nil
		}

	case TokenKeyword:
		switch tok.Value {
		case "NULL":
			p.advance()
			return &ast.NullLiteral{}, nil
		case "NOW":
			p.advance()
			return &ast.NowLiteral{}, nil
		}
	}
	return nil, p.unexpected("value")
}

// Token helpers

func (p *Parser) current() Token {
	return p.peek(0)
}

func (p *Parser) peek(n int) Token {
	if i := p.pos + n; i < len(p.tokens) {
		return p.tokens[i]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) isKeyword(word string) bool {
	return p.peekKeyword(0, word)
}

func (p *Parser) peekKeyword(n int, word string) bool {
	tok := p.peek(n)
	return tok.Type == TokenKeyword && tok.Value == word
}

func (p *Parser) acceptKeyword(word string) bool {
	if p.isKeyword(word) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expectKeyword(word string) error {
	if !p.acceptKeyword(word) {
		return p.unexpected(word)
	}
	return nil
}

func (p *Parser) expect(tt TokenType, what string) error {
	if p.current().Type != tt {
		return p.unexpected(what)
	}
	p.advance()
	return nil
}

func (p *Parser) expectName() (string, error) {
	tok := p.current()
	if tok.Type != TokenName {
		return "", p.unexpected("name")
	}
	p.advance()
	return tok.Value, nil
}

func (p *Parser) position(offset int) ast.Pos {
	line, column := lineColumn(p.input, offset)
	return ast.Pos{Offset: offset, Line: line, Column: column}
}

func (p *Parser) unexpected(expected string) error {
	return p.errorf("expected %s, found %s", expected, describe(p.current()))
}

func (p *Parser) errorf(format string, args ...any) error {
	return p.errorAt(p.current().Position, fmt.Sprintf(format, args...))
}

func (p *Parser) errorAt(offset int, message string) error {
	return newSyntaxError(p.input, offset, message)
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return strconv.Quote(tok.Value)
	case TokenRegex:
		return "/" + tok.Value + "/"
	case TokenName, TokenKeyword, TokenInteger, TokenFloat:
		return fmt.Sprintf("%q", tok.Value)
	default:
		return fmt.Sprintf("%q", tok.Type.String())
	}
}
