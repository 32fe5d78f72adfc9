package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const eof = -1

// Lexer converts PQL source into a sequence of tokens.
// The implementation follows Rob Pike's "Lexical Scanning in Go" technique.
type Lexer struct {
	input   string // Input string being scanned
	length  int    // Length of input string
	start   int    // Start position of current token
	current int    // Current position in input
	width   int    // Width of last rune read
	err     *SyntaxError
}

// NewLexer creates a new lexer from the provided input string.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all
// subsequent calls.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	ch := l.nextRune()
	if ch == eof {
		return l.eof()
	}

	// Two-character symbols first (!=, <=, >=, =~)
	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
	}

	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	switch {
	case ch == '"':
		l.ignore()
		return l.scanString()
	case ch == '/':
		l.ignore()
		return l.scanRegex()
	case isDigit(ch):
		l.backup()
		return l.scanNumber()
	case ch == '-':
		if r := l.peek(); isDigit(r) {
			return l.scanNumber()
		}
		return l.error("unexpected '-'")
	case isNameStart(ch):
		l.backup()
		return l.scanName()
	default:
		return l.error("unexpected character " + quoteRune(ch))
	}
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() *SyntaxError {
	return l.err
}

// Tokenize scans the whole input. The returned slice always ends with a
// TokenEOF token unless an error is returned.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		t := l.Next()
		if t.Type == TokenError {
			return nil, l.err
		}
		tokens = append(tokens, t)
		if t.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// scanString reads a string literal. The opening quote has been consumed.
// Escapes: \" \\ \n \t; any other backslash is kept as written.
func (l *Lexer) scanString() Token {
	var sb strings.Builder
	for {
		switch r := l.nextRune(); r {
		case '"':
			t := l.newToken(TokenString)
			t.Value = sb.String()
			t.Position-- // include the opening quote
			return t
		case '\\':
			switch e := l.nextRune(); e {
			case '"', '\\':
				sb.WriteRune(e)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case eof:
				return l.errorAt(l.start-1, "unterminated string literal")
			default:
				sb.WriteByte('\\')
				sb.WriteRune(e)
			}
		case eof:
			return l.errorAt(l.start-1, "unterminated string literal")
		default:
			sb.WriteRune(r)
		}
	}
}

// scanRegex reads a regular expression. The opening slash has been consumed.
// A backslash escapes the following character; the escape is kept in the
// pattern so \/ reaches the regexp compiler as an escaped slash.
func (l *Lexer) scanRegex() Token {
Loop:
	for {
		switch l.nextRune() {
		case '/':
			break Loop
		case '\\':
			if r := l.nextRune(); r != eof && r != '\n' {
				break
			}
			fallthrough
		case eof, '\n':
			return l.errorAt(l.start-1, "unterminated regular expression")
		}
	}

	l.backup()
	t := l.newToken(TokenRegex)
	t.Position--
	l.acceptRune('/')
	l.ignore()
	return t
}

// scanNumber reads an integer or decimal literal, optionally signed.
// Format: -?[0-9]+(\.[0-9]+)?
func (l *Lexer) scanNumber() Token {
	l.acceptRune('-')
	l.acceptAll(isDigit)

	if l.acceptRune('.') {
		if !l.acceptAll(isDigit) {
			return l.error("expected digits after decimal point")
		}
		return l.newToken(TokenFloat)
	}
	return l.newToken(TokenInteger)
}

// scanName reads a name or keyword.
func (l *Lexer) scanName() Token {
	l.acceptAll(isNamePart)
	t := l.newToken(TokenName)
	if keywords[t.Value] {
		t.Type = TokenKeyword
	}
	return t
}

// Helper methods

func (l *Lexer) eof() Token {
	return Token{
		Type:     TokenEOF,
		Position: l.current,
	}
}

func (l *Lexer) error(message string) Token {
	return l.errorAt(l.start, message)
}

func (l *Lexer) errorAt(offset int, message string) Token {
	t := Token{Type: TokenError, Value: l.input[offset:l.current], Position: offset}
	l.err = newSyntaxError(l.input, offset, message)
	return t
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.start,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.err != nil || l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) peek() rune {
	r := l.nextRune()
	l.backup()
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

// skipWhitespace skips blanks and # line comments.
func (l *Lexer) skipWhitespace() {
	for {
		l.acceptAll(isWhitespace)
		if !l.acceptRune('#') {
			break
		}
		l.acceptAll(func(r rune) bool { return r != '\n' && r != eof })
	}
	l.ignore()
}

// Character classification functions

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNamePart(r rune) bool {
	return isNameStart(r) || unicode.IsDigit(r)
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}
