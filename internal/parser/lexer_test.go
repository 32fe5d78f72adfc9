package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, t := range tokens {
		types[i] = t.Type
	}
	return types
}

func TestTokenizeSymbols(t *testing.T) {
	tokens, err := Tokenize(`( ) [ ] , ; . ^ = != < <= > >= =~`)
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenParenOpen, TokenParenClose, TokenBracketOpen, TokenBracketClose,
		TokenComma, TokenSemicolon, TokenDot, TokenCaret,
		TokenEqual, TokenNotEqual, TokenLess, TokenLessEqual,
		TokenGreater, TokenGreaterEqual, TokenMatch, TokenEOF,
	}, tokenTypes(tokens))
}

func TestTokenizeLiterals(t *testing.T) {
	tokens, err := Tokenize(`a.b >= -3.5 =~ /x\/y/ "q\"s" 42 NOW`)
	require.NoError(t, err)
	require.Len(t, tokens, 11)

	assert.Equal(t, []TokenType{
		TokenName, TokenDot, TokenName, TokenGreaterEqual, TokenFloat,
		TokenMatch, TokenRegex, TokenString, TokenInteger, TokenKeyword, TokenEOF,
	}, tokenTypes(tokens))

	assert.Equal(t, "-3.5", tokens[4].Value)
	assert.Equal(t, `x\/y`, tokens[6].Value)
	assert.Equal(t, 15, tokens[6].Position)
	assert.Equal(t, `q"s`, tokens[7].Value)
	assert.Equal(t, 22, tokens[7].Position)
	assert.Equal(t, "42", tokens[8].Value)
	assert.Equal(t, "NOW", tokens[9].Value)
}

func TestTokenizeStringEscapes(t *testing.T) {
	tokens, err := Tokenize(`"a\\b\nc\td\q"`)
	require.NoError(t, err)
	assert.Equal(t, "a\\b\nc\td\\q", tokens[0].Value)
}

func TestTokenizeKeywordsAreCaseSensitive(t *testing.T) {
	tokens, err := Tokenize(`WHERE where Where`)
	require.NoError(t, err)
	assert.Equal(t, []TokenType{TokenKeyword, TokenName, TokenName, TokenEOF}, tokenTypes(tokens))
}

func TestTokenizeSkipsComments(t *testing.T) {
	tokens, err := Tokenize("MATCH # first line\n  # another\nWHERE")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "MATCH", tokens[0].Value)
	assert.Equal(t, "WHERE", tokens[1].Value)
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		offset  int
		message string
	}{
		{"unterminated string", `a = "abc`, 4, "unterminated string literal"},
		{"unterminated regex", `a =~ /ab`, 5, "unterminated regular expression"},
		{"regex across newline", "a =~ /ab\n/", 5, "unterminated regular expression"},
		{"bare bang", `a ! b`, 2, "unexpected character '!'"},
		{"bare minus", `a - b`, 2, "unexpected '-'"},
		{"dangling decimal", `a = 1.`, 4, "expected digits after decimal point"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			require.Error(t, err)

			se, ok := err.(*SyntaxError)
			require.True(t, ok, "expected *SyntaxError, got %T", err)
			assert.Equal(t, tt.offset, se.Offset)
			assert.Equal(t, tt.message, se.Message)
		})
	}
}
